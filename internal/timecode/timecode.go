// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

// Package timecode converts between textual timecodes and seconds, and splits
// durations into the minutes/seconds pair a Singular timer widget expects.
//
// Parse distinguishes "value unavailable" from zero: a string that is not a
// recognized timecode yields ok=false, never an error, because playback
// devices routinely report empty or placeholder values for idle slots.
package timecode

import (
	"math"
	"strconv"
	"strings"
)

// roundEpsilon guards the exact-boundary case: a value that is conceptually
// exactly at a rounding boundary (e.g. 59.999 -> 60.00) must not under-round
// due to float representation error.
const roundEpsilon = 1e-9

// Parse converts a timecode string to seconds.
//
// Accepted forms: "H:MM:SS.ff", "MM:SS.ff", or a bare numeric string.
// Any other shape yields ok=false.
func Parse(s string) (seconds float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		switch len(parts) {
		case 3:
			h, err1 := strconv.Atoi(parts[0])
			m, err2 := strconv.Atoi(parts[1])
			sec, err3 := strconv.ParseFloat(parts[2], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return 0, false
			}
			return float64(h)*3600 + float64(m)*60 + sec, true
		case 2:
			m, err1 := strconv.Atoi(parts[0])
			sec, err2 := strconv.ParseFloat(parts[1], 64)
			if err1 != nil || err2 != nil {
				return 0, false
			}
			return float64(m)*60 + sec, true
		default:
			return 0, false
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Split splits a total duration into whole minutes and a seconds remainder
// rounded to 2 decimal places.
//
// Negative input is clamped to zero. When roundToFrames is true and fps is
// positive, the total is first rounded to the nearest frame boundary. If the
// seconds component rounds up to 60.0 the carry is propagated into minutes;
// the returned seconds value is always < 60.0.
func Split(totalSeconds, fps float64, roundToFrames bool) (minutes int, seconds float64) {
	ts := math.Max(0, totalSeconds)
	if roundToFrames && fps > 0 {
		ts = math.Round(ts*fps) / fps
	}

	minutes = int(ts / 60)
	seconds = ts - float64(minutes)*60
	seconds = math.Round((seconds+roundEpsilon)*100) / 100
	if seconds >= 60.0 {
		minutes++
		seconds = 0.0
	}
	return minutes, seconds
}

// Round2 rounds a seconds value to 2 decimal places. Sync delta comparisons
// use this so float jitter between polls never looks like a changed value.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
