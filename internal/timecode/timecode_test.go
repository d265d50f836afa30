// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package timecode

import (
	"fmt"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"1:02:03.5", 3723.5, true},
		{"0:00:00", 0, true},
		{"10:30:00.04", 37800.04, true},
		{"02:05.5", 125.5, true},
		{"00:59.99", 59.99, true},
		{"125.004", 125.004, true},
		{"90", 90, true},
		{"  12.5  ", 12.5, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"1:2:3:4", 0, false},
		{"x:30:00", 0, false},
		{"1:xx:00", 0, false},
		{"10:zz", 0, false},
		{"--:--", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok: expected %v, got %v", tt.input, tt.wantOK, ok)
			}
			if ok && math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Parse(%q): expected %v, got %v", tt.input, tt.want, got)
			}
		})
	}
}

// TestParseRoundTrip verifies the documented property: every valid timecode
// form round-trips through Parse to the same seconds value within 0.01.
func TestParseRoundTrip(t *testing.T) {
	for _, secs := range []float64{0, 0.04, 59.99, 60, 125.004, 3599.5, 3723.52, 86400} {
		h := int(secs) / 3600
		m := (int(secs) % 3600) / 60
		rem := secs - float64(h*3600+m*60)

		forms := []string{
			fmt.Sprintf("%d:%02d:%05.2f", h, m, rem),
			fmt.Sprintf("%v", secs),
		}
		if h == 0 {
			forms = append(forms, fmt.Sprintf("%d:%05.2f", m, rem))
		}

		for _, form := range forms {
			got, ok := Parse(form)
			if !ok {
				t.Errorf("Parse(%q) unexpectedly failed", form)
				continue
			}
			if math.Abs(got-secs) > 0.01 {
				t.Errorf("Parse(%q): expected %v within 0.01, got %v", form, secs, got)
			}
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		total         float64
		fps           float64
		roundToFrames bool
		wantMin       int
		wantSec       float64
	}{
		{"frame rounding snaps to boundary", 125.004, 25, true, 2, 5.0},
		{"carry at raw rounding step", 59.999, 0, false, 1, 0.0},
		{"exact minute", 120, 0, false, 2, 0.0},
		{"zero", 0, 0, false, 0, 0.0},
		{"negative clamped", -5, 0, false, 0, 0.0},
		{"plain split", 95.25, 0, false, 1, 35.25},
		{"rounding disabled ignores fps", 125.004, 25, false, 2, 5.0},
		{"fps zero disables frame rounding", 61.337, 0, true, 1, 1.34},
		{"carry after frame rounding", 119.999, 25, true, 2, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMin, gotSec := Split(tt.total, tt.fps, tt.roundToFrames)
			if gotMin != tt.wantMin {
				t.Errorf("minutes: expected %d, got %d", tt.wantMin, gotMin)
			}
			if math.Abs(gotSec-tt.wantSec) > 0.001 {
				t.Errorf("seconds: expected %v, got %v", tt.wantSec, gotSec)
			}
		})
	}
}

// TestSplitSecondsNeverSixty asserts the carry is exact: no combination of
// duration and framerate may ever produce a seconds component >= 60.
func TestSplitSecondsNeverSixty(t *testing.T) {
	framerates := []float64{23.976, 24, 25, 29.97, 30, 50, 59.94, 60}
	for step := 0; step < 12000; step++ {
		total := float64(step) * 0.01001
		for _, fps := range framerates {
			_, sec := Split(total, fps, true)
			if sec >= 60.0 {
				t.Fatalf("Split(%v, %v, true) produced seconds %v >= 60", total, fps, sec)
			}
		}
		_, sec := Split(total, 0, false)
		if sec >= 60.0 {
			t.Fatalf("Split(%v, 0, false) produced seconds %v >= 60", total, sec)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(12.5); got != 12.5 {
		t.Errorf("Round2(12.5): expected 12.5, got %v", got)
	}
	if got := Round2(1.2345); got != 1.23 {
		t.Errorf("Round2(1.2345): expected 1.23, got %v", got)
	}
}
