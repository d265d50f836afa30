// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package registry

import (
	"strconv"
	"strings"

	"github.com/elliottw/singularsync/internal/singular"
)

// CoerceValue converts a raw string value to the native type the field
// expects. Numeric fields get ints when the string has no decimal point,
// floats otherwise; boolean-ish fields accept the usual truthy spellings.
// Unconvertible numerics and unknown field types pass through as strings.
// asString bypasses coercion entirely.
func CoerceValue(field singular.Field, value string, asString bool) any {
	if asString {
		return value
	}

	switch strings.ToLower(field.Type) {
	case "number", "range", "slider":
		if strings.Contains(value, ".") {
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				return f
			}
			return value
		}
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		return value
	case "checkbox", "toggle", "bool", "boolean":
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		}
		return false
	}
	return value
}
