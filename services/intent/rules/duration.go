// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 1440
)

// Duration formats, tried in order. The first that matches wins.
var (
	// 90
	durationPlainRe = regexp.MustCompile(`^(\d+)$`)

	// 1.5, 1.5h, 2.hours
	durationDecimalRe = regexp.MustCompile(`(?i)^(\d+)\.(\d+)?(h|hr|hrs|hour|hours)?$`)

	// 1d2h30m, 2 days 3 hours, 45min. Every part is optional.
	durationUnitsRe = regexp.MustCompile(`(?i)^((\d+) *?(d|dy|dys|day|days))? *?((\d+) *?(h|hr|hrs|hour|hours))? *?((\d+) *?(m|min|mins|minute|minutes))?$`)

	// 1:02:03 (d:h:m) or 02:03 (h:m)
	durationClockRe = regexp.MustCompile(`^(?:(\d+):)?(\d+):(\d+)$`)
)

// Duration converts human duration text to whole minutes.
//
// # Description
//
// Recognised formats:
//
//	90            plain minutes
//	1.5h / 1.5    decimal hours, unit optional
//	1d2h30m       days, hours, minutes; each part optional, long units allowed
//	1:02:03       d:h:m, or h:m when only two fields are given
//
// Matching is case-insensitive. Empty text is rejected.
//
// # Outputs
//
//   - bool: True if a format matched.
//   - any: int minutes.
func Duration(value any, _ any) (bool, any) {
	text := strings.TrimSpace(AsText(value))
	if text == "" {
		return false, nil
	}

	var parts [3]string // days, hours, minutes

	switch {
	case durationPlainRe.MatchString(text):
		parts[2] = text

	case durationDecimalRe.MatchString(text):
		m := durationDecimalRe.FindStringSubmatch(text)
		hours, ok := atoi(m[1])
		if !ok {
			return false, nil
		}
		frac := m[2]
		if frac == "" {
			frac = "0"
		}
		f, err := strconv.ParseFloat("0."+frac, 64)
		if err != nil {
			return false, nil
		}
		return totalMinutes(0, hours, int(minutesPerHour*f))

	case durationUnitsRe.MatchString(text):
		m := durationUnitsRe.FindStringSubmatch(text)
		parts = [3]string{m[2], m[5], m[8]}

	case durationClockRe.MatchString(text):
		m := durationClockRe.FindStringSubmatch(text)
		parts = [3]string{m[1], m[2], m[3]}

	default:
		return false, nil
	}

	var n [3]int
	for i, p := range parts {
		v, ok := atoi(p)
		if !ok {
			return false, nil
		}
		n[i] = v
	}
	return totalMinutes(n[0], n[1], n[2])
}

// totalMinutes sums the parts, rejecting totals that do not fit in an int.
func totalMinutes(days, hours, minutes int) (bool, any) {
	if days > math.MaxInt/minutesPerDay || hours > math.MaxInt/minutesPerHour {
		return false, nil
	}
	total := days * minutesPerDay
	if hours*minutesPerHour > math.MaxInt-total {
		return false, nil
	}
	total += hours * minutesPerHour
	if minutes > math.MaxInt-total {
		return false, nil
	}
	return true, total + minutes
}

// atoi parses a regexp group of digits. An empty group is zero; digits that
// overflow an int are rejected.
func atoi(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
