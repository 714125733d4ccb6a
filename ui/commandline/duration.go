// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import "time"

// FormatDuration pretty prints duration without a long tail of decimals.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		d = d.Round(time.Second)
	case d >= time.Second:
		d = d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		d = d.Round(10 * time.Microsecond)
	case d >= time.Microsecond:
		d = d.Round(10 * time.Nanosecond)
	}
	return d.String()
}
