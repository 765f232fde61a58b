// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package humanizefmt formats byte counts and item counts for progress and
// statistics output.
package humanizefmt

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

var units = [...]string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// IECBytes renders n using binary (1024-based) unit prefixes, e.g.
// "1.5 MiB". Values under 1024 are rendered as a plain byte count.
func IECBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	f := float64(n)
	u := 0
	for f >= 1024 && u < len(units)-1 {
		f /= 1024
		u++
	}
	return fmt.Sprintf("%.1f %s", f, units[u])
}

// Count renders an item count with thousands separators, e.g. "12,345".
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Rate renders n done out of total as a percentage, guarding against
// division by zero.
func Rate(done, total int) string {
	if total == 0 {
		return "100.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(done)/float64(total))
}
