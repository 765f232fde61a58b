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

// Package robot implements the machine-readable "robot" output format: one
// line per duplicate group, tab-separated paths, everything sorted for a
// stable diff-friendly report.
package robot

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// Format writes groups (each a set of paths that share content) to w, one
// line per group of size >= 2, tab-separated and lexicographically sorted
// both within and across lines. Groups of size < 2 carry no duplicate
// information and are dropped.
func Format(w io.Writer, groups [][]string) error {
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		sorted := append([]string(nil), g...)
		sort.Strings(sorted)
		lines = append(lines, strings.Join(sorted, "\t"))
	}
	sort.Strings(lines)

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
