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

package dedup

import "golang.org/x/sys/unix"

// inodeIdentity returns the device+inode pair for path on a real
// filesystem. On a virtual afero.Fs (tests), or if stat fails, it falls
// back to a synthetic identity keyed on the path itself — every path gets
// its own singleton bucket, and hardlink detection is simply a no-op.
func (d *Deduplicator) inodeIdentity(path string) inodeKey {
	if d.realFS {
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err == nil {
			return inodeKey{dev: uint64(st.Dev), ino: st.Ino}
		}
	}
	return inodeKey{synthetic: path}
}
