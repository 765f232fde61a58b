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

package filedigest

import (
	"io"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/erigontech/dedupe/internal/intmath"
)

const defaultBlockSize = 4096

// clusterSize returns min(size, blksize-or-4096), per spec: the cluster is
// never larger than the file itself.
func clusterSize(size, blksize int64) int64 {
	b := blksize
	if b <= 0 {
		b = defaultBlockSize
	}
	if size < b {
		return size
	}
	return b
}

// statBlksize best-efforts the filesystem block size for path via a raw
// stat(2); callers fall back to the default when it can't be determined
// (e.g. an in-memory afero.Fs in tests).
func statBlksize(path string) int64 {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0
	}
	return int64(st.Blksize)
}

func fileMeta(path string, size int64) int64 {
	return clusterSize(size, statBlksize(path))
}

// lastClusterRange implements the "last cluster" heuristic shared by
// *_end samples and final_* hashes: the natural last cluster, backed off
// by one full cluster when it would otherwise be shorter than threshold.
func lastClusterRange(size, cluster, threshold int64) (off, length int64) {
	if size <= 0 || cluster <= 0 {
		return 0, 0
	}
	numClusters := intmath.CeilDiv(int(size), int(cluster))
	off = int64(numClusters-1) * cluster
	length = size - off
	if length < threshold && off >= cluster {
		off -= cluster
		length = cluster
	}
	return off, length
}

// centeredWindow picks up to want bytes centred within [rangeOff, rangeOff+rangeLen),
// returning the whole range if it's shorter than want.
func centeredWindow(rangeOff, rangeLen, want int64) (off, length int64) {
	if rangeLen <= want {
		return rangeOff, rangeLen
	}
	margin := intmath.AbsoluteDifference(uint64(rangeLen), uint64(want))
	return rangeOff + int64(margin)/2, want
}

// readSegment reads up to length bytes starting at off. Short reads at
// end-of-file are not an error; the returned slice is simply shorter.
func readSegment(fs afero.Fs, path string, off, length int64) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if off > 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}
