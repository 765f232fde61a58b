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

// Package filedigest provides the concrete blocking.Fn chain the file
// deduplicator uses: size, sampled segments, and content hashes, cheapest
// first.
package filedigest

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/erigontech/dedupe/blocking"
)

const (
	headTailSize = 1024
	sampleSize   = 128
)

func asPath(object any) (string, error) {
	path, ok := object.(string)
	if !ok {
		return "", fmt.Errorf("filedigest: object is %T, want a file path string", object)
	}
	return path, nil
}

func encodeUint64(v uint64) blocking.Key {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func xxh(b []byte) blocking.Key {
	return encodeUint64(xxhash.Sum64(b))
}

func sha1sum(b []byte) blocking.Key {
	sum := sha1.Sum(b)
	return sum[:]
}

func fileSizeKey(fs afero.Fs, path string) (blocking.Key, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	return encodeUint64(uint64(info.Size())), nil
}

func sampleKey(fs afero.Fs, path string) (blocking.Key, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	cluster := fileMeta(path, size)
	off, length := centeredWindow(0, cluster, sampleSize)
	return readSegment(fs, path, off, length)
}

func midSampleKey(fs afero.Fs, path string) (blocking.Key, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	cluster := fileMeta(path, size)
	if cluster <= 0 {
		return []byte{}, nil
	}
	midOff := ((size / 2) / cluster) * cluster
	if midOff+cluster > size {
		midOff = size - cluster
		if midOff < 0 {
			midOff = 0
		}
	}
	midLen := cluster
	if midOff+midLen > size {
		midLen = size - midOff
	}
	off, length := centeredWindow(midOff, midLen, sampleSize)
	return readSegment(fs, path, off, length)
}

func endSampleKey(fs afero.Fs, path string) (blocking.Key, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	cluster := fileMeta(path, size)
	lastOff, lastLen := lastClusterRange(size, cluster, sampleSize)
	off, length := centeredWindow(lastOff, lastLen, sampleSize)
	return readSegment(fs, path, off, length)
}

func fileHeadKey(fs afero.Fs, path string) (blocking.Key, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	length := info.Size()
	if length > headTailSize {
		length = headTailSize
	}
	return readSegment(fs, path, 0, length)
}

func fileTailKey(fs afero.Fs, path string) (blocking.Key, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	off := size - headTailSize
	if off < 0 {
		off = 0
	}
	return readSegment(fs, path, off, size-off)
}

func fastInitialSegment(fs afero.Fs, path string) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	cluster := fileMeta(path, size)
	return readSegment(fs, path, 0, cluster/2)
}

func initialSegment(fs afero.Fs, path string) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	cluster := fileMeta(path, size)
	return readSegment(fs, path, 0, cluster)
}

func finalSegment(fs afero.Fs, path string) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()
	cluster := fileMeta(path, size)
	off, length := lastClusterRange(size, cluster, cluster/2)
	return readSegment(fs, path, off, length)
}

func fastInitialXXHashKey(fs afero.Fs, path string) (blocking.Key, error) {
	b, err := fastInitialSegment(fs, path)
	if err != nil {
		return nil, err
	}
	return xxh(b), nil
}

func initialXXHashKey(fs afero.Fs, path string) (blocking.Key, error) {
	b, err := initialSegment(fs, path)
	if err != nil {
		return nil, err
	}
	return xxh(b), nil
}

func finalXXHashKey(fs afero.Fs, path string) (blocking.Key, error) {
	b, err := finalSegment(fs, path)
	if err != nil {
		return nil, err
	}
	return xxh(b), nil
}

func fastInitialSHAKey(fs afero.Fs, path string) (blocking.Key, error) {
	b, err := fastInitialSegment(fs, path)
	if err != nil {
		return nil, err
	}
	return sha1sum(b), nil
}

func initialSHAKey(fs afero.Fs, path string) (blocking.Key, error) {
	b, err := initialSegment(fs, path)
	if err != nil {
		return nil, err
	}
	return sha1sum(b), nil
}

func finalSHAKey(fs afero.Fs, path string) (blocking.Key, error) {
	b, err := finalSegment(fs, path)
	if err != nil {
		return nil, err
	}
	return sha1sum(b), nil
}

func shaKey(fs afero.Fs, path string) (blocking.Key, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
