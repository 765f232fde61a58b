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

// Package dedup implements the file-tree deduplicator application: it
// scans directories into the hierarchical blocking engine, handling
// hardlinks, symlinks, unreadable files, and empty files the way a
// file-system-oriented consumer needs to.
package dedup

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/erigontech/dedupe/blocking"
	"github.com/erigontech/dedupe/engine"
	"github.com/erigontech/dedupe/filedigest"
)

// ProgressFunc is invoked once per file the scanner decides to process
// (i.e. not skipped as a directory, symlink, hardlink duplicate, or
// filtered by size), after the unreadable check.
type ProgressFunc func(size int64, ignoredUnreadable bool)

// Config configures a Deduplicator.
type Config struct {
	// IgnoreEmpty drops zero-length files during scan.
	IgnoreEmpty bool
	// MinSize drops files smaller than MinSize bytes. IgnoreEmpty is
	// equivalent to MinSize = 1 and the stricter of the two applies.
	MinSize int64
	// Blocking overrides the default file digest chain
	// (filesize -> initial_xxhash -> final_xxhash -> sha). Items are the
	// same shape engine.Config.Blocking accepts.
	Blocking []any
	// Progress is called once per scanned file; may be nil.
	Progress ProgressFunc
	// Logger receives warnings (e.g. unreadable files). Defaults to a
	// no-op logger.
	Logger *zap.SugaredLogger
	// FS is the filesystem to scan. Defaults to the real OS filesystem.
	// A non-OS Fs (e.g. afero.NewMemMapFs for tests) disables hardlink
	// detection, since virtual filesystems have no device/inode identity.
	FS afero.Fs
}

// inodeKey identifies a file's hardlink group. synthetic is used when the
// filesystem can't report a real device/inode pair.
type inodeKey struct {
	dev, ino  uint64
	synthetic string
}

// Deduplicator scans directory trees and feeds an Engine, tracking
// hardlink groups so that only one path per inode is ever considered for
// blocking.
type Deduplicator struct {
	cfg    Config
	fs     afero.Fs
	engine *engine.Engine
	logger *zap.SugaredLogger
	realFS bool

	buckets map[inodeKey]*[]string
	order   []inodeKey
	// firstPath maps the one path fed into the engine for each bucket, and
	// any path Duplicates has since rewritten it to, back to that bucket,
	// so Duplicates can find it again.
	firstPath map[string]*[]string

	totalFiles      int
	unreadableCount int
	unreadableBytes int64
}

// Stats aggregates scan-time and engine-derived counters for reporting,
// without requiring the caller to walk Engine.Blocks() itself.
type Stats struct {
	TotalFiles         int
	UnreadableCount    int
	UnreadableBytes    int64
	UniqueCount        int
	DuplicateSetCount  int
	DuplicateFileCount int
}

// Stats computes the current Stats snapshot from scan counters and the
// engine's blocks as of the last Duplicates/Scan call.
func (d *Deduplicator) Stats() Stats {
	s := Stats{
		TotalFiles:      d.totalFiles,
		UnreadableCount: d.unreadableCount,
		UnreadableBytes: d.unreadableBytes,
	}
	for _, b := range d.engine.Blocks() {
		if b.NumObjects() < 2 {
			s.UniqueCount++
			continue
		}
		s.DuplicateSetCount++
		s.DuplicateFileCount += b.NumObjects() - 1
	}
	return s
}

// New builds a Deduplicator. Its blocking chain is resolved once, from
// cfg.Blocking or the standard filedigest chain.
func New(cfg Config) (*Deduplicator, error) {
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	_, realFS := fs.(*afero.OsFs)

	items := cfg.Blocking
	if items == nil {
		items = filedigest.NewFactory(fs).DefaultChain()
	}
	eng, err := engine.New(engine.Config{Blocking: items})
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Deduplicator{
		cfg:       cfg,
		fs:        fs,
		engine:    eng,
		logger:    logger,
		realFS:    realFS,
		buckets:   make(map[inodeKey]*[]string),
		firstPath: make(map[string]*[]string),
	}, nil
}

// Blocking returns the resolved digest chain, with metadata, in use.
func (d *Deduplicator) Blocking() []blocking.Entry { return d.engine.Blocking() }

// CountDigests delegates to Engine.CountKeysComputed.
func (d *Deduplicator) CountDigests() []int { return d.engine.CountKeysComputed() }

// CountCollisions delegates to Engine.CountCollisions.
func (d *Deduplicator) CountCollisions() []int { return d.engine.CountCollisions() }

// ScanOptions overrides Config defaults for a single Scan call.
type ScanOptions struct {
	IgnoreEmpty *bool
	Progress    ProgressFunc
}

// Scan walks dirs using Config's defaults. Multiple directories may be
// scanned in one call, or across repeated calls — hardlink buckets and the
// engine persist either way.
func (d *Deduplicator) Scan(ctx context.Context, dirs ...string) error {
	return d.ScanWithOptions(ctx, ScanOptions{}, dirs...)
}

// ScanWithOptions is Scan with per-call overrides.
func (d *Deduplicator) ScanWithOptions(ctx context.Context, opts ScanOptions, dirs ...string) error {
	ignoreEmpty := d.cfg.IgnoreEmpty
	if opts.IgnoreEmpty != nil {
		ignoreEmpty = *opts.IgnoreEmpty
	}
	progress := d.cfg.Progress
	if opts.Progress != nil {
		progress = opts.Progress
	}
	minSize := d.cfg.MinSize
	if ignoreEmpty && minSize < 1 {
		minSize = 1
	}

	for _, dir := range dirs {
		if err := d.scanOne(ctx, dir, minSize, progress); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deduplicator) scanOne(ctx context.Context, root string, minSize int64, progress ProgressFunc) error {
	return afero.Walk(d.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("dedup: walk %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		size := info.Size()
		if size < minSize {
			return nil
		}
		d.totalFiles++

		bucket := d.bucketFor(d.inodeIdentity(path))
		prior := len(*bucket)
		*bucket = append(*bucket, path)
		if prior >= 1 {
			// Hardlink to a path already represented in the engine.
			return nil
		}

		f, openErr := d.fs.Open(path)
		if openErr != nil {
			d.logger.Warnw("skipping unreadable file", "path", path, "err", openErr)
			d.unreadableCount++
			d.unreadableBytes += size
			if progress != nil {
				progress(size, true)
			}
			return nil
		}
		f.Close()

		d.firstPath[path] = bucket
		if err := d.engine.Add(path); err != nil {
			return fmt.Errorf("dedup: add %s: %w", path, err)
		}
		if progress != nil {
			progress(size, false)
		}
		return nil
	})
}

func (d *Deduplicator) bucketFor(key inodeKey) *[]string {
	b, ok := d.buckets[key]
	if !ok {
		nb := []string{}
		b = &nb
		d.buckets[key] = b
		d.order = append(d.order, key)
	}
	return b
}

// Hardlinks returns every inode-path bucket discovered during scanning, in
// first-seen order.
func (d *Deduplicator) Hardlinks() [][]string {
	out := make([][]string, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, append([]string(nil), *d.buckets[k]...))
	}
	return out
}

// Duplicates returns one path group per engine Block. A path belonging to
// an inode bucket of size >= 2 is replaced by resolveHardlinks(bucket);
// that replacement is persisted into the engine, so a later call to
// Duplicates(nil) observes the resolved path. Pass nil to read paths
// as last resolved (or as scanned, if never resolved).
func (d *Deduplicator) Duplicates(resolveHardlinks func([]string) string) [][]string {
	blocks := d.engine.Blocks()
	out := make([][]string, 0, len(blocks))
	for _, b := range blocks {
		group := make([]string, b.NumObjects())
		for i := 0; i < b.NumObjects(); i++ {
			path, _ := b.Object(i).(string)
			if resolveHardlinks != nil {
				if bucket, ok := d.firstPath[path]; ok && len(*bucket) >= 2 {
					canonical := resolveHardlinks(*bucket)
					b.SetObject(i, canonical)
					d.firstPath[canonical] = bucket
					path = canonical
				}
			}
			group[i] = path
		}
		out = append(out, group)
	}
	return out
}
