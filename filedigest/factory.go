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
	"github.com/spf13/afero"

	"github.com/erigontech/dedupe/blocking"
)

type computeFn func(fs afero.Fs, path string) (blocking.Key, error)

// fn is a single file digest: metadata plus the compute closure, bound to
// the Factory's filesystem at construction time.
type fn struct {
	fs      afero.Fs
	id      string
	name    string
	compute computeFn
}

func (f fn) Key(object any) (blocking.Key, error) {
	path, err := asPath(object)
	if err != nil {
		return nil, err
	}
	return f.compute(f.fs, path)
}

func (f fn) ID() string    { return f.id }
func (f fn) Name() string  { return f.name }
func (f fn) Class() string { return "files" }

// Factory implements blocking.Factory for the standard file digest chain,
// in cheapest-first preference order.
type Factory struct {
	fs afero.Fs
}

// NewFactory returns a Factory reading through fs. A nil fs defaults to
// the real OS filesystem.
func NewFactory(fs afero.Fs) *Factory {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Factory{fs: fs}
}

func (f *Factory) make(id, name string, compute computeFn) fn {
	return fn{fs: f.fs, id: id, name: name, compute: compute}
}

func (f *Factory) FileSize() blocking.Fn   { return f.make("filesize", "file size", fileSizeKey) }
func (f *Factory) Sample() blocking.Fn     { return f.make("sample", "initial sample", sampleKey) }
func (f *Factory) MidSample() blocking.Fn  { return f.make("mid_sample", "middle sample", midSampleKey) }
func (f *Factory) EndSample() blocking.Fn  { return f.make("end_sample", "final sample", endSampleKey) }
func (f *Factory) FileHead() blocking.Fn   { return f.make("file_head", "file head", fileHeadKey) }
func (f *Factory) FileTail() blocking.Fn   { return f.make("file_tail", "file tail", fileTailKey) }

func (f *Factory) FastInitialXXHash() blocking.Fn {
	return f.make("fast_initial_xxhash", "fast initial xxHash", fastInitialXXHashKey)
}
func (f *Factory) InitialXXHash() blocking.Fn {
	return f.make("initial_xxhash", "initial xxHash", initialXXHashKey)
}
func (f *Factory) FinalXXHash() blocking.Fn {
	return f.make("final_xxhash", "final xxHash", finalXXHashKey)
}
func (f *Factory) FastInitialSHA() blocking.Fn {
	return f.make("fast_initial_sha", "fast initial SHA-1", fastInitialSHAKey)
}
func (f *Factory) InitialSHA() blocking.Fn {
	return f.make("initial_sha", "initial SHA-1", initialSHAKey)
}
func (f *Factory) FinalSHA() blocking.Fn {
	return f.make("final_sha", "final SHA-1", finalSHAKey)
}
func (f *Factory) SHA() blocking.Fn { return f.make("sha", "full SHA-1", shaKey) }

// AllFunctions implements blocking.Factory, returning every available
// digest in preference order (cheap size/samples before expensive hashes).
func (f *Factory) AllFunctions() ([]any, error) {
	return []any{
		f.FileSize(),
		f.Sample(), f.MidSample(), f.EndSample(),
		f.FileHead(), f.FileTail(),
		f.FastInitialXXHash(), f.InitialXXHash(), f.FinalXXHash(),
		f.FastInitialSHA(), f.InitialSHA(), f.FinalSHA(),
		f.SHA(),
	}, nil
}

// ByID looks up a single digest by its stable id, for chain overrides.
func (f *Factory) ByID(id string) (blocking.Fn, bool) {
	all, _ := f.AllFunctions()
	for _, a := range all {
		if d, ok := a.(blocking.Described); ok && d.ID() == id {
			return a.(blocking.Fn), true
		}
	}
	return nil, false
}

// DefaultChain is the standard chain the file deduplicator uses:
// filesize -> initial_xxhash -> final_xxhash -> sha.
func (f *Factory) DefaultChain() []any {
	return []any{f.FileSize(), f.InitialXXHash(), f.FinalXXHash(), f.SHA()}
}
