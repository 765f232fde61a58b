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

// Package engine implements the hierarchical blocking (dedup) engine: a
// lazy, multi-level partitioning tree that computes each successive digest
// only when needed to distinguish objects previously indistinguishable.
package engine

import (
	"fmt"

	"github.com/erigontech/dedupe/blocking"
)

// Config configures an Engine. Blocking holds the flat/factory list
// described by blocking.Expand; the default is empty, which collapses
// every object added into a single Block.
type Config struct {
	Blocking []any
}

// Engine owns the root slot and drives add/query/collision-count
// operations. It is not safe for concurrent use: Add, Blocks and the count
// queries must not be called concurrently.
type Engine struct {
	fns    []blocking.Entry
	root   slot
	blocks []*Block
}

// New expands cfg.Blocking and returns a ready Engine, or a *blocking.ConfigError
// if the configuration is malformed.
func New(cfg Config) (*Engine, error) {
	entries, err := blocking.Expand(cfg.Blocking)
	if err != nil {
		return nil, err
	}
	return &Engine{fns: entries}, nil
}

// Blocking returns the resolved flat list of blocking functions, in the
// order they are applied.
func (e *Engine) Blocking() []blocking.Entry {
	return append([]blocking.Entry(nil), e.fns...)
}

// Add ingests object, descending the tree and computing only the digests
// needed to keep it distinguished from objects already present.
func (e *Engine) Add(object any) error {
	return e.add(&e.root, 0, nil, object)
}

func (e *Engine) add(s *slot, level int, accumulated []blocking.Key, object any) error {
	n := len(e.fns)

	if level == n {
		if s.empty() {
			e.install(s, accumulated, object)
			return nil
		}
		// Invariant 1/3: a slot this deep can only be a Block.
		s.block.appendObject(object)
		return nil
	}

	if s.empty() {
		// Laziness: the level-L digest is never computed for the first
		// object to reach this slot.
		e.install(s, accumulated, object)
		return nil
	}

	if s.block != nil {
		// Exactly one object here (invariant 3): split this level.
		existing := s.block
		existingObject := existing.objects[0]
		existingKey, err := e.fns[level].Fn.Key(existingObject)
		if err != nil {
			return fmt.Errorf("engine: compute %s for existing object: %w", fnLabel(e.fns[level]), err)
		}
		existing.appendKey(existingKey)

		ks := newKeyStore()
		ks.set(existingKey, &slot{block: existing})
		s.block = nil
		s.store = ks
	}

	key, err := e.fns[level].Fn.Key(object)
	if err != nil {
		return fmt.Errorf("engine: compute %s for new object: %w", fnLabel(e.fns[level]), err)
	}
	next := append(append([]blocking.Key(nil), accumulated...), key)
	child := s.store.getMut(key)
	return e.add(child, level+1, next, object)
}

func (e *Engine) install(s *slot, accumulated []blocking.Key, object any) {
	b := newBlock(accumulated, object)
	s.block = b
	e.blocks = append(e.blocks, b)
}

func fnLabel(entry blocking.Entry) string {
	if entry.ID != "" {
		return entry.ID
	}
	return "blocking function"
}

// Blocks returns every Block ever created, in creation order. Consumers
// must not mutate the returned Blocks except through Block.SetObject.
func (e *Engine) Blocks() []*Block {
	return append([]*Block(nil), e.blocks...)
}

// CountKeysComputed returns, per level, how many times that level's
// blocking function was invoked. The result is non-increasing; trailing
// zero levels are omitted.
func (e *Engine) CountKeysComputed() []int {
	n := len(e.fns)
	counts := make([]int, n)
	for _, b := range e.blocks {
		for level := 0; level < b.NumKeys(); level++ {
			counts[level] += b.NumObjects()
		}
	}
	return trimTrailingZeros(counts)
}

// CountCollisions returns, per level, the number of distinct terminal
// Blocks reachable through a single key beyond the first — i.e. pairs of
// Blocks that still needed a deeper level to be told apart. The result has
// one entry per level whose digest was computed at least once, so the last
// entry is always 0; levels never computed are omitted.
func (e *Engine) CountCollisions() []int {
	n := len(e.fns)
	if n == 0 {
		return []int{}
	}
	vec, _ := countCollisions(&e.root, 0, n)
	return vec[:len(e.CountKeysComputed())]
}

// countCollisions walks the subtree rooted at s (at the given depth),
// returning the per-level collision vector accumulated from this subtree
// and the number of terminal Blocks reachable within it.
func countCollisions(s *slot, level, n int) ([]int, int) {
	vec := make([]int, n)
	if s.empty() {
		return vec, 0
	}
	if s.block != nil {
		return vec, 1
	}

	reachable := 0
	collisionsHere := 0
	for _, child := range s.store.slots() {
		childVec, childReachable := countCollisions(child, level+1, n)
		addInto(vec, childVec)
		reachable += childReachable
		if childReachable > 1 {
			collisionsHere += childReachable - 1
		}
	}
	if level < n {
		vec[level] += collisionsHere
	}
	return vec, reachable
}

func addInto(dst, src []int) {
	for i, v := range src {
		dst[i] += v
	}
}

func trimTrailingZeros(v []int) []int {
	last := len(v)
	for last > 0 && v[last-1] == 0 {
		last--
	}
	return v[:last]
}
