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

package engine

import "github.com/erigontech/dedupe/blocking"

// Block is a terminal node of the partition tree: the set of objects
// indistinguishable under the key prefix in keys. A Block with fewer keys
// than the engine's full chain always holds exactly one object — it simply
// hasn't needed a further digest yet.
type Block struct {
	keys    []blocking.Key
	objects []any
}

func newBlock(prefix []blocking.Key, object any) *Block {
	keys := append([]blocking.Key(nil), prefix...)
	return &Block{keys: keys, objects: []any{object}}
}

// appendKey grows the key prefix by one level. Callers push a Block deeper
// exactly once per level, so this never needs to replace an existing key.
func (b *Block) appendKey(k blocking.Key) {
	b.keys = append(b.keys, k)
}

func (b *Block) appendObject(o any) {
	b.objects = append(b.objects, o)
}

// Keys returns the computed key prefix, one entry per blocking level
// resolved for this Block so far. Callers must not mutate the slice.
func (b *Block) Keys() []blocking.Key { return b.keys }

func (b *Block) Key(i int) blocking.Key { return b.keys[i] }

func (b *Block) NumKeys() int { return len(b.keys) }

// Objects returns the Block's objects in insertion order. Callers must not
// mutate the slice; use SetObject for the one sanctioned rewrite.
func (b *Block) Objects() []any { return b.objects }

func (b *Block) Object(i int) any { return b.objects[i] }

func (b *Block) NumObjects() int { return len(b.objects) }

// SetObject rewrites the object at index i in place. This is the single
// sanctioned post-ingestion mutation of engine state, used by consumers
// such as the file deduplicator's hardlink-path canonicalization.
func (b *Block) SetObject(i int, o any) {
	b.objects[i] = o
}
