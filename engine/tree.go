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

// slot is a cell holding nothing, a Block, or a keyStore — never both.
type slot struct {
	block *Block
	store *keyStore
}

func (s *slot) empty() bool { return s.block == nil && s.store == nil }

// keyStore is a non-terminal node at some blocking level: a map from the
// digest at that level to a child slot. It is created the first time a
// second object needs to be distinguished at its level, and never destroyed.
type keyStore struct {
	children map[string]*slot
}

func newKeyStore() *keyStore {
	return &keyStore{children: make(map[string]*slot)}
}

// getMut returns the slot for k, creating an empty one if absent.
func (ks *keyStore) getMut(k blocking.Key) *slot {
	sk := string(k)
	s, ok := ks.children[sk]
	if !ok {
		s = &slot{}
		ks.children[sk] = s
	}
	return s
}

func (ks *keyStore) set(k blocking.Key, s *slot) {
	ks.children[string(k)] = s
}

func (ks *keyStore) slots() []*slot {
	out := make([]*slot, 0, len(ks.children))
	for _, s := range ks.children {
		out = append(out, s)
	}
	return out
}

func (ks *keyStore) numChildren() int { return len(ks.children) }
