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

package blocking

import "testing"

type describedFn struct{}

func (describedFn) Key(object any) (Key, error) { return []byte("k"), nil }
func (describedFn) ID() string                  { return "d" }
func (describedFn) Name() string                 { return "Described" }
func (describedFn) Class() string                { return "test" }

type bareFn struct{}

func (bareFn) Key(object any) (Key, error) { return []byte("b"), nil }

type factory struct{ fns []any }

func (f factory) AllFunctions() ([]any, error) { return f.fns, nil }

func TestExpandFlatAndFactory(t *testing.T) {
	entries, err := Expand([]any{describedFn{}, factory{fns: []any{bareFn{}}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "d" || entries[0].Name != "Described" || entries[0].Class != "test" {
		t.Fatalf("metadata not propagated: %+v", entries[0])
	}
	if entries[1].ID != "" {
		t.Fatalf("bare fn should have empty metadata: %+v", entries[1])
	}
}

func TestExpandEmpty(t *testing.T) {
	entries, err := Expand(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
