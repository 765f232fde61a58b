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

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/dedupe/blocking"
)

// item is the test Object: a two-field tuple, mirroring spec.md's
// [letter, number] scenario fixtures.
type item struct {
	letter string
	number int
}

// fnFunc adapts a plain function to blocking.Fn.
type fnFunc func(object any) (blocking.Key, error)

func (f fnFunc) Key(object any) (blocking.Key, error) { return f(object) }

func firstLetter(object any) (blocking.Key, error) {
	return []byte(object.(item).letter), nil
}

func numberMod(m int) fnFunc {
	return func(object any) (blocking.Key, error) {
		return []byte{byte(object.(item).number % m)}, nil
	}
}

func objectsOf(b *Block) []item {
	out := make([]item, b.NumObjects())
	for i := range out {
		out[i] = b.Object(i).(item)
	}
	return out
}

func TestScenarioA_TrivialBlocking(t *testing.T) {
	e, err := New(Config{Blocking: []any{fnFunc(firstLetter)}})
	require.NoError(t, err)

	for _, o := range []item{{"A", 1}, {"B", 2}, {"A", 4}, {"C", 3}} {
		require.NoError(t, e.Add(o))
	}

	blocks := e.Blocks()
	require.Len(t, blocks, 3)

	byKey := map[string][]item{}
	for _, b := range blocks {
		require.Len(t, b.Keys(), 1)
		byKey[string(b.Key(0))] = objectsOf(b)
	}
	require.ElementsMatch(t, []item{{"A", 1}, {"A", 4}}, byKey["A"])
	require.ElementsMatch(t, []item{{"B", 2}}, byKey["B"])
	require.ElementsMatch(t, []item{{"C", 3}}, byKey["C"])
}

func TestScenarioB_TwoLevelBlocking(t *testing.T) {
	e, err := New(Config{Blocking: []any{fnFunc(firstLetter), fnFunc(numberMod(2))}})
	require.NoError(t, err)

	for _, o := range []item{{"A", 1}, {"B", 2}, {"C", 3}, {"A", 4}} {
		require.NoError(t, e.Add(o))
	}

	blocks := e.Blocks()
	require.Len(t, blocks, 4)

	type want struct {
		keys    []string
		objects []item
	}
	wants := []want{
		{[]string{"A", "\x00"}, []item{{"A", 4}}},
		{[]string{"A", "\x01"}, []item{{"A", 1}}},
		{[]string{"B"}, []item{{"B", 2}}},
		{[]string{"C"}, []item{{"C", 3}}},
	}
	for _, w := range wants {
		found := false
		for _, b := range blocks {
			if keysMatch(b, w.keys) {
				require.ElementsMatch(t, w.objects, objectsOf(b))
				found = true
				break
			}
		}
		require.Truef(t, found, "no block with keys %q", w.keys)
	}
}

func keysMatch(b *Block, want []string) bool {
	if b.NumKeys() != len(want) {
		return false
	}
	for i, k := range want {
		if string(b.Key(i)) != k {
			return false
		}
	}
	return true
}

func TestScenarioC_CollisionCounts(t *testing.T) {
	e, err := New(Config{Blocking: []any{
		fnFunc(firstLetter),
		fnFunc(numberMod(2)),
		fnFunc(numberMod(3)),
		fnFunc(numberMod(5)),
	}})
	require.NoError(t, err)

	// [A,1..7 by 3],[B,2..8 by 3],[C,3..9 by 3] -> 9 objects total.
	for _, letter := range []string{"A", "B", "C"} {
		start := map[string]int{"A": 1, "B": 2, "C": 3}[letter]
		for n := start; n <= start+6; n += 3 {
			require.NoError(t, e.Add(item{letter, n}))
		}
	}

	require.Equal(t, []int{6, 3, 3, 0}, e.CountCollisions())
}

func TestInvariant_EachFnInvokedAtMostOnce(t *testing.T) {
	calls := map[item]int{}
	tracked := fnFunc(func(object any) (blocking.Key, error) {
		o := object.(item)
		calls[o]++
		return []byte(o.letter), nil
	})
	e, err := New(Config{Blocking: []any{tracked, fnFunc(numberMod(7))}})
	require.NoError(t, err)

	objs := []item{{"A", 1}, {"A", 2}, {"A", 3}, {"B", 1}, {"A", 4}}
	for _, o := range objs {
		require.NoError(t, e.Add(o))
	}
	for o, n := range calls {
		require.LessOrEqualf(t, n, 1, "object %v: fn invoked %d times", o, n)
	}
}

func TestInvariant_BlockLengthBoundsAndSingleObject(t *testing.T) {
	e, err := New(Config{Blocking: []any{fnFunc(firstLetter), fnFunc(numberMod(2))}})
	require.NoError(t, err)
	objs := []item{{"A", 1}, {"B", 2}, {"A", 2}}
	for _, o := range objs {
		require.NoError(t, e.Add(o))
	}
	total := 0
	for _, b := range e.Blocks() {
		require.LessOrEqual(t, b.NumKeys(), 2)
		if b.NumKeys() < 2 {
			require.Equal(t, 1, b.NumObjects())
		}
		total += b.NumObjects()
	}
	require.Equal(t, len(objs), total)
}

func TestCountKeysComputedNonIncreasing(t *testing.T) {
	e, err := New(Config{Blocking: []any{
		fnFunc(firstLetter), fnFunc(numberMod(2)), fnFunc(numberMod(3)),
	}})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, e.Add(item{fmt.Sprintf("%c", 'A'+i%4), i}))
	}
	counts := e.CountKeysComputed()
	for i := 1; i < len(counts); i++ {
		require.LessOrEqual(t, counts[i], counts[i-1])
	}
}

func TestEmptyBlockingCollapsesToOneBlock(t *testing.T) {
	e, err := New(Config{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Add(i))
	}
	blocks := e.Blocks()
	require.Len(t, blocks, 1)
	require.Equal(t, 5, blocks[0].NumObjects())
	require.Empty(t, blocks[0].Keys())
}

func TestNoObjectsAddedBlocksEmpty(t *testing.T) {
	e, err := New(Config{Blocking: []any{fnFunc(firstLetter)}})
	require.NoError(t, err)
	require.Empty(t, e.Blocks())
}

func TestSingleObjectHasEmptyKeys(t *testing.T) {
	e, err := New(Config{Blocking: []any{fnFunc(firstLetter), fnFunc(numberMod(2))}})
	require.NoError(t, err)
	require.NoError(t, e.Add(item{"A", 1}))
	blocks := e.Blocks()
	require.Len(t, blocks, 1)
	require.Empty(t, blocks[0].Keys())
}

func TestBlocksReturnsEveryObjectExactlyOnce(t *testing.T) {
	e, err := New(Config{Blocking: []any{fnFunc(firstLetter), fnFunc(numberMod(2))}})
	require.NoError(t, err)
	objs := []item{{"A", 1}, {"A", 2}, {"B", 1}, {"B", 2}, {"A", 3}}
	for _, o := range objs {
		require.NoError(t, e.Add(o))
	}
	seen := map[item]int{}
	for _, b := range e.Blocks() {
		for _, o := range objectsOf(b) {
			seen[o]++
		}
	}
	for _, o := range objs {
		require.Equal(t, 1, seen[o])
	}
}

type failingFactory struct{}

func (failingFactory) AllFunctions() ([]any, error) { return nil, errors.New("boom") }

func TestExpandFactoryError(t *testing.T) {
	_, err := New(Config{Blocking: []any{failingFactory{}}})
	var cfgErr *blocking.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

type notAFunctionFactory struct{}

func (notAFunctionFactory) AllFunctions() ([]any, error) { return []any{42}, nil }

func TestExpandFactoryElementNotFn(t *testing.T) {
	_, err := New(Config{Blocking: []any{notAFunctionFactory{}}})
	var cfgErr *blocking.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestExpandTopLevelItemInvalid(t *testing.T) {
	_, err := New(Config{Blocking: []any{"not a fn"}})
	var cfgErr *blocking.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestPermutationInvariance(t *testing.T) {
	objs := []item{{"A", 1}, {"B", 2}, {"A", 4}, {"C", 3}, {"B", 5}}
	build := func(order []item) map[string][]item {
		e, err := New(Config{Blocking: []any{fnFunc(firstLetter)}})
		require.NoError(t, err)
		for _, o := range order {
			require.NoError(t, e.Add(o))
		}
		out := map[string][]item{}
		for _, b := range e.Blocks() {
			os := objectsOf(b)
			sort.Slice(os, func(i, j int) bool { return os[i].number < os[j].number })
			out[string(b.Key(0))] = os
		}
		return out
	}
	a := build(objs)
	reordered := []item{objs[4], objs[0], objs[2], objs[1], objs[3]}
	b := build(reordered)
	require.Equal(t, a, b)
}
