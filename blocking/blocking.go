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

// Package blocking defines the BlockingFn/BlockingFactory capability that
// the hierarchical partitioning engine drives: a pure function from an
// opaque object to an opaque digest key.
package blocking

import "fmt"

// Key is an opaque digest value, compared byte-wise for equality and used
// as a map key by the engine. Each Fn defines its own key encoding.
type Key = []byte

// Fn computes a digest for an object. Implementations must be safe to call
// exactly once per object at a given level; the engine never retries.
type Fn interface {
	Key(object any) (Key, error)
}

// Factory produces an ordered list of Fns, expanded in place wherever it
// appears in a blocking configuration.
type Factory interface {
	AllFunctions() ([]any, error)
}

// Described is optionally implemented by a Fn to expose stable metadata.
// It has no effect on partitioning; it is surfaced through Engine.Blocking
// for reporting only.
type Described interface {
	ID() string
	Name() string
	Class() string
}

// Entry is a resolved, flat blocking function together with whatever
// metadata it chose to expose (zero value if it doesn't implement Described).
type Entry struct {
	Fn    Fn
	ID    string
	Name  string
	Class string
}

// ConfigError reports a malformed blocking configuration, detected once at
// expansion time (Engine construction). It is always fatal.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Expand resolves a configuration list — each item either a Fn or a
// Factory — into the flat, ordered list of Fns the engine will use.
// Factories are expanded in place, in list order.
func Expand(items []any) ([]Entry, error) {
	out := make([]Entry, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case Factory:
			list, err := v.AllFunctions()
			if err != nil {
				return nil, configErrorf("blocking factory at position %d: %v", i, err)
			}
			if list == nil {
				return nil, configErrorf("blocking factory at position %d: AllFunctions returned no list", i)
			}
			for j, elem := range list {
				fn, ok := elem.(Fn)
				if !ok {
					return nil, configErrorf("blocking factory at position %d, element %d is not callable as a BlockingFn", i, j)
				}
				out = append(out, describe(fn))
			}
		case Fn:
			out = append(out, describe(v))
		default:
			return nil, configErrorf("blocking config item at position %d is neither a BlockingFn nor a Factory", i)
		}
	}
	return out, nil
}

func describe(fn Fn) Entry {
	e := Entry{Fn: fn}
	if d, ok := fn.(Described); ok {
		e.ID, e.Name, e.Class = d.ID(), d.Name(), d.Class()
	}
	return e
}
