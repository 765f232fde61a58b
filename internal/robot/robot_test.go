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

package robot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatSortsAndDropsSingletons(t *testing.T) {
	groups := [][]string{
		{"/z/only"},
		{"/b/two", "/a/one"},
		{"/y/c", "/y/a", "/y/b"},
	}
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, groups))
	require.Equal(t, "/a/one\t/b/two\n/y/a\t/y/b\t/y/c\n", buf.String())
}

func TestFormatEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Format(&buf, nil))
	require.Empty(t, buf.String())
}
