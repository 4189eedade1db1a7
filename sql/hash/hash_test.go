// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

type point struct {
	X, Y int
}

func TestHashOf(t *testing.T) {
	require := require.New(t)

	a, err := HashOf("ab", "c")
	require.NoError(err)
	b, err := HashOf("a", "bc")
	require.NoError(err)
	require.NotEqual(a, b)

	a, err = HashOf(uint64(1))
	require.NoError(err)
	b, err = HashOf(int64(1))
	require.NoError(err)
	require.NotEqual(a, b)

	a, err = HashOf([]interface{}{uint64(1), "x"}, sql.Tuple{nil})
	require.NoError(err)
	b, err = HashOf([]interface{}{uint64(1), "x"}, sql.Tuple{nil})
	require.NoError(err)
	require.Equal(a, b)

	a, err = HashOf(point{1, 2})
	require.NoError(err)
	b, err = HashOf(point{2, 1})
	require.NoError(err)
	require.NotEqual(a, b)
}

func TestHashBlock(t *testing.T) {
	require := require.New(t)

	block := func(v interface{}) *sql.Block {
		return &sql.Block{
			Columns: []sql.BlockColumn{{Name: "x", Type: sql.UInt8}},
			Rows:    []sql.Row{{v}},
		}
	}

	a, err := HashBlock(block(uint64(1)))
	require.NoError(err)
	b, err := HashBlock(block(uint64(1)))
	require.NoError(err)
	c, err := HashBlock(block(uint64(2)))
	require.NoError(err)
	require.Equal(a, b)
	require.NotEqual(a, c)
}
