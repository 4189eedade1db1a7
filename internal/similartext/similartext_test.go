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

package similartext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	columns := []string{"id", "name", "amount", "amounts"}
	testCases := []struct {
		names    []string
		src      string
		expected string
	}{
		{nil, "", ""},
		{nil, "name", ""},
		{columns, "", ""},
		{columns, "nmae", ", maybe you mean name?"},
		{columns, "name", ", maybe you mean name?"},
		{columns, "ID", ", maybe you mean id?"},
		{columns, "amountz", ", maybe you mean amount or amounts?"},
		{columns, "completely_different", ""},
	}

	for _, tt := range testCases {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.expected, Find(tt.names, tt.src))
		})
	}
}

func TestFindFromMap(t *testing.T) {
	require := require.New(t)

	var dbs map[string]int
	require.Empty(FindFromMap(dbs, "system"))

	dbs = map[string]int{"default": 1, "system": 2}
	require.Equal(", maybe you mean system?", FindFromMap(dbs, "sytem"))
	require.Equal(", maybe you mean default?", FindFromMap(dbs, "defualt"))
	require.Empty(FindFromMap(dbs, ""))
}

func TestClosest(t *testing.T) {
	for _, tt := range []struct {
		src      string
		expected []string
	}{
		{"", nil},
		{"nmber", []string{"number"}},
		{"NUMBER", []string{"number"}},
		{"valeu", []string{"value"}},
		{"something_else", nil},
	} {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.expected, Closest([]string{"number", "value", "id"}, tt.src))
		})
	}
}
