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

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

func TestTableInsert(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := NewTable("test",
		&sql.Column{Name: "a", Type: sql.Int32},
		&sql.Column{Name: "b", Type: sql.String},
		&sql.Column{Name: "c", Type: sql.Int64, Kind: sql.AliasColumn, Expression: "a * 2"},
		&sql.Column{Name: "d", Type: sql.UInt8, Kind: sql.MaterializedColumn, Expression: "1"},
	)
	require.Equal("test", table.Name())
	require.Len(table.Columns(), 4)
	require.Len(table.StoredColumns(), 3)

	require.NoError(table.Insert(ctx, uint64(1), "one", 1))
	require.NoError(table.Insert(ctx, "2", "two", uint64(1)))

	rows, err := table.Rows(ctx)
	require.NoError(err)
	require.Equal([]sql.Row{
		{int64(1), "one", uint64(1)},
		{int64(2), "two", uint64(1)},
	}, rows)
}

func TestTableInsertErrors(t *testing.T) {
	testCases := []struct {
		name   string
		values []interface{}
		err    string
	}{
		{"too few values", []interface{}{int64(1)}, "expects 2 values, got 1"},
		{"too many values", []interface{}{int64(1), "x", "y"}, "expects 2 values, got 3"},
		{"not a number", []interface{}{"abc", "x"}, "cannot insert value abc in column a"},
		{"null in non nullable column", []interface{}{nil, "x"}, "cannot insert value <nil> in column a"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			table := NewTable("test",
				&sql.Column{Name: "a", Type: sql.Int32},
				&sql.Column{Name: "b", Type: sql.MakeNullable(sql.String)},
			)
			err := table.Insert(sql.NewEmptyContext(), tt.values...)
			require.Error(err)
			require.Contains(err.Error(), tt.err)
		})
	}
}

func TestNumbersTableFunction(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table, err := NumbersTableFunction{}.Execute(ctx, []interface{}{uint64(3)})
	require.NoError(err)
	require.Equal("numbers", table.Name())
	require.Equal("system", table.Database())

	rows, err := table.(*Table).Rows(ctx)
	require.NoError(err)
	require.Equal([]sql.Row{{uint64(0)}, {uint64(1)}, {uint64(2)}}, rows)

	table, err = NumbersTableFunction{}.Execute(ctx, []interface{}{uint64(10), uint64(2)})
	require.NoError(err)
	rows, err = table.(*Table).Rows(ctx)
	require.NoError(err)
	require.Equal([]sql.Row{{uint64(10)}, {uint64(11)}}, rows)

	_, err = NumbersTableFunction{}.Execute(ctx, nil)
	require.Error(err)
	require.True(sql.ErrBadArguments.Is(err))
}

func TestZerosTableFunction(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table, err := ZerosTableFunction{}.Execute(ctx, []interface{}{uint64(2)})
	require.NoError(err)
	rows, err := table.(*Table).Rows(ctx)
	require.NoError(err)
	require.Equal([]sql.Row{{uint64(0)}, {uint64(0)}}, rows)

	_, err = ZerosTableFunction{}.Execute(ctx, []interface{}{uint64(1), uint64(2)})
	require.Error(err)
}
