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
package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

func eval(t *testing.T, name string, params []interface{}, types []sql.Type, rows [][]interface{}) interface{} {
	t.Helper()
	require := require.New(t)

	f, ok := Lookup(name)
	require.True(ok, "function %s not found", name)
	state, err := f.NewState(params, types)
	require.NoError(err)
	for _, r := range rows {
		require.NoError(state.Update(r))
	}
	return state.Result()
}

func TestAggregateFunctions(t *testing.T) {
	testCases := []struct {
		name     string
		params   []interface{}
		types    []sql.Type
		rows     [][]interface{}
		expected interface{}
	}{
		{"count", nil, nil, [][]interface{}{{}, {}, {}}, uint64(3)},
		{"count", nil, []sql.Type{sql.MakeNullable(sql.UInt8)}, [][]interface{}{{uint64(1)}, {nil}}, uint64(1)},
		{"sum", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(2)}}, uint64(3)},
		{"sum", nil, []sql.Type{sql.Int32}, [][]interface{}{{int64(-1)}, {int64(-2)}}, int64(-3)},
		{"sum", nil, []sql.Type{sql.Float64}, [][]interface{}{{1.5}, {2.0}}, 3.5},
		{"sum", nil, []sql.Type{sql.MakeNullable(sql.UInt8)}, nil, nil},
		{"sum", nil, []sql.Type{sql.UInt8}, nil, uint64(0)},
		{"SUM", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(4)}}, uint64(4)},
		{"avg", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(2)}}, 1.5},
		{"min", nil, []sql.Type{sql.Int64}, [][]interface{}{{int64(3)}, {int64(-1)}, {int64(2)}}, int64(-1)},
		{"max", nil, []sql.Type{sql.String}, [][]interface{}{{"a"}, {"c"}, {"b"}}, "c"},
		{"any", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(5)}, {uint64(6)}}, uint64(5)},
		{"anyLast", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(5)}, {uint64(6)}}, uint64(6)},
		{"uniq", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(1)}, {uint64(2)}}, uint64(2)},
		{"uniqExact", nil, []sql.Type{sql.UInt8, sql.String}, [][]interface{}{{uint64(1), "a"}, {uint64(1), "b"}, {uint64(1), "a"}}, uint64(2)},
		{"groupArray", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(2)}}, []interface{}{uint64(1), uint64(2)}},
		{"groupArray", []interface{}{uint64(1)}, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(2)}}, []interface{}{uint64(1)}},
		{"quantile", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(2)}, {uint64(3)}}, 2.0},
		{"quantile", []interface{}{0.25}, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(2)}, {uint64(3)}, {uint64(5)}}, 1.75},
		{"sumIf", nil, []sql.Type{sql.UInt8, sql.UInt8}, [][]interface{}{{uint64(1), uint64(1)}, {uint64(2), uint64(0)}}, uint64(1)},
		{"countIf", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(1)}, {uint64(0)}, {uint64(1)}}, uint64(2)},
		{"sumDistinct", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(2)}, {uint64(2)}, {uint64(3)}}, uint64(5)},
		{"sumDistinctIf", nil, []sql.Type{sql.UInt8, sql.UInt8}, [][]interface{}{{uint64(2), uint64(1)}, {uint64(2), uint64(1)}, {uint64(3), uint64(0)}}, uint64(2)},
		{"sumOrNull", nil, []sql.Type{sql.UInt8}, nil, nil},
		{"sumOrNull", nil, []sql.Type{sql.UInt8}, [][]interface{}{{uint64(7)}}, uint64(7)},
		{"maxOrDefault", nil, []sql.Type{sql.MakeNullable(sql.Int64)}, nil, int64(0)},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, eval(t, tt.name, tt.params, tt.types, tt.rows))
		})
	}
}

func TestAggregateReturnTypes(t *testing.T) {
	testCases := []struct {
		name     string
		params   []interface{}
		args     []sql.Type
		expected string
	}{
		{"count", nil, nil, "UInt64"},
		{"sum", nil, []sql.Type{sql.UInt8}, "UInt64"},
		{"sum", nil, []sql.Type{sql.Int8}, "Int64"},
		{"sum", nil, []sql.Type{sql.Float32}, "Float64"},
		{"sum", nil, []sql.Type{sql.DecimalType{Precision: 9, Scale: 2}}, "Decimal(38, 2)"},
		{"sum", nil, []sql.Type{sql.MakeNullable(sql.UInt8)}, "Nullable(UInt64)"},
		{"sum", nil, []sql.Type{sql.NullableType{Nested: sql.Nothing}}, "Nullable(Nothing)"},
		{"avg", nil, []sql.Type{sql.Int32}, "Float64"},
		{"min", nil, []sql.Type{sql.String}, "String"},
		{"groupArray", nil, []sql.Type{sql.String}, "Array(String)"},
		{"uniq", nil, []sql.Type{sql.String, sql.UInt8}, "UInt64"},
		{"sumIf", nil, []sql.Type{sql.UInt8, sql.UInt8}, "UInt64"},
		{"sumOrNull", nil, []sql.Type{sql.UInt8}, "Nullable(UInt64)"},
		{"sumState", nil, []sql.Type{sql.UInt8}, "AggregateFunction(sum, UInt8)"},
		{"sumMerge", nil, []sql.Type{sql.AggregateFunctionType{Function: "sum", Args: []sql.Type{sql.UInt8}}}, "UInt64"},
		{"quantile", []interface{}{0.9}, []sql.Type{sql.UInt8}, "Float64"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			f, ok := Lookup(tt.name)
			require.True(ok)
			typ, err := f.ReturnType(tt.params, tt.args)
			require.NoError(err)
			require.Equal(tt.expected, typ.Name())
		})
	}
}

func TestAggregateErrors(t *testing.T) {
	testCases := []struct {
		name   string
		params []interface{}
		args   []sql.Type
	}{
		{"sum", nil, []sql.Type{sql.String}},
		{"sum", []interface{}{uint64(1)}, []sql.Type{sql.UInt8}},
		{"sum", nil, []sql.Type{sql.UInt8, sql.UInt8}},
		{"quantile", []interface{}{2.0}, []sql.Type{sql.UInt8}},
		{"groupArray", []interface{}{uint64(0)}, []sql.Type{sql.UInt8}},
		{"sumIf", nil, []sql.Type{sql.UInt8, sql.String}},
		{"sumMerge", nil, []sql.Type{sql.UInt8}},
		{"sumMerge", nil, []sql.Type{sql.AggregateFunctionType{Function: "avg", Args: []sql.Type{sql.UInt8}}}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := Lookup(tt.name)
			require.True(t, ok)
			_, err := f.ReturnType(tt.params, tt.args)
			require.Error(t, err)
		})
	}
}

func TestStateAndMerge(t *testing.T) {
	require := require.New(t)

	state, ok := Lookup("sumState")
	require.True(ok)
	merge, ok := Lookup("sumMerge")
	require.True(ok)

	args := []sql.Type{sql.UInt8}
	stateType, err := state.ReturnType(nil, args)
	require.NoError(err)

	var partials []interface{}
	for _, group := range [][]uint64{{1, 2}, {3}, {}} {
		s, err := state.NewState(nil, args)
		require.NoError(err)
		for _, v := range group {
			require.NoError(s.Update([]interface{}{v}))
		}
		partials = append(partials, s.Result())
	}

	m, err := merge.NewState(nil, []sql.Type{stateType})
	require.NoError(err)
	for _, p := range partials {
		require.NoError(m.Update([]interface{}{p}))
	}
	require.Equal(uint64(6), m.Result())
}

func TestLookup(t *testing.T) {
	require := require.New(t)

	f, ok := Lookup("countDistinctIf")
	require.True(ok)
	require.Equal("countDistinctIf", f.Name())

	_, ok = Lookup("nosuchfunction")
	require.False(ok)
	_, ok = Lookup("If")
	require.False(ok)
	_, ok = Lookup("sumFoo")
	require.False(ok)

	names := Names()
	require.Contains(names, "count")
	require.Contains(names, "uniqExact")
	require.NotContains(names, "sumIf")
	require.Contains(CombinatorSuffixes(), "OrNull")
}
