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

package sql_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

func TestLeastSupertype(t *testing.T) {
	testCases := []struct {
		types    []sql.Type
		expected sql.Type
		err      bool
	}{
		{[]sql.Type{sql.UInt8, sql.UInt8}, sql.UInt8, false},
		{[]sql.Type{sql.UInt8, sql.UInt32}, sql.UInt32, false},
		{[]sql.Type{sql.UInt8, sql.Int8}, sql.Int16, false},
		{[]sql.Type{sql.UInt32, sql.Int8}, sql.Int64, false},
		{[]sql.Type{sql.UInt64, sql.Int8}, nil, true},
		{[]sql.Type{sql.UInt8, sql.Float32}, sql.Float32, false},
		{[]sql.Type{sql.Int32, sql.Float32}, sql.Float64, false},
		{[]sql.Type{sql.Int64, sql.Float64}, nil, true},
		{[]sql.Type{sql.String, sql.UInt8}, nil, true},
		{[]sql.Type{sql.Date, sql.DateTime}, sql.DateTime, false},
		{[]sql.Type{sql.Nothing, sql.String}, sql.String, false},
		{[]sql.Type{sql.NullableType{Nested: sql.Nothing}, sql.UInt8}, sql.NullableType{Nested: sql.UInt8}, false},
		{[]sql.Type{sql.NullableType{Nested: sql.UInt8}, sql.Int8}, sql.NullableType{Nested: sql.Int16}, false},
		{[]sql.Type{sql.ArrayType{Elem: sql.UInt8}, sql.ArrayType{Elem: sql.UInt16}}, sql.ArrayType{Elem: sql.UInt16}, false},
		{[]sql.Type{sql.ArrayType{Elem: sql.UInt8}, sql.UInt8}, nil, true},
		{
			[]sql.Type{sql.NewTupleType([]sql.Type{sql.UInt8, sql.String}, nil), sql.NewTupleType([]sql.Type{sql.Int8, sql.String}, nil)},
			sql.NewTupleType([]sql.Type{sql.Int16, sql.String}, nil),
			false,
		},
		{[]sql.Type{sql.DecimalType{Precision: 9, Scale: 2}, sql.UInt8}, sql.DecimalType{Precision: 9, Scale: 2}, false},
		{[]sql.Type{sql.DecimalType{Precision: 9, Scale: 2}, sql.Float64}, nil, true},
	}

	for _, tt := range testCases {
		t.Run(fmt.Sprint(tt.types), func(t *testing.T) {
			require := require.New(t)
			st, err := sql.LeastSupertype(tt.types)
			if tt.err {
				require.Error(err)
				require.True(sql.ErrNoCommonType.Is(err))
				return
			}
			require.NoError(err)
			require.Equal(tt.expected.Name(), st.Name())
		})
	}
}

func TestParseType(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{"UInt8", "UInt8"},
		{"Nullable(String)", "Nullable(String)"},
		{"Array(Nullable(UInt8))", "Array(Nullable(UInt8))"},
		{"Tuple(UInt8, String)", "Tuple(UInt8, String)"},
		{"Tuple(a UInt8, b Array(String))", "Tuple(a UInt8, b Array(String))"},
		{"Map(String, UInt64)", "Map(String, UInt64)"},
		{"Decimal(9, 2)", "Decimal(9, 2)"},
		{"Decimal64(4)", "Decimal(18, 4)"},
		{"LowCardinality(String)", "String"},
		{"DateTime64(3, 'UTC')", "DateTime"},
		{"signed", "Int64"},
		{"char", "String"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			typ, err := sql.ParseType(tt.name)
			require.NoError(err)
			require.Equal(tt.expected, typ.Name())
		})
	}

	_, err := sql.ParseType("Array(")
	require.Error(t, err)
	require.True(t, sql.ErrInvalidType.Is(err))

	_, err = sql.ParseType("Whatever")
	require.Error(t, err)
}

func TestFieldType(t *testing.T) {
	testCases := []struct {
		value    interface{}
		expected string
	}{
		{nil, "Nullable(Nothing)"},
		{uint64(1), "UInt8"},
		{uint64(300), "UInt16"},
		{int64(-1), "Int8"},
		{int64(-40000), "Int32"},
		{int64(5), "UInt8"},
		{1.5, "Float64"},
		{"foo", "String"},
		{true, "Bool"},
		{[]interface{}{uint64(1), int64(-1)}, "Array(Int16)"},
		{[]interface{}{}, "Array(Nothing)"},
		{sql.Tuple{uint64(1), "a"}, "Tuple(UInt8, String)"},
		{decimal.RequireFromString("1.25"), "Decimal(9, 2)"},
	}

	for _, tt := range testCases {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			require.Equal(t, tt.expected, sql.FieldType(tt.value).Name())
		})
	}
}

func TestFormatValue(t *testing.T) {
	require := require.New(t)
	require.Equal("NULL", sql.FormatValue(nil))
	require.Equal("'it\\'s'", sql.FormatValue("it's"))
	require.Equal("[1, 2]", sql.FormatValue([]interface{}{uint64(1), uint64(2)}))
	require.Equal("(1, 'a')", sql.FormatValue(sql.Tuple{uint64(1), "a"}))
	require.Equal("-3", sql.FormatValue(int64(-3)))
	require.Equal("0.5", sql.FormatValue(0.5))
}

func TestSubcolumn(t *testing.T) {
	require := require.New(t)

	tuple := sql.NewTupleType([]sql.Type{sql.UInt8, sql.String}, []string{"a", "b"})
	typ, ok := sql.Subcolumn(tuple, "b")
	require.True(ok)
	require.Equal(sql.String, typ)

	typ, ok = sql.Subcolumn(sql.ArrayType{Elem: tuple}, "a")
	require.True(ok)
	require.Equal("Array(UInt8)", typ.Name())

	typ, ok = sql.Subcolumn(sql.ArrayType{Elem: sql.UInt8}, "size0")
	require.True(ok)
	require.Equal(sql.UInt64, typ)

	typ, ok = sql.Subcolumn(sql.NullableType{Nested: sql.String}, "null")
	require.True(ok)
	require.Equal(sql.UInt8, typ)

	typ, ok = sql.Subcolumn(sql.MapType{Key: sql.String, Value: sql.UInt8}, "keys")
	require.True(ok)
	require.Equal("Array(String)", typ.Name())

	_, ok = sql.Subcolumn(tuple, "c")
	require.False(ok)
}

func TestConvertValue(t *testing.T) {
	require := require.New(t)

	v, err := sql.ConvertValue(uint64(300), sql.UInt8)
	require.NoError(err)
	require.Equal(uint64(44), v)

	v, err = sql.ConvertValue("12", sql.Int64)
	require.NoError(err)
	require.Equal(int64(12), v)

	v, err = sql.ConvertValue(uint64(1), sql.Bool)
	require.NoError(err)
	require.Equal(true, v)

	v, err = sql.ConvertValue(nil, sql.NullableType{Nested: sql.UInt8})
	require.NoError(err)
	require.Nil(v)

	_, err = sql.ConvertValue(nil, sql.UInt8)
	require.Error(err)

	v, err = sql.ConvertValue([]interface{}{uint64(1)}, sql.ArrayType{Elem: sql.Int64})
	require.NoError(err)
	require.Equal([]interface{}{int64(1)}, v)
}

func TestCompareValues(t *testing.T) {
	require := require.New(t)
	require.Equal(0, sql.CompareValues(uint64(1), int64(1)))
	require.Equal(-1, sql.CompareValues(int64(-1), uint64(0)))
	require.Equal(1, sql.CompareValues(2.5, uint64(2)))
	require.Equal(-1, sql.CompareValues(nil, uint64(2)))
	require.Equal(0, sql.CompareValues(true, uint64(1)))
	require.Equal(1, sql.CompareValues("b", "a"))
}
