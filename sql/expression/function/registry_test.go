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
package function

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

func col(t sql.Type) sql.ArgumentColumn {
	return sql.ArgumentColumn{Type: t}
}

func lit(v interface{}) sql.ArgumentColumn {
	return sql.ArgumentColumn{Type: sql.FieldType(v), Constant: true, Value: v}
}

func lits(values ...interface{}) []sql.ArgumentColumn {
	args := make([]sql.ArgumentColumn, len(values))
	for i, v := range values {
		args[i] = lit(v)
	}
	return args
}

// call resolves and evaluates a function on constant arguments the way
// constant folding does.
func call(t *testing.T, r *Registry, name string, values ...interface{}) (sql.Type, interface{}) {
	t.Helper()
	require := require.New(t)

	f, ok := r.Function(name)
	require.True(ok, "unknown function %s", name)
	args := lits(values...)
	if b, ok := f.(sql.BindableFunction); ok {
		var err error
		f, err = b.Bind(args)
		require.NoError(err)
	}
	typ, err := f.ReturnType(args)
	require.NoError(err)
	v, err := f.Eval(sql.NewEmptyContext(), values)
	require.NoError(err)
	return typ, v
}

func TestFunctionEval(t *testing.T) {
	r := NewRegistry()
	testCases := []struct {
		name     string
		fn       string
		args     []interface{}
		typ      string
		expected interface{}
	}{
		{"plus", "plus", []interface{}{uint64(1), uint64(2)}, "UInt16", uint64(3)},
		{"plus signed", "plus", []interface{}{uint64(1), int64(-2)}, "Int16", int64(-1)},
		{"minus", "minus", []interface{}{uint64(1), uint64(2)}, "Int16", int64(-1)},
		{"multiply", "multiply", []interface{}{uint64(300), uint64(2)}, "UInt32", uint64(600)},
		{"divide", "divide", []interface{}{uint64(1), uint64(2)}, "Float64", 0.5},
		{"modulo", "modulo", []interface{}{uint64(7), uint64(3)}, "UInt8", uint64(1)},
		{"intDiv", "intDiv", []interface{}{uint64(7), uint64(2)}, "UInt8", uint64(3)},
		{"decimal plus", "plus", []interface{}{decimal.RequireFromString("1.5"), uint64(1)}, "Decimal(9, 1)", decimal.RequireFromString("2.5")},
		{"negate", "negate", []interface{}{uint64(5)}, "Int16", int64(-5)},
		{"equals", "equals", []interface{}{uint64(1), uint64(1)}, "UInt8", uint64(1)},
		{"less", "less", []interface{}{"a", "b"}, "UInt8", uint64(1)},
		{"equals null", "equals", []interface{}{nil, uint64(1)}, "Nullable(Nothing)", nil},
		{"and", "and", []interface{}{uint64(1), uint64(0)}, "UInt8", uint64(0)},
		{"and null", "and", []interface{}{uint64(1), nil}, "Nullable(UInt8)", nil},
		{"or null", "or", []interface{}{uint64(1), nil}, "Nullable(UInt8)", uint64(1)},
		{"not", "not", []interface{}{uint64(0)}, "UInt8", uint64(1)},
		{"isNull", "isNull", []interface{}{nil}, "UInt8", uint64(1)},
		{"like", "like", []interface{}{"abc", "a%"}, "UInt8", uint64(1)},
		{"like underscore", "like", []interface{}{"abc", "a_"}, "UInt8", uint64(0)},
		{"notLike", "notLike", []interface{}{"a.c", "a.c"}, "UInt8", uint64(0)},
		{"ilike", "ilike", []interface{}{"ABC", "a%"}, "UInt8", uint64(1)},
		{"notILike", "notILike", []interface{}{"ABC", "a%"}, "UInt8", uint64(0)},
		{"match", "match", []interface{}{"ooaaaoo", "a{3}"}, "UInt8", uint64(1)},
		{"if", "if", []interface{}{uint64(1), "a", "b"}, "String", "a"},
		{"multiIf", "multiIf", []interface{}{uint64(0), "a", uint64(1), "b", "c"}, "String", "b"},
		{"ifNull", "ifNull", []interface{}{nil, uint64(2)}, "UInt8", uint64(2)},
		{"coalesce", "coalesce", []interface{}{nil, "a"}, "String", "a"},
		{"nullIf", "nullIf", []interface{}{uint64(1), uint64(1)}, "Nullable(UInt8)", nil},
		{"tuple", "tuple", []interface{}{uint64(1), "a"}, "Tuple(UInt8, String)", sql.Tuple{uint64(1), "a"}},
		{"tupleElement", "tupleElement", []interface{}{sql.Tuple{uint64(1), "a"}, "2"}, "String", "a"},
		{"array", "array", []interface{}{uint64(1), int64(-1)}, "Array(Int16)", []interface{}{uint64(1), int64(-1)}},
		{"length", "length", []interface{}{"abc"}, "UInt64", uint64(3)},
		{"has", "has", []interface{}{[]interface{}{uint64(1), uint64(2)}, uint64(2)}, "UInt8", uint64(1)},
		{"range", "range", []interface{}{uint64(3)}, "Array(UInt64)", []interface{}{uint64(0), uint64(1), uint64(2)}},
		{"arrayElement", "arrayElement", []interface{}{[]interface{}{"a", "b"}, int64(-1)}, "String", "b"},
		{"in", "in", []interface{}{uint64(1), &sql.SetValue{ElementType: sql.UInt8, Elements: []interface{}{uint64(1)}}}, "UInt8", uint64(1)},
		{"notIn", "notIn", []interface{}{uint64(2), sql.Tuple{uint64(1), uint64(3)}}, "UInt8", uint64(1)},
		{"in null", "in", []interface{}{nil, sql.Tuple{nil}}, "UInt8", uint64(0)},
		{"nullIn null", "nullIn", []interface{}{nil, sql.Tuple{nil}}, "UInt8", uint64(1)},
		{"cast", "_CAST", []interface{}{"42", "UInt8"}, "UInt8", uint64(42)},
		{"cast case insensitive", "cast", []interface{}{uint64(1), "Nullable(String)"}, "Nullable(String)", "1"},
		{"toInt64", "toInt64", []interface{}{"-3"}, "Int64", int64(-3)},
		{"toDecimal32", "toDecimal32", []interface{}{"1.234", uint64(2)}, "Decimal(9, 2)", decimal.RequireFromString("1.23")},
		{"toTypeName", "toTypeName", []interface{}{uint64(1)}, "String", "UInt8"},
		{"concat", "concat", []interface{}{"a", uint64(1)}, "String", "a1"},
		{"upper", "UPPER", []interface{}{"ab"}, "String", "AB"},
		{"substring", "substr", []interface{}{"hello", uint64(2), uint64(3)}, "String", "ell"},
		{"substring negative", "substring", []interface{}{"hello", int64(-2)}, "String", "lo"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			typ, v := call(t, r, tt.fn, tt.args...)
			require.Equal(tt.typ, typ.Name())
			if d, ok := tt.expected.(decimal.Decimal); ok {
				require.True(d.Equal(v.(decimal.Decimal)), "expected %s, got %v", d, v)
				return
			}
			require.Equal(tt.expected, v)
		})
	}
}

func TestFunctionTypeErrors(t *testing.T) {
	r := NewRegistry()
	testCases := []struct {
		fn   string
		args []sql.ArgumentColumn
		kind string
	}{
		{"plus", []sql.ArgumentColumn{col(sql.String), col(sql.UInt8)}, "type mismatch"},
		{"plus", []sql.ArgumentColumn{col(sql.UInt8)}, "bad arguments"},
		{"if", []sql.ArgumentColumn{col(sql.String), col(sql.UInt8), col(sql.UInt8)}, "type mismatch"},
		{"if", []sql.ArgumentColumn{col(sql.UInt8), col(sql.UInt8), col(sql.ArrayType{Elem: sql.UInt8})}, "no common type"},
		{"multiIf", []sql.ArgumentColumn{col(sql.UInt8), col(sql.UInt8), col(sql.UInt8), col(sql.UInt8)}, "bad arguments"},
		{"tupleElement", []sql.ArgumentColumn{col(sql.NewTupleType([]sql.Type{sql.UInt8}, nil)), lit("3")}, "illegal argument"},
		{"tupleElement", []sql.ArgumentColumn{col(sql.UInt8), lit("1")}, "type mismatch"},
		{"_CAST", []sql.ArgumentColumn{col(sql.UInt8), col(sql.String)}, "illegal argument"},
		{"length", []sql.ArgumentColumn{col(sql.UInt8)}, "type mismatch"},
		{"arrayJoin", []sql.ArgumentColumn{col(sql.String)}, "type mismatch"},
	}

	kinds := map[string]func(error) bool{
		"type mismatch":    sql.ErrTypeMismatch.Is,
		"bad arguments":    sql.ErrBadArguments.Is,
		"no common type":   sql.ErrNoCommonType.Is,
		"illegal argument": sql.ErrIllegalArgument.Is,
	}

	for _, tt := range testCases {
		t.Run(tt.fn+" "+tt.kind, func(t *testing.T) {
			require := require.New(t)
			f, ok := r.Function(tt.fn)
			require.True(ok)
			_, err := f.ReturnType(tt.args)
			require.Error(err)
			require.True(kinds[tt.kind](err), "unexpected error: %s", err)
		})
	}
}

func TestNamedTupleElement(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()

	tt := sql.NewTupleType([]sql.Type{sql.UInt8, sql.String}, []string{"id", "name"})
	f, ok := r.Function("tupleElement")
	require.True(ok)

	args := []sql.ArgumentColumn{col(tt), lit("name")}
	typ, err := f.ReturnType(args)
	require.NoError(err)
	require.Equal(sql.String, typ)

	bound, err := f.(sql.BindableFunction).Bind(args)
	require.NoError(err)
	v, err := bound.Eval(sql.NewEmptyContext(), []interface{}{sql.Tuple{uint64(1), "x"}, "name"})
	require.NoError(err)
	require.Equal("x", v)

	sub, ok := r.Function("getSubcolumn")
	require.True(ok)
	args = []sql.ArgumentColumn{col(sql.MakeNullable(sql.String)), lit("null")}
	typ, err = sub.ReturnType(args)
	require.NoError(err)
	require.Equal(sql.UInt8, typ)
	bound, err = sub.(sql.BindableFunction).Bind(args)
	require.NoError(err)
	v, err = bound.Eval(sql.NewEmptyContext(), []interface{}{nil, "null"})
	require.NoError(err)
	require.Equal(uint64(1), v)
}

func TestHigherOrderFunctions(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()

	f, ok := r.Function("arrayMap")
	require.True(ok)
	hof, ok := f.(sql.HigherOrderFunction)
	require.True(ok)

	arr := sql.ArrayType{Elem: sql.UInt8}
	lambdaTypes, err := hof.LambdaArgumentTypes([]sql.ArgumentColumn{col(sql.FunctionType{}), col(arr)})
	require.NoError(err)
	require.Equal([]sql.Type{sql.UInt8}, lambdaTypes[0])
	require.Nil(lambdaTypes[1])

	fnType := sql.FunctionType{Args: []sql.Type{sql.UInt8}, Return: sql.UInt16}
	typ, err := f.ReturnType([]sql.ArgumentColumn{col(fnType), col(arr)})
	require.NoError(err)
	require.Equal("Array(UInt16)", typ.Name())

	double := sql.Lambda(func(args ...interface{}) (interface{}, error) {
		return args[0].(uint64) * 2, nil
	})
	v, err := f.Eval(sql.NewEmptyContext(), []interface{}{double, []interface{}{uint64(1), uint64(2)}})
	require.NoError(err)
	require.Equal([]interface{}{uint64(2), uint64(4)}, v)

	filter, _ := r.Function("arrayFilter")
	odd := sql.Lambda(func(args ...interface{}) (interface{}, error) {
		return args[0].(uint64) % 2, nil
	})
	v, err = filter.Eval(sql.NewEmptyContext(), []interface{}{odd, []interface{}{uint64(1), uint64(2), uint64(3)}})
	require.NoError(err)
	require.Equal([]interface{}{uint64(1), uint64(3)}, v)

	_, err = f.ReturnType([]sql.ArgumentColumn{col(sql.FunctionType{Args: []sql.Type{sql.UInt8, sql.UInt8}}), col(arr)})
	require.Error(err)
	require.True(sql.ErrIllegalArgument.Is(err))
}

func TestFoldingProperties(t *testing.T) {
	r := NewRegistry()
	testCases := []struct {
		fn            string
		foldable      bool
		deterministic bool
	}{
		{"plus", true, true},
		{"rand", false, false},
		{"generateUUIDv4", false, false},
		{"now", false, false},
		{"materialize", false, true},
		{"arrayJoin", false, true},
		{GetScalarName, false, true},
	}

	for _, tt := range testCases {
		t.Run(tt.fn, func(t *testing.T) {
			require := require.New(t)
			f, ok := r.Function(tt.fn)
			require.True(ok)
			require.Equal(tt.foldable, f.IsSuitableForConstantFolding())
			require.Equal(tt.deterministic, f.IsDeterministic())
		})
	}
}

func TestNonDeterministicFunctions(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()
	ctx := sql.NewEmptyContext()

	f, _ := r.Function("generateUUIDv4")
	a, err := f.Eval(ctx, nil)
	require.NoError(err)
	b, err := f.Eval(ctx, nil)
	require.NoError(err)
	require.Len(a.(string), 36)
	require.NotEqual(a, b)

	f, _ = r.Function("now")
	v, err := f.Eval(ctx, nil)
	require.NoError(err)
	require.Equal(ctx.QueryTime(), v)
}

func TestToTypeNameConstantResult(t *testing.T) {
	require := require.New(t)
	f, ok := NewRegistry().Function("toTypeName")
	require.True(ok)

	cr, ok := f.(sql.ConstantResultFunction)
	require.True(ok)
	v, ok := cr.ConstantResult([]sql.ArgumentColumn{col(sql.MakeNullable(sql.Int32))})
	require.True(ok)
	require.Equal("Nullable(Int32)", v)
}

func TestEncryption(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()
	ctx := sql.NewEmptyContext()

	enc, _ := r.Function("encrypt")
	dec, _ := r.Function("decrypt")

	secret, ok := enc.(sql.SecretArgumentsFunction)
	require.True(ok)
	start, count := secret.SecretArguments(lits("aes-128-cbc", "text", "key", "iv"))
	require.Equal(2, start)
	require.Equal(2, count)

	cipherText, err := enc.Eval(ctx, []interface{}{"aes-128-cbc", "hello world", "0123456789abcdef", "iv"})
	require.NoError(err)
	require.NotEqual("hello world", cipherText)

	plain, err := dec.Eval(ctx, []interface{}{"aes-128-cbc", cipherText, "0123456789abcdef", "iv"})
	require.NoError(err)
	require.Equal("hello world", plain)

	_, err = enc.Eval(ctx, []interface{}{"des", "x", "k"})
	require.Error(err)
}

func TestGetScalar(t *testing.T) {
	require := require.New(t)

	scalars := sql.NewScalarRegistry()
	scalars.Add("123", sql.Scalar{Type: sql.ArrayType{Elem: sql.UInt8}, Value: []interface{}{uint64(1)}})
	ctx := sql.NewContext(context.Background(), sql.WithQueryContext(scalars))

	f := ResolveGetScalar(sql.ArrayType{Elem: sql.UInt8})
	typ, err := f.ReturnType(lits("123"))
	require.NoError(err)
	require.Equal("Array(UInt8)", typ.Name())

	v, err := f.Eval(ctx, []interface{}{"123"})
	require.NoError(err)
	require.Equal([]interface{}{uint64(1)}, v)

	_, err = f.Eval(ctx, []interface{}{"456"})
	require.Error(err)
	_, err = f.Eval(sql.NewEmptyContext(), []interface{}{"123"})
	require.Error(err)
}

func TestWindowFunctions(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()

	rank, ok := r.WindowFunction("rank")
	require.True(ok)
	s, err := rank.NewState(nil, []sql.Type{sql.UInt8})
	require.NoError(err)
	for _, v := range []uint64{1, 1, 2} {
		require.NoError(s.Update([]interface{}{v}))
	}
	require.Equal(uint64(3), s.Result())

	dense, _ := r.WindowFunction("dense_rank")
	s, err = dense.NewState(nil, []sql.Type{sql.UInt8})
	require.NoError(err)
	for _, v := range []uint64{1, 1, 2} {
		require.NoError(s.Update([]interface{}{v}))
	}
	require.Equal(uint64(2), s.Result())

	lag, _ := r.WindowFunction("lag")
	typ, err := lag.ReturnType(nil, []sql.Type{sql.UInt8, sql.UInt8, sql.Int8})
	require.NoError(err)
	require.Equal("Int16", typ.Name())
	s, err = lag.NewState(nil, []sql.Type{sql.UInt8})
	require.NoError(err)
	for _, v := range []uint64{1, 2, 3} {
		require.NoError(s.Update([]interface{}{v}))
	}
	require.Equal(uint64(2), s.Result())

	_, ok = r.WindowFunction("sum")
	require.False(ok)
}

func TestRegistry(t *testing.T) {
	require := require.New(t)
	r := NewRegistry()

	for _, name := range []string{"CONCAT", "Cast", "substr", "SUBSTRING", "ifnull"} {
		_, ok := r.Function(name)
		require.True(ok, name)
	}
	_, ok := r.Function("PLUS")
	require.False(ok)

	f, ok := r.AggregateFunction("sumIf")
	require.True(ok)
	require.Equal("sumIf", f.Name())
	require.True(r.IsAggregate("count"))
	require.False(r.IsAggregate("plus"))

	names := r.Names()
	require.Contains(names, "plus")
	require.Contains(names, "sum")
	require.Contains(names, "row_number")
	require.Contains(names, "substr")

	r.Register(newIdentity())
	_, ok = r.Function("identity")
	require.True(ok)
}
