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
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

func newArray() sql.Function {
	return &builtin{
		name:    "array",
		minArgs: 0,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if len(args) == 0 {
				return sql.ArrayType{Elem: sql.Nothing}, nil
			}
			elem, err := sql.LeastSupertype(argTypes(args))
			if err != nil {
				return nil, err
			}
			return sql.ArrayType{Elem: elem}, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return append([]interface{}{}, args...), nil
		},
	}
}

func elementType(name string, t sql.Type, position int) (sql.Type, error) {
	at, ok := sql.RemoveNullable(t).(sql.ArrayType)
	if !ok {
		return nil, illegalType(name, t, position)
	}
	return at.Elem, nil
}

// higherOrder is a function whose first argument is a lambda applied to the
// elements of the array arguments.
type higherOrder struct {
	builtin
}

var _ sql.HigherOrderFunction = (*higherOrder)(nil)

// LambdaArgumentTypes implements the sql.HigherOrderFunction interface.
func (f *higherOrder) LambdaArgumentTypes(args []sql.ArgumentColumn) ([][]sql.Type, error) {
	if len(args) < 2 {
		return nil, checkArity(f.name, len(args), 2, variadic)
	}
	types := make([][]sql.Type, len(args))
	for i, a := range args[1:] {
		elem, err := elementType(f.name, a.Type, i+1)
		if err != nil {
			return nil, err
		}
		types[0] = append(types[0], elem)
	}
	return types, nil
}

func lambdaType(name string, args []sql.ArgumentColumn) (sql.FunctionType, error) {
	ft, ok := args[0].Type.(sql.FunctionType)
	if !ok {
		return sql.FunctionType{}, sql.NewErr(sql.ErrIllegalArgument,
			"First argument for function %s must be a function. Actual %s", name, args[0].Type.Name())
	}
	if len(ft.Args) != len(args)-1 {
		return sql.FunctionType{}, sql.NewErr(sql.ErrIllegalArgument,
			"Function for function %s expects %d arguments, but %d array arguments are passed",
			name, len(ft.Args), len(args)-1)
	}
	for i, a := range args[1:] {
		if _, err := elementType(name, a.Type, i+1); err != nil {
			return sql.FunctionType{}, err
		}
	}
	return ft, nil
}

// applyLambda calls the lambda for each position of the array arguments,
// which must have equal sizes.
func applyLambda(name string, args []interface{}, each func(i int, result interface{})) error {
	fn, ok := args[0].(sql.Lambda)
	if !ok {
		return sql.ErrFunctionEval.New(name, "first argument is not a lambda")
	}
	arrays := make([][]interface{}, len(args)-1)
	for i, a := range args[1:] {
		list, ok := a.([]interface{})
		if !ok && a != nil {
			return sql.ErrFunctionEval.New(name, "argument is not an array: "+sql.FormatValue(a))
		}
		if i > 0 && len(list) != len(arrays[0]) {
			return sql.NewErr(sql.ErrBadArguments, "Arrays passed to %s must have equal size", name)
		}
		arrays[i] = list
	}
	for i := range arrays[0] {
		values := make([]interface{}, len(arrays))
		for j := range arrays {
			values[j] = arrays[j][i]
		}
		r, err := fn(values...)
		if err != nil {
			return err
		}
		each(i, r)
	}
	return nil
}

func newArrayMap() sql.Function {
	return &higherOrder{builtin{
		name:    "arrayMap",
		minArgs: 2,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			ft, err := lambdaType("arrayMap", args)
			if err != nil {
				return nil, err
			}
			if ft.Return == nil {
				return sql.ArrayType{Elem: sql.Nothing}, nil
			}
			return sql.ArrayType{Elem: ft.Return}, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			var out []interface{}
			err := applyLambda("arrayMap", args, func(_ int, r interface{}) {
				out = append(out, r)
			})
			if out == nil {
				out = []interface{}{}
			}
			return out, err
		},
	}}
}

func newArrayFilter() sql.Function {
	return &higherOrder{builtin{
		name:    "arrayFilter",
		minArgs: 2,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if _, err := lambdaType("arrayFilter", args); err != nil {
				return nil, err
			}
			return sql.RemoveNullable(args[1].Type), nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			source, _ := args[1].([]interface{})
			out := []interface{}{}
			err := applyLambda("arrayFilter", args, func(i int, r interface{}) {
				if truthy(r) {
					out = append(out, source[i])
				}
			})
			return out, err
		},
	}}
}

func newArrayExists() sql.Function {
	return &higherOrder{builtin{
		name:    "arrayExists",
		minArgs: 2,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if _, err := lambdaType("arrayExists", args); err != nil {
				return nil, err
			}
			return sql.UInt8, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			found := false
			err := applyLambda("arrayExists", args, func(_ int, r interface{}) {
				found = found || truthy(r)
			})
			return boolResult(found), err
		},
	}}
}

// newArrayJoin returns the arrayJoin function, which unfolds an array into
// rows. It is evaluated by the ARRAY JOIN step and is never folded.
func newArrayJoin() sql.Function {
	return &builtin{
		name:        "arrayJoin",
		minArgs:     1,
		maxArgs:     1,
		notFoldable: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return elementType("arrayJoin", args[0].Type, 0)
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return nil, sql.NewErr(sql.ErrNotImplemented,
				"Function arrayJoin must be evaluated by the ARRAY JOIN step")
		},
	}
}

func newLength() sql.Function {
	return &builtin{
		name:           "length",
		minArgs:        1,
		maxArgs:        1,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			switch args[0].Type.Kind() {
			case sql.KindString, sql.KindArray, sql.KindMap:
				return sql.UInt64, nil
			}
			return nil, illegalType("length", args[0].Type, 0)
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			switch v := args[0].(type) {
			case string:
				return uint64(len(v)), nil
			case []interface{}:
				return uint64(len(v)), nil
			}
			return nil, sql.ErrFunctionEval.New("length", "unsupported value "+sql.FormatValue(args[0]))
		},
	}
}

func newHas() sql.Function {
	return &builtin{
		name:    "has",
		minArgs: 2,
		maxArgs: 2,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			elem, err := elementType("has", args[0].Type, 0)
			if err != nil {
				return nil, err
			}
			if !sql.IsNothing(args[1].Type) && !sql.IsNothing(elem) {
				if err := checkComparable("has", sql.RemoveNullable(elem), sql.RemoveNullable(args[1].Type)); err != nil {
					return nil, err
				}
			}
			return sql.UInt8, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			list, _ := args[0].([]interface{})
			for _, e := range list {
				if e == nil && args[1] == nil {
					return boolResult(true), nil
				}
				if e != nil && args[1] != nil && sql.CompareValues(e, args[1]) == 0 {
					return boolResult(true), nil
				}
			}
			return boolResult(false), nil
		},
	}
}

func newRange() sql.Function {
	return &builtin{
		name:           "range",
		minArgs:        1,
		maxArgs:        3,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			signed := false
			for i, a := range args {
				if !sql.IsInteger(a.Type) {
					return nil, illegalType("range", a.Type, i)
				}
				signed = signed || !sql.IsUnsigned(a.Type)
			}
			if signed {
				return sql.ArrayType{Elem: sql.Int64}, nil
			}
			return sql.ArrayType{Elem: sql.UInt64}, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			var start, end, step int64 = 0, 0, 1
			ints := make([]int64, len(args))
			signed := false
			for i, a := range args {
				v, err := cast.ToInt64E(a)
				if err != nil {
					return nil, sql.ErrFunctionEval.New("range", err.Error())
				}
				ints[i] = v
				_, isSigned := a.(int64)
				signed = signed || isSigned
			}
			switch len(ints) {
			case 1:
				end = ints[0]
			case 2:
				start, end = ints[0], ints[1]
			default:
				start, end, step = ints[0], ints[1], ints[2]
			}
			if step <= 0 {
				return nil, sql.NewErr(sql.ErrBadArguments, "Step of function range must be positive")
			}
			out := []interface{}{}
			for v := start; v < end; v += step {
				if signed {
					out = append(out, v)
				} else {
					out = append(out, uint64(v))
				}
			}
			return out, nil
		},
	}
}

type arrayElement struct {
	builtin
}

var _ sql.BindableFunction = (*arrayElement)(nil)

func newArrayElement() sql.Function {
	return &arrayElement{builtin{
		name:    "arrayElement",
		minArgs: 2,
		maxArgs: 2,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			t := sql.RemoveNullable(args[0].Type)
			if mt, ok := t.(sql.MapType); ok {
				return mt.Value, nil
			}
			elem, err := elementType("arrayElement", args[0].Type, 0)
			if err != nil {
				return nil, err
			}
			if !sql.IsInteger(sql.RemoveNullable(args[1].Type)) {
				return nil, illegalType("arrayElement", args[1].Type, 1)
			}
			return elem, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			list, _ := args[0].([]interface{})
			i, err := cast.ToInt64E(args[1])
			if err != nil {
				return nil, sql.ErrFunctionEval.New("arrayElement", err.Error())
			}
			switch {
			case i > 0 && int(i) <= len(list):
				return list[i-1], nil
			case i < 0 && int(-i) <= len(list):
				return list[len(list)+int(i)], nil
			}
			return nil, nil
		},
	}}
}

// Bind implements the sql.BindableFunction interface. Maps are read by key.
func (f *arrayElement) Bind(args []sql.ArgumentColumn) (sql.Function, error) {
	t, err := f.ReturnType(args)
	if err != nil {
		return nil, err
	}
	bound := f.builtin
	bound.returnType = fixedType(t)
	if _, ok := sql.RemoveNullable(args[0].Type).(sql.MapType); ok {
		bound.eval = func(_ *sql.Context, values []interface{}) (interface{}, error) {
			entries, _ := values[0].([]interface{})
			for _, e := range entries {
				if kv, ok := e.(sql.Tuple); ok && len(kv) == 2 && sql.CompareValues(kv[0], values[1]) == 0 {
					return kv[1], nil
				}
			}
			return t.Default(), nil
		}
	}
	return &bound, nil
}
