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
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

func newTuple() sql.Function {
	return &builtin{
		name:    "tuple",
		minArgs: 1,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return sql.NewTupleType(argTypes(args), nil), nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return sql.Tuple(append([]interface{}(nil), args...)), nil
		},
	}
}

// tupleElementIndex returns the position selected by the second argument of
// tupleElement, which is an element name or a 1-based index.
func tupleElementIndex(t sql.TupleType, arg sql.ArgumentColumn) (int, error) {
	if !arg.Constant {
		return 0, sql.NewErr(sql.ErrIllegalArgument,
			"Second argument to tupleElement must be a constant UInt or String")
	}
	var key string
	switch v := arg.Value.(type) {
	case string:
		key = v
	case uint64, int64:
		key = cast.ToString(v)
	default:
		return 0, illegalType("tupleElement", arg.Type, 1)
	}
	if i, ok := t.ElementIndex(key); ok {
		return i, nil
	}
	if _, err := strconv.Atoi(key); err == nil {
		return 0, sql.NewErr(sql.ErrIllegalArgument,
			"Index for tuple element is out of range: %s", key)
	}
	return 0, sql.NewErr(sql.ErrIllegalArgument,
		"Tuple doesn't have element with name '%s'", key)
}

type tupleElement struct {
	builtin
}

var _ sql.BindableFunction = (*tupleElement)(nil)

func newTupleElement() sql.Function {
	f := &tupleElement{}
	f.builtin = builtin{
		name:    "tupleElement",
		minArgs: 2,
		maxArgs: 3,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			t, _, err := tupleElementType(args)
			return t, err
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			key, err := cast.ToIntE(args[1])
			if err != nil {
				return nil, sql.ErrFunctionEval.New("tupleElement", "element of a tuple value must be addressed by index")
			}
			return elementAt(args[0], key-1, args)
		},
	}
	return f
}

// tupleElementType returns the result type and the 0-based element index.
// An index of -1 means the default argument is returned.
func tupleElementType(args []sql.ArgumentColumn) (sql.Type, int, error) {
	if err := checkArity("tupleElement", len(args), 2, 3); err != nil {
		return nil, 0, err
	}
	t := sql.RemoveNullable(args[0].Type)
	if at, ok := t.(sql.ArrayType); ok {
		inner := args[0]
		inner.Type = at.Elem
		elem, i, err := tupleElementType(append([]sql.ArgumentColumn{inner}, args[1:]...))
		if err != nil {
			return nil, 0, err
		}
		return sql.ArrayType{Elem: elem}, i, nil
	}
	tt, ok := t.(sql.TupleType)
	if !ok {
		return nil, 0, illegalType("tupleElement", args[0].Type, 0)
	}
	i, err := tupleElementIndex(tt, args[1])
	if err != nil {
		if len(args) == 3 {
			return args[2].Type, -1, nil
		}
		return nil, 0, err
	}
	return tt.Elems[i], i, nil
}

// Bind implements the sql.BindableFunction interface. The bound function
// addresses the element by position, so named elements can be read from
// tuple values.
func (f *tupleElement) Bind(args []sql.ArgumentColumn) (sql.Function, error) {
	t, index, err := tupleElementType(args)
	if err != nil {
		return nil, err
	}
	bound := f.builtin
	bound.returnType = fixedType(t)
	bound.eval = func(_ *sql.Context, values []interface{}) (interface{}, error) {
		return elementAt(values[0], index, values)
	}
	return &bound, nil
}

func elementAt(v interface{}, index int, args []interface{}) (interface{}, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			r, err := elementAt(e, index, args)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case sql.Tuple:
		if index >= 0 && index < len(v) {
			return v[index], nil
		}
		if len(args) == 3 {
			return args[2], nil
		}
		return nil, sql.ErrFunctionEval.New("tupleElement", "tuple element index out of range: "+strconv.Itoa(index+1))
	}
	return nil, sql.ErrFunctionEval.New("tupleElement", "not a tuple: "+sql.FormatValue(v))
}

type getSubcolumn struct {
	builtin
}

var _ sql.BindableFunction = (*getSubcolumn)(nil)

// newGetSubcolumn returns getSubcolumn(x, 'path'), which reads a subcolumn of
// a composite value by dotted path.
func newGetSubcolumn() sql.Function {
	return &getSubcolumn{builtin{
		name:    "getSubcolumn",
		minArgs: 2,
		maxArgs: 2,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			path, err := constantString("getSubcolumn", args, 1)
			if err != nil {
				return nil, err
			}
			t, ok := sql.Subcolumn(args[0].Type, path)
			if !ok {
				return nil, sql.NewErr(sql.ErrIllegalArgument,
					"There is no subcolumn %s in type %s", path, args[0].Type.Name())
			}
			return t, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			path, _ := args[1].(string)
			return subcolumnValue(args[0], sql.FieldType(args[0]), path)
		},
	}}
}

// Bind implements the sql.BindableFunction interface. The bound function
// navigates values with the declared argument type, which knows the tuple
// element names.
func (f *getSubcolumn) Bind(args []sql.ArgumentColumn) (sql.Function, error) {
	t, err := f.ReturnType(args)
	if err != nil {
		return nil, err
	}
	argType := args[0].Type
	bound := f.builtin
	bound.returnType = fixedType(t)
	bound.eval = func(_ *sql.Context, values []interface{}) (interface{}, error) {
		path, _ := values[1].(string)
		return subcolumnValue(values[0], argType, path)
	}
	return &bound, nil
}

func subcolumnValue(v interface{}, t sql.Type, path string) (interface{}, error) {
	if path == "" {
		return v, nil
	}
	switch tt := t.(type) {
	case sql.NullableType:
		if path == "null" {
			return boolResult(v == nil), nil
		}
		if v == nil {
			return nil, nil
		}
		return subcolumnValue(v, tt.Nested, path)
	case sql.TupleType:
		tup, _ := v.(sql.Tuple)
		for i, name := range tt.ElementNames() {
			if i >= len(tup) {
				break
			}
			if path == name {
				return tup[i], nil
			}
			if strings.HasPrefix(path, name+".") {
				return subcolumnValue(tup[i], tt.Elems[i], path[len(name)+1:])
			}
		}
	case sql.ArrayType:
		list, _ := v.([]interface{})
		if path == "size0" {
			return uint64(len(list)), nil
		}
		out := make([]interface{}, len(list))
		for i, e := range list {
			r, err := subcolumnValue(e, tt.Elem, path)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case sql.MapType:
		list, _ := v.([]interface{})
		out := make([]interface{}, 0, len(list))
		for _, e := range list {
			kv, ok := e.(sql.Tuple)
			if !ok || len(kv) != 2 {
				continue
			}
			switch path {
			case "keys":
				out = append(out, kv[0])
			case "values":
				out = append(out, kv[1])
			}
		}
		return out, nil
	}
	return nil, sql.ErrFunctionEval.New("getSubcolumn", "no subcolumn "+path+" in "+t.Name())
}

// newExists returns the marker function kept for correlated EXISTS. It is
// typed but is never evaluated during analysis.
func newExists() sql.Function {
	return &builtin{
		name:        "exists",
		minArgs:     1,
		maxArgs:     1,
		notFoldable: true,
		returnType:  fixedType(sql.UInt8),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return nil, sql.NewErr(sql.ErrNotImplemented, "Function exists cannot be evaluated directly")
		},
	}
}
