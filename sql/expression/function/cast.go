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

// GetScalarName is the function that reads a registered scalar subquery
// result from the query context.
const GetScalarName = "__getScalar"

// castFunction is _CAST(x, 'T'). The target type is the constant second
// argument.
type castFunction struct {
	builtin
}

var _ sql.BindableFunction = (*castFunction)(nil)

func newCast(name string) sql.Function {
	return &castFunction{builtin{
		name:    name,
		minArgs: 2,
		maxArgs: 2,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return castTarget(name, args)
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			typeName, ok := args[1].(string)
			if !ok {
				return nil, sql.NewErr(sql.ErrIllegalArgument, "Second argument to %s must be a constant string describing type", name)
			}
			t, err := sql.ParseType(typeName)
			if err != nil {
				return nil, err
			}
			return convert(name, args[0], t)
		},
	}}
}

func castTarget(name string, args []sql.ArgumentColumn) (sql.Type, error) {
	typeName, err := constantString(name, args, 1)
	if err != nil {
		return nil, sql.NewErr(sql.ErrIllegalArgument,
			"Second argument to %s must be a constant string describing type", name)
	}
	return sql.ParseType(typeName)
}

// Bind implements the sql.BindableFunction interface.
func (f *castFunction) Bind(args []sql.ArgumentColumn) (sql.Function, error) {
	t, err := f.ReturnType(args)
	if err != nil {
		return nil, err
	}
	bound := f.builtin
	bound.returnType = fixedType(t)
	bound.eval = func(_ *sql.Context, values []interface{}) (interface{}, error) {
		return convert(f.name, values[0], t)
	}
	return &bound, nil
}

func convert(name string, v interface{}, t sql.Type) (interface{}, error) {
	r, err := sql.ConvertValue(v, t)
	if err != nil {
		return nil, sql.ErrFunctionEval.New(name, err.Error())
	}
	return r, nil
}

// newConversion returns a toT function converting its argument to t.
func newConversion(name string, t sql.Type) sql.Function {
	return &builtin{
		name:           name,
		minArgs:        1,
		maxArgs:        1,
		propagateNulls: true,
		returnType:     fixedType(t),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return convert(name, args[0], t)
		},
	}
}

// newDecimalConversion returns toDecimal32 / toDecimal64, whose second
// argument is the constant scale.
func newDecimalConversion(name string, precision int) sql.Function {
	return &builtin{
		name:           name,
		minArgs:        2,
		maxArgs:        2,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if !args[1].Constant || !sql.IsInteger(args[1].Type) {
				return nil, sql.NewErr(sql.ErrIllegalArgument,
					"Second argument of function %s must be a constant integer scale", name)
			}
			scale := cast.ToInt(args[1].Value)
			if scale < 0 || scale > precision {
				return nil, sql.NewErr(sql.ErrIllegalArgument,
					"Scale %d is out of bounds for function %s", scale, name)
			}
			return sql.DecimalType{Precision: precision, Scale: scale}, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			scale := cast.ToInt(args[1])
			return convert(name, args[0], sql.DecimalType{Precision: precision, Scale: scale})
		},
	}
}

// toTypeName yields a constant even for non-constant arguments.
type toTypeName struct {
	builtin
}

var _ sql.ConstantResultFunction = (*toTypeName)(nil)

func newToTypeName() sql.Function {
	return &toTypeName{builtin{
		name:       "toTypeName",
		minArgs:    1,
		maxArgs:    1,
		returnType: fixedType(sql.String),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return sql.FieldType(args[0]).Name(), nil
		},
	}}
}

// ConstantResult implements the sql.ConstantResultFunction interface.
func (f *toTypeName) ConstantResult(args []sql.ArgumentColumn) (interface{}, bool) {
	if len(args) != 1 || args[0].Type == nil {
		return nil, false
	}
	return args[0].Type.Name(), true
}

func newMaterialize() sql.Function {
	return &builtin{
		name:        "materialize",
		minArgs:     1,
		maxArgs:     1,
		notFoldable: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return args[0].Type, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return args[0], nil
		},
	}
}

func newIdentity() sql.Function {
	return &builtin{
		name:    "identity",
		minArgs: 1,
		maxArgs: 1,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return args[0].Type, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return args[0], nil
		},
	}
}

// getScalar reads a scalar subquery result registered in the query context
// under the hash given as its argument.
type getScalar struct {
	builtin
}

func newGetScalar() sql.Function {
	return &getScalar{builtin{
		name:        GetScalarName,
		minArgs:     1,
		maxArgs:     1,
		notFoldable: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return nil, sql.ErrLogical.New("function __getScalar must be resolved with the type of its scalar")
		},
		eval: func(ctx *sql.Context, args []interface{}) (interface{}, error) {
			key, _ := args[0].(string)
			registry := ctx.QueryContext()
			if registry == nil {
				return nil, sql.ErrLogical.New("no query context to read scalar " + key)
			}
			s, ok := registry.Get(key)
			if !ok {
				return nil, sql.ErrLogical.New("get non-scalar value " + key)
			}
			return s.Value, nil
		},
	}}
}

// ResolveGetScalar returns __getScalar bound to the type of the scalar it
// reads.
func ResolveGetScalar(t sql.Type) sql.Function {
	f := newGetScalar().(*getScalar)
	f.returnType = fixedType(t)
	return f
}
