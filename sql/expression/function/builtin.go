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
	"github.com/dolthub/go-query-analyzer/sql"
)

const variadic = -1

// builtin is an ordinary function defined by its type and eval callbacks.
type builtin struct {
	name    string
	minArgs int
	maxArgs int

	returnType func(args []sql.ArgumentColumn) (sql.Type, error)
	eval       func(ctx *sql.Context, args []interface{}) (interface{}, error)

	// propagateNulls makes the function return NULL when any argument is
	// NULL. The result type is then Nullable when any argument type is.
	propagateNulls   bool
	notFoldable      bool
	nonDeterministic bool
}

var _ sql.Function = (*builtin)(nil)

// Name implements the sql.Function interface.
func (b *builtin) Name() string { return b.name }

// ReturnType implements the sql.Function interface.
func (b *builtin) ReturnType(args []sql.ArgumentColumn) (sql.Type, error) {
	if err := checkArity(b.name, len(args), b.minArgs, b.maxArgs); err != nil {
		return nil, err
	}
	if !b.propagateNulls {
		return b.returnType(args)
	}

	nullable := false
	stripped := make([]sql.ArgumentColumn, len(args))
	for i, a := range args {
		stripped[i] = a
		if sql.IsNullable(a.Type) {
			if sql.IsNothing(a.Type) {
				return sql.NullableType{Nested: sql.Nothing}, nil
			}
			nullable = true
			stripped[i].Type = sql.RemoveNullable(a.Type)
		}
	}
	t, err := b.returnType(stripped)
	if err != nil {
		return nil, err
	}
	if nullable {
		t = sql.MakeNullable(t)
	}
	return t, nil
}

// Eval implements the sql.Function interface.
func (b *builtin) Eval(ctx *sql.Context, args []interface{}) (interface{}, error) {
	if b.propagateNulls {
		for _, a := range args {
			if a == nil {
				return nil, nil
			}
		}
	}
	return b.eval(ctx, args)
}

// IsSuitableForConstantFolding implements the sql.Function interface.
func (b *builtin) IsSuitableForConstantFolding() bool {
	return !b.notFoldable && !b.nonDeterministic
}

// IsDeterministic implements the sql.Function interface.
func (b *builtin) IsDeterministic() bool { return !b.nonDeterministic }

func checkArity(name string, n, min, max int) error {
	if n < min || (max != variadic && n > max) {
		switch {
		case min == max:
			return sql.NewErr(sql.ErrBadArguments,
				"Number of arguments for function %s doesn't match: passed %d, should be %d", name, n, min)
		case max == variadic:
			return sql.NewErr(sql.ErrBadArguments,
				"Number of arguments for function %s doesn't match: passed %d, should be at least %d", name, n, min)
		}
		return sql.NewErr(sql.ErrBadArguments,
			"Number of arguments for function %s doesn't match: passed %d, should be from %d to %d", name, n, min, max)
	}
	return nil
}

func illegalType(name string, t sql.Type, position int) error {
	return sql.NewErr(sql.ErrTypeMismatch,
		"Illegal type %s of argument %d of function %s", t.Name(), position+1, name)
}

func argTypes(args []sql.ArgumentColumn) []sql.Type {
	types := make([]sql.Type, len(args))
	for i, a := range args {
		types[i] = a.Type
	}
	return types
}

// constantString returns the value of a constant String argument.
func constantString(name string, args []sql.ArgumentColumn, i int) (string, error) {
	if i >= len(args) || !args[i].Constant {
		return "", sql.NewErr(sql.ErrIllegalArgument,
			"Argument %d of function %s must be a constant string", i+1, name)
	}
	s, ok := args[i].Value.(string)
	if !ok {
		return "", illegalType(name, args[i].Type, i)
	}
	return s, nil
}

func fixedType(t sql.Type) func([]sql.ArgumentColumn) (sql.Type, error) {
	return func([]sql.ArgumentColumn) (sql.Type, error) { return t, nil }
}

func boolResult(b bool) interface{} {
	if b {
		return uint64(1)
	}
	return uint64(0)
}

// truthy returns whether a filter value is true.
func truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case uint64:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return sql.CompareValues(v, uint64(0)) != 0
}
