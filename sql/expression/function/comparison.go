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
	"github.com/dolthub/go-query-analyzer/internal/regex"
	"github.com/dolthub/go-query-analyzer/sql"
)

func newComparison(name string, matches func(cmp int) bool) sql.Function {
	return &builtin{
		name:           name,
		minArgs:        2,
		maxArgs:        2,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if err := checkComparable(name, args[0].Type, args[1].Type); err != nil {
				return nil, err
			}
			return sql.UInt8, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return boolResult(matches(sql.CompareValues(args[0], args[1]))), nil
		},
	}
}

func checkComparable(name string, left, right sql.Type) error {
	if sql.IsNumber(left) && sql.IsNumber(right) {
		return nil
	}
	if left.Kind() == sql.KindString || right.Kind() == sql.KindString {
		// Strings compare with dates and UUIDs parsed from text.
		return nil
	}
	if _, err := sql.LeastSupertype([]sql.Type{left, right}); err != nil {
		return sql.NewErr(sql.ErrTypeMismatch,
			"Illegal types of arguments (%s, %s) of function %s", left.Name(), right.Name(), name)
	}
	return nil
}

// newLogical returns and / or. NULL is handled the three-valued way: a
// deciding value wins over NULL.
func newLogical(name string, isAnd bool) sql.Function {
	return &builtin{
		name:    name,
		minArgs: 2,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			nullable := false
			for i, a := range args {
				t := sql.RemoveNullable(a.Type)
				if !sql.IsNumber(t) && t.Kind() != sql.KindNothing {
					return nil, illegalType(name, a.Type, i)
				}
				nullable = nullable || sql.IsNullable(a.Type)
			}
			if nullable {
				return sql.MakeNullable(sql.UInt8), nil
			}
			return sql.UInt8, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			sawNull := false
			for _, a := range args {
				if a == nil {
					sawNull = true
					continue
				}
				if truthy(a) != isAnd {
					return boolResult(!isAnd), nil
				}
			}
			if sawNull {
				return nil, nil
			}
			return boolResult(isAnd), nil
		},
	}
}

func newNot() sql.Function {
	return &builtin{
		name:           "not",
		minArgs:        1,
		maxArgs:        1,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if !sql.IsNumber(args[0].Type) {
				return nil, illegalType("not", args[0].Type, 0)
			}
			return sql.UInt8, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return boolResult(!truthy(args[0])), nil
		},
	}
}

func newXor() sql.Function {
	return &builtin{
		name:           "xor",
		minArgs:        2,
		maxArgs:        variadic,
		propagateNulls: true,
		returnType:     fixedType(sql.UInt8),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			result := false
			for _, a := range args {
				result = result != truthy(a)
			}
			return boolResult(result), nil
		},
	}
}

func newIsNull(name string, negated bool) sql.Function {
	return &builtin{
		name:       name,
		minArgs:    1,
		maxArgs:    1,
		returnType: fixedType(sql.UInt8),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return boolResult((args[0] == nil) != negated), nil
		},
	}
}

func newLike(name string, negated, caseInsensitive bool) sql.Function {
	return newPatternMatch(name, func(pattern string) string {
		return regex.FromLike(pattern, caseInsensitive)
	}, negated)
}

// newPatternMatch returns a function matching its first string argument
// against the regular expression made from the second one.
func newPatternMatch(name string, toRegexp func(string) string, negated bool) sql.Function {
	return &builtin{
		name:           name,
		minArgs:        2,
		maxArgs:        2,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			for i, a := range args {
				if a.Type.Kind() != sql.KindString {
					return nil, illegalType(name, a.Type, i)
				}
			}
			return sql.UInt8, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			m, err := regex.Compile(toRegexp(args[1].(string)))
			if err != nil {
				return nil, sql.ErrFunctionEval.New(name, err.Error())
			}
			return boolResult(m.Match(args[0].(string)) != negated), nil
		},
	}
}
