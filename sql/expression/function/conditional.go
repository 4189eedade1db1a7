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

func checkCondition(name string, t sql.Type, position int) error {
	inner := sql.RemoveNullable(t)
	if !sql.IsNumber(inner) && inner.Kind() != sql.KindNothing {
		return illegalType(name, t, position)
	}
	return nil
}

func branchesSupertype(name string, types []sql.Type) (sql.Type, error) {
	st, err := sql.LeastSupertype(types)
	if err != nil {
		return nil, sql.NewErr(sql.ErrNoCommonType,
			"There is no supertype for types %s of the branches of function %s", typeList(types), name)
	}
	return st, nil
}

func typeList(types []sql.Type) string {
	s := ""
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += t.Name()
	}
	return s
}

func newIf() sql.Function {
	return &builtin{
		name:    "if",
		minArgs: 3,
		maxArgs: 3,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if err := checkCondition("if", args[0].Type, 0); err != nil {
				return nil, err
			}
			return branchesSupertype("if", []sql.Type{args[1].Type, args[2].Type})
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			if truthy(args[0]) {
				return args[1], nil
			}
			return args[2], nil
		},
	}
}

func newMultiIf() sql.Function {
	return &builtin{
		name:    "multiIf",
		minArgs: 3,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if len(args)%2 == 0 {
				return nil, sql.NewErr(sql.ErrBadArguments,
					"Invalid number of arguments for function multiIf")
			}
			var branches []sql.Type
			for i := 0; i+1 < len(args); i += 2 {
				if err := checkCondition("multiIf", args[i].Type, i); err != nil {
					return nil, err
				}
				branches = append(branches, args[i+1].Type)
			}
			branches = append(branches, args[len(args)-1].Type)
			return branchesSupertype("multiIf", branches)
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			for i := 0; i+1 < len(args); i += 2 {
				if truthy(args[i]) {
					return args[i+1], nil
				}
			}
			return args[len(args)-1], nil
		},
	}
}

func newIfNull() sql.Function {
	return &builtin{
		name:    "ifNull",
		minArgs: 2,
		maxArgs: 2,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if sql.IsNothing(args[0].Type) {
				return args[1].Type, nil
			}
			return branchesSupertype("ifNull", []sql.Type{sql.RemoveNullable(args[0].Type), args[1].Type})
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			if args[0] != nil {
				return args[0], nil
			}
			return args[1], nil
		},
	}
}

func newCoalesce() sql.Function {
	return &builtin{
		name:    "coalesce",
		minArgs: 1,
		maxArgs: variadic,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			var types []sql.Type
			nullable := true
			for _, a := range args {
				if sql.IsNothing(a.Type) {
					continue
				}
				types = append(types, sql.RemoveNullable(a.Type))
				if !sql.IsNullable(a.Type) {
					nullable = false
					break
				}
			}
			if len(types) == 0 {
				return sql.NullableType{Nested: sql.Nothing}, nil
			}
			st, err := branchesSupertype("coalesce", types)
			if err != nil {
				return nil, err
			}
			if nullable {
				return sql.MakeNullable(st), nil
			}
			return st, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			for _, a := range args {
				if a != nil {
					return a, nil
				}
			}
			return nil, nil
		},
	}
}

func newNullIf() sql.Function {
	return &builtin{
		name:    "nullIf",
		minArgs: 2,
		maxArgs: 2,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if err := checkComparable("nullIf", sql.RemoveNullable(args[0].Type), sql.RemoveNullable(args[1].Type)); err != nil {
				return nil, err
			}
			return sql.MakeNullable(args[0].Type), nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			if args[0] != nil && args[1] != nil && sql.CompareValues(args[0], args[1]) == 0 {
				return nil, nil
			}
			return args[0], nil
		},
	}
}

func newAssumeNotNull() sql.Function {
	return &builtin{
		name:    "assumeNotNull",
		minArgs: 1,
		maxArgs: 1,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return sql.RemoveNullable(args[0].Type), nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return args[0], nil
		},
	}
}

func newToNullable() sql.Function {
	return &builtin{
		name:    "toNullable",
		minArgs: 1,
		maxArgs: 1,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return sql.MakeNullable(args[0].Type), nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return args[0], nil
		},
	}
}
