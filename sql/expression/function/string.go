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
	"strings"

	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

func checkStrings(name string, args []sql.ArgumentColumn) error {
	for i, a := range args {
		if a.Type.Kind() != sql.KindString {
			return illegalType(name, a.Type, i)
		}
	}
	return nil
}

func newConcat() sql.Function {
	return &builtin{
		name:           "concat",
		minArgs:        1,
		maxArgs:        variadic,
		propagateNulls: true,
		returnType:     fixedType(sql.String),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			var sb strings.Builder
			for _, a := range args {
				s, err := sql.ConvertValue(a, sql.String)
				if err != nil {
					return nil, sql.ErrFunctionEval.New("concat", err.Error())
				}
				sb.WriteString(s.(string))
			}
			return sb.String(), nil
		},
	}
}

func newCaseFunction(name string, fn func(string) string) sql.Function {
	return &builtin{
		name:           name,
		minArgs:        1,
		maxArgs:        1,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if err := checkStrings(name, args); err != nil {
				return nil, err
			}
			return sql.String, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return fn(args[0].(string)), nil
		},
	}
}

// newSubstring returns substring(s, offset[, length]) with a 1-based offset.
// A negative offset counts from the end of the string.
func newSubstring() sql.Function {
	return &builtin{
		name:           "substring",
		minArgs:        2,
		maxArgs:        3,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			if err := checkStrings("substring", args[:1]); err != nil {
				return nil, err
			}
			for i, a := range args[1:] {
				if !sql.IsInteger(a.Type) {
					return nil, illegalType("substring", a.Type, i+1)
				}
			}
			return sql.String, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			s := args[0].(string)
			offset := cast.ToInt(args[1])
			start := 0
			switch {
			case offset > 0:
				start = offset - 1
			case offset < 0:
				start = len(s) + offset
				if start < 0 {
					start = 0
				}
			}
			if start > len(s) {
				return "", nil
			}
			end := len(s)
			if len(args) == 3 {
				length := cast.ToInt(args[2])
				if length < 0 {
					end = len(s) + length
				} else if start+length < end {
					end = start + length
				}
			}
			if end <= start {
				return "", nil
			}
			return s[start:end], nil
		},
	}
}
