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

// InFunctionNames are the names of the IN family of functions.
var InFunctionNames = []string{
	"in", "notIn", "globalIn", "globalNotIn",
	"nullIn", "notNullIn", "globalNullIn", "globalNotNullIn",
}

// NullInName returns the NULL-aware variant of an IN function, used when
// transform_null_in is enabled. Other names are returned as is.
func NullInName(name string) string {
	switch name {
	case "in":
		return "nullIn"
	case "notIn":
		return "notNullIn"
	case "globalIn":
		return "globalNullIn"
	case "globalNotIn":
		return "globalNotNullIn"
	}
	return name
}

// IsInFunction returns whether name is one of the IN functions.
func IsInFunction(name string) bool {
	for _, n := range InFunctionNames {
		if n == name {
			return true
		}
	}
	return false
}

func newIn(name string) sql.Function {
	negated := name == "notIn" || name == "globalNotIn" || name == "notNullIn" || name == "globalNotNullIn"
	nullAware := name == "nullIn" || name == "notNullIn" || name == "globalNullIn" || name == "globalNotNullIn"
	return &builtin{
		name:       name,
		minArgs:    2,
		maxArgs:    2,
		returnType: fixedType(sql.UInt8),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			left := args[0]
			if left == nil && !nullAware {
				return boolResult(negated), nil
			}
			found := false
			for _, e := range inElements(args[1]) {
				if e == nil || left == nil {
					if nullAware && e == nil && left == nil {
						found = true
						break
					}
					continue
				}
				if sql.CompareValues(left, e) == 0 {
					found = true
					break
				}
			}
			return boolResult(found != negated), nil
		},
	}
}

func inElements(v interface{}) []interface{} {
	switch v := v.(type) {
	case *sql.SetValue:
		return v.Elements
	case sql.Tuple:
		return v
	case []interface{}:
		return v
	case nil:
		return nil
	}
	return []interface{}{v}
}
