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

// MaxGroupingArguments is the maximum number of arguments of grouping.
const MaxGroupingArguments = 64

// newGrouping returns grouping(k1, ...), the bit mask of the GROUP BY keys
// that are not aggregated in the current grouping set. Its value is only
// known once rows are grouped.
func newGrouping() sql.Function {
	return &builtin{
		name:        "grouping",
		minArgs:     1,
		maxArgs:     MaxGroupingArguments,
		notFoldable: true,
		returnType:  fixedType(sql.UInt64),
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return nil, sql.NewErr(sql.ErrNotImplemented, "Function grouping cannot be evaluated outside of aggregation")
		},
	}
}
