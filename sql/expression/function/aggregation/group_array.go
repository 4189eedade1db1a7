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

package aggregation

import (
	"github.com/dolthub/go-query-analyzer/sql"
)

// newGroupArray returns groupArray([max_size])(x), which collects the values
// of a group into an array.
func newGroupArray() *aggregate {
	return &aggregate{
		name:      "groupArray",
		minArgs:   1,
		maxArgs:   1,
		maxParams: 1,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			if len(params) == 1 {
				if _, err := maxSize(params[0]); err != nil {
					return nil, err
				}
			}
			return sql.ArrayType{Elem: args[0]}, nil
		},
		newState: func(params []interface{}, _ []sql.Type) State {
			s := &groupArrayState{values: []interface{}{}}
			if len(params) == 1 {
				s.limit, _ = maxSize(params[0])
			}
			return s
		},
	}
}

func maxSize(param interface{}) (int, error) {
	n, ok := param.(uint64)
	if !ok || n == 0 {
		return 0, sql.NewErr(sql.ErrBadArguments,
			"Parameter for aggregate function groupArray should be positive number")
	}
	return int(n), nil
}

type groupArrayState struct {
	values []interface{}
	limit  int
}

func (s *groupArrayState) Update(args []interface{}) error {
	if s.limit == 0 || len(s.values) < s.limit {
		s.values = append(s.values, args[0])
	}
	return nil
}

func (s *groupArrayState) Merge(other sql.AggregateState) error {
	o, ok := other.(*groupArrayState)
	if !ok {
		return mergeError("groupArray", other)
	}
	for _, v := range o.values {
		if err := s.Update([]interface{}{v}); err != nil {
			return err
		}
	}
	return nil
}

func (s *groupArrayState) Result() interface{} {
	return append([]interface{}{}, s.values...)
}
