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

func newCount() *aggregate {
	return &aggregate{
		name:    "count",
		minArgs: 0,
		maxArgs: variadic,
		returnType: func([]interface{}, []sql.Type) (sql.Type, error) {
			return sql.UInt64, nil
		},
		newState: func([]interface{}, []sql.Type) State {
			return new(countState)
		},
	}
}

type countState struct {
	count uint64
}

func (s *countState) Update([]interface{}) error {
	s.count++
	return nil
}

func (s *countState) Merge(other sql.AggregateState) error {
	o, ok := other.(*countState)
	if !ok {
		return mergeError("count", other)
	}
	s.count += o.count
	return nil
}

func (s *countState) Result() interface{} { return s.count }
