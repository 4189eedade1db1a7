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
	"github.com/dolthub/go-query-analyzer/sql/hash"
)

// newUniq returns uniq or uniqExact. Both count the distinct argument tuples
// exactly, by hash.
func newUniq(name string) *aggregate {
	return &aggregate{
		name:    name,
		minArgs: 1,
		maxArgs: variadic,
		returnType: func([]interface{}, []sql.Type) (sql.Type, error) {
			return sql.UInt64, nil
		},
		newState: func([]interface{}, []sql.Type) State {
			return &uniqState{name: name, seen: make(map[uint64]struct{})}
		},
	}
}

type uniqState struct {
	name string
	seen map[uint64]struct{}
}

func (s *uniqState) Update(args []interface{}) error {
	sum, err := hash.HashOf(args...)
	if err != nil {
		return sql.ErrFunctionEval.New(s.name, err.Error())
	}
	s.seen[sum] = struct{}{}
	return nil
}

func (s *uniqState) Merge(other sql.AggregateState) error {
	o, ok := other.(*uniqState)
	if !ok {
		return mergeError(s.name, other)
	}
	for k := range o.seen {
		s.seen[k] = struct{}{}
	}
	return nil
}

func (s *uniqState) Result() interface{} { return uint64(len(s.seen)) }
