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
	"math"

	"github.com/dolthub/go-query-analyzer/sql"
)

func newAvg() *aggregate {
	return &aggregate{
		name:           "avg",
		minArgs:        1,
		maxArgs:        1,
		nullableResult: true,
		returnType: func(_ []interface{}, args []sql.Type) (sql.Type, error) {
			if err := numericArgument("avg", args[0]); err != nil {
				return nil, err
			}
			return sql.Float64, nil
		},
		newState: func([]interface{}, []sql.Type) State {
			return &avgState{sum: sumState{resultType: sql.Float64}}
		},
	}
}

type avgState struct {
	sum   sumState
	count uint64
}

func (s *avgState) Update(args []interface{}) error {
	if err := s.sum.Update(args); err != nil {
		return err
	}
	s.count++
	return nil
}

func (s *avgState) Merge(other sql.AggregateState) error {
	o, ok := other.(*avgState)
	if !ok {
		return mergeError("avg", other)
	}
	s.count += o.count
	return s.sum.Merge(&o.sum)
}

func (s *avgState) Result() interface{} {
	if s.count == 0 {
		return math.NaN()
	}
	return s.sum.float / float64(s.count)
}
