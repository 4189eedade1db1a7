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
	"sort"

	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

// newQuantile returns quantile(level)(x). The level defaults to 0.5 and
// the quantile is computed exactly, interpolating between neighbours.
func newQuantile() *aggregate {
	return &aggregate{
		name:           "quantile",
		minArgs:        1,
		maxArgs:        1,
		maxParams:      1,
		nullableResult: true,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			if _, err := quantileLevel(params); err != nil {
				return nil, err
			}
			if err := numericArgument("quantile", args[0]); err != nil {
				return nil, err
			}
			return sql.Float64, nil
		},
		newState: func(params []interface{}, _ []sql.Type) State {
			level, _ := quantileLevel(params)
			return &quantileState{level: level}
		},
	}
}

func quantileLevel(params []interface{}) (float64, error) {
	if len(params) == 0 {
		return 0.5, nil
	}
	level, err := cast.ToFloat64E(params[0])
	if err != nil || level < 0 || level > 1 {
		return 0, sql.NewErr(sql.ErrBadArguments,
			"Quantile level must be in range [0, 1], got %s", sql.FormatValue(params[0]))
	}
	return level, nil
}

type quantileState struct {
	level  float64
	values []float64
}

func (s *quantileState) Update(args []interface{}) error {
	v, err := cast.ToFloat64E(args[0])
	if err != nil {
		d, derr := sql.ToDecimal(args[0])
		if derr != nil {
			return err
		}
		v, _ = d.Float64()
	}
	s.values = append(s.values, v)
	return nil
}

func (s *quantileState) Merge(other sql.AggregateState) error {
	o, ok := other.(*quantileState)
	if !ok {
		return mergeError("quantile", other)
	}
	s.values = append(s.values, o.values...)
	return nil
}

func (s *quantileState) Result() interface{} {
	if len(s.values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), s.values...)
	sort.Float64s(sorted)
	pos := s.level * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
