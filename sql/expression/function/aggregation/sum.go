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
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

func sumType(name string, t sql.Type) (sql.Type, error) {
	if err := numericArgument(name, t); err != nil {
		return nil, err
	}
	switch tt := t.(type) {
	case sql.DecimalType:
		return sql.DecimalType{Precision: 38, Scale: tt.Scale}, nil
	}
	switch {
	case sql.IsFloat(t):
		return sql.Float64, nil
	case sql.IsUnsigned(t):
		return sql.UInt64, nil
	}
	return sql.Int64, nil
}

func newSum() *aggregate {
	return &aggregate{
		name:           "sum",
		minArgs:        1,
		maxArgs:        1,
		nullableResult: true,
		returnType: func(_ []interface{}, args []sql.Type) (sql.Type, error) {
			return sumType("sum", args[0])
		},
		newState: func(_ []interface{}, args []sql.Type) State {
			t, _ := sumType("sum", args[0])
			return &sumState{resultType: t}
		},
	}
}

// sumState adds values in the representation of the result type.
type sumState struct {
	resultType sql.Type
	unsigned   uint64
	signed     int64
	float      float64
	dec        decimal.Decimal
}

func (s *sumState) Update(args []interface{}) error {
	switch s.resultType.Kind() {
	case sql.KindUInt64:
		v, err := cast.ToUint64E(args[0])
		if err != nil {
			return err
		}
		s.unsigned += v
	case sql.KindInt64:
		v, err := cast.ToInt64E(args[0])
		if err != nil {
			return err
		}
		s.signed += v
	case sql.KindFloat64:
		v, err := cast.ToFloat64E(args[0])
		if err != nil {
			return err
		}
		s.float += v
	default:
		v, err := sql.ToDecimal(args[0])
		if err != nil {
			return err
		}
		s.dec = s.dec.Add(v)
	}
	return nil
}

func (s *sumState) Merge(other sql.AggregateState) error {
	o, ok := other.(*sumState)
	if !ok {
		return mergeError("sum", other)
	}
	s.unsigned += o.unsigned
	s.signed += o.signed
	s.float += o.float
	s.dec = s.dec.Add(o.dec)
	return nil
}

func (s *sumState) Result() interface{} {
	switch s.resultType.Kind() {
	case sql.KindUInt64:
		return s.unsigned
	case sql.KindInt64:
		return s.signed
	case sql.KindFloat64:
		return s.float
	}
	return s.dec
}
