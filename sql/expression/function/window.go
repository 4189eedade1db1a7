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
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

// windowFunction is a function that can only be called with OVER. The state
// is fed the rows of the window frame in order and yields the value for the
// last row.
type windowFunction struct {
	name       string
	minArgs    int
	maxArgs    int
	returnType func(args []sql.Type) (sql.Type, error)
	newState   func(args []sql.Type) sql.AggregateState
}

var _ sql.AggregateFunction = (*windowFunction)(nil)

// Name implements the sql.AggregateFunction interface.
func (w *windowFunction) Name() string { return w.name }

// ReturnType implements the sql.AggregateFunction interface.
func (w *windowFunction) ReturnType(params []interface{}, args []sql.Type) (sql.Type, error) {
	if len(params) > 0 {
		return nil, sql.NewErr(sql.ErrBadArguments, "Window function %s cannot have parameters", w.name)
	}
	if err := checkArity(w.name, len(args), w.minArgs, w.maxArgs); err != nil {
		return nil, err
	}
	return w.returnType(args)
}

// NewState implements the sql.AggregateFunction interface.
func (w *windowFunction) NewState(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
	if _, err := w.ReturnType(params, args); err != nil {
		return nil, err
	}
	return w.newState(args), nil
}

// rankState numbers the rows of a partition. Rows that are peers, meaning
// they have equal arguments, get the same rank unless counting rows.
type rankState struct {
	rows  uint64
	rank  uint64
	dense uint64
	last  []interface{}
	mode  string
}

func (s *rankState) Update(args []interface{}) error {
	s.rows++
	if s.last == nil || !peers(s.last, args) {
		s.rank = s.rows
		s.dense++
	}
	s.last = append([]interface{}{}, args...)
	return nil
}

func peers(a, b []interface{}) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if sql.CompareValues(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

func (s *rankState) Result() interface{} {
	switch s.mode {
	case "rank":
		return s.rank
	case "dense_rank":
		return s.dense
	}
	return s.rows
}

func newRanking(name string) *windowFunction {
	return &windowFunction{
		name:    name,
		minArgs: 0,
		maxArgs: variadic,
		returnType: func([]sql.Type) (sql.Type, error) {
			return sql.UInt64, nil
		},
		newState: func([]sql.Type) sql.AggregateState {
			return &rankState{mode: name}
		},
	}
}

// newOffset returns lag or lead: lag(x[, offset[, default]]).
func newOffset(name string, lead bool) *windowFunction {
	return &windowFunction{
		name:    name,
		minArgs: 1,
		maxArgs: 3,
		returnType: func(args []sql.Type) (sql.Type, error) {
			if len(args) > 1 && !sql.IsInteger(sql.RemoveNullable(args[1])) {
				return nil, illegalType(name, args[1], 1)
			}
			if len(args) == 3 {
				st, err := sql.LeastSupertype([]sql.Type{args[0], args[2]})
				if err != nil {
					return nil, sql.NewErr(sql.ErrNoCommonType,
						"The default value of function %s has type %s that is incompatible with %s",
						name, args[2].Name(), args[0].Name())
				}
				return st, nil
			}
			return args[0], nil
		},
		newState: func(args []sql.Type) sql.AggregateState {
			return &offsetState{lead: lead, def: args[0].Default()}
		},
	}
}

// offsetState keeps the frame values. For lag the current row is the last
// one fed, for lead it is the first one.
type offsetState struct {
	lead   bool
	def    interface{}
	values []interface{}
	offset int
}

func (s *offsetState) Update(args []interface{}) error {
	s.values = append(s.values, args[0])
	s.offset = 1
	if len(args) > 1 {
		s.offset = cast.ToInt(args[1])
	}
	if len(args) > 2 {
		s.def = args[2]
	}
	return nil
}

func (s *offsetState) Result() interface{} {
	i := len(s.values) - 1 - s.offset
	if s.lead {
		i = s.offset
	}
	if i < 0 || i >= len(s.values) {
		return s.def
	}
	return s.values[i]
}
