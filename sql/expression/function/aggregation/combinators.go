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
	"strings"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/hash"
)

// combinator derives an aggregate function from another one. The derived
// function is named after the nested one plus the suffix.
type combinator struct {
	suffix string
	wrap   func(nested sql.AggregateFunction) sql.AggregateFunction
}

var combinators = []combinator{
	{"If", newIfCombinator},
	{"Distinct", newDistinctCombinator},
	{"OrNull", newOrNullCombinator},
	{"OrDefault", newOrDefaultCombinator},
	{"State", newStateCombinator},
	{"Merge", newMergeCombinator},
}

// combined is an aggregate function built by a combinator.
type combined struct {
	name       string
	returnType func(params []interface{}, args []sql.Type) (sql.Type, error)
	newState   func(params []interface{}, args []sql.Type) (sql.AggregateState, error)
}

var _ sql.AggregateFunction = (*combined)(nil)

func (c *combined) Name() string { return c.name }

func (c *combined) ReturnType(params []interface{}, args []sql.Type) (sql.Type, error) {
	return c.returnType(params, args)
}

func (c *combined) NewState(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
	if _, err := c.returnType(params, args); err != nil {
		return nil, err
	}
	return c.newState(params, args)
}

func mergeStates(name string, into, from sql.AggregateState) error {
	m, ok := into.(State)
	if !ok {
		return sql.NewErr(sql.ErrNotImplemented, "State of aggregate function %s cannot be merged", name)
	}
	return m.Merge(from)
}

func newIfCombinator(nested sql.AggregateFunction) sql.AggregateFunction {
	name := nested.Name() + "If"
	nestedArgs := func(args []sql.Type) ([]sql.Type, error) {
		if len(args) == 0 {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Aggregate function %s requires at least one argument", name)
		}
		cond := sql.RemoveNullable(args[len(args)-1])
		if !sql.IsNumber(cond) && !sql.IsNothing(cond) {
			return nil, sql.NewErr(sql.ErrTypeMismatch,
				"Illegal type %s of last argument for aggregate function with If suffix", args[len(args)-1].Name())
		}
		return args[:len(args)-1], nil
	}
	return &combined{
		name: name,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			inner, err := nestedArgs(args)
			if err != nil {
				return nil, err
			}
			return nested.ReturnType(params, inner)
		},
		newState: func(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
			inner, _ := nestedArgs(args)
			s, err := nested.NewState(params, inner)
			if err != nil {
				return nil, err
			}
			return &ifState{name: name, inner: s}, nil
		},
	}
}

type ifState struct {
	name  string
	inner sql.AggregateState
}

func (s *ifState) Update(args []interface{}) error {
	if !isTrue(args[len(args)-1]) {
		return nil
	}
	return s.inner.Update(args[:len(args)-1])
}

func (s *ifState) Merge(other sql.AggregateState) error {
	o, ok := other.(*ifState)
	if !ok {
		return mergeError(s.name, other)
	}
	return mergeStates(s.name, s.inner, o.inner)
}

func (s *ifState) Result() interface{} { return s.inner.Result() }

func isTrue(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case uint64:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return sql.CompareValues(v, uint64(0)) != 0
}

func newDistinctCombinator(nested sql.AggregateFunction) sql.AggregateFunction {
	name := nested.Name() + "Distinct"
	return &combined{
		name:       name,
		returnType: nested.ReturnType,
		newState: func(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
			s, err := nested.NewState(params, args)
			if err != nil {
				return nil, err
			}
			return &distinctState{name: name, inner: s, seen: make(map[uint64]struct{})}, nil
		},
	}
}

// distinctState forwards each distinct argument tuple once.
type distinctState struct {
	name   string
	inner  sql.AggregateState
	seen   map[uint64]struct{}
	values [][]interface{}
}

func (s *distinctState) Update(args []interface{}) error {
	sum, err := hash.HashOf(args...)
	if err != nil {
		return sql.ErrFunctionEval.New(s.name, err.Error())
	}
	if _, ok := s.seen[sum]; ok {
		return nil
	}
	s.seen[sum] = struct{}{}
	s.values = append(s.values, append([]interface{}(nil), args...))
	return s.inner.Update(args)
}

func (s *distinctState) Merge(other sql.AggregateState) error {
	o, ok := other.(*distinctState)
	if !ok {
		return mergeError(s.name, other)
	}
	for _, v := range o.values {
		if err := s.Update(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *distinctState) Result() interface{} { return s.inner.Result() }

func newOrNullCombinator(nested sql.AggregateFunction) sql.AggregateFunction {
	name := nested.Name() + "OrNull"
	return &combined{
		name: name,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			t, err := nested.ReturnType(params, args)
			if err != nil {
				return nil, err
			}
			return sql.MakeNullable(t), nil
		},
		newState: func(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
			s, err := nested.NewState(params, args)
			if err != nil {
				return nil, err
			}
			return &emptyResultState{name: name, inner: s}, nil
		},
	}
}

func newOrDefaultCombinator(nested sql.AggregateFunction) sql.AggregateFunction {
	name := nested.Name() + "OrDefault"
	return &combined{
		name: name,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			t, err := nested.ReturnType(params, args)
			if err != nil {
				return nil, err
			}
			if sql.IsNothing(t) {
				return t, nil
			}
			return sql.RemoveNullable(t), nil
		},
		newState: func(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
			t, err := nested.ReturnType(params, args)
			if err != nil {
				return nil, err
			}
			s, err := nested.NewState(params, args)
			if err != nil {
				return nil, err
			}
			return &emptyResultState{name: name, inner: s, def: sql.RemoveNullable(t).Default(), orDefault: true}, nil
		},
	}
}

// emptyResultState replaces the result of a group without rows: NULL for
// OrNull and the type default for OrDefault.
type emptyResultState struct {
	name      string
	inner     sql.AggregateState
	seen      bool
	def       interface{}
	orDefault bool
}

func (s *emptyResultState) Update(args []interface{}) error {
	s.seen = true
	return s.inner.Update(args)
}

func (s *emptyResultState) Merge(other sql.AggregateState) error {
	o, ok := other.(*emptyResultState)
	if !ok {
		return mergeError(s.name, other)
	}
	s.seen = s.seen || o.seen
	return mergeStates(s.name, s.inner, o.inner)
}

func (s *emptyResultState) Result() interface{} {
	if !s.seen {
		return s.def
	}
	r := s.inner.Result()
	if r == nil && s.orDefault {
		return s.def
	}
	return r
}

func newStateCombinator(nested sql.AggregateFunction) sql.AggregateFunction {
	name := nested.Name() + "State"
	return &combined{
		name: name,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			if _, err := nested.ReturnType(params, args); err != nil {
				return nil, err
			}
			return sql.AggregateFunctionType{Function: nested.Name(), Args: args}, nil
		},
		newState: func(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
			s, err := nested.NewState(params, args)
			if err != nil {
				return nil, err
			}
			return &stateState{name: name, inner: s}, nil
		},
	}
}

// stateState returns the intermediate state of the nested function as its
// result.
type stateState struct {
	name  string
	inner sql.AggregateState
}

func (s *stateState) Update(args []interface{}) error { return s.inner.Update(args) }

func (s *stateState) Merge(other sql.AggregateState) error {
	o, ok := other.(*stateState)
	if !ok {
		return mergeError(s.name, other)
	}
	return mergeStates(s.name, s.inner, o.inner)
}

func (s *stateState) Result() interface{} { return s.inner }

func newMergeCombinator(nested sql.AggregateFunction) sql.AggregateFunction {
	name := nested.Name() + "Merge"
	stateArgs := func(args []sql.Type) ([]sql.Type, error) {
		if len(args) != 1 {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Aggregate function %s requires exactly one argument", name)
		}
		t, ok := args[0].(sql.AggregateFunctionType)
		if !ok || !strings.EqualFold(t.Function, nested.Name()) {
			return nil, sql.NewErr(sql.ErrTypeMismatch,
				"Illegal type %s of argument for aggregate function %s, expected AggregateFunction(%s, ...)",
				args[0].Name(), name, nested.Name())
		}
		return t.Args, nil
	}
	return &combined{
		name: name,
		returnType: func(params []interface{}, args []sql.Type) (sql.Type, error) {
			inner, err := stateArgs(args)
			if err != nil {
				return nil, err
			}
			return nested.ReturnType(params, inner)
		},
		newState: func(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
			inner, _ := stateArgs(args)
			s, err := nested.NewState(params, inner)
			if err != nil {
				return nil, err
			}
			return &mergeState{name: name, inner: s}, nil
		},
	}
}

// mergeState merges the intermediate states it is updated with.
type mergeState struct {
	name  string
	inner sql.AggregateState
}

func (s *mergeState) Update(args []interface{}) error {
	if args[0] == nil {
		return nil
	}
	from, ok := args[0].(sql.AggregateState)
	if !ok {
		return sql.ErrFunctionEval.New(s.name, "argument is not an aggregate function state")
	}
	return mergeStates(s.name, s.inner, from)
}

func (s *mergeState) Merge(other sql.AggregateState) error {
	o, ok := other.(*mergeState)
	if !ok {
		return mergeError(s.name, other)
	}
	return mergeStates(s.name, s.inner, o.inner)
}

func (s *mergeState) Result() interface{} { return s.inner.Result() }
