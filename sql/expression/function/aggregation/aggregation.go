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

// Package aggregation implements the aggregate functions and the combinators
// that derive new aggregate functions from them, like sumIf or uniqState.
package aggregation

import (
	"sort"
	"strings"

	"github.com/dolthub/go-query-analyzer/sql"
)

const variadic = -1

// State is the state of an aggregate function. States of the same function
// can be merged, which the Merge combinator relies on.
type State interface {
	sql.AggregateState
	Merge(other sql.AggregateState) error
}

// aggregate is an aggregate function defined by its type and state
// callbacks.
type aggregate struct {
	name      string
	minArgs   int
	maxArgs   int
	maxParams int

	returnType func(params []interface{}, args []sql.Type) (sql.Type, error)
	newState   func(params []interface{}, args []sql.Type) State

	// nullableResult makes the result Nullable when an argument is, and NULL
	// for groups without non-NULL values.
	nullableResult bool
}

var _ sql.AggregateFunction = (*aggregate)(nil)

// Name implements the sql.AggregateFunction interface.
func (a *aggregate) Name() string { return a.name }

func (a *aggregate) check(params []interface{}, args []sql.Type) error {
	if len(params) > a.maxParams {
		if a.maxParams == 0 {
			return sql.NewErr(sql.ErrBadArguments,
				"Aggregate function %s cannot have parameters", a.name)
		}
		return sql.NewErr(sql.ErrBadArguments,
			"Aggregate function %s requires at most %d parameters, passed %d", a.name, a.maxParams, len(params))
	}
	if len(args) < a.minArgs || (a.maxArgs != variadic && len(args) > a.maxArgs) {
		return sql.NewErr(sql.ErrBadArguments,
			"Number of arguments for aggregate function %s doesn't match: passed %d", a.name, len(args))
	}
	return nil
}

// ReturnType implements the sql.AggregateFunction interface.
func (a *aggregate) ReturnType(params []interface{}, args []sql.Type) (sql.Type, error) {
	if err := a.check(params, args); err != nil {
		return nil, err
	}
	stripped := make([]sql.Type, len(args))
	nullable := false
	for i, t := range args {
		if a.nullableResult && sql.IsNullable(t) && sql.IsNothing(t) {
			return sql.NullableType{Nested: sql.Nothing}, nil
		}
		nullable = nullable || sql.IsNullable(t)
		stripped[i] = sql.RemoveNullable(t)
	}
	t, err := a.returnType(params, stripped)
	if err != nil {
		return nil, err
	}
	if nullable && a.nullableResult {
		return sql.MakeNullable(t), nil
	}
	return t, nil
}

// NewState implements the sql.AggregateFunction interface.
func (a *aggregate) NewState(params []interface{}, args []sql.Type) (sql.AggregateState, error) {
	if _, err := a.ReturnType(params, args); err != nil {
		return nil, err
	}
	stripped := make([]sql.Type, len(args))
	nullable := false
	for i, t := range args {
		nullable = nullable || sql.IsNullable(t)
		stripped[i] = sql.RemoveNullable(t)
	}
	return &skipNulls{inner: a.newState(params, stripped), nullableResult: a.nullableResult && nullable}, nil
}

// skipNulls ignores rows where an argument is NULL.
type skipNulls struct {
	inner          State
	seen           bool
	nullableResult bool
}

func (s *skipNulls) Update(args []interface{}) error {
	for _, a := range args {
		if a == nil {
			return nil
		}
	}
	s.seen = true
	return s.inner.Update(args)
}

func (s *skipNulls) Merge(other sql.AggregateState) error {
	o, ok := other.(*skipNulls)
	if !ok {
		return s.inner.Merge(other)
	}
	s.seen = s.seen || o.seen
	return s.inner.Merge(o.inner)
}

func (s *skipNulls) Result() interface{} {
	if s.nullableResult && !s.seen {
		return nil
	}
	return s.inner.Result()
}

func mergeError(name string, other sql.AggregateState) error {
	return sql.ErrLogical.New("cannot merge state of " + name + " with a different state")
}

func numericArgument(name string, t sql.Type) error {
	if !sql.IsNumber(t) {
		return sql.NewErr(sql.ErrTypeMismatch,
			"Illegal type %s of argument for aggregate function %s", t.Name(), name)
	}
	return nil
}

var functions = map[string]sql.AggregateFunction{}

func register(fns ...*aggregate) {
	for _, f := range fns {
		functions[strings.ToLower(f.name)] = f
	}
}

func init() {
	register(
		newCount(),
		newSum(),
		newAvg(),
		newExtreme("min", -1),
		newExtreme("max", 1),
		newAny("any", false),
		newAny("anyLast", true),
		newUniq("uniq"),
		newUniq("uniqExact"),
		newGroupArray(),
		newQuantile(),
	)
}

// Lookup returns the aggregate function with the given name. Base names are
// case-insensitive. Combinator suffixes are resolved, so sumIf, uniqState or
// countDistinctIf are found.
func Lookup(name string) (sql.AggregateFunction, bool) {
	if f, ok := functions[strings.ToLower(name)]; ok {
		return f, true
	}
	for _, c := range combinators {
		if !strings.HasSuffix(name, c.suffix) || len(name) == len(c.suffix) {
			continue
		}
		nested, ok := Lookup(strings.TrimSuffix(name, c.suffix))
		if !ok {
			continue
		}
		return c.wrap(nested), true
	}
	return nil, false
}

// Names returns the names of the aggregate functions, without combinators.
func Names() []string {
	names := make([]string, 0, len(functions))
	for _, f := range functions {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	return names
}

// CombinatorSuffixes returns the suffixes of the known combinators.
func CombinatorSuffixes() []string {
	suffixes := make([]string, len(combinators))
	for i, c := range combinators {
		suffixes[i] = c.suffix
	}
	return suffixes
}
