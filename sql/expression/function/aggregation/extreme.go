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

// newExtreme returns min when direction is -1 and max when it is 1.
func newExtreme(name string, direction int) *aggregate {
	return &aggregate{
		name:           name,
		minArgs:        1,
		maxArgs:        1,
		nullableResult: true,
		returnType: func(_ []interface{}, args []sql.Type) (sql.Type, error) {
			return args[0], nil
		},
		newState: func(_ []interface{}, args []sql.Type) State {
			return &extremeState{name: name, direction: direction, def: args[0].Default()}
		},
	}
}

type extremeState struct {
	name      string
	direction int
	def       interface{}
	value     interface{}
	has       bool
}

func (s *extremeState) Update(args []interface{}) error {
	if !s.has || sql.CompareValues(args[0], s.value)*s.direction > 0 {
		s.value = args[0]
		s.has = true
	}
	return nil
}

func (s *extremeState) Merge(other sql.AggregateState) error {
	o, ok := other.(*extremeState)
	if !ok {
		return mergeError(s.name, other)
	}
	if o.has {
		return s.Update([]interface{}{o.value})
	}
	return nil
}

func (s *extremeState) Result() interface{} {
	if !s.has {
		return s.def
	}
	return s.value
}

// newAny returns any, which keeps the first value, or anyLast, which keeps
// the last one.
func newAny(name string, last bool) *aggregate {
	return &aggregate{
		name:           name,
		minArgs:        1,
		maxArgs:        1,
		nullableResult: true,
		returnType: func(_ []interface{}, args []sql.Type) (sql.Type, error) {
			return args[0], nil
		},
		newState: func(_ []interface{}, args []sql.Type) State {
			return &anyState{name: name, last: last, def: args[0].Default()}
		},
	}
}

type anyState struct {
	name  string
	last  bool
	def   interface{}
	value interface{}
	has   bool
}

func (s *anyState) Update(args []interface{}) error {
	if !s.has || s.last {
		s.value = args[0]
		s.has = true
	}
	return nil
}

func (s *anyState) Merge(other sql.AggregateState) error {
	o, ok := other.(*anyState)
	if !ok {
		return mergeError(s.name, other)
	}
	if o.has {
		return s.Update([]interface{}{o.value})
	}
	return nil
}

func (s *anyState) Result() interface{} {
	if !s.has {
		return s.def
	}
	return s.value
}
