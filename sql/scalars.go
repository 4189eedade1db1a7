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

package sql

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Scalar is the value of an evaluated scalar subquery.
type Scalar struct {
	Type  Type
	Value interface{}
}

// ScalarRegistry holds the scalar subquery results of a query context. It is
// shared between the queries of the context and safe for concurrent use.
type ScalarRegistry struct {
	mu      sync.RWMutex
	scalars map[string]Scalar
	group   singleflight.Group
}

// NewScalarRegistry returns an empty registry.
func NewScalarRegistry() *ScalarRegistry {
	return &ScalarRegistry{scalars: make(map[string]Scalar)}
}

// Get returns the scalar registered under key.
func (r *ScalarRegistry) Get(key string) (Scalar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scalars[key]
	return s, ok
}

// Add registers a scalar under key. An existing value is kept.
func (r *ScalarRegistry) Add(key string, s Scalar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scalars[key]; !ok {
		r.scalars[key] = s
	}
}

// Len returns the number of registered scalars.
func (r *ScalarRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scalars)
}

// GetOrCompute returns the scalar registered under key, computing and
// registering it with fn if missing. Concurrent calls for the same key run fn
// once. The boolean is true when the value was already registered or
// computed by another caller.
func (r *ScalarRegistry) GetOrCompute(key string, fn func() (Scalar, error)) (Scalar, bool, error) {
	if s, ok := r.Get(key); ok {
		return s, true, nil
	}
	computed := false
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if s, ok := r.Get(key); ok {
			return s, nil
		}
		s, err := fn()
		if err != nil {
			return nil, err
		}
		computed = true
		r.Add(key, s)
		return s, nil
	})
	if err != nil {
		return Scalar{}, false, err
	}
	return v.(Scalar), !computed, nil
}
