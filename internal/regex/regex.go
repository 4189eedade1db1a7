// Copyright 2020-2021 Dolthub, Inc.
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

package regex

import (
	"sort"
	"strings"
	"sync"

	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrRegexAlreadyRegistered is returned when there is a previously
	// registered regex engine with the same name.
	ErrRegexAlreadyRegistered = errors.NewKind("Regex engine already registered: %s")
	// ErrRegexNameEmpty returned when the name is "".
	ErrRegexNameEmpty = errors.NewKind("Regex engine name cannot be empty")
	// ErrRegexNotFound returned when the regex engine is not registered.
	ErrRegexNotFound = errors.NewKind("Regex engine not found: %s")

	registry      map[string]Constructor
	defaultEngine string

	cacheMu sync.RWMutex
	cache   = make(map[cacheKey]Matcher)
)

// maxCached is the number of compiled patterns kept by Compile.
const maxCached = 1024

// Matcher interface is used to compare regexes with strings.
type Matcher interface {
	// Match returns true if the text matches the regular expression.
	Match(text string) bool
}

// Constructor creates a new Matcher.
type Constructor func(re string) (Matcher, error)

// Register add a new regex engine to the registry.
func Register(name string, c Constructor) error {
	if registry == nil {
		registry = make(map[string]Constructor)
	}

	if name == "" {
		return ErrRegexNameEmpty.New()
	}

	_, ok := registry[name]
	if ok {
		return ErrRegexAlreadyRegistered.New(name)
	}

	registry[name] = c
	return nil
}

// Engines returns the sorted list of regex engines names.
func Engines() []string {
	var names []string
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates a new Matcher with the specified regex engine.
func New(name, re string) (Matcher, error) {
	n, ok := registry[name]
	if !ok {
		return nil, ErrRegexNotFound.New(name)
	}

	return n(re)
}

// Default returns the default regex engine.
func Default() string {
	if defaultEngine != "" {
		return defaultEngine
	}
	return "go"
}

// SetDefault sets the regex engine returned by Default.
func SetDefault(name string) {
	defaultEngine = name
}

type cacheKey struct {
	engine  string
	pattern string
}

// Compile returns a Matcher of the default engine for the pattern. Compiled
// patterns are shared between calls.
func Compile(re string) (Matcher, error) {
	key := cacheKey{Default(), re}

	cacheMu.RLock()
	m, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := New(key.engine, re)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	if len(cache) >= maxCached {
		cache = make(map[cacheKey]Matcher)
	}
	cache[key] = m
	cacheMu.Unlock()
	return m, nil
}

// FromLike translates a LIKE pattern, where % matches any sequence and _ any
// character, to an anchored regular expression. A backslash escapes the next
// character.
func FromLike(pattern string, caseInsensitive bool) string {
	var sb strings.Builder
	if caseInsensitive {
		sb.WriteString("(?is)^")
	} else {
		sb.WriteString("(?s)^")
	}
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(quoteMeta(r))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(quoteMeta(r))
		}
	}
	if escaped {
		sb.WriteString(`\\`)
	}
	sb.WriteString("$")
	return sb.String()
}

func quoteMeta(r rune) string {
	if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
		return `\` + string(r)
	}
	return string(r)
}
