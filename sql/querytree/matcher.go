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

package querytree

import (
	"github.com/dolthub/go-query-analyzer/internal/regex"
)

// MatcherType is the type of a column matcher.
type MatcherType int

const (
	// AsteriskMatcher is * or q.*.
	AsteriskMatcher MatcherType = iota
	// ColumnsRegexpMatcher is COLUMNS('regexp').
	ColumnsRegexpMatcher
	// ColumnsListMatcher is COLUMNS(a, b).
	ColumnsListMatcher
)

// MatcherNode expands to a list of columns.
type MatcherNode struct {
	base
	MatcherType MatcherType
	// Qualifier is the q of q.*, empty for unqualified matchers.
	Qualifier         Identifier
	Pattern           string
	ColumnIdentifiers []Identifier
	Transformers      Node
}

// NewAsteriskMatcher returns *, or q.* when qualifier parts are given.
func NewAsteriskMatcher(qualifier ...string) *MatcherNode {
	return &MatcherNode{MatcherType: AsteriskMatcher, Qualifier: NewIdentifier(qualifier...), Transformers: NewListNode()}
}

// NewColumnsRegexpMatcher returns COLUMNS('pattern').
func NewColumnsRegexpMatcher(pattern string, qualifier ...string) (*MatcherNode, error) {
	if _, err := regex.Compile(pattern); err != nil {
		return nil, err
	}
	return &MatcherNode{
		MatcherType:  ColumnsRegexpMatcher,
		Qualifier:    NewIdentifier(qualifier...),
		Pattern:      pattern,
		Transformers: NewListNode(),
	}, nil
}

// NewColumnsListMatcher returns COLUMNS(a, b, ...).
func NewColumnsListMatcher(columns []Identifier, qualifier ...string) *MatcherNode {
	return &MatcherNode{
		MatcherType:       ColumnsListMatcher,
		Qualifier:         NewIdentifier(qualifier...),
		ColumnIdentifiers: columns,
		Transformers:      NewListNode(),
	}
}

func (*MatcherNode) Kind() NodeKind { return MatcherKind }
func (*MatcherNode) node()          {}

// IsQualified returns whether the matcher has a qualifier.
func (m *MatcherNode) IsQualified() bool { return !m.Qualifier.IsEmpty() }

// IsUnqualifiedAsterisk returns whether the matcher is a bare *.
func (m *MatcherNode) IsUnqualifiedAsterisk() bool {
	return m.MatcherType == AsteriskMatcher && !m.IsQualified()
}

// TransformersList returns the column transformers.
func (m *MatcherNode) TransformersList() *ListNode { return listField(&m.Transformers) }

// IsMatchingColumn returns whether a column with the given name is selected
// by the matcher.
func (m *MatcherNode) IsMatchingColumn(name string) bool {
	switch m.MatcherType {
	case AsteriskMatcher:
		return true
	case ColumnsRegexpMatcher:
		return matchesPattern(m.Pattern, name)
	case ColumnsListMatcher:
		for _, id := range m.ColumnIdentifiers {
			if id.FullName() == name {
				return true
			}
		}
	}
	return false
}

// TransformerType is the type of a column transformer.
type TransformerType int

const (
	ApplyTransformer TransformerType = iota
	ExceptTransformer
	ReplaceTransformer
)

func (t TransformerType) String() string {
	switch t {
	case ApplyTransformer:
		return "APPLY"
	case ExceptTransformer:
		return "EXCEPT"
	}
	return "REPLACE"
}

// ColumnTransformerNode changes the columns a matcher expands to.
type ColumnTransformerNode struct {
	base
	TransformerType TransformerType

	// Expression is the lambda or function APPLY calls on each column.
	Expression Node

	ExceptNames   []string
	ExceptPattern string
	IsStrict      bool

	ReplaceNames []string
	Replacements Node
}

// NewApplyTransformer returns APPLY(fn), fn being a lambda or a function
// node whose arguments are filled with each column.
func NewApplyTransformer(fn Node) *ColumnTransformerNode {
	return &ColumnTransformerNode{TransformerType: ApplyTransformer, Expression: fn}
}

// NewExceptTransformer returns EXCEPT [STRICT] (names).
func NewExceptTransformer(strict bool, names ...string) *ColumnTransformerNode {
	return &ColumnTransformerNode{TransformerType: ExceptTransformer, ExceptNames: names, IsStrict: strict}
}

// NewExceptRegexpTransformer returns EXCEPT('pattern').
func NewExceptRegexpTransformer(pattern string) (*ColumnTransformerNode, error) {
	if _, err := regex.Compile(pattern); err != nil {
		return nil, err
	}
	return &ColumnTransformerNode{TransformerType: ExceptTransformer, ExceptPattern: pattern}, nil
}

// NewReplaceTransformer returns REPLACE [STRICT] (expr AS name, ...).
func NewReplaceTransformer(strict bool, names []string, expressions []Node) *ColumnTransformerNode {
	return &ColumnTransformerNode{
		TransformerType: ReplaceTransformer,
		IsStrict:        strict,
		ReplaceNames:    names,
		Replacements:    NewListNode(expressions...),
	}
}

func (*ColumnTransformerNode) Kind() NodeKind { return ColumnTransformerKind }
func (*ColumnTransformerNode) node()          {}

// IsExcluded returns whether an EXCEPT transformer removes the column.
func (t *ColumnTransformerNode) IsExcluded(name string) bool {
	if t.ExceptPattern != "" {
		return matchesPattern(t.ExceptPattern, name)
	}
	for _, n := range t.ExceptNames {
		if n == name {
			return true
		}
	}
	return false
}

// Replacement returns the REPLACE expression for the column, if any.
func (t *ColumnTransformerNode) Replacement(name string) (Node, bool) {
	list := AsList(t.Replacements)
	for i, n := range t.ReplaceNames {
		if n == name && i < list.Len() {
			return list.Nodes[i], true
		}
	}
	return nil, false
}

func matchesPattern(pattern, name string) bool {
	m, err := regex.Compile(pattern)
	if err != nil {
		return false
	}
	return m.Match(name)
}
