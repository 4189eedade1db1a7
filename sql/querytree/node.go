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

// Package querytree defines the query tree the analyzer works on. A tree is
// built unresolved, from identifiers, matchers and function names, and the
// analyzer rewrites it in place until every name is bound.
package querytree

import (
	"fmt"

	"github.com/dolthub/go-query-analyzer/sql"
)

// NodeKind is the kind of a query tree node.
type NodeKind int

const (
	IdentifierKind NodeKind = iota
	ColumnKind
	ConstantKind
	FunctionKind
	LambdaKind
	ListKind
	QueryKind
	UnionKind
	TableKind
	TableFunctionKind
	MatcherKind
	JoinKind
	CrossJoinKind
	ArrayJoinKind
	SortKind
	WindowKind
	InterpolateKind
	ColumnTransformerKind
)

var nodeKindNames = map[NodeKind]string{
	IdentifierKind:        "IDENTIFIER",
	ColumnKind:            "COLUMN",
	ConstantKind:          "CONSTANT",
	FunctionKind:          "FUNCTION",
	LambdaKind:            "LAMBDA",
	ListKind:              "LIST",
	QueryKind:             "QUERY",
	UnionKind:             "UNION",
	TableKind:             "TABLE",
	TableFunctionKind:     "TABLE_FUNCTION",
	MatcherKind:           "MATCHER",
	JoinKind:              "JOIN",
	CrossJoinKind:         "CROSS_JOIN",
	ArrayJoinKind:         "ARRAY_JOIN",
	SortKind:              "SORT",
	WindowKind:            "WINDOW",
	InterpolateKind:       "INTERPOLATE",
	ColumnTransformerKind: "COLUMN_TRANSFORMER",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is a node of the query tree. The set of implementations is closed:
// every node type lives in this package.
type Node interface {
	// Kind returns the kind of the node.
	Kind() NodeKind
	// Alias returns the alias of the node, or an empty string.
	Alias() string
	// HasAlias returns whether the node has an alias.
	HasAlias() bool
	// SetAlias sets the alias of the node.
	SetAlias(alias string)
	// RemoveAlias clears the alias of the node.
	RemoveAlias()
	node()
}

// Expression is a node with a result type.
type Expression interface {
	Node
	ResultType() sql.Type
}

type base struct {
	alias string
}

func (b *base) Alias() string         { return b.alias }
func (b *base) HasAlias() bool        { return b.alias != "" }
func (b *base) SetAlias(alias string) { b.alias = alias }
func (b *base) RemoveAlias()          { b.alias = "" }

// ResultType returns the result type of an expression node, or nil if the
// node is not an expression or is not resolved.
func ResultType(n Node) sql.Type {
	if e, ok := n.(Expression); ok {
		return e.ResultType()
	}
	return nil
}

// IsExpression returns whether the node kind can appear as an expression.
func IsExpression(n Node) bool {
	switch n.(type) {
	case *ColumnNode, *ConstantNode, *FunctionNode, *LambdaNode, *QueryNode, *UnionNode:
		return true
	}
	return false
}

// IsTableExpression returns whether the node can appear in the join tree.
func IsTableExpression(n Node) bool {
	switch n.(type) {
	case *TableNode, *TableFunctionNode, *QueryNode, *UnionNode, *JoinNode, *CrossJoinNode, *ArrayJoinNode:
		return true
	}
	return false
}

// TableExpressionModifiers are the FINAL and SAMPLE modifiers of a table
// expression in FROM.
type TableExpressionModifiers struct {
	HasFinal     bool
	SampleRatio  *Ratio
	SampleOffset *Ratio
}

// Ratio is a SAMPLE ratio like 1/10.
type Ratio struct {
	Numerator   uint64
	Denominator uint64
}

func (r Ratio) String() string {
	if r.Denominator == 1 {
		return fmt.Sprintf("%d", r.Numerator)
	}
	return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
}

func (m *TableExpressionModifiers) String() string {
	if m == nil {
		return ""
	}
	s := ""
	if m.HasFinal {
		s += " FINAL"
	}
	if m.SampleRatio != nil {
		s += " SAMPLE " + m.SampleRatio.String()
	}
	if m.SampleOffset != nil {
		s += " OFFSET " + m.SampleOffset.String()
	}
	return s
}

func (m *TableExpressionModifiers) clone() *TableExpressionModifiers {
	if m == nil {
		return nil
	}
	c := *m
	if m.SampleRatio != nil {
		r := *m.SampleRatio
		c.SampleRatio = &r
	}
	if m.SampleOffset != nil {
		r := *m.SampleOffset
		c.SampleOffset = &r
	}
	return &c
}

// IdentifierNode is an unresolved name.
type IdentifierNode struct {
	base
	Identifier Identifier
	Modifiers  *TableExpressionModifiers
}

// NewIdentifierNode returns an identifier node for the given name parts.
func NewIdentifierNode(parts ...string) *IdentifierNode {
	return &IdentifierNode{Identifier: NewIdentifier(parts...)}
}

func (*IdentifierNode) Kind() NodeKind { return IdentifierKind }
func (*IdentifierNode) node()          {}

// ColumnNode is a column bound to its source: a table expression, a lambda
// or an ARRAY JOIN.
type ColumnNode struct {
	base
	Name string
	Type sql.Type
	// Expression is the defining expression of ALIAS columns, of USING
	// columns (a list of the joined columns) and of ARRAY JOIN columns.
	Expression Node
	// Source is a back reference to the node the column comes from. It is
	// not a child.
	Source Node
}

// NewColumnNode returns a column with the given source.
func NewColumnNode(name string, typ sql.Type, source Node) *ColumnNode {
	return &ColumnNode{Name: name, Type: typ, Source: source}
}

func (*ColumnNode) Kind() NodeKind         { return ColumnKind }
func (*ColumnNode) node()                  {}
func (c *ColumnNode) ResultType() sql.Type { return c.Type }

// ConstantNode is a constant value.
type ConstantNode struct {
	base
	Value interface{}
	Type  sql.Type
	// SourceExpression is the expression the constant was folded from. It is
	// not a child.
	SourceExpression Node
}

// NewConstantNode returns a constant with the narrowest type of the value.
func NewConstantNode(value interface{}) *ConstantNode {
	return &ConstantNode{Value: value, Type: sql.FieldType(value)}
}

// NewConstantNodeWithType returns a constant of the given type.
func NewConstantNodeWithType(value interface{}, typ sql.Type) *ConstantNode {
	return &ConstantNode{Value: value, Type: typ}
}

func (*ConstantNode) Kind() NodeKind         { return ConstantKind }
func (*ConstantNode) node()                  {}
func (c *ConstantNode) ResultType() sql.Type { return c.Type }

// ListNode is a list of nodes.
type ListNode struct {
	base
	Nodes []Node
}

// NewListNode returns a list of the given nodes.
func NewListNode(nodes ...Node) *ListNode {
	return &ListNode{Nodes: nodes}
}

func (*ListNode) Kind() NodeKind { return ListKind }
func (*ListNode) node()          {}

// Len returns the number of nodes in the list.
func (l *ListNode) Len() int { return len(l.Nodes) }

// Slots returns the slots of the list nodes.
func (l *ListNode) Slots() []*Node {
	slots := make([]*Node, len(l.Nodes))
	for i := range l.Nodes {
		slots[i] = &l.Nodes[i]
	}
	return slots
}

// Append adds nodes to the end of the list.
func (l *ListNode) Append(nodes ...Node) {
	l.Nodes = append(l.Nodes, nodes...)
}

// AsList returns the node as a list. Nil nodes are empty lists.
func AsList(n Node) *ListNode {
	if n == nil {
		return NewListNode()
	}
	if l, ok := n.(*ListNode); ok {
		return l
	}
	return NewListNode(n)
}

// LambdaNode is a lambda expression like x -> x + 1.
type LambdaNode struct {
	base
	ArgumentNames []string
	// Arguments holds identifiers for the argument names until the lambda is
	// resolved, then columns whose source is the lambda.
	Arguments  Node
	Expression Node
}

// NewLambdaNode returns a lambda with the given argument names and body.
func NewLambdaNode(argumentNames []string, body Node) *LambdaNode {
	args := NewListNode()
	for _, name := range argumentNames {
		args.Append(NewIdentifierNode(name))
	}
	return &LambdaNode{ArgumentNames: argumentNames, Arguments: args, Expression: body}
}

func (*LambdaNode) Kind() NodeKind { return LambdaKind }
func (*LambdaNode) node()          {}

// ResultType returns the type of the lambda body.
func (l *LambdaNode) ResultType() sql.Type { return ResultType(l.Expression) }

// ArgumentsList returns the lambda arguments.
func (l *LambdaNode) ArgumentsList() *ListNode { return AsList(l.Arguments) }
