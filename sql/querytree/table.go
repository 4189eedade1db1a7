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

import "github.com/dolthub/go-query-analyzer/sql"

// TableNode is a table of the catalog, or a temporary table.
type TableNode struct {
	base
	Storage sql.Table
	// TemporaryTableName is set for temporary tables, like the working table
	// of a recursive CTE.
	TemporaryTableName string
	Modifiers          *TableExpressionModifiers
}

// NewTableNode returns a node reading the given table.
func NewTableNode(t sql.Table) *TableNode {
	return &TableNode{Storage: t}
}

func (*TableNode) Kind() NodeKind { return TableKind }
func (*TableNode) node()          {}

// TableName returns the name of the table.
func (t *TableNode) TableName() string {
	if t.TemporaryTableName != "" {
		return t.TemporaryTableName
	}
	return t.Storage.Name()
}

// DatabaseName returns the database of the table, empty for temporary
// tables.
func (t *TableNode) DatabaseName() string {
	if t.TemporaryTableName != "" {
		return ""
	}
	return t.Storage.Database()
}

// FullName returns database.table.
func (t *TableNode) FullName() string {
	if db := t.DatabaseName(); db != "" {
		return db + "." + t.TableName()
	}
	return t.TableName()
}

// TableFunctionNode is a table function call in FROM, like numbers(10).
type TableFunctionNode struct {
	base
	Name      string
	Arguments Node
	Modifiers *TableExpressionModifiers

	function sql.TableFunction
	storage  sql.Table
}

// NewTableFunctionNode returns an unresolved table function call.
func NewTableFunctionNode(name string, args ...Node) *TableFunctionNode {
	return &TableFunctionNode{Name: name, Arguments: NewListNode(args...)}
}

func (*TableFunctionNode) Kind() NodeKind { return TableFunctionKind }
func (*TableFunctionNode) node()          {}

// ArgumentsList returns the table function arguments.
func (t *TableFunctionNode) ArgumentsList() *ListNode { return listField(&t.Arguments) }

// IsResolved returns whether the table function was executed.
func (t *TableFunctionNode) IsResolved() bool { return t.storage != nil }

// Resolve binds the table function and the table it produced.
func (t *TableFunctionNode) Resolve(fn sql.TableFunction, storage sql.Table) {
	t.function = fn
	t.storage = storage
}

// Function returns the bound table function.
func (t *TableFunctionNode) Function() sql.TableFunction { return t.function }

// Storage returns the table produced by the table function.
func (t *TableFunctionNode) Storage() sql.Table { return t.storage }

// JoinType is the type of a JOIN.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	PasteJoin
)

func (k JoinType) String() string {
	switch k {
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case PasteJoin:
		return "PASTE"
	}
	return "INNER"
}

// JoinStrictness is the strictness of a JOIN.
type JoinStrictness int

const (
	UnspecifiedStrictness JoinStrictness = iota
	AllStrictness
	AnyStrictness
	SemiStrictness
	AntiStrictness
	AsofStrictness
)

func (s JoinStrictness) String() string {
	switch s {
	case AllStrictness:
		return "ALL"
	case AnyStrictness:
		return "ANY"
	case SemiStrictness:
		return "SEMI"
	case AntiStrictness:
		return "ANTI"
	case AsofStrictness:
		return "ASOF"
	}
	return ""
}

// JoinNode joins two table expressions.
type JoinNode struct {
	base
	Left  Node
	Right Node
	// Expression is the ON expression, or a list of identifiers (columns once
	// resolved) for USING.
	Expression Node
	JoinType   JoinType
	Strictness JoinStrictness
	// IsUsing is set for USING joins, even with an empty list.
	IsUsing bool
}

// NewJoinNode returns a join of the two table expressions.
func NewJoinNode(left, right, expression Node, joinType JoinType, strictness JoinStrictness) *JoinNode {
	_, isUsing := expression.(*ListNode)
	return &JoinNode{Left: left, Right: right, Expression: expression, JoinType: joinType, Strictness: strictness, IsUsing: isUsing}
}

func (*JoinNode) Kind() NodeKind { return JoinKind }
func (*JoinNode) node()          {}

// IsUsingJoin returns whether the join has a USING clause.
func (j *JoinNode) IsUsingJoin() bool { return j.IsUsing }

// IsOnJoin returns whether the join has an ON clause.
func (j *JoinNode) IsOnJoin() bool { return !j.IsUsing && j.Expression != nil }

// UsingList returns the USING identifiers or columns.
func (j *JoinNode) UsingList() *ListNode { return AsList(j.Expression) }

// CrossJoinNode is the cartesian product of several table expressions, as in
// FROM a, b, c.
type CrossJoinNode struct {
	base
	TableExpressions Node
}

// NewCrossJoinNode returns a cross join of the given table expressions.
func NewCrossJoinNode(tables ...Node) *CrossJoinNode {
	return &CrossJoinNode{TableExpressions: NewListNode(tables...)}
}

func (*CrossJoinNode) Kind() NodeKind { return CrossJoinKind }
func (*CrossJoinNode) node()          {}

// TablesList returns the joined table expressions.
func (c *CrossJoinNode) TablesList() *ListNode { return listField(&c.TableExpressions) }

// ArrayJoinNode unfolds array expressions of a table expression into rows.
type ArrayJoinNode struct {
	base
	TableExpression Node
	JoinExpressions Node
	IsLeft          bool
}

// NewArrayJoinNode returns an ARRAY JOIN of table on the given expressions.
func NewArrayJoinNode(table Node, expressions []Node, isLeft bool) *ArrayJoinNode {
	return &ArrayJoinNode{TableExpression: table, JoinExpressions: NewListNode(expressions...), IsLeft: isLeft}
}

func (*ArrayJoinNode) Kind() NodeKind { return ArrayJoinKind }
func (*ArrayJoinNode) node()          {}

// JoinExpressionsList returns the array join expressions.
func (a *ArrayJoinNode) JoinExpressionsList() *ListNode { return listField(&a.JoinExpressions) }

// Modifiers returns the table expression modifiers of identifier, table and
// table function nodes.
func Modifiers(n Node) *TableExpressionModifiers {
	switch n := n.(type) {
	case *IdentifierNode:
		return n.Modifiers
	case *TableNode:
		return n.Modifiers
	case *TableFunctionNode:
		return n.Modifiers
	}
	return nil
}

// SetModifiers sets the table expression modifiers of table and table
// function nodes. It returns false for other nodes.
func SetModifiers(n Node, m *TableExpressionModifiers) bool {
	switch n := n.(type) {
	case *IdentifierNode:
		n.Modifiers = m
	case *TableNode:
		n.Modifiers = m
	case *TableFunctionNode:
		n.Modifiers = m
	default:
		return false
	}
	return true
}
