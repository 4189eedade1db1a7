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

// NameAndType is a named column of a projection.
type NameAndType struct {
	Name string
	Type sql.Type
}

func projectionResultType(columns []NameAndType) sql.Type {
	switch len(columns) {
	case 0:
		return nil
	case 1:
		return columns[0].Type
	}
	types := make([]sql.Type, len(columns))
	names := make([]string, len(columns))
	for i, c := range columns {
		types[i] = c.Type
		names[i] = c.Name
	}
	return sql.NewTupleType(types, names)
}

// QueryNode is a SELECT query.
type QueryNode struct {
	base

	IsSubquery                bool
	IsCTE                     bool
	IsDistinct                bool
	IsLimitWithTies           bool
	IsGroupByWithTotals       bool
	IsGroupByWithRollup       bool
	IsGroupByWithCube         bool
	IsGroupByWithGroupingSets bool
	IsGroupByAll              bool
	IsOrderByAll              bool
	IsRecursiveWith           bool
	CTEName                   string

	With          Node
	Projection    Node
	Window        Node
	JoinTree      Node
	Prewhere      Node
	Where         Node
	GroupBy       Node
	Having        Node
	Qualify       Node
	OrderBy       Node
	Interpolate   Node
	LimitByLimit  Node
	LimitByOffset Node
	LimitBy       Node
	Limit         Node
	Offset        Node
	// CorrelatedColumns holds the columns of outer queries this query
	// refers to.
	CorrelatedColumns Node

	projectionColumns []NameAndType
	resolved          bool
}

// NewQueryNode returns an empty query.
func NewQueryNode() *QueryNode {
	return &QueryNode{
		With:              NewListNode(),
		Projection:        NewListNode(),
		Window:            NewListNode(),
		GroupBy:           NewListNode(),
		OrderBy:           NewListNode(),
		Interpolate:       NewListNode(),
		LimitBy:           NewListNode(),
		CorrelatedColumns: NewListNode(),
	}
}

func (*QueryNode) Kind() NodeKind { return QueryKind }
func (*QueryNode) node()          {}

// ResultType returns the type of the single projection column, or a tuple of
// all projection column types.
func (q *QueryNode) ResultType() sql.Type { return projectionResultType(q.projectionColumns) }

// ProjectionColumns returns the names and types of the projection, set once
// the query is resolved.
func (q *QueryNode) ProjectionColumns() []NameAndType { return q.projectionColumns }

// SetProjectionColumns sets the projection columns.
func (q *QueryNode) SetProjectionColumns(columns []NameAndType) {
	q.projectionColumns = columns
	q.resolved = true
}

// IsResolved returns whether the query projection columns are set.
func (q *QueryNode) IsResolved() bool { return q.resolved }

// IsCorrelated returns whether the query refers to columns of outer queries.
func (q *QueryNode) IsCorrelated() bool {
	return q.CorrelatedColumns != nil && AsList(q.CorrelatedColumns).Len() > 0
}

// AddCorrelatedColumn records a column of an outer query used by this query.
func (q *QueryNode) AddCorrelatedColumn(c *ColumnNode) {
	list := AsList(q.CorrelatedColumns)
	for _, existing := range list.Nodes {
		if existing == Node(c) {
			return
		}
	}
	list.Append(c)
	q.CorrelatedColumns = list
}

// WithList returns the WITH section.
func (q *QueryNode) WithList() *ListNode { return listField(&q.With) }

// ProjectionList returns the projection.
func (q *QueryNode) ProjectionList() *ListNode { return listField(&q.Projection) }

// WindowList returns the WINDOW section.
func (q *QueryNode) WindowList() *ListNode { return listField(&q.Window) }

// GroupByList returns the GROUP BY keys, or the list of grouping sets.
func (q *QueryNode) GroupByList() *ListNode { return listField(&q.GroupBy) }

// OrderByList returns the ORDER BY sort nodes.
func (q *QueryNode) OrderByList() *ListNode { return listField(&q.OrderBy) }

// InterpolateList returns the INTERPOLATE nodes.
func (q *QueryNode) InterpolateList() *ListNode { return listField(&q.Interpolate) }

// LimitByList returns the LIMIT BY expressions.
func (q *QueryNode) LimitByList() *ListNode { return listField(&q.LimitBy) }

// HasGroupBy returns whether the query has GROUP BY keys.
func (q *QueryNode) HasGroupBy() bool { return q.GroupByList().Len() > 0 }

func listField(n *Node) *ListNode {
	if *n == nil {
		*n = NewListNode()
	}
	return AsList(*n)
}

// UnionMode is the set operation of a union node.
type UnionMode int

const (
	UnionAll UnionMode = iota
	UnionDistinct
	UnionDefault
	ExceptAll
	ExceptDistinct
	IntersectAll
	IntersectDistinct
)

func (m UnionMode) String() string {
	switch m {
	case UnionAll:
		return "UNION ALL"
	case UnionDistinct:
		return "UNION DISTINCT"
	case ExceptAll:
		return "EXCEPT ALL"
	case ExceptDistinct:
		return "EXCEPT DISTINCT"
	case IntersectAll:
		return "INTERSECT ALL"
	case IntersectDistinct:
		return "INTERSECT DISTINCT"
	}
	return "UNION"
}

// UnionNode combines the results of several queries.
type UnionNode struct {
	base

	IsSubquery     bool
	IsCTE          bool
	IsRecursiveCTE bool
	CTEName        string
	Mode           UnionMode
	Queries        Node
	// CorrelatedColumns holds the columns of outer queries this union
	// refers to.
	CorrelatedColumns Node

	projectionColumns []NameAndType
	resolved          bool
}

// NewUnionNode returns a union of the given queries.
func NewUnionNode(mode UnionMode, queries ...Node) *UnionNode {
	return &UnionNode{Mode: mode, Queries: NewListNode(queries...), CorrelatedColumns: NewListNode()}
}

func (*UnionNode) Kind() NodeKind { return UnionKind }
func (*UnionNode) node()          {}

// ResultType returns the type of the single projection column, or a tuple of
// all projection column types.
func (u *UnionNode) ResultType() sql.Type { return projectionResultType(u.projectionColumns) }

// QueriesList returns the combined queries.
func (u *UnionNode) QueriesList() *ListNode { return listField(&u.Queries) }

// ProjectionColumns returns the names and types of the projection.
func (u *UnionNode) ProjectionColumns() []NameAndType { return u.projectionColumns }

// SetProjectionColumns sets the projection columns.
func (u *UnionNode) SetProjectionColumns(columns []NameAndType) {
	u.projectionColumns = columns
	u.resolved = true
}

// IsResolved returns whether the union projection columns are set.
func (u *UnionNode) IsResolved() bool { return u.resolved }

// IsCorrelated returns whether the union refers to columns of outer queries.
func (u *UnionNode) IsCorrelated() bool {
	return u.CorrelatedColumns != nil && AsList(u.CorrelatedColumns).Len() > 0
}

// ProjectionColumnsOf returns the projection of a resolved query or union.
func ProjectionColumnsOf(n Node) []NameAndType {
	switch n := n.(type) {
	case *QueryNode:
		return n.ProjectionColumns()
	case *UnionNode:
		return n.ProjectionColumns()
	}
	return nil
}

// IsCorrelated returns whether a query or union uses outer columns.
func IsCorrelated(n Node) bool {
	switch n := n.(type) {
	case *QueryNode:
		return n.IsCorrelated()
	case *UnionNode:
		return n.IsCorrelated()
	}
	return false
}
