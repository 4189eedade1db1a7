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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

type testTable struct {
	name    string
	columns []*sql.Column
}

func (t *testTable) Name() string           { return t.name }
func (t *testTable) Database() string       { return "default" }
func (t *testTable) Columns() []*sql.Column { return t.columns }

func newTestTable() *TableNode {
	return NewTableNode(&testTable{name: "t", columns: []*sql.Column{
		{Name: "a", Type: sql.UInt8},
		{Name: "b", Type: sql.String},
	}})
}

func TestIdentifier(t *testing.T) {
	require := require.New(t)

	id := ParseIdentifier("db.t.col")
	require.Equal(3, id.Size())
	require.Equal("db", id.Front())
	require.Equal("col", id.Back())
	require.True(id.IsCompound())
	require.False(id.IsShort())
	require.Equal("t.col", id.PopFirst(1).FullName())
	require.Equal("db.t", id.PopLast(1).FullName())
	require.True(id.PopFirst(3).IsEmpty())
	require.True(id.StartsWith("db.t"))
	require.False(id.StartsWith("db.x"))
	require.False(id.StartsWith("db.t.col.x"))
	require.True(id.Equals(NewIdentifier("db", "t", "col")))

	parts := id.Parts()
	parts[0] = "changed"
	require.Equal("db", id.Front())

	require.True(ParseIdentifier("").IsEmpty())
}

func TestChildrenReplaceThroughSlot(t *testing.T) {
	require := require.New(t)

	f := NewFunctionNode("plus", NewIdentifierNode("a"), NewConstantNode(uint64(1)))
	for _, slot := range Children(f.Arguments) {
		if _, ok := (*slot).(*IdentifierNode); ok {
			*slot = NewConstantNode(uint64(2))
		}
	}
	require.Equal("(2 + 1)", String(f))
	require.Equal(5, CountNodes(f))
}

func TestInspectExpressionSkipsSubqueries(t *testing.T) {
	require := require.New(t)

	sub := NewQueryNode()
	sub.IsSubquery = true
	sub.ProjectionList().Append(NewIdentifierNode("inner"))

	expr := NewFunctionNode("plus", NewIdentifierNode("outer"), sub)
	var names []string
	var sawQuery bool
	InspectExpression(expr, func(n Node) bool {
		switch n := n.(type) {
		case *IdentifierNode:
			names = append(names, n.Identifier.FullName())
		case *QueryNode:
			sawQuery = true
		}
		return true
	})
	require.Equal([]string{"outer"}, names)
	require.True(sawQuery)
}

func TestCloneRemapsSources(t *testing.T) {
	require := require.New(t)

	lambda := NewLambdaNode([]string{"x"}, nil)
	arg := NewColumnNode("x", sql.UInt8, lambda)
	lambda.Arguments = NewListNode(arg)
	lambda.Expression = NewFunctionNode("plus", NewColumnNode("x", sql.UInt8, lambda), NewConstantNode(uint64(1)))

	table := newTestTable()
	outer := NewColumnNode("a", sql.UInt8, table)
	root := NewFunctionNode("arrayMap", lambda, outer)

	cloned := Clone(root).(*FunctionNode)
	require.False(cloned == root)

	clonedLambda := cloned.ArgumentNodes()[0].(*LambdaNode)
	require.False(clonedLambda == lambda)

	body := clonedLambda.Expression.(*FunctionNode)
	bodyColumn := body.ArgumentNodes()[0].(*ColumnNode)
	require.True(bodyColumn.Source == clonedLambda)

	clonedOuter := cloned.ArgumentNodes()[1].(*ColumnNode)
	require.True(clonedOuter.Source == table, "sources outside of the tree are kept")

	require.True(Equal(root, cloned))
	require.Equal(TreeHash(root), TreeHash(cloned))
}

func TestCloneAndReplace(t *testing.T) {
	require := require.New(t)

	a := NewIdentifierNode("a")
	f := NewFunctionNode("plus", a, NewConstantNode(uint64(1)))
	replacement := NewConstantNode(uint64(5))

	cloned := CloneAndReplace(f, map[Node]Node{a: replacement}).(*FunctionNode)
	require.True(cloned.ArgumentNodes()[0] == replacement)
	require.Equal("(a + 1)", String(f))
	require.Equal("(5 + 1)", String(cloned))
}

func TestEqualAndTreeHash(t *testing.T) {
	testCases := []struct {
		name         string
		a, b         Node
		equal        bool
		equalNoAlias bool
	}{
		{
			name:         "same constants",
			a:            NewConstantNode(uint64(1)),
			b:            NewConstantNode(uint64(1)),
			equal:        true,
			equalNoAlias: true,
		},
		{
			name:  "different constant values",
			a:     NewConstantNode(uint64(1)),
			b:     NewConstantNode(uint64(2)),
			equal: false,
		},
		{
			name:  "different constant types",
			a:     NewConstantNode(uint64(1)),
			b:     NewConstantNodeWithType(uint64(1), sql.UInt64),
			equal: false,
		},
		{
			name:         "aliases differ",
			a:            withAlias(NewFunctionNode("f", NewIdentifierNode("x")), "y"),
			b:            NewFunctionNode("f", NewIdentifierNode("x")),
			equal:        false,
			equalNoAlias: true,
		},
		{
			name:  "argument count differs",
			a:     NewFunctionNode("f", NewIdentifierNode("x")),
			b:     NewFunctionNode("f", NewIdentifierNode("x"), NewIdentifierNode("y")),
			equal: false,
		},
		{
			name:         "columns of the same table",
			a:            NewColumnNode("a", sql.UInt8, newTestTable()),
			b:            NewColumnNode("a", sql.UInt8, newTestTable()),
			equal:        true,
			equalNoAlias: true,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			require.Equal(tt.equal, Equal(tt.a, tt.b))
			require.Equal(tt.equal || tt.equalNoAlias, EqualIgnoringAliases(tt.a, tt.b))
			if tt.equal {
				require.Equal(TreeHash(tt.a), TreeHash(tt.b))
			}
			if tt.equal || tt.equalNoAlias {
				opts := CompareOptions{IgnoreAliases: true}
				require.Equal(TreeHashWithOptions(tt.a, opts), TreeHashWithOptions(tt.b, opts))
			}
		})
	}
}

func withAlias(n Node, alias string) Node {
	n.SetAlias(alias)
	return n
}

func TestString(t *testing.T) {
	table := newTestTable()
	aliased := newTestTable()
	aliased.SetAlias("x")

	query := NewQueryNode()
	query.ProjectionList().Append(
		NewColumnNode("a", sql.UInt8, table),
		withAlias(NewFunctionNode("sum", NewColumnNode("b", sql.String, table)), "s"),
	)
	query.JoinTree = table
	query.Where = NewFunctionNode("greater", NewColumnNode("a", sql.UInt8, table), NewConstantNode(uint64(1)))
	query.GroupByList().Append(NewColumnNode("a", sql.UInt8, table))
	query.OrderByList().Append(NewSortNode(NewIdentifierNode("s"), Descending))
	query.Limit = NewConstantNode(uint64(10))

	star := NewAsteriskMatcher()
	star.TransformersList().Append(NewExceptTransformer(true, "a"))

	testCases := []struct {
		name     string
		node     Node
		expected string
	}{
		{"string constant", NewConstantNode("it's"), `'it\'s'`},
		{"tuple function", NewFunctionNode("tuple", NewConstantNode(uint64(1)), NewConstantNode(uint64(2))), "(1, 2)"},
		{"array function", NewFunctionNode("array", NewConstantNode(uint64(1))), "[1]"},
		{"column of aliased table", NewColumnNode("a", sql.UInt8, aliased), "x.a"},
		{"lambda", NewLambdaNode([]string{"x"}, NewIdentifierNode("x")), "lambda(tuple(x), x)"},
		{"matcher", star, "* EXCEPT STRICT (a)"},
		{"qualified matcher", NewAsteriskMatcher("t"), "t.*"},
		{"query", query, "SELECT t.a, sum(t.b) AS s FROM default.t WHERE (t.a > 1) GROUP BY t.a ORDER BY s DESC LIMIT 10"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, String(tt.node))
		})
	}
}

func TestWindowString(t *testing.T) {
	require := require.New(t)

	w := NewWindowNode()
	w.PartitionByList().Append(NewIdentifierNode("a"))
	w.OrderByList().Append(NewSortNode(NewIdentifierNode("b"), Ascending))
	w.Frame = WindowFrame{
		Type:           RowsFrame,
		BeginType:      OffsetBound,
		BeginPreceding: true,
		EndType:        CurrentRowBound,
	}
	w.FrameBeginOffset = NewConstantNode(uint64(1))

	require.Equal("PARTITION BY a ORDER BY b ASC ROWS BETWEEN 1 PRECEDING AND CURRENT ROW", WindowString(w))

	f := NewFunctionNode("count")
	f.Window = w
	require.True(f.IsWindowFunction())
	require.Equal("count() OVER (PARTITION BY a ORDER BY b ASC ROWS BETWEEN 1 PRECEDING AND CURRENT ROW)", String(f))
}

func TestDump(t *testing.T) {
	require := require.New(t)

	table := newTestTable()
	query := NewQueryNode()
	query.ProjectionList().Append(NewColumnNode("a", sql.UInt8, table))
	query.JoinTree = table
	query.SetProjectionColumns([]NameAndType{{Name: "a", Type: sql.UInt8}})

	expected := `QUERY id: 0, is_subquery: 0, is_cte: 0
  PROJECTION COLUMNS
    a UInt8
  PROJECTION
    LIST id: 1, nodes: 1
      COLUMN id: 2, column_name: a, result_type: UInt8, source_id: 3
  JOIN TREE
    TABLE id: 3, table_name: default.t
`
	require.Equal(expected, Dump(query))
	require.True(query.IsResolved())
	require.Equal(sql.UInt8, query.ResultType())
}

func TestMatchers(t *testing.T) {
	require := require.New(t)

	m, err := NewColumnsRegexpMatcher("^a")
	require.NoError(err)
	require.True(m.IsMatchingColumn("ab"))
	require.False(m.IsMatchingColumn("ba"))

	_, err = NewColumnsRegexpMatcher("(")
	require.Error(err)

	list := NewColumnsListMatcher([]Identifier{ParseIdentifier("x")})
	require.True(list.IsMatchingColumn("x"))
	require.False(list.IsMatchingColumn("y"))

	except, err := NewExceptRegexpTransformer("_id$")
	require.NoError(err)
	require.True(except.IsExcluded("user_id"))
	require.False(except.IsExcluded("name"))

	replace := NewReplaceTransformer(false, []string{"a"}, []Node{NewConstantNode(uint64(1))})
	r, ok := replace.Replacement("a")
	require.True(ok)
	require.Equal("1", String(r))
	_, ok = replace.Replacement("b")
	require.False(ok)
}

func TestExtractTableExpressions(t *testing.T) {
	require := require.New(t)

	t1, t2, t3 := newTestTable(), newTestTable(), newTestTable()
	tree := NewArrayJoinNode(
		NewJoinNode(NewCrossJoinNode(t1, t2), t3, nil, InnerJoin, UnspecifiedStrictness),
		[]Node{NewIdentifierNode("arr")},
		false,
	)
	tables := ExtractTableExpressions(tree)
	require.Len(tables, 3)
	require.True(tables[0] == t1)
	require.True(tables[1] == t2)
	require.True(tables[2] == t3)
}
