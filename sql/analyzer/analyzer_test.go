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

package analyzer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/parse"
	qt "github.com/dolthub/go-query-analyzer/sql/querytree"
)

// testCatalog returns a catalog with the default database holding
//
//	t(id UInt64, a Int32, b String, arr Array(Int32))
//	t2(id UInt64, c Float64)
func testCatalog(t *testing.T) *memory.Catalog {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	db := memory.NewDatabase("default")
	table, err := db.CreateTable("t",
		&sql.Column{Name: "id", Type: sql.UInt64},
		&sql.Column{Name: "a", Type: sql.Int32},
		&sql.Column{Name: "b", Type: sql.String},
		&sql.Column{Name: "arr", Type: sql.ArrayType{Elem: sql.Int32}},
	)
	require.NoError(err)
	require.NoError(table.Insert(ctx, uint64(1), int64(1), "one", []interface{}{int64(1), int64(2)}))
	require.NoError(table.Insert(ctx, uint64(2), int64(2), "two", []interface{}{int64(3)}))

	table2, err := db.CreateTable("t2",
		&sql.Column{Name: "id", Type: sql.UInt64},
		&sql.Column{Name: "c", Type: sql.Float64},
	)
	require.NoError(err)
	require.NoError(table2.Insert(ctx, uint64(1), 1.5))

	return memory.NewCatalog(db)
}

func newTestAnalyzer(t *testing.T) (*Analyzer, *memory.Executor) {
	executor := memory.NewExecutor()
	return NewBuilder(testCatalog(t)).WithExecutor(executor).Build(), executor
}

func analyzeQuery(t *testing.T, a *Analyzer, ctx *sql.Context, query string) (qt.Node, error) {
	t.Helper()
	n, err := parse.Parse(ctx, query)
	require.NoError(t, err)
	return a.Analyze(ctx, n)
}

func columnNames(columns []qt.NameAndType) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func TestAnalyzeProjection(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected []qt.NameAndType
	}{
		{
			"columns",
			`SELECT a, b FROM t`,
			[]qt.NameAndType{{Name: "a", Type: sql.Int32}, {Name: "b", Type: sql.String}},
		},
		{
			"alias with the name of the column",
			`SELECT a AS a FROM t`,
			[]qt.NameAndType{{Name: "a", Type: sql.Int32}},
		},
		{
			"alias",
			`SELECT b AS x FROM t`,
			[]qt.NameAndType{{Name: "x", Type: sql.String}},
		},
		{
			"asterisk",
			`SELECT * FROM t`,
			[]qt.NameAndType{
				{Name: "id", Type: sql.UInt64},
				{Name: "a", Type: sql.Int32},
				{Name: "b", Type: sql.String},
				{Name: "arr", Type: sql.ArrayType{Elem: sql.Int32}},
			},
		},
		{
			"count of rows",
			`SELECT count(*) FROM t`,
			[]qt.NameAndType{{Name: "count()", Type: sql.UInt64}},
		},
		{
			"column of the second table",
			`SELECT c FROM t, t2`,
			[]qt.NameAndType{{Name: "c", Type: sql.Float64}},
		},
		{
			"using column",
			`SELECT id FROM t JOIN t2 USING (id)`,
			[]qt.NameAndType{{Name: "id", Type: sql.UInt64}},
		},
		{
			"subquery in join tree",
			`SELECT x FROM (SELECT a AS x FROM t) AS sub`,
			[]qt.NameAndType{{Name: "x", Type: sql.Int32}},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)
			ctx := sql.NewEmptyContext()

			resolved, err := analyzeQuery(t, a, ctx, tt.query)
			require.NoError(err)

			q, ok := resolved.(*qt.QueryNode)
			require.True(ok)
			require.True(q.IsResolved())

			columns := q.ProjectionColumns()
			require.Equal(columnNames(tt.expected), columnNames(columns))
			for i, c := range tt.expected {
				require.True(c.Type.Equals(columns[i].Type), "%s: expected %s, got %s",
					c.Name, c.Type.Name(), columns[i].Type.Name())
			}
		})
	}
}

func TestAnalyzeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		err   *errors.Kind
	}{
		{"unknown column", `SELECT unknown FROM t`, sql.ErrUnknownIdentifier},
		{"unknown table", `SELECT a FROM missing`, sql.ErrUnknownTable},
		{"cyclic aliases", `SELECT (id + b) AS id, id AS b FROM t`, sql.ErrRecursionDetected},
		{"positional argument out of bounds", `SELECT a FROM t ORDER BY 3`, sql.ErrIllegalArgument},
		{"column not in group by keys", `SELECT a, count(*) FROM t`, sql.ErrUnsupportedConstruct},
		{"aggregate in where", `SELECT a FROM t WHERE count(*) > 1`, sql.ErrUnsupportedConstruct},
		{"string filter", `SELECT a FROM t WHERE b`, sql.ErrIllegalArgument},
		{"union of different widths", `SELECT a FROM t UNION ALL SELECT a, b FROM t`, sql.ErrTypeMismatch},
		{"union without common type", `SELECT a FROM t UNION ALL SELECT b FROM t`, sql.ErrNoCommonType},
		{"scalar subquery with many rows", `SELECT (SELECT a FROM t)`, sql.ErrScalarSubqueryCardinality},
		{"unknown function", `SELECT frobnicate(a) FROM t`, sql.ErrUnknownFunction},
		{"fractional limit", `SELECT a FROM t LIMIT 1.5`, sql.ErrIllegalArgument},
		{
			"using without common type",
			`SELECT * FROM (SELECT b AS k FROM t) AS x JOIN (SELECT a AS k FROM t) AS y USING (k)`,
			sql.ErrTypeMismatch,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			_, err := analyzeQuery(t, a, sql.NewEmptyContext(), tt.query)
			require.Error(err)
			require.True(tt.err.Is(err), "unexpected error: %s", err)
		})
	}
}

func TestSingleJoinPreferLeftTable(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT id FROM t, t2`)
	require.NoError(err)
	c := resolved.(*qt.QueryNode).ProjectionList().Nodes[0].(*qt.ColumnNode)
	require.Equal("t", c.Source.(*qt.TableNode).TableName())

	settings := sql.DefaultSettings()
	settings.SingleJoinPreferLeftTable = false
	ctx := sql.NewContext(context.Background(), sql.WithSettings(settings))

	_, err = analyzeQuery(t, a, ctx, `SELECT id FROM t, t2`)
	require.Error(err)
	require.True(sql.ErrAmbiguousIdentifier.Is(err), "unexpected error: %s", err)
}

func TestPositionalArguments(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT a, b FROM t ORDER BY 2, 1`)
	require.NoError(err)

	sorts := resolved.(*qt.QueryNode).OrderByList().Nodes
	require.Len(sorts, 2)

	var names []string
	for _, n := range sorts {
		c, ok := n.(*qt.SortNode).Expression.(*qt.ColumnNode)
		require.True(ok)
		names = append(names, c.Name)
	}
	require.Equal([]string{"b", "a"}, names)
}

func TestPositionalArgumentsDisabled(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	settings := sql.DefaultSettings()
	settings.EnablePositionalArguments = false
	ctx := sql.NewContext(context.Background(), sql.WithSettings(settings))

	resolved, err := analyzeQuery(t, a, ctx, `SELECT a FROM t ORDER BY 3`)
	require.NoError(err)

	sort := resolved.(*qt.QueryNode).OrderByList().Nodes[0].(*qt.SortNode)
	_, ok := sort.Expression.(*qt.ConstantNode)
	require.True(ok)
}

func TestScalarSubqueryCache(t *testing.T) {
	require := require.New(t)
	a, executor := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(),
		`SELECT (SELECT max(a) FROM t) AS x, (SELECT max(a) FROM t) AS y`)
	require.NoError(err)
	require.Equal(uint64(1), executor.Executions())

	projection := resolved.(*qt.QueryNode).ProjectionList().Nodes
	require.Len(projection, 2)
	for _, n := range projection {
		c, ok := n.(*qt.ConstantNode)
		require.True(ok, "expected constant, got %s", qt.String(n))
		require.EqualValues(2, c.Value)
	}
	require.Equal([]string{"x", "y"}, columnNames(resolved.(*qt.QueryNode).ProjectionColumns()))
}

func TestScalarSubqueryOnlyAnalyze(t *testing.T) {
	require := require.New(t)
	a, executor := newTestAnalyzer(t)

	settings := sql.DefaultSettings()
	settings.OnlyAnalyze = true
	ctx := sql.NewContext(context.Background(), sql.WithSettings(settings))

	_, err := analyzeQuery(t, a, ctx, `SELECT (SELECT a FROM t)`)
	require.NoError(err)
	require.Equal(uint64(0), executor.Executions())
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	queries := []string{
		`SELECT a, b FROM t WHERE a > 1 ORDER BY b`,
		`SELECT a + 1 AS x, x * 2 FROM t`,
		`SELECT id, count(*) FROM t GROUP BY id`,
		`SELECT id FROM t JOIN t2 USING (id)`,
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)
			ctx := sql.NewEmptyContext()

			resolved, err := analyzeQuery(t, a, ctx, query)
			require.NoError(err)
			first := qt.String(resolved)

			again, err := a.Analyze(ctx, resolved)
			require.NoError(err)
			require.Equal(first, qt.String(again))
		})
	}
}

func TestGroupByAll(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	n, err := parse.Parse(ctx, `SELECT a, b, count(*) FROM t`)
	require.NoError(err)
	n.(*qt.QueryNode).IsGroupByAll = true

	resolved, err := a.Analyze(ctx, n)
	require.NoError(err)

	q := resolved.(*qt.QueryNode)
	require.False(q.IsGroupByAll)
	keys := q.GroupByList().Nodes
	require.Len(keys, 2)
	require.Equal("a", keys[0].(*qt.ColumnNode).Name)
	require.Equal("b", keys[1].(*qt.ColumnNode).Name)
}

func TestOrderByAll(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	n, err := parse.Parse(ctx, `SELECT a, b FROM t`)
	require.NoError(err)
	q := n.(*qt.QueryNode)
	q.IsOrderByAll = true
	q.OrderBy = qt.NewListNode(qt.NewSortNode(qt.NewIdentifierNode("all"), qt.Descending))

	resolved, err := a.Analyze(ctx, q)
	require.NoError(err)

	sorts := resolved.(*qt.QueryNode).OrderByList().Nodes
	require.Len(sorts, 2)
	for _, s := range sorts {
		require.Equal(qt.Descending, s.(*qt.SortNode).Direction)
	}
}

func TestUntuple(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT untuple(tuple(a, b)) FROM t`)
	require.NoError(err)

	columns := resolved.(*qt.QueryNode).ProjectionColumns()
	require.Len(columns, 2)
	require.True(sql.Int32.Equals(columns[0].Type))
	require.True(sql.String.Equals(columns[1].Type))
}

func TestLambda(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(),
		`SELECT arrayMap(lambda(tuple(x), x + 1), arr) FROM t`)
	require.NoError(err)

	columns := resolved.(*qt.QueryNode).ProjectionColumns()
	require.Len(columns, 1)
	require.True(sql.IsArray(columns[0].Type))
}

func TestCommonTableExpression(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	cte, err := parse.Parse(ctx, `SELECT a AS x FROM t WHERE a > 1`)
	require.NoError(err)
	cteQuery := cte.(*qt.QueryNode)
	cteQuery.IsSubquery = true
	cteQuery.IsCTE = true
	cteQuery.SetAlias("cte")

	q := qt.NewQueryNode()
	q.With = qt.NewListNode(cteQuery)
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("x"))
	q.JoinTree = qt.NewIdentifierNode("cte")

	resolved, err := a.Analyze(ctx, q)
	require.NoError(err)

	rq := resolved.(*qt.QueryNode)
	require.Nil(rq.With)
	require.Nil(rq.Window)
	require.Equal([]string{"x"}, columnNames(rq.ProjectionColumns()))
	require.True(sql.Int32.Equals(rq.ProjectionColumns()[0].Type))
}

func TestRecursiveCommonTableExpression(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	base, err := parse.Parse(ctx, `SELECT 1 AS n`)
	require.NoError(err)
	step, err := parse.Parse(ctx, `SELECT n + 1 FROM r WHERE n < 3`)
	require.NoError(err)

	union := qt.NewUnionNode(qt.UnionAll, base, step)
	union.IsSubquery = true
	union.IsCTE = true
	union.SetAlias("r")

	q := qt.NewQueryNode()
	q.IsRecursiveWith = true
	q.With = qt.NewListNode(union)
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("n"))
	q.JoinTree = qt.NewIdentifierNode("r")

	resolved, err := a.Analyze(ctx, q)
	require.NoError(err)
	require.Equal([]string{"n"}, columnNames(resolved.(*qt.QueryNode).ProjectionColumns()))
}

func TestRecursiveCommonTableExpressionRequiresUnionAll(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	base, err := parse.Parse(ctx, `SELECT 1 AS n`)
	require.NoError(err)
	step, err := parse.Parse(ctx, `SELECT n + 1 FROM r WHERE n < 3`)
	require.NoError(err)

	union := qt.NewUnionNode(qt.UnionDistinct, base, step)
	union.IsSubquery = true
	union.IsCTE = true
	union.SetAlias("r")

	q := qt.NewQueryNode()
	q.IsRecursiveWith = true
	q.With = qt.NewListNode(union)
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("n"))
	q.JoinTree = qt.NewIdentifierNode("r")

	_, err = a.Analyze(ctx, q)
	require.Error(err)
}

func TestArrayJoin(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	element := qt.NewIdentifierNode("arr")
	element.SetAlias("x")

	q := qt.NewQueryNode()
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("id"), qt.NewIdentifierNode("x"))
	q.JoinTree = qt.NewArrayJoinNode(qt.NewIdentifierNode("t"), []qt.Node{element}, false)

	resolved, err := a.Analyze(ctx, q)
	require.NoError(err)

	columns := resolved.(*qt.QueryNode).ProjectionColumns()
	require.Equal([]string{"id", "x"}, columnNames(columns))
	require.True(sql.Int32.Equals(columns[1].Type))
}

func TestArrayJoinOfNonArray(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	q := qt.NewQueryNode()
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("b"))
	q.JoinTree = qt.NewArrayJoinNode(qt.NewIdentifierNode("t"), []qt.Node{qt.NewIdentifierNode("b")}, false)

	_, err := a.Analyze(ctx, q)
	require.Error(err)
	require.True(sql.ErrTypeMismatch.Is(err), "unexpected error: %s", err)
}

func TestTableFunction(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	q := qt.NewQueryNode()
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("number"))
	q.JoinTree = qt.NewTableFunctionNode("numbers", qt.NewConstantNode(uint64(3)))

	resolved, err := a.Analyze(ctx, q)
	require.NoError(err)

	rq := resolved.(*qt.QueryNode)
	tf, ok := rq.JoinTree.(*qt.TableFunctionNode)
	require.True(ok)
	require.True(tf.IsResolved())
	require.True(sql.UInt64.Equals(rq.ProjectionColumns()[0].Type))

	q = qt.NewQueryNode()
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("number"))
	q.JoinTree = qt.NewTableFunctionNode("numbrs", qt.NewConstantNode(uint64(3)))
	_, err = a.Analyze(ctx, q)
	require.Error(err)
	require.True(sql.ErrUnknownFunction.Is(err), "unexpected error: %s", err)
}

func TestLimitMustBeConstant(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	n, err := parse.Parse(ctx, `SELECT a FROM t`)
	require.NoError(err)
	q := n.(*qt.QueryNode)
	q.Limit = qt.NewIdentifierNode("b")

	_, err = a.Analyze(ctx, q)
	require.Error(err)
	require.True(sql.ErrIllegalArgument.Is(err), "unexpected error: %s", err)

	resolved, err := analyzeQuery(t, a, ctx, `SELECT a FROM t LIMIT 1`)
	require.NoError(err)
	limit := resolved.(*qt.QueryNode).Limit.(*qt.ConstantNode)
	require.Equal(uint64(1), limit.Value)
	require.True(sql.UInt64.Equals(limit.Type))
}

func TestMaxSubqueryDepth(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	settings := sql.DefaultSettings()
	settings.MaxSubqueryDepth = 1
	ctx := sql.NewContext(context.Background(), sql.WithSettings(settings))

	_, err := analyzeQuery(t, a, ctx, `SELECT x FROM (SELECT x FROM (SELECT 1 AS x) AS s1) AS s2`)
	require.Error(err)
	require.True(sql.ErrTooDeep.Is(err), "unexpected error: %s", err)
}

func TestResolveExpression(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	ctx := sql.NewEmptyContext()

	table, ok, err := sql.FindTable(ctx, a.Catalog, "", "t")
	require.NoError(err)
	require.True(ok)

	expr, err := parse.ParseExpression("a + 1")
	require.NoError(err)

	resolved, err := a.Resolve(ctx, expr, qt.NewTableNode(table))
	require.NoError(err)

	fn, ok := resolved.(*qt.FunctionNode)
	require.True(ok)
	require.True(fn.IsResolved())

	_, err = a.Resolve(ctx, qt.NewQueryNode(), qt.NewTableNode(table))
	require.Error(err)
	require.True(sql.ErrBadArguments.Is(err))
}

func TestAsteriskWithUsing(t *testing.T) {
	testCases := []struct {
		name     string
		joinType qt.JoinType
	}{
		{"inner", qt.InnerJoin},
		{"left", qt.LeftJoin},
		{"right", qt.RightJoin},
		{"full", qt.FullJoin},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			q := qt.NewQueryNode()
			q.Projection = qt.NewListNode(qt.NewAsteriskMatcher())
			q.JoinTree = qt.NewJoinNode(qt.NewIdentifierNode("t"), qt.NewIdentifierNode("t2"),
				qt.NewListNode(qt.NewIdentifierNode("id")), tt.joinType, qt.UnspecifiedStrictness)

			resolved, err := a.Analyze(sql.NewEmptyContext(), q)
			require.NoError(err)

			names := columnNames(resolved.(*qt.QueryNode).ProjectionColumns())
			require.Len(names, 5)
			require.Equal("id", names[0])

			ids := 0
			for _, n := range names {
				require.NotEqual("t.id", n)
				require.NotEqual("t2.id", n)
				if n == "id" {
					ids++
				}
			}
			require.Equal(1, ids)
		})
	}
}

func TestUntupleOfConstants(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT untuple(tuple(1, 2))`)
	require.NoError(err)

	projection := resolved.(*qt.QueryNode).ProjectionList().Nodes
	require.Len(projection, 2)
	for i, n := range projection {
		c, ok := n.(*qt.ConstantNode)
		require.True(ok, "expected constant, got %s", qt.String(n))
		require.EqualValues(i+1, c.Value)
	}
}

func TestScalarSubqueryFolding(t *testing.T) {
	require := require.New(t)
	a, executor := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT (SELECT 1)`)
	require.NoError(err)
	require.Equal(uint64(1), executor.Executions())

	c, ok := resolved.(*qt.QueryNode).ProjectionList().Nodes[0].(*qt.ConstantNode)
	require.True(ok)
	require.EqualValues(1, c.Value)
}

func TestJoins(t *testing.T) {
	using := func(joinType qt.JoinType) qt.Node {
		return qt.NewJoinNode(qt.NewIdentifierNode("t"), qt.NewIdentifierNode("t2"),
			qt.NewListNode(qt.NewIdentifierNode("id")), joinType, qt.UnspecifiedStrictness)
	}

	testCases := []struct {
		name     string
		joinTree qt.Node
		columns  []string
	}{
		{
			"inner join on",
			qt.NewJoinNode(qt.NewIdentifierNode("t"), qt.NewIdentifierNode("t2"),
				qt.NewFunctionNode("equals", qt.NewIdentifierNode("t", "id"), qt.NewIdentifierNode("t2", "id")),
				qt.InnerJoin, qt.UnspecifiedStrictness),
			[]string{"a", "c"},
		},
		{"inner join using", using(qt.InnerJoin), []string{"id", "a", "c"}},
		{"left join using", using(qt.LeftJoin), []string{"id", "a", "c"}},
		{"right join using", using(qt.RightJoin), []string{"id", "a", "c"}},
		{"full join using", using(qt.FullJoin), []string{"id", "a", "c"}},
		{
			"comma join",
			qt.NewCrossJoinNode(qt.NewIdentifierNode("t"), qt.NewIdentifierNode("t2")),
			[]string{"a", "c"},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			projection := qt.NewListNode()
			for _, c := range tt.columns {
				projection.Append(qt.NewIdentifierNode(c))
			}
			q := qt.NewQueryNode()
			q.Projection = projection
			q.JoinTree = tt.joinTree

			resolved, err := a.Analyze(sql.NewEmptyContext(), q)
			require.NoError(err)

			rq := resolved.(*qt.QueryNode)
			require.True(rq.IsResolved())
			require.Equal(tt.columns, columnNames(rq.ProjectionColumns()))

			for _, n := range rq.ProjectionList().Nodes {
				c, ok := n.(*qt.ColumnNode)
				require.True(ok, "expected column, got %s", qt.String(n))
				require.NotNil(c.Source)
			}

			var tables []qt.Node
			switch j := rq.JoinTree.(type) {
			case *qt.JoinNode:
				tables = []qt.Node{j.Left, j.Right}
			case *qt.CrossJoinNode:
				tables = j.TablesList().Nodes
			default:
				require.Fail("unexpected join tree", qt.String(j))
			}
			require.Len(tables, 2)
			for _, table := range tables {
				_, ok := table.(*qt.TableNode)
				require.True(ok, "expected table, got %s", qt.String(table))
			}
		})
	}
}

func TestJoinOnAliasedTables(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(),
		`SELECT x.*, y.c FROM t AS x JOIN t2 AS y ON x.id = y.id`)
	require.NoError(err)

	rq := resolved.(*qt.QueryNode)
	j, ok := rq.JoinTree.(*qt.JoinNode)
	require.True(ok)
	_, ok = j.Left.(*qt.TableNode)
	require.True(ok)
	_, ok = j.Right.(*qt.TableNode)
	require.True(ok)

	columns := rq.ProjectionColumns()
	require.Len(columns, 5)
	require.Equal([]string{"a", "b", "arr"}, columnNames(columns[1:4]))
	require.True(sql.Float64.Equals(columns[4].Type))
}

func TestPreferColumnNameToAlias(t *testing.T) {
	testCases := []struct {
		name   string
		prefer bool
		column bool
	}{
		{"alias wins", false, false},
		{"column wins", true, true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			settings := sql.DefaultSettings()
			settings.PreferColumnNameToAlias = tt.prefer
			ctx := sql.NewContext(context.Background(), sql.WithSettings(settings))

			resolved, err := analyzeQuery(t, a, ctx, `SELECT a + 1 AS id, id FROM t`)
			require.NoError(err)

			second := resolved.(*qt.QueryNode).ProjectionList().Nodes[1]
			c, isColumn := second.(*qt.ColumnNode)
			require.Equal(tt.column, isColumn, "unexpected node %s", qt.String(second))
			if isColumn {
				require.Equal("id", c.Name)
				require.True(sql.UInt64.Equals(c.Type))
			} else {
				_, ok := second.(*qt.FunctionNode)
				require.True(ok)
			}
		})
	}
}

func TestArrayJoinAliasLosesToTableColumn(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	element := qt.NewIdentifierNode("arr")
	element.SetAlias("a")

	q := qt.NewQueryNode()
	q.Projection = qt.NewListNode(qt.NewIdentifierNode("a"))
	q.JoinTree = qt.NewArrayJoinNode(qt.NewIdentifierNode("t"), []qt.Node{element}, false)

	resolved, err := a.Analyze(sql.NewEmptyContext(), q)
	require.NoError(err)

	c, ok := resolved.(*qt.QueryNode).ProjectionList().Nodes[0].(*qt.ColumnNode)
	require.True(ok)
	require.Equal("a", c.Name)
	_, ok = c.Source.(*qt.TableNode)
	require.True(ok, "column is sourced from %s", qt.String(c.Source))
}

func TestExistsRewrite(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT a FROM t WHERE exists(SELECT c FROM t2)`)
	require.NoError(err)

	in, ok := resolved.(*qt.QueryNode).Where.(*qt.FunctionNode)
	require.True(ok, "unexpected filter %s", qt.String(resolved.(*qt.QueryNode).Where))
	require.Equal("in", in.Name)

	args := in.ArgumentsList().Nodes
	require.Len(args, 2)
	one, ok := args[0].(*qt.ConstantNode)
	require.True(ok)
	require.EqualValues(1, one.Value)

	sub, ok := args[1].(*qt.QueryNode)
	require.True(ok)
	limit, ok := sub.Limit.(*qt.ConstantNode)
	require.True(ok)
	require.Equal(uint64(1), limit.Value)
	require.Len(sub.ProjectionList().Nodes, 1)
	_, ok = sub.ProjectionList().Nodes[0].(*qt.ConstantNode)
	require.True(ok)
}

func TestConstantIf(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		expected string
	}{
		{"true condition", `SELECT if(1, a, nonexistent) FROM t`, "a"},
		{"false condition", `SELECT if(0, nonexistent, b) FROM t`, "b"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), tt.query)
			require.NoError(err)

			c, ok := resolved.(*qt.QueryNode).ProjectionList().Nodes[0].(*qt.ColumnNode)
			require.True(ok)
			require.Equal(tt.expected, c.Name)
		})
	}

	require := require.New(t)
	a, _ := newTestAnalyzer(t)
	_, err := analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT if(b = 'one', a, nonexistent) FROM t`)
	require.Error(err)
	require.True(sql.ErrUnknownIdentifier.Is(err), "unexpected error: %s", err)
}

func TestStrictColumnTransformers(t *testing.T) {
	testCases := []struct {
		name        string
		transformer *qt.ColumnTransformerNode
		columns     []string
		err         bool
	}{
		{"except", qt.NewExceptTransformer(false, "b"), []string{"id", "a", "arr"}, false},
		{"except unknown", qt.NewExceptTransformer(false, "zzz"), []string{"id", "a", "b", "arr"}, false},
		{"strict except", qt.NewExceptTransformer(true, "b"), []string{"id", "a", "arr"}, false},
		{"strict except unknown", qt.NewExceptTransformer(true, "zzz"), nil, true},
		{
			"strict replace unknown",
			qt.NewReplaceTransformer(true, []string{"zzz"}, []qt.Node{qt.NewConstantNode(uint64(1))}),
			nil,
			true,
		},
		{
			"replace unknown",
			qt.NewReplaceTransformer(false, []string{"zzz"}, []qt.Node{qt.NewConstantNode(uint64(1))}),
			[]string{"id", "a", "b", "arr"},
			false,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			m := qt.NewAsteriskMatcher()
			m.Transformers = qt.NewListNode(tt.transformer)

			q := qt.NewQueryNode()
			q.Projection = qt.NewListNode(m)
			q.JoinTree = qt.NewIdentifierNode("t")

			resolved, err := a.Analyze(sql.NewEmptyContext(), q)
			if tt.err {
				require.Error(err)
				require.True(sql.ErrBadArguments.Is(err), "unexpected error: %s", err)
				require.Contains(err.Error(), "zzz")
				return
			}
			require.NoError(err)
			require.Equal(tt.columns, columnNames(resolved.(*qt.QueryNode).ProjectionColumns()))
		})
	}
}

func TestJoinUseNulls(t *testing.T) {
	testCases := []struct {
		name         string
		joinUseNulls bool
		expected     sql.Type
	}{
		{"default values", false, sql.Float64},
		{"nulls", true, sql.MakeNullable(sql.Float64)},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			settings := sql.DefaultSettings()
			settings.JoinUseNulls = tt.joinUseNulls
			ctx := sql.NewContext(context.Background(), sql.WithSettings(settings))

			resolved, err := analyzeQuery(t, a, ctx, `SELECT c FROM t LEFT JOIN t2 USING (id)`)
			require.NoError(err)

			got := resolved.(*qt.QueryNode).ProjectionColumns()[0].Type
			require.True(tt.expected.Equals(got), "expected %s, got %s", tt.expected.Name(), got.Name())
		})
	}
}

func TestConstantFoldingSizeLimit(t *testing.T) {
	testCases := []struct {
		name   string
		query  string
		folded bool
	}{
		{"small array", `SELECT range(3)`, true},
		{"below the limit", `SELECT range(100000)`, true},
		{"above the limit", `SELECT range(200000)`, false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			a, _ := newTestAnalyzer(t)

			resolved, err := analyzeQuery(t, a, sql.NewEmptyContext(), tt.query)
			require.NoError(err)

			n := resolved.(*qt.QueryNode).ProjectionList().Nodes[0]
			_, isConstant := n.(*qt.ConstantNode)
			require.Equal(tt.folded, isConstant, "unexpected node %s", qt.String(n))
			if !tt.folded {
				fn, ok := n.(*qt.FunctionNode)
				require.True(ok)
				require.True(fn.IsResolved())
			}
		})
	}
}

func TestRecursiveLambda(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	lambda := qt.NewLambdaNode([]string{"x"}, qt.NewFunctionNode("f", qt.NewIdentifierNode("x")))
	lambda.SetAlias("f")

	q := qt.NewQueryNode()
	q.With = qt.NewListNode(lambda)
	q.Projection = qt.NewListNode(qt.NewFunctionNode("f", qt.NewConstantNode(uint64(1))))

	_, err := a.Analyze(sql.NewEmptyContext(), q)
	require.Error(err)
	require.True(sql.ErrRecursionDetected.Is(err), "unexpected error: %s", err)
}

func TestRecursiveWindow(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	rowNumber := qt.NewFunctionNode("row_number")
	rowNumber.Window = qt.NewIdentifierNode("w")

	w := qt.NewWindowNode()
	w.SetAlias("w")
	w.PartitionByList().Append(rowNumber)

	sum := qt.NewFunctionNode("sum", qt.NewIdentifierNode("a"))
	sum.Window = qt.NewIdentifierNode("w")

	q := qt.NewQueryNode()
	q.Window = qt.NewListNode(w)
	q.Projection = qt.NewListNode(sum)
	q.JoinTree = qt.NewIdentifierNode("t")

	_, err := a.Analyze(sql.NewEmptyContext(), q)
	require.Error(err)
	require.True(sql.ErrRecursionDetected.Is(err), "unexpected error: %s", err)
}

func TestScalarSubqueryInQueryContext(t *testing.T) {
	require := require.New(t)
	a, _ := newTestAnalyzer(t)

	registry := sql.NewScalarRegistry()
	ctx := sql.NewContext(context.Background(), sql.WithQueryContext(registry))

	resolved, err := analyzeQuery(t, a, ctx, `SELECT (SELECT arr FROM t WHERE a = 1)`)
	require.NoError(err)

	fn, ok := resolved.(*qt.QueryNode).ProjectionList().Nodes[0].(*qt.FunctionNode)
	require.True(ok)
	require.Equal("__getScalar", fn.Name)
	require.True(fn.IsResolved())
	require.True(sql.ArrayType{Elem: sql.Int32}.Equals(fn.ResultType()))
	require.Equal(1, registry.Len())

	resolved, err = analyzeQuery(t, a, sql.NewEmptyContext(), `SELECT (SELECT arr FROM t WHERE a = 1)`)
	require.NoError(err)
	c, ok := resolved.(*qt.QueryNode).ProjectionList().Nodes[0].(*qt.ConstantNode)
	require.True(ok)
	require.Len(c.Value, 2)
}

func TestToExactUint64(t *testing.T) {
	testCases := []struct {
		name     string
		value    interface{}
		expected uint64
		err      bool
	}{
		{"unsigned", uint64(3), 3, false},
		{"signed", int64(3), 3, false},
		{"negative", int64(-1), 0, true},
		{"integral float", float64(2), 2, false},
		{"fractional float", 1.5, 0, true},
		{"negative float", -1.0, 0, true},
		{"huge float", 1e20, 0, true},
		{"integral decimal", decimal.New(5, 0), 5, false},
		{"fractional decimal", decimal.New(15, -1), 0, true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			v, err := toExactUint64(tt.value)
			if tt.err {
				require.Error(err)
				return
			}
			require.NoError(err)
			require.Equal(tt.expected, v)
		})
	}
}
