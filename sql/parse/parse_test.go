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

package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
	qt "github.com/dolthub/go-query-analyzer/sql/querytree"
)

func id(parts ...string) *qt.IdentifierNode { return qt.NewIdentifierNode(parts...) }

func lit(v interface{}) *qt.ConstantNode { return qt.NewConstantNode(v) }

func fn(name string, args ...qt.Node) *qt.FunctionNode { return qt.NewFunctionNode(name, args...) }

func aliased(n qt.Node, alias string) qt.Node {
	n.SetAlias(alias)
	return n
}

func query(projection []qt.Node, from qt.Node, opts ...func(*qt.QueryNode)) *qt.QueryNode {
	q := qt.NewQueryNode()
	q.Projection = qt.NewListNode(projection...)
	q.JoinTree = from
	for _, o := range opts {
		o(q)
	}
	return q
}

func subquery(q *qt.QueryNode) *qt.QueryNode {
	q.IsSubquery = true
	return q
}

func nodes(n ...qt.Node) []qt.Node { return n }

var fixtures = []struct {
	query    string
	expected qt.Node
}{
	{
		`SELECT a, b AS c FROM t WHERE a = 1`,
		query(nodes(id("a"), aliased(id("b"), "c")), id("t"), func(q *qt.QueryNode) {
			q.Where = fn("equals", id("a"), lit(uint64(1)))
		}),
	},
	{
		`SELECT t.a FROM db.t AS t`,
		query(nodes(id("t", "a")), aliased(id("db", "t"), "t")),
	},
	{
		`SELECT 1`,
		query(nodes(lit(uint64(1))), nil),
	},
	{
		`SELECT -1, -a, 2.5`,
		query(nodes(lit(int64(-1)), fn("negate", id("a")), lit(2.5)), nil),
	},
	{
		`SELECT count(*) FROM t`,
		query(nodes(fn("count")), id("t")),
	},
	{
		`SELECT count(DISTINCT a) FROM t`,
		query(nodes(fn("countDistinct", id("a"))), id("t")),
	},
	{
		`SELECT * FROM t1 JOIN t2 USING (id)`,
		query(nodes(qt.NewAsteriskMatcher()),
			qt.NewJoinNode(id("t1"), id("t2"), qt.NewListNode(id("id")), qt.InnerJoin, qt.UnspecifiedStrictness)),
	},
	{
		`SELECT t1.* FROM t1 LEFT JOIN t2 ON t1.a = t2.b`,
		query(nodes(qt.NewAsteriskMatcher("t1")),
			qt.NewJoinNode(id("t1"), id("t2"), fn("equals", id("t1", "a"), id("t2", "b")),
				qt.LeftJoin, qt.UnspecifiedStrictness)),
	},
	{
		`SELECT a FROM t1, t2`,
		query(nodes(id("a")), qt.NewCrossJoinNode(id("t1"), id("t2"))),
	},
	{
		`SELECT x FROM (SELECT 1 AS x) AS s`,
		query(nodes(id("x")), aliased(subquery(query(nodes(aliased(lit(uint64(1)), "x")), nil)), "s")),
	},
	{
		`SELECT a FROM t GROUP BY a HAVING sum(b) > 1 ORDER BY a DESC LIMIT 10 OFFSET 5`,
		query(nodes(id("a")), id("t"), func(q *qt.QueryNode) {
			q.GroupBy = qt.NewListNode(id("a"))
			q.Having = fn("greater", fn("sum", id("b")), lit(uint64(1)))
			q.OrderBy = qt.NewListNode(qt.NewSortNode(id("a"), qt.Descending))
			q.Limit = lit(uint64(10))
			q.Offset = lit(uint64(5))
		}),
	},
	{
		`SELECT DISTINCT a FROM t`,
		query(nodes(id("a")), id("t"), func(q *qt.QueryNode) { q.IsDistinct = true }),
	},
	{
		`SELECT a BETWEEN 1 AND 2, a NOT BETWEEN 1 AND 2 FROM t`,
		query(nodes(
			fn("and", fn("greaterOrEquals", id("a"), lit(uint64(1))), fn("lessOrEquals", id("a"), lit(uint64(2)))),
			fn("or", fn("less", id("a"), lit(uint64(1))), fn("greater", id("a"), lit(uint64(2)))),
		), id("t")),
	},
	{
		`SELECT a IN (1, 2), a IS NULL, NOT a, a LIKE 'x%' FROM t`,
		query(nodes(
			fn("in", id("a"), fn("tuple", lit(uint64(1)), lit(uint64(2)))),
			fn("isNull", id("a")),
			fn("not", id("a")),
			fn("like", id("a"), lit("x%")),
		), id("t")),
	},
	{
		`SELECT a + b * 2, a div 2, a % 2 FROM t`,
		query(nodes(
			fn("plus", id("a"), fn("multiply", id("b"), lit(uint64(2)))),
			fn("intDiv", id("a"), lit(uint64(2))),
			fn("modulo", id("a"), lit(uint64(2))),
		), id("t")),
	},
	{
		`SELECT CASE WHEN a THEN 1 ELSE 2 END FROM t`,
		query(nodes(fn("multiIf", id("a"), lit(uint64(1)), lit(uint64(2)))), id("t")),
	},
	{
		`SELECT CASE a WHEN 1 THEN 'x' END FROM t`,
		query(nodes(fn("multiIf", fn("equals", id("a"), lit(uint64(1))), lit("x"), lit(nil))), id("t")),
	},
	{
		`SELECT CAST(a AS SIGNED), CAST(a AS CHAR) FROM t`,
		query(nodes(
			fn("CAST", id("a"), lit("Int64")),
			fn("CAST", id("a"), lit("String")),
		), id("t")),
	},
	{
		`SELECT (SELECT 1), EXISTS (SELECT 1)`,
		query(nodes(
			subquery(query(nodes(lit(uint64(1))), nil)),
			fn("exists", subquery(query(nodes(lit(uint64(1))), nil))),
		), nil),
	},
	{
		`SELECT arrayMap(lambda(tuple(x), x + 1), arr) FROM t`,
		query(nodes(
			fn("arrayMap", qt.NewLambdaNode([]string{"x"}, fn("plus", id("x"), lit(uint64(1)))), id("arr")),
		), id("t")),
	},
	{
		`SELECT 1 UNION ALL SELECT 2 UNION ALL SELECT 3`,
		qt.NewUnionNode(qt.UnionAll,
			query(nodes(lit(uint64(1))), nil),
			query(nodes(lit(uint64(2))), nil),
			query(nodes(lit(uint64(3))), nil),
		),
	},
	{
		`SELECT 1 -- the answer
		/* block */ ;`,
		query(nodes(lit(uint64(1))), nil),
	},
}

func TestParse(t *testing.T) {
	for _, tt := range fixtures {
		t.Run(tt.query, func(t *testing.T) {
			require := require.New(t)
			n, err := Parse(sql.NewEmptyContext(), tt.query)
			require.NoError(err, "error for query '%s'", tt.query)
			require.True(qt.Equal(tt.expected, n),
				"trees do not match for query '%s'\nexpected:\n%s\ngot:\n%s",
				tt.query, qt.Dump(tt.expected), qt.Dump(n))
		})
	}
}

func TestParseUnionWithOrderBy(t *testing.T) {
	require := require.New(t)

	n, err := Parse(sql.NewEmptyContext(), `SELECT a FROM t UNION DISTINCT SELECT b FROM u ORDER BY 1 LIMIT 1`)
	require.NoError(err)

	q, ok := n.(*qt.QueryNode)
	require.True(ok)
	require.Len(q.ProjectionList().Nodes, 1)
	require.IsType(&qt.MatcherNode{}, q.ProjectionList().Nodes[0])

	union, ok := q.JoinTree.(*qt.UnionNode)
	require.True(ok)
	require.True(union.IsSubquery)
	require.Equal(qt.UnionDistinct, union.Mode)
	require.Len(union.QueriesList().Nodes, 2)
	require.Equal(1, q.OrderByList().Len())
	require.NotNil(q.Limit)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		query string
		kind  interface{ Is(error) bool }
	}{
		{"", ErrEmptyQuery},
		{"-- only a comment", ErrEmptyQuery},
		{"SELECT FROM", ErrSyntax},
		{"SHOW TABLES", ErrUnsupportedSyntax},
		{"SELECT a FROM t NATURAL JOIN u", ErrUnsupportedFeature},
		{"SELECT a <=> b FROM t", ErrUnsupportedFeature},
		{"SELECT ?", ErrUnsupportedFeature},
	}

	for _, tt := range testCases {
		t.Run(tt.query, func(t *testing.T) {
			require := require.New(t)
			_, err := Parse(sql.NewEmptyContext(), tt.query)
			require.Error(err)
			require.True(tt.kind.Is(err), "unexpected error: %s", err)
		})
	}
}

func TestParseExpression(t *testing.T) {
	require := require.New(t)

	n, err := ParseExpression("a * 2")
	require.NoError(err)
	require.True(qt.Equal(fn("multiply", id("a"), lit(uint64(2))), n), qt.Dump(n))

	_, err = ParseExpression("a,")
	require.Error(err)
}

func TestRemoveComments(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT 1 -- comment", "SELECT 1 \n"},
		{"SELECT /* x */1", "SELECT  1"},
		{"SELECT '-- not a comment'", "SELECT '-- not a comment'"},
		{"SELECT '/* kept */'", "SELECT '/* kept */'"},
		{"SELECT 5--3", "SELECT 5--3"},
	}

	for _, tt := range testCases {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, removeComments(tt.input))
		})
	}
}
