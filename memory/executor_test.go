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

package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/analyzer"
	"github.com/dolthub/go-query-analyzer/sql/parse"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

func executorCatalog(t *testing.T) *memory.Catalog {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	db := memory.NewDatabase("default")
	users, err := db.CreateTable("users",
		&sql.Column{Name: "id", Type: sql.UInt64},
		&sql.Column{Name: "name", Type: sql.String},
		&sql.Column{Name: "age", Type: sql.Int32},
	)
	require.NoError(err)
	require.NoError(users.Insert(ctx, uint64(1), "ann", int64(30)))
	require.NoError(users.Insert(ctx, uint64(2), "bob", int64(25)))
	require.NoError(users.Insert(ctx, uint64(3), "cid", int64(30)))

	orders, err := db.CreateTable("orders",
		&sql.Column{Name: "id", Type: sql.UInt64},
		&sql.Column{Name: "total", Type: sql.Float64},
	)
	require.NoError(err)
	require.NoError(orders.Insert(ctx, uint64(1), 9.5))
	require.NoError(orders.Insert(ctx, uint64(3), 20.0))

	return memory.NewCatalog(db)
}

func TestExecutor(t *testing.T) {
	testCases := []struct {
		query    string
		expected []sql.Row
	}{
		{
			`SELECT name FROM users WHERE age > 26 ORDER BY name`,
			[]sql.Row{{"ann"}, {"cid"}},
		},
		{
			`SELECT count(*) FROM users`,
			[]sql.Row{{uint64(3)}},
		},
		{
			`SELECT name FROM users ORDER BY age, name DESC LIMIT 2`,
			[]sql.Row{{"bob"}, {"cid"}},
		},
		{
			`SELECT name FROM users ORDER BY id LIMIT 1 OFFSET 1`,
			[]sql.Row{{"bob"}},
		},
		{
			`SELECT age, count(*) FROM users GROUP BY age ORDER BY age`,
			[]sql.Row{{int64(25), uint64(1)}, {int64(30), uint64(2)}},
		},
		{
			`SELECT DISTINCT age FROM users ORDER BY age`,
			[]sql.Row{{int64(25)}, {int64(30)}},
		},
		{
			`SELECT name, total FROM users JOIN orders USING (id) ORDER BY name`,
			[]sql.Row{{"ann", 9.5}, {"cid", 20.0}},
		},
		{
			`SELECT name FROM users WHERE id = 2 UNION ALL SELECT name FROM users WHERE id = 2`,
			[]sql.Row{{"bob"}, {"bob"}},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.query, func(t *testing.T) {
			require := require.New(t)
			ctx := sql.NewEmptyContext()
			executor := memory.NewExecutor()
			a := analyzer.NewBuilder(executorCatalog(t)).WithExecutor(executor).Build()

			n, err := parse.Parse(ctx, tt.query)
			require.NoError(err)
			resolved, err := a.Analyze(ctx, n)
			require.NoError(err)

			block, err := executor.Execute(ctx, resolved, 0)
			require.NoError(err)
			require.Equal(tt.expected, block.Rows)
		})
	}
}

func TestExecutorMaxRows(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	executor := memory.NewExecutor()
	a := analyzer.NewDefault(executorCatalog(t))

	n, err := parse.Parse(ctx, `SELECT id FROM users`)
	require.NoError(err)
	resolved, err := a.Analyze(ctx, n)
	require.NoError(err)

	block, err := executor.Execute(ctx, resolved, 1)
	require.NoError(err)
	require.Equal(2, block.NumRows())
	require.Equal(uint64(1), executor.Executions())
}

func TestExecutorTableFunction(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	executor := memory.NewExecutor()
	a := analyzer.NewDefault(executorCatalog(t))

	q := querytree.NewQueryNode()
	q.Projection = querytree.NewListNode(querytree.NewIdentifierNode("number"))
	q.JoinTree = querytree.NewTableFunctionNode("numbers", querytree.NewConstantNode(uint64(3)))

	resolved, err := a.Analyze(ctx, q)
	require.NoError(err)

	block, err := executor.Execute(ctx, resolved, 0)
	require.NoError(err)
	require.Equal([]sql.Row{{uint64(0)}, {uint64(1)}, {uint64(2)}}, block.Rows)
	require.Equal("number", block.Columns[0].Name)
}

func TestExecutorUnresolvedNode(t *testing.T) {
	require := require.New(t)
	_, err := memory.NewExecutor().Execute(sql.NewEmptyContext(), querytree.NewIdentifierNode("t"), 0)
	require.Error(err)
	require.True(sql.ErrBadArguments.Is(err))
}
