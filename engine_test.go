package sqle_test

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	sqle "github.com/dolthub/go-query-analyzer"
	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
)

var queries = []struct {
	query    string
	expected []sql.Row
}{
	{
		"SELECT i FROM mytable;",
		[]sql.Row{{int64(1)}, {int64(2)}, {int64(3)}},
	},
	{
		"SELECT i FROM mytable WHERE i = 2;",
		[]sql.Row{{int64(2)}},
	},
	{
		"SELECT i FROM mytable ORDER BY i DESC;",
		[]sql.Row{{int64(3)}, {int64(2)}, {int64(1)}},
	},
	{
		"SELECT i FROM mytable WHERE s = 'first row' ORDER BY i DESC;",
		[]sql.Row{{int64(1)}},
	},
	{
		"SELECT i FROM mytable ORDER BY 1 DESC LIMIT 1;",
		[]sql.Row{{int64(3)}},
	},
	{
		"SELECT COUNT(*) FROM mytable;",
		[]sql.Row{{uint64(3)}},
	},
	{
		"SELECT i AS x FROM mytable WHERE x > 1 ORDER BY x;",
		[]sql.Row{{int64(2)}, {int64(3)}},
	},
	{
		"SELECT i FROM mytable WHERE i = (SELECT max(i) FROM mytable);",
		[]sql.Row{{int64(3)}},
	},
	{
		"SELECT s, t FROM mytable JOIN othertable USING (i) ORDER BY i;",
		[]sql.Row{{"first row", "one"}, {"third row", "three"}},
	},
	{
		"SELECT i FROM (SELECT i FROM mytable WHERE i < 3) AS sub ORDER BY i DESC;",
		[]sql.Row{{int64(2)}, {int64(1)}},
	},
}

func TestQueries(t *testing.T) {
	e := newEngine(t)

	t.Run("sequential", func(t *testing.T) {
		for _, tt := range queries {
			testQuery(t, e, tt.query, tt.expected)
		}
	})

	t.Run("parallel", func(t *testing.T) {
		var g errgroup.Group
		for _, tt := range queries {
			tt := tt
			g.Go(func() error {
				_, block, err := e.Query(newCtx(), tt.query)
				if err != nil {
					return err
				}
				require.ElementsMatch(t, tt.expected, block.Rows, tt.query)
				return nil
			})
		}
		require.NoError(t, g.Wait())
	})
}

func TestQueryColumns(t *testing.T) {
	require := require.New(t)
	e := newEngine(t)

	columns, _, err := e.Query(newCtx(), "SELECT i, s AS name, i + 1 FROM mytable")
	require.NoError(err)
	require.Len(columns, 3)
	require.Equal("i", columns[0].Name)
	require.Equal("name", columns[1].Name)
	require.Equal("plus(i, 1)", columns[2].Name)
}

func TestQueryErrors(t *testing.T) {
	testCases := []struct {
		query string
		err   string
	}{
		{"SELECT foo FROM mytable", "identifier `foo`"},
		{"SELECT i FROM nothere", "Unknown table expression identifier"},
		{"SELECT i, count(*) FROM mytable", "is not under aggregate function"},
	}

	e := newEngine(t)
	for _, tt := range testCases {
		t.Run(tt.query, func(t *testing.T) {
			_, _, err := e.Query(newCtx(), tt.query)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestTracing(t *testing.T) {
	require := require.New(t)
	e := newEngine(t)

	tracer := mocktracer.New()
	ctx := sql.NewContext(context.TODO(), sql.WithTracer(tracer))
	ctx.SetCurrentDatabase("mydb")

	_, block, err := e.Query(ctx, `SELECT i
		FROM mytable
		WHERE i = (SELECT max(i) FROM mytable)`)
	require.NoError(err)
	require.Len(block.Rows, 1)

	var operations []string
	for _, s := range tracer.FinishedSpans() {
		operations = append(operations, s.OperationName)
	}

	for _, expected := range []string{"parse", "analyze", "resolve_query", "scalar_subquery", "memory.execute"} {
		require.Contains(operations, expected)
	}
}

func TestSetLogLevel(t *testing.T) {
	require := require.New(t)
	require.NoError(sqle.SetLogLevel("warn"))
	require.Error(sqle.SetLogLevel("loud"))
	require.NoError(sqle.SetLogLevel("info"))
}

func testQuery(t *testing.T, e *sqle.Engine, q string, expected []sql.Row) {
	t.Helper()
	t.Run(q, func(t *testing.T) {
		require := require.New(t)

		_, block, err := e.Query(newCtx(), q)
		require.NoError(err)
		require.ElementsMatch(expected, block.Rows)
	})
}

func newEngine(t *testing.T) *sqle.Engine {
	t.Helper()
	require := require.New(t)
	ctx := newCtx()

	db := memory.NewDatabase("mydb")
	mytable, err := db.CreateTable("mytable",
		&sql.Column{Name: "i", Type: sql.Int64},
		&sql.Column{Name: "s", Type: sql.String},
	)
	require.NoError(err)
	require.NoError(mytable.Insert(ctx, int64(1), "first row"))
	require.NoError(mytable.Insert(ctx, int64(2), "second row"))
	require.NoError(mytable.Insert(ctx, int64(3), "third row"))

	othertable, err := db.CreateTable("othertable",
		&sql.Column{Name: "i", Type: sql.Int64},
		&sql.Column{Name: "t", Type: sql.String},
	)
	require.NoError(err)
	require.NoError(othertable.Insert(ctx, int64(1), "one"))
	require.NoError(othertable.Insert(ctx, int64(3), "three"))

	e := sqle.New()
	e.AddDatabase(db)
	return e
}

func newCtx() *sql.Context {
	ctx := sql.NewContext(context.Background())
	ctx.SetCurrentDatabase("mydb")
	return ctx
}
