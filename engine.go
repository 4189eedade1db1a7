package sqle

import (
	"time"

	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/analyzer"
	"github.com/dolthub/go-query-analyzer/sql/parse"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// Engine parses, analyzes and runs queries over in-memory databases.
type Engine struct {
	Catalog  *memory.Catalog
	Analyzer *analyzer.Analyzer
	Executor *memory.Executor
}

// New creates a new Engine with an empty catalog.
func New() *Engine {
	c := memory.NewCatalog()
	e := memory.NewExecutor()
	a := analyzer.NewBuilder(c).WithExecutor(e).Build()
	return &Engine{Catalog: c, Analyzer: a, Executor: e}
}

// Analyze parses the query and returns its resolved query tree.
func (e *Engine) Analyze(ctx *sql.Context, query string) (querytree.Node, error) {
	logger := ctx.GetLogger().WithField(QueryLogKey, query)
	start := time.Now()

	parsed, err := parse.Parse(ctx, query)
	if err != nil {
		logger.WithError(err).Debug("unable to parse query")
		return nil, err
	}

	analyzed, err := e.Analyzer.Analyze(ctx, parsed)
	if err != nil {
		logger.WithError(err).Debug("unable to analyze query")
		return nil, err
	}

	logger.WithField(QueryTimeLogKey, time.Since(start)).Debug("query analyzed")
	return analyzed, nil
}

// Query analyzes and executes a query without attaching to any context.
func (e *Engine) Query(
	ctx *sql.Context,
	query string,
) ([]querytree.NameAndType, *sql.Block, error) {
	analyzed, err := e.Analyze(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	block, err := e.Executor.Execute(ctx, analyzed, 0)
	if err != nil {
		return nil, nil, err
	}

	return querytree.ProjectionColumnsOf(analyzed), block, nil
}

// AddDatabase adds the given database to the catalog.
func (e *Engine) AddDatabase(db sql.Database) {
	e.Catalog.AddDatabase(db)
}
