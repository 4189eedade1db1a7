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
	"fmt"
	"os"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/expression/function"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

const debugAnalyzerKey = "DEBUG_ANALYZER"

// SubqueryExecutor runs resolved queries. The analyzer uses it to compute
// scalar subqueries. A maxRows greater than zero allows the executor to stop
// after maxRows+1 rows.
type SubqueryExecutor interface {
	Execute(ctx *sql.Context, n querytree.Node, maxRows uint64) (*sql.Block, error)
}

// UDFProvider gives access to SQL user defined functions, which are stored
// as lambdas.
type UDFProvider interface {
	UserDefinedFunction(name string) (*querytree.LambdaNode, bool)
	UserDefinedFunctionNames() []string
}

// Builder provides an easy way to generate Analyzer with custom functions
// and executors.
type Builder struct {
	catalog   sql.Catalog
	functions sql.FunctionRegistry
	executor  SubqueryExecutor
	udfs      UDFProvider
	debug     bool
}

// NewBuilder creates a new Builder from a specific catalog.
func NewBuilder(c sql.Catalog) *Builder {
	return &Builder{catalog: c}
}

// WithDebug activates debug on the Analyzer.
func (ab *Builder) WithDebug() *Builder {
	ab.debug = true
	return ab
}

// WithFunctions sets the function registry. The default registry of the
// function package is used otherwise.
func (ab *Builder) WithFunctions(r sql.FunctionRegistry) *Builder {
	ab.functions = r
	return ab
}

// WithExecutor sets the executor of scalar subqueries.
func (ab *Builder) WithExecutor(e SubqueryExecutor) *Builder {
	ab.executor = e
	return ab
}

// WithUDFProvider sets the provider of user defined functions. When it is
// not set and the catalog provides user defined functions, the catalog is
// used.
func (ab *Builder) WithUDFProvider(p UDFProvider) *Builder {
	ab.udfs = p
	return ab
}

// Build creates a new Analyzer using all previous data setted to the Builder
func (ab *Builder) Build() *Analyzer {
	_, debug := os.LookupEnv(debugAnalyzerKey)

	functions := ab.functions
	if functions == nil {
		functions = function.NewRegistry()
	}
	udfs := ab.udfs
	if udfs == nil {
		if p, ok := ab.catalog.(UDFProvider); ok {
			udfs = p
		}
	}

	return &Analyzer{
		Debug:     debug || ab.debug,
		Catalog:   ab.catalog,
		Functions: functions,
		Executor:  ab.executor,
		UDFs:      udfs,
	}
}

// Analyzer resolves query trees: identifiers are bound to columns, tables,
// aliases and lambda arguments, functions are bound to their
// implementations, matchers are expanded and scalar subqueries are
// computed.
type Analyzer struct {
	// Whether to log various debugging messages
	Debug bool
	// Whether to output the query tree at each step of the analyzer
	Verbose bool
	// A stack of debugger context. See PushDebugContext, PopDebugContext
	contextStack []string
	// Catalog of databases and table functions.
	Catalog sql.Catalog
	// Functions are the ordinary, aggregate and window functions.
	Functions sql.FunctionRegistry
	// Executor computes scalar subqueries. Without executor, scalar
	// subqueries are analyzed as with only_analyze.
	Executor SubqueryExecutor
	// UDFs are the user defined functions.
	UDFs UDFProvider
}

// NewDefault creates a default Analyzer instance with the default functions.
func NewDefault(c sql.Catalog) *Analyzer {
	return NewBuilder(c).Build()
}

// Log prints an INFO message to stdout with the given message and args
// if the analyzer is in debug mode.
func (a *Analyzer) Log(msg string, args ...interface{}) {
	if a != nil && a.Debug {
		if len(a.contextStack) > 0 {
			ctx := strings.Join(a.contextStack, "/")
			logrus.Infof("%s: "+msg, append([]interface{}{ctx}, args...)...)
		} else {
			logrus.Infof(msg, args...)
		}
	}
}

// LogNode prints the node given if Verbose logging is enabled.
func (a *Analyzer) LogNode(n querytree.Node) {
	if a != nil && n != nil && a.Verbose {
		if len(a.contextStack) > 0 {
			ctx := strings.Join(a.contextStack, "/")
			fmt.Printf("%s:\n%s", ctx, querytree.Dump(n))
		} else {
			fmt.Printf("%s", querytree.Dump(n))
		}
	}
}

// PushDebugContext pushes the given context string onto the context stack,
// to use when logging debug messages.
func (a *Analyzer) PushDebugContext(msg string) {
	if a != nil && a.Debug {
		a.contextStack = append(a.contextStack, msg)
	}
}

// PopDebugContext pops a context message off the context stack.
func (a *Analyzer) PopDebugContext() {
	if a != nil && len(a.contextStack) > 0 {
		a.contextStack = a.contextStack[:len(a.contextStack)-1]
	}
}

// Analyze resolves a query or union tree and returns the resolved tree.
func (a *Analyzer) Analyze(ctx *sql.Context, n querytree.Node) (querytree.Node, error) {
	span, ctx := ctx.Span("analyze", opentracing.Tags{
		"node": querytree.String(n),
	})

	a.Log("starting analysis of node of type: %s", n.Kind())
	a.LogNode(n)

	resolved, err := a.Resolve(ctx, n, nil)
	if err == nil {
		a.LogNode(resolved)
	}

	defer func() {
		if resolved != nil {
			span.SetTag("resolved", true)
		}
		span.Finish()
	}()

	return resolved, err
}

// Resolve resolves the tree rooted at n and returns the resolved tree,
// which may be a different node than n, as when an expression is folded.
//
// Query and union roots are resolved with their own scope and
// tableExpression must be nil. Expression roots are resolved against the
// columns of tableExpression, when given.
func (a *Analyzer) Resolve(ctx *sql.Context, n querytree.Node, tableExpression querytree.Node) (querytree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qa := newQueryAnalyzer(a, ctx)
	root := n
	if err := qa.resolve(&root, tableExpression); err != nil {
		a.Log("resolution failed: %s", err)
		return nil, err
	}
	return root, nil
}

// queryAnalyzer is the state of one Resolve call.
type queryAnalyzer struct {
	*Analyzer
	ctx      *sql.Context
	settings *sql.Settings

	scopes []*scope

	// resolvedExpressions maps resolved nodes to their projection names.
	resolvedExpressions map[querytree.Node][]string
	// nodeToProjectionName holds the projection names of columns resolved
	// from the join tree or from lambda arguments.
	nodeToProjectionName map[querytree.Node]string
	// resolvedFrom maps nodes with an alias to the node they resolved to.
	resolvedFrom map[querytree.Node]querytree.Node

	lambdasInResolve map[querytree.Node]bool
	windowsInResolve map[querytree.Node]bool
	ctesInResolve    map[string]bool

	globalScalarCache map[uint64]*scalarResult
	localScalarCache  map[uint64]*scalarResult
	functionCache     map[uint64]sql.Function
	treeSizes         map[querytree.Node]int

	subqueryCounter  int
	arrayJoinCounter int
	depth            int
}

func newQueryAnalyzer(a *Analyzer, ctx *sql.Context) *queryAnalyzer {
	settings := ctx.Settings()
	if settings == nil {
		settings = sql.DefaultSettings()
	}
	return &queryAnalyzer{
		Analyzer:             a,
		ctx:                  ctx,
		settings:             settings,
		resolvedExpressions:  make(map[querytree.Node][]string),
		nodeToProjectionName: make(map[querytree.Node]string),
		resolvedFrom:         make(map[querytree.Node]querytree.Node),
		lambdasInResolve:     make(map[querytree.Node]bool),
		windowsInResolve:     make(map[querytree.Node]bool),
		ctesInResolve:        make(map[string]bool),
		globalScalarCache:    make(map[uint64]*scalarResult),
		localScalarCache:     make(map[uint64]*scalarResult),
		functionCache:        make(map[uint64]sql.Function),
		treeSizes:            make(map[querytree.Node]int),
	}
}

func (qa *queryAnalyzer) resolve(slot *querytree.Node, tableExpression querytree.Node) error {
	switch n := (*slot).(type) {
	case *querytree.QueryNode, *querytree.UnionNode:
		if tableExpression != nil {
			return sql.NewErr(sql.ErrBadArguments,
				"For query or union analysis table expression must be empty")
		}
		s := qa.newScope(n, nil)
		if q, ok := n.(*querytree.QueryNode); ok {
			return qa.resolveQuery(q, s)
		}
		return qa.resolveUnion(n.(*querytree.UnionNode), s)
	case *querytree.IdentifierNode, *querytree.ConstantNode, *querytree.FunctionNode,
		*querytree.ColumnNode, *querytree.ListNode:
		s := qa.newScope(n, nil)
		if tableExpression != nil {
			if err := qa.validateTableExpressionModifiers(tableExpression, s); err != nil {
				return err
			}
			s.expressionJoinTree = tableExpression
			if err := qa.initializeTableExpressionData(tableExpression, s); err != nil {
				return err
			}
		}
		if _, ok := n.(*querytree.ListNode); ok {
			_, err := qa.resolveExpressionNodeList(slot, s, false, false)
			return err
		}
		_, err := qa.resolveExpressionNode(slot, s, false, false, false)
		return err
	case *querytree.TableFunctionNode:
		s := qa.newScope(n, nil)
		return qa.resolveTableFunction(n, s)
	case nil:
		return sql.NewErr(sql.ErrBadArguments, "Node is empty")
	default:
		return sql.NewErr(sql.ErrBadArguments,
			"Node %s with type %s is not supported by query analyzer. Supported nodes are query, union, expressions",
			querytree.String(n), n.Kind())
	}
}
