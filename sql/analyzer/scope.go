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
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// identifierLookupContext tells what an identifier is expected to name.
type identifierLookupContext int

const (
	expressionLookup identifierLookupContext = iota
	functionLookup
	tableExpressionLookup
)

func (c identifierLookupContext) String() string {
	switch c {
	case functionLookup:
		return "FUNCTION"
	case tableExpressionLookup:
		return "TABLE_EXPRESSION"
	}
	return "EXPRESSION"
}

// identifierLookup is an identifier together with the context it is looked
// up in.
type identifierLookup struct {
	identifier querytree.Identifier
	context    identifierLookupContext
}

func newLookup(id querytree.Identifier, ctx identifierLookupContext) identifierLookup {
	return identifierLookup{identifier: id, context: ctx}
}

func (l identifierLookup) isExpressionLookup() bool { return l.context == expressionLookup }
func (l identifierLookup) isFunctionLookup() bool   { return l.context == functionLookup }
func (l identifierLookup) isTableLookup() bool      { return l.context == tableExpressionLookup }

func (l identifierLookup) String() string {
	return l.context.String() + " " + l.identifier.FullName()
}

// resolvePlace is where an identifier was resolved.
type resolvePlace int

const (
	placeNone resolvePlace = iota
	placeExpressionArguments
	placeAliases
	placeJoinTree
	placeCTE
	placeDatabaseCatalog
)

func (p resolvePlace) String() string {
	switch p {
	case placeExpressionArguments:
		return "EXPRESSION_ARGUMENTS"
	case placeAliases:
		return "ALIASES"
	case placeJoinTree:
		return "JOIN_TREE"
	case placeCTE:
		return "CTE"
	case placeDatabaseCatalog:
		return "DATABASE_CATALOG"
	}
	return "NONE"
}

type identifierResolveResult struct {
	node  querytree.Node
	place resolvePlace
}

func (r identifierResolveResult) resolved() bool { return r.node != nil }

// identifierResolveContext restricts the places tryResolveIdentifier looks
// at.
type identifierResolveContext struct {
	allowJoinTree           bool
	allowAliases            bool
	allowCTE                bool
	allowDatabaseCatalog    bool
	allowSubqueryResolution bool
	// scopeToResolveAliasExpression is the scope alias expressions found in
	// parent scopes are resolved in.
	scopeToResolveAliasExpression *scope
}

func defaultResolveContext() identifierResolveContext {
	return identifierResolveContext{
		allowJoinTree:           true,
		allowAliases:            true,
		allowCTE:                true,
		allowDatabaseCatalog:    true,
		allowSubqueryResolution: true,
	}
}

func (c identifierResolveContext) resolveAliasesAt(s *scope) identifierResolveContext {
	if c.scopeToResolveAliasExpression == nil {
		c.scopeToResolveAliasExpression = s
	}
	return c
}

// tableExpressionData holds the columns of a table expression of the join
// tree.
type tableExpressionData struct {
	tableName           string
	databaseName        string
	tableExpressionName string
	// description is table, subquery, union or table function.
	description string

	columnNames                []string
	columns                    map[string]*querytree.ColumnNode
	columnKinds                map[string]sql.ColumnKind
	columnIdentifierFirstParts map[string]bool
	shouldQualifyColumns       bool
}

func newTableExpressionData() *tableExpressionData {
	return &tableExpressionData{
		columns:                    make(map[string]*querytree.ColumnNode),
		columnKinds:                make(map[string]sql.ColumnKind),
		columnIdentifierFirstParts: make(map[string]bool),
		shouldQualifyColumns:       true,
	}
}

func (d *tableExpressionData) addColumn(c *querytree.ColumnNode, kind sql.ColumnKind) {
	if _, ok := d.columns[c.Name]; !ok {
		d.columnNames = append(d.columnNames, c.Name)
	}
	d.columns[c.Name] = c
	d.columnKinds[c.Name] = kind
	d.columnIdentifierFirstParts[querytree.ParseIdentifier(c.Name).Front()] = true
}

// canBindIdentifier returns whether the first part of the identifier names
// a column, or the start of a dotted column name.
func (d *tableExpressionData) canBindIdentifier(id querytree.Identifier) bool {
	return !id.IsEmpty() && d.columnIdentifierFirstParts[id.Front()]
}

func (d *tableExpressionData) hasFullIdentifierName(id querytree.Identifier) bool {
	_, ok := d.columns[id.FullName()]
	return ok
}

// source returns the text used in error messages, like "table t".
func (d *tableExpressionData) source() string {
	if d.tableExpressionName == "" {
		return d.description
	}
	return d.description + " " + d.tableExpressionName
}

// scopeAliases are the aliases visible in a scope.
type scopeAliases struct {
	expressions      map[string]querytree.Node
	lambdas          map[string]querytree.Node
	tableExpressions map[string]querytree.Node
	// transitive maps the alias of an identifier to the identifier, like
	// b for a AS b.
	transitive                 map[string]querytree.Identifier
	nodesWithDuplicatedAliases []querytree.Node
	nodeToRemoveAliases        []querytree.Node
	arrayJoinAliases           map[string]querytree.Node
}

func newScopeAliases() *scopeAliases {
	return &scopeAliases{
		expressions:      make(map[string]querytree.Node),
		lambdas:          make(map[string]querytree.Node),
		tableExpressions: make(map[string]querytree.Node),
		transitive:       make(map[string]querytree.Identifier),
		arrayJoinAliases: make(map[string]querytree.Node),
	}
}

func (a *scopeAliases) aliasMap(ctx identifierLookupContext) map[string]querytree.Node {
	switch ctx {
	case functionLookup:
		return a.lambdas
	case tableExpressionLookup:
		return a.tableExpressions
	}
	return a.expressions
}

// find returns the node aliased by the first part, or by the full name, of
// the identifier. Identifier aliases are followed for expression and
// function lookups.
func (a *scopeAliases) find(lookup identifierLookup, fullName bool) (querytree.Node, bool) {
	m := a.aliasMap(lookup.context)
	key := lookup.identifier.Front()
	if fullName {
		key = lookup.identifier.FullName()
	}
	if n, ok := m[key]; ok {
		return n, true
	}
	if lookup.isTableLookup() {
		return nil, false
	}

	visited := map[string]bool{key: true}
	for {
		id, ok := a.transitive[key]
		if !ok {
			return nil, false
		}
		key = id.Front()
		if fullName {
			key = id.FullName()
		}
		if visited[key] {
			return nil, false
		}
		visited[key] = true
		if n, ok := m[key]; ok {
			return n, true
		}
	}
}

func (a *scopeAliases) markDuplicated(n querytree.Node) {
	for _, d := range a.nodesWithDuplicatedAliases {
		if d == n {
			return
		}
	}
	a.nodesWithDuplicatedAliases = append(a.nodesWithDuplicatedAliases, n)
}

// expressionStack holds the expressions being resolved in a scope,
// innermost last.
type expressionStack struct {
	nodes []querytree.Node
}

func (s *expressionStack) push(n querytree.Node) { s.nodes = append(s.nodes, n) }

func (s *expressionStack) pop() { s.nodes = s.nodes[:len(s.nodes)-1] }

func (s *expressionStack) empty() bool { return len(s.nodes) == 0 }

func (s *expressionStack) top() querytree.Node {
	if len(s.nodes) == 0 {
		return nil
	}
	return s.nodes[len(s.nodes)-1]
}

// expressionWithAlias returns the expression in resolve process with the
// given alias.
func (s *expressionStack) expressionWithAlias(alias string) querytree.Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].Alias() == alias {
			return s.nodes[i]
		}
	}
	return nil
}

func (s *expressionStack) hasAggregateFunction() bool {
	for _, n := range s.nodes {
		if f, ok := n.(*querytree.FunctionNode); ok && f.IsAggregateFunction() {
			return true
		}
	}
	return false
}

// scope is an identifier resolution scope: a query, union, lambda or
// expression. Scopes live in the analyzer arena and refer to their parent
// by index.
type scope struct {
	index  int
	parent int
	node   querytree.Node

	settings *sql.Settings
	aliases  *scopeAliases

	expressionArguments map[string]querytree.Node

	tableExpressionsInResolve  map[querytree.Node]bool
	registeredTableExpressions []querytree.Node
	tableExpressionData        map[querytree.Node]*tableExpressionData

	ctes    map[string]querytree.Node
	windows map[string]*querytree.WindowNode
	// withAliases are the WITH expressions of the query, visible in
	// subqueries when enable_scopes_for_with_statement is off.
	withAliases map[string]querytree.Node

	// lookupsInProcess counts the lookups being resolved in the scope, keyed
	// by lookup text.
	lookupsInProcess map[string]int
	expressions      expressionStack

	nullableGroupByKeys []querytree.Node
	// joinColumnsWithChangedTypes maps copies of join columns whose type
	// was changed, by USING or join_use_nulls, to the original column.
	joinColumnsWithChangedTypes map[querytree.Node]querytree.Node

	// aliasColumns are the columns ALIAS column expressions can use.
	aliasColumns       map[string]*querytree.ColumnNode
	expressionJoinTree querytree.Node

	joinUseNulls    bool
	groupByUseNulls bool
	subqueryDepth   int
	joinsCount      int

	// projectionMask maps the hash of secret constants to their mask id. It
	// is shared by all the scopes of a query.
	projectionMask map[uint64]int
}

func (s *scope) description() string {
	return querytree.String(s.node)
}

func (s *scope) isQuery() bool {
	_, ok := s.node.(*querytree.QueryNode)
	return ok
}

func (s *scope) pushExpression(n querytree.Node) { s.expressions.push(n) }

func (s *scope) popExpression() { s.expressions.pop() }

func (s *scope) registerTableExpression(n querytree.Node) {
	s.registeredTableExpressions = append(s.registeredTableExpressions, n)
}

func (s *scope) data(n querytree.Node) (*tableExpressionData, error) {
	d, ok := s.tableExpressionData[n]
	if !ok {
		return nil, sql.ErrLogical.New("table expression " + querytree.String(n) +
			" data must be initialized. In scope " + s.description())
	}
	return d, nil
}

// newScope adds a scope to the arena.
func (qa *queryAnalyzer) newScope(node querytree.Node, parent *scope) *scope {
	s := &scope{
		index:                       len(qa.scopes),
		parent:                      -1,
		node:                        node,
		settings:                    qa.settings,
		aliases:                     newScopeAliases(),
		expressionArguments:         make(map[string]querytree.Node),
		tableExpressionsInResolve:   make(map[querytree.Node]bool),
		tableExpressionData:         make(map[querytree.Node]*tableExpressionData),
		ctes:                        make(map[string]querytree.Node),
		windows:                     make(map[string]*querytree.WindowNode),
		withAliases:                 make(map[string]querytree.Node),
		lookupsInProcess:            make(map[string]int),
		joinColumnsWithChangedTypes: make(map[querytree.Node]querytree.Node),
		projectionMask:              make(map[uint64]int),
	}
	if parent != nil {
		s.parent = parent.index
		s.subqueryDepth = parent.subqueryDepth
		s.projectionMask = parent.projectionMask
	}
	s.joinUseNulls = s.settings.JoinUseNulls
	if q, ok := node.(*querytree.QueryNode); ok {
		s.groupByUseNulls = s.settings.GroupByUseNulls &&
			(q.IsGroupByWithGroupingSets || q.IsGroupByWithRollup || q.IsGroupByWithCube)
	}
	qa.scopes = append(qa.scopes, s)
	return s
}

// releaseScope drops the scope and every scope created after it.
func (qa *queryAnalyzer) releaseScope(s *scope) {
	if s.index < len(qa.scopes) && qa.scopes[s.index] == s {
		for i := s.index; i < len(qa.scopes); i++ {
			qa.scopes[i] = nil
		}
		qa.scopes = qa.scopes[:s.index]
	}
}

func (qa *queryAnalyzer) parentScope(s *scope) *scope {
	if s.parent < 0 || s.parent >= len(qa.scopes) {
		return nil
	}
	return qa.scopes[s.parent]
}

// nearestQueryScope returns the closest query scope, s included.
func (qa *queryAnalyzer) nearestQueryScope(s *scope) *scope {
	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		if cur.isQuery() {
			return cur
		}
	}
	return nil
}

// tableExpressionDataOf looks for the data of a table expression in s and its
// parents.
func (qa *queryAnalyzer) tableExpressionDataOf(s *scope, n querytree.Node) (*tableExpressionData, bool) {
	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		if d, ok := cur.tableExpressionData[n]; ok {
			return d, true
		}
	}
	return nil, false
}
