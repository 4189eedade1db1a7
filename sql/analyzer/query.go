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

	"github.com/opentracing/opentracing-go"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// resolveQuery resolves the sections of the query in scope s and sets its
// projection columns.
//
// Aliases of all the sections are collected first, so an alias can be used
// before the expression it names. CTEs and named windows are registered in
// the scope, then the join tree is resolved, then the other sections in
// the order they are evaluated.
func (qa *queryAnalyzer) resolveQuery(q *querytree.QueryNode, s *scope) error {
	if limit := s.settings.MaxSubqueryDepth; limit > 0 && uint64(s.subqueryDepth) > limit {
		return sql.NewErr(sql.ErrTooDeep, "Too deep subqueries. Maximum: %d", limit)
	}
	if q.IsResolved() {
		return nil
	}

	span, _ := qa.ctx.Span("resolve_query", opentracing.Tags{"depth": s.subqueryDepth})
	defer span.Finish()

	if err := validateGroupByModifiers(q); err != nil {
		return err
	}

	qa.inheritWithAliases(q, s)

	withList := q.WithList()
	for _, n := range withList.Nodes {
		switch w := n.(type) {
		case *querytree.QueryNode:
			if w.IsCTE && w.CTEName == "" {
				w.CTEName = w.Alias()
			}
		case *querytree.UnionNode:
			if w.IsCTE && w.CTEName == "" {
				w.CTEName = w.Alias()
			}
			if w.IsCTE && q.IsRecursiveWith {
				w.IsRecursiveCTE = true
			}
		}
	}

	visitor := newExpressionAliasVisitor(s.aliases)
	for _, section := range []querytree.Node{
		q.With, q.Projection, q.Prewhere, q.Where, q.GroupBy, q.Having, q.Window, q.Qualify,
		q.OrderBy, q.Interpolate, q.LimitByLimit, q.LimitByOffset, q.LimitBy, q.Limit, q.Offset,
	} {
		visitor.visit(section)
	}

	if err := qa.registerCTEs(q, s); err != nil {
		return err
	}
	if err := qa.registerWindows(q, s); err != nil {
		return err
	}

	if q.JoinTree != nil {
		if err := registerTableExpressionAliases(q.JoinTree, s); err != nil {
			return err
		}
		if err := qa.initializeQueryJoinTreeNode(&q.JoinTree, s); err != nil {
			return err
		}
		s.aliases.tableExpressions = make(map[string]querytree.Node)
		if err := qa.resolveQueryJoinTreeNode(&q.JoinTree, s); err != nil {
			return err
		}
	}

	if withList.Len() > 0 {
		if _, err := qa.resolveExpressionNodeList(&q.With, s, true, false); err != nil {
			return err
		}
	}

	var projection []querytree.NameAndType
	var err error
	if !s.groupByUseNulls {
		if projection, err = qa.resolveProjectionExpressionNodeList(&q.Projection, s); err != nil {
			return err
		}
	}

	if err := qa.resolveFilter(&q.Prewhere, "PREWHERE", s); err != nil {
		return err
	}
	if err := qa.resolveFilter(&q.Where, "WHERE", s); err != nil {
		return err
	}
	if q.HasGroupBy() {
		if err := qa.resolveGroupBy(q, s); err != nil {
			return err
		}
	}

	if s.groupByUseNulls {
		// Expressions resolved before GROUP BY keys became nullable are
		// resolved again.
		qa.resolvedExpressions = make(map[querytree.Node][]string)
		for alias, n := range s.aliases.expressions {
			s.aliases.expressions[alias] = querytree.Clone(n)
		}
		if projection, err = qa.resolveProjectionExpressionNodeList(&q.Projection, s); err != nil {
			return err
		}
	}

	if err := qa.resolveFilter(&q.Having, "HAVING", s); err != nil {
		return err
	}
	if q.WindowList().Len() > 0 {
		if err := qa.resolveWindowNodeList(&q.Window, s); err != nil {
			return err
		}
	}
	if err := qa.resolveFilter(&q.Qualify, "QUALIFY", s); err != nil {
		return err
	}

	if q.OrderByList().Len() > 0 {
		if s.settings.EnablePositionalArguments {
			if err := qa.replaceNodesWithPositionalArguments(q.OrderByList(), q.ProjectionList().Nodes, "ORDER BY", s); err != nil {
				return err
			}
		}
		if q.IsOrderByAll {
			if err := qa.expandOrderByAll(q, s); err != nil {
				return err
			}
		}
		if _, err := qa.resolveSortNodeList(&q.OrderBy, s); err != nil {
			return err
		}
	}
	if q.InterpolateList().Len() > 0 {
		if err := qa.resolveInterpolateColumnsNodeList(&q.Interpolate, s); err != nil {
			return err
		}
	}

	if err := qa.convertLimitOffsetExpression(&q.LimitByLimit, "LIMIT BY LIMIT", s); err != nil {
		return err
	}
	if err := qa.convertLimitOffsetExpression(&q.LimitByOffset, "LIMIT BY OFFSET", s); err != nil {
		return err
	}
	if q.LimitByList().Len() > 0 {
		if s.settings.EnablePositionalArguments {
			if err := qa.replaceNodesWithPositionalArguments(q.LimitByList(), q.ProjectionList().Nodes, "LIMIT BY", s); err != nil {
				return err
			}
		}
		if _, err := qa.resolveExpressionNodeList(&q.LimitBy, s, false, false); err != nil {
			return err
		}
	}
	if err := qa.convertLimitOffsetExpression(&q.Limit, "LIMIT", s); err != nil {
		return err
	}
	if err := qa.convertLimitOffsetExpression(&q.Offset, "OFFSET", s); err != nil {
		return err
	}

	if err := qa.validateDuplicatedAliases(s); err != nil {
		return err
	}

	if q.IsGroupByAll {
		expandGroupByAll(q)
	}
	if err := validateFilters(q); err != nil {
		return err
	}
	if err := qa.validateAggregates(q, s); err != nil {
		return err
	}

	if len(projection) == 0 {
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"Empty list of columns in projection. In scope %s", s.description())
	}

	q.With = nil
	q.Window = nil
	for _, n := range s.aliases.nodeToRemoveAliases {
		n.RemoveAlias()
	}
	q.SetProjectionColumns(projection)
	qa.Log("resolved query %s", querytree.String(q))
	return nil
}

func validateGroupByModifiers(q *querytree.QueryNode) error {
	switch {
	case q.IsGroupByWithGroupingSets && q.IsGroupByWithTotals && q.GroupByList().Len() != 1:
		return sql.NewErr(sql.ErrNotImplemented, "WITH TOTALS and GROUPING SETS are not supported together")
	case q.IsGroupByWithGroupingSets && (q.IsGroupByWithRollup || q.IsGroupByWithCube):
		return sql.NewErr(sql.ErrNotImplemented, "GROUPING SETS are not supported together with ROLLUP and CUBE")
	case q.IsGroupByWithRollup && q.IsGroupByWithCube:
		return sql.NewErr(sql.ErrNotImplemented, "ROLLUP is not supported together with GROUPING SETS and CUBE")
	case q.Qualify != nil && q.IsGroupByWithTotals:
		return sql.NewErr(sql.ErrNotImplemented, "WITH TOTALS and QUALIFY are not supported together")
	}
	return nil
}

// inheritWithAliases copies the WITH expressions of the outer queries into
// the query when WITH aliases are not scoped.
func (qa *queryAnalyzer) inheritWithAliases(q *querytree.QueryNode, s *scope) {
	if s.settings.EnableScopesForWithStatement {
		return
	}
	withList := q.WithList()
	defined := make(map[string]bool)
	for _, n := range withList.Nodes {
		if n.HasAlias() {
			defined[n.Alias()] = true
		}
	}
	for cur := qa.parentScope(s); cur != nil; cur = qa.parentScope(cur) {
		for alias, n := range cur.withAliases {
			if defined[alias] {
				continue
			}
			defined[alias] = true
			withList.Nodes = append(withList.Nodes, querytree.Clone(n))
		}
	}
}

// registerCTEs moves the CTEs of the WITH section into the scope. The other
// WITH expressions stay as aliases.
func (qa *queryAnalyzer) registerCTEs(q *querytree.QueryNode, s *scope) error {
	withList := q.WithList()
	var expressions []querytree.Node
	for _, n := range withList.Nodes {
		if !isCTE(n) {
			expressions = append(expressions, n)
			if n.HasAlias() {
				s.withAliases[n.Alias()] = n
			}
			continue
		}
		name := cteNameOf(n)
		if _, ok := s.ctes[name]; ok {
			return sql.NewErr(sql.ErrMultipleExpressionsForAlias,
				"CTE with name %s already exists. In scope %s", name, s.description())
		}
		s.ctes[name] = n
	}
	withList.Nodes = expressions
	return nil
}

// registerWindows registers the named windows of the WINDOW section, merged
// with the windows they derive from.
func (qa *queryAnalyzer) registerWindows(q *querytree.QueryNode, s *scope) error {
	for _, n := range q.WindowList().Nodes {
		w, ok := n.(*querytree.WindowNode)
		if !ok {
			return sql.ErrLogical.New("expected window node, got " + querytree.String(n))
		}
		if w.ParentWindowName != "" {
			parent, ok := s.windows[w.ParentWindowName]
			if !ok {
				return sql.NewErr(sql.ErrBadArguments,
					"Window '%s' is not defined. In scope %s", w.ParentWindowName, s.description())
			}
			if err := mergeWindowWithParentWindow(w, parent, s); err != nil {
				return err
			}
			w.ParentWindowName = ""
		}
		if _, ok := s.windows[w.Alias()]; ok {
			return sql.NewErr(sql.ErrBadArguments,
				"Window '%s' is already defined. In scope %s", w.Alias(), s.description())
		}
		s.windows[w.Alias()] = w
	}
	return nil
}

// resolveFilter resolves a PREWHERE, WHERE, HAVING or QUALIFY expression,
// which must resolve into a single expression.
func (qa *queryAnalyzer) resolveFilter(slot *querytree.Node, section string, s *scope) error {
	if *slot == nil {
		return nil
	}
	if _, err := qa.resolveExpressionNode(slot, s, false, false, false); err != nil {
		return err
	}
	if l, ok := (*slot).(*querytree.ListNode); ok {
		if l.Len() != 1 {
			return sql.NewErr(sql.ErrUnsupportedConstruct,
				"%s expression %s resolved into %d expressions. Expected 1. In scope %s",
				section, querytree.String(l), l.Len(), s.description())
		}
		*slot = l.Nodes[0]
	}
	return nil
}

// resolveGroupBy resolves the GROUP BY keys, or each grouping set.
func (qa *queryAnalyzer) resolveGroupBy(q *querytree.QueryNode, s *scope) error {
	projection := q.ProjectionList().Nodes
	var keyLists []*querytree.Node
	if q.IsGroupByWithGroupingSets {
		sets := q.GroupByList()
		for i := range sets.Nodes {
			if _, ok := sets.Nodes[i].(*querytree.ListNode); !ok {
				sets.Nodes[i] = querytree.NewListNode(sets.Nodes[i])
			}
			keyLists = append(keyLists, &sets.Nodes[i])
		}
	} else {
		keyLists = append(keyLists, &q.GroupBy)
	}

	for _, slot := range keyLists {
		keys := querytree.AsList(*slot)
		if s.settings.EnablePositionalArguments {
			if err := qa.replaceNodesWithPositionalArguments(keys, projection, "GROUP BY", s); err != nil {
				return err
			}
		}
		if _, err := qa.resolveExpressionNodeList(slot, s, false, false); err != nil {
			return err
		}
		keys.Nodes = expandTuplesInList(keys.Nodes)
		if s.groupByUseNulls {
			s.nullableGroupByKeys = append(s.nullableGroupByKeys, keys.Nodes...)
		}
	}
	return nil
}

// expandTuplesInList replaces tuple(a, b) keys with a and b.
func expandTuplesInList(keys []querytree.Node) []querytree.Node {
	var result []querytree.Node
	for _, key := range keys {
		if f, ok := key.(*querytree.FunctionNode); ok && f.Name == "tuple" && !key.HasAlias() {
			result = append(result, f.ArgumentNodes()...)
			continue
		}
		result = append(result, key)
	}
	return result
}

// validateDuplicatedAliases checks that expressions sharing an alias are
// the same expression.
func (qa *queryAnalyzer) validateDuplicatedAliases(s *scope) error {
	for _, n := range s.aliases.nodesWithDuplicatedAliases {
		alias := n.Alias()
		resolved, err := qa.resolveForComparison(n, s)
		if err != nil {
			return err
		}

		found := false
		for _, m := range []map[string]querytree.Node{s.aliases.expressions, s.aliases.lambdas} {
			registered, ok := m[alias]
			if !ok {
				continue
			}
			found = true
			if registered == n {
				continue
			}
			other, err := qa.resolveForComparison(registered, s)
			if err != nil {
				return err
			}
			if !querytree.EqualIgnoringAliases(resolved, other) {
				return sql.NewErr(sql.ErrMultipleExpressionsForAlias,
					"Multiple expressions %s and %s for alias %s. In scope %s",
					querytree.String(resolved), querytree.String(other), alias, s.description())
			}
		}
		if !found {
			return sql.ErrLogical.New(fmt.Sprintf(
				"Node %s with duplicate alias %s does not exist in alias table. In scope %s",
				querytree.String(n), alias, s.description()))
		}
	}
	return nil
}

// resolveForComparison returns the resolved form of n, resolving a copy of
// it if n was never resolved.
func (qa *queryAnalyzer) resolveForComparison(n querytree.Node, s *scope) (querytree.Node, error) {
	if _, ok := qa.resolvedExpressions[n]; ok {
		return n, nil
	}
	if _, ok := n.(*querytree.LambdaNode); ok {
		return n, nil
	}
	copied := querytree.Clone(n)
	copied.RemoveAlias()
	if _, err := qa.resolveExpressionNode(&copied, s, true, false, true); err != nil {
		return nil, err
	}
	return copied, nil
}

// resolveUnion resolves each query of the union in its own scope and sets
// the union projection columns to the least supertypes of the query
// columns.
func (qa *queryAnalyzer) resolveUnion(u *querytree.UnionNode, s *scope) error {
	if limit := s.settings.MaxSubqueryDepth; limit > 0 && uint64(s.subqueryDepth) > limit {
		return sql.NewErr(sql.ErrTooDeep, "Too deep subqueries. Maximum: %d", limit)
	}
	if u.IsResolved() {
		return nil
	}

	queries := u.QueriesList()
	if queries.Len() == 0 {
		return sql.NewErr(sql.ErrBadArguments, "Union %s has no queries", querytree.String(u))
	}
	if s.settings.EnableGlobalWithStatement {
		propagateWithToUnionQueries(queries.Nodes)
	}

	if u.IsRecursiveCTE {
		if u.Mode != querytree.UnionAll {
			return sql.NewErr(sql.ErrUnsupportedConstruct,
				"Recursive CTE subquery %s. Expected UNION ALL. Actual %s", querytree.String(u), u.Mode)
		}
		if queries.Len() < 2 {
			return sql.NewErr(sql.ErrBadArguments,
				"Recursive CTE subquery %s must have a non recursive and a recursive part", querytree.String(u))
		}
	}

	for i := range queries.Nodes {
		if u.IsRecursiveCTE && i == 1 {
			s.expressionArguments[u.CTEName] = recursiveCTETable(u.CTEName, queries.Nodes[0])
		}

		sub := qa.newScope(queries.Nodes[i], s)
		sub.subqueryDepth = s.subqueryDepth + 1
		switch n := queries.Nodes[i].(type) {
		case *querytree.QueryNode:
			if err := qa.resolveQuery(n, sub); err != nil {
				return err
			}
		case *querytree.UnionNode:
			if err := qa.resolveUnion(n, sub); err != nil {
				return err
			}
		default:
			return sql.ErrLogical.New(fmt.Sprintf(
				"Union %s expected query or union. Actual %s", querytree.String(u), querytree.String(n)))
		}
	}

	columns, err := unionProjectionColumns(u)
	if err != nil {
		return err
	}
	u.SetProjectionColumns(columns)
	return nil
}

// propagateWithToUnionQueries adds the WITH expressions of the first query
// of a union to the other queries that do not define the same alias.
func propagateWithToUnionQueries(queries []querytree.Node) {
	first, ok := queries[0].(*querytree.QueryNode)
	if !ok || first.IsResolved() || first.WithList().Len() == 0 {
		return
	}
	for _, n := range queries[1:] {
		q, ok := n.(*querytree.QueryNode)
		if !ok || q.IsResolved() {
			continue
		}
		defined := make(map[string]bool)
		for _, w := range q.WithList().Nodes {
			defined[w.Alias()] = true
		}
		var inherited []querytree.Node
		for _, w := range first.WithList().Nodes {
			if !w.HasAlias() || defined[w.Alias()] {
				continue
			}
			inherited = append(inherited, querytree.Clone(w))
		}
		withList := q.WithList()
		withList.Nodes = append(inherited, withList.Nodes...)
	}
}

func unionProjectionColumns(u *querytree.UnionNode) ([]querytree.NameAndType, error) {
	queries := u.QueriesList().Nodes
	first := querytree.ProjectionColumnsOf(queries[0])
	columns := make([]querytree.NameAndType, len(first))
	copy(columns, first)

	for _, q := range queries[1:] {
		if len(querytree.ProjectionColumnsOf(q)) != len(first) {
			return nil, sql.NewErr(sql.ErrTypeMismatch,
				"UNION different number of columns in queries. %s has %d columns, %s has %d columns",
				querytree.String(queries[0]), len(first), querytree.String(q), len(querytree.ProjectionColumnsOf(q)))
		}
	}

	for i := range columns {
		types := make([]sql.Type, len(queries))
		for j, q := range queries {
			types[j] = querytree.ProjectionColumnsOf(q)[i].Type
		}
		t, err := sql.LeastSupertype(types)
		if err != nil {
			return nil, sql.NewErr(sql.ErrNoCommonType,
				"UNION column %s has no common type: %s", columns[i].Name, err)
		}
		columns[i].Type = t
	}
	return columns, nil
}

// cteTable is the working table of a recursive CTE. Its columns are the
// projection columns of the non recursive query.
type cteTable struct {
	name    string
	columns []*sql.Column
}

var _ sql.Table = (*cteTable)(nil)

func (t *cteTable) Name() string { return t.name }

func (t *cteTable) Database() string { return "" }

func (t *cteTable) Columns() []*sql.Column { return t.columns }

func recursiveCTETable(name string, nonRecursive querytree.Node) *querytree.TableNode {
	projection := querytree.ProjectionColumnsOf(nonRecursive)
	columns := make([]*sql.Column, len(projection))
	for i, c := range projection {
		columns[i] = &sql.Column{Name: c.Name, Type: c.Type, Kind: sql.OrdinaryColumn}
	}
	table := querytree.NewTableNode(&cteTable{name: name, columns: columns})
	table.TemporaryTableName = name
	return table
}
