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
	"strconv"
	"strings"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// matchedColumn is a column a matcher expanded to, with its name before
// transformers are applied.
type matchedColumn struct {
	node querytree.Node
	name string
	// using is set for the merged column of a JOIN USING key, which keeps
	// its bare name.
	using bool
}

// resolveMatcher replaces the matcher in the slot with the list of the
// columns it selects, after column transformers, and returns their
// projection names.
func (qa *queryAnalyzer) resolveMatcher(slot *querytree.Node, s *scope) ([]string, error) {
	m, ok := (*slot).(*querytree.MatcherNode)
	if !ok {
		return nil, sql.ErrLogical.New("expected matcher node, got " + querytree.String(*slot))
	}

	var matched []matchedColumn
	var err error
	if m.IsQualified() {
		matched, err = qa.resolveQualifiedMatcher(m, s)
	} else {
		matched, err = qa.resolveUnqualifiedMatcher(m, s)
	}
	if err != nil {
		return nil, err
	}

	for _, c := range matched {
		col, ok := c.node.(*querytree.ColumnNode)
		if !ok || !hasComputedExpression(col) {
			continue
		}
		if _, err := qa.resolveExpressionNode(&col.Expression, s, false, false, false); err != nil {
			return nil, err
		}
		if err := qa.correctColumnExpressionType(col, s); err != nil {
			return nil, err
		}
	}

	nodes, names, err := qa.applyColumnTransformers(m, matched, s)
	if err != nil {
		return nil, err
	}

	convertGroupByKeys := !qa.inAggregateFunctionScope(s)
	for i, n := range nodes {
		if convertGroupByKeys {
			if key := qa.nullableGroupByKey(n, s); key != nil {
				nodes[i] = convertToNullable(querytree.Clone(key))
			}
		}
		qa.resolvedExpressions[nodes[i]] = []string{names[i]}
	}

	*slot = querytree.NewListNode(nodes...)
	return names, nil
}

// resolveQualifiedMatcher expands q.*: the elements of a tuple expression q,
// or the columns of the table expression q.
func (qa *queryAnalyzer) resolveQualifiedMatcher(m *querytree.MatcherNode, s *scope) ([]matchedColumn, error) {
	qualifier := m.Qualifier

	result, err := qa.tryResolveIdentifier(newLookup(qualifier, expressionLookup), s, defaultResolveContext())
	if err != nil {
		return nil, err
	}
	if result.resolved() {
		if tt, ok := sql.RemoveNullable(querytree.ResultType(result.node)).(sql.TupleType); ok {
			return qa.tupleMatcherColumns(m, result.node, tt, s)
		}
	}

	rctx := defaultResolveContext()
	rctx.allowCTE = false
	rctx.allowDatabaseCatalog = false
	result, err = qa.tryResolveIdentifier(newLookup(qualifier, tableExpressionLookup), s, rctx)
	if err != nil {
		return nil, err
	}
	if !result.resolved() {
		return nil, sql.NewErr(sql.ErrUnknownIdentifier,
			"Qualified matcher %s does not find table. In scope %s", querytree.String(m), s.description())
	}

	te := result.node
	data, ok := qa.tableExpressionDataOf(s, te)
	if !ok {
		return nil, sql.ErrLogical.New(fmt.Sprintf(
			"Qualified matcher %s resolved to table expression %s without data. In scope %s",
			querytree.String(m), querytree.String(te), s.description()))
	}

	var columns []matchedColumn
	for _, name := range data.columnNames {
		if !qa.matcherSelectsKind(m, data.columnKinds[name]) || !m.IsMatchingColumn(name) {
			continue
		}
		c := querytree.Clone(data.columns[name])
		qa.nodeToProjectionName[c] = name
		columns = append(columns, matchedColumn{node: c, name: name})
	}
	return columns, nil
}

// tupleMatcherColumns expands q.* on a tuple expression to one subcolumn
// per element.
func (qa *queryAnalyzer) tupleMatcherColumns(m *querytree.MatcherNode, expr querytree.Node, t sql.TupleType, s *scope) ([]matchedColumn, error) {
	names := t.Names
	if !t.HasExplicitNames() {
		names = make([]string, len(t.Elems))
		for i := range t.Elems {
			names[i] = strconv.Itoa(i + 1)
		}
	}

	var columns []matchedColumn
	for _, name := range names {
		if !m.IsMatchingColumn(name) {
			continue
		}
		id := querytree.NewIdentifier(append(m.Qualifier.Parts(), name)...)
		n, err := qa.tryResolveIdentifierFromCompoundExpression(id, m.Qualifier.Size(), expr, "", s, false)
		if err != nil {
			return nil, err
		}
		columns = append(columns, matchedColumn{node: n, name: id.FullName()})
	}
	return columns, nil
}

// resolveUnqualifiedMatcher expands *, COLUMNS('re') and COLUMNS(a, b)
// against the join tree of the scope.
func (qa *queryAnalyzer) resolveUnqualifiedMatcher(m *querytree.MatcherNode, s *scope) ([]matchedColumn, error) {
	joinTree := s.expressionJoinTree
	if queryScope := qa.nearestQueryScope(s); joinTree == nil && queryScope != nil {
		joinTree = queryScope.node.(*querytree.QueryNode).JoinTree
	}
	if joinTree == nil {
		return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
			"Unqualified matcher %s cannot be resolved. There are no table sources. In scope %s",
			querytree.String(m), s.description())
	}

	if m.MatcherType == querytree.ColumnsListMatcher {
		return qa.columnsListMatcherColumns(m, s)
	}

	all, err := qa.joinTreeColumns(joinTree, m, s)
	if err != nil {
		return nil, err
	}
	var columns []matchedColumn
	for _, c := range all {
		if m.IsMatchingColumn(c.name) {
			columns = append(columns, c)
		}
	}
	return qa.qualifyMatchedColumns(columns, s), nil
}

// columnsListMatcherColumns binds each identifier of COLUMNS(a, b) to the
// join tree.
func (qa *queryAnalyzer) columnsListMatcherColumns(m *querytree.MatcherNode, s *scope) ([]matchedColumn, error) {
	var columns []matchedColumn
	for _, id := range m.ColumnIdentifiers {
		result, err := qa.tryResolveIdentifierFromJoinTree(newLookup(id, expressionLookup), s)
		if err != nil {
			return nil, err
		}
		if !result.resolved() {
			return nil, sql.NewErr(sql.ErrUnknownIdentifier,
				"Unknown identifier '%s' inside COLUMNS matcher. In scope %s%s",
				id.FullName(), s.description(),
				hintsSuffix(qa.identifierHints(newLookup(id, expressionLookup), s)))
		}
		columns = append(columns, matchedColumn{node: result.node, name: id.FullName()})
	}
	return columns, nil
}

// matcherSelectsKind returns whether columns of the kind are selected by
// the matcher. ALIAS and MATERIALIZED columns are only selected when the
// matching settings ask for them.
func (qa *queryAnalyzer) matcherSelectsKind(m *querytree.MatcherNode, kind sql.ColumnKind) bool {
	switch kind {
	case sql.OrdinaryColumn:
		return true
	case sql.AliasColumn:
		return m.MatcherType == querytree.ColumnsListMatcher || qa.settings.AsteriskIncludeAliasColumns
	case sql.MaterializedColumn:
		return m.MatcherType == querytree.ColumnsListMatcher || qa.settings.AsteriskIncludeMaterializedColumns
	}
	return false
}

// joinTreeColumns returns the columns of the join tree in projection order.
func (qa *queryAnalyzer) joinTreeColumns(n querytree.Node, m *querytree.MatcherNode, s *scope) ([]matchedColumn, error) {
	switch n := n.(type) {
	case *querytree.TableNode, *querytree.TableFunctionNode, *querytree.QueryNode, *querytree.UnionNode:
		if s.tableExpressionsInResolve[n] {
			return nil, nil
		}
		data, err := s.data(n)
		if err != nil {
			return nil, err
		}
		var columns []matchedColumn
		for _, name := range data.columnNames {
			if !qa.matcherSelectsKind(m, data.columnKinds[name]) {
				continue
			}
			columns = append(columns, matchedColumn{node: querytree.Clone(data.columns[name]), name: name})
		}
		return columns, nil

	case *querytree.CrossJoinNode:
		var columns []matchedColumn
		for _, te := range n.TablesList().Nodes {
			c, err := qa.joinTreeColumns(te, m, s)
			if err != nil {
				return nil, err
			}
			columns = append(columns, c...)
		}
		return columns, nil

	case *querytree.ArrayJoinNode:
		columns, err := qa.joinTreeColumns(n.TableExpression, m, s)
		if err != nil || s.tableExpressionsInResolve[n] {
			return columns, err
		}
		for i, c := range columns {
			for _, e := range n.JoinExpressionsList().Nodes {
				ac, ok := e.(*querytree.ColumnNode)
				if !ok || ac.HasAlias() || ac.Expression == nil {
					continue
				}
				if querytree.EqualIgnoringAliases(ac.Expression, c.node) {
					columns[i].node = querytree.NewColumnNode(ac.Name, ac.Type, ac.Source)
					break
				}
			}
		}
		return columns, nil

	case *querytree.JoinNode:
		return qa.joinColumns(n, m, s)
	}
	return nil, sql.ErrLogical.New("unexpected join tree node " + querytree.String(n) + ". In scope " + s.description())
}

// joinColumns merges the columns of both sides of a JOIN. A USING column
// appears once, at its left position.
func (qa *queryAnalyzer) joinColumns(j *querytree.JoinNode, m *querytree.MatcherNode, s *scope) ([]matchedColumn, error) {
	left, err := qa.joinTreeColumns(j.Left, m, s)
	if err != nil {
		return nil, err
	}
	right, err := qa.joinTreeColumns(j.Right, m, s)
	if err != nil {
		return nil, err
	}

	var using map[string]*querytree.ColumnNode
	if !s.tableExpressionsInResolve[j] {
		using = usingColumns(j)
	}

	result := make([]matchedColumn, 0, len(left)+len(right))
	for _, c := range left {
		if u, ok := using[c.name]; ok {
			n, _ := qa.usingJoinColumn(j, u, s)
			result = append(result, matchedColumn{node: n, name: c.name, using: true})
			continue
		}
		result = append(result, qa.nullableJoinColumn(c, j, leftSide, s))
	}
	for _, c := range right {
		if _, ok := using[c.name]; ok {
			continue
		}
		result = append(result, qa.nullableJoinColumn(c, j, rightSide, s))
	}
	return result, nil
}

func (qa *queryAnalyzer) nullableJoinColumn(c matchedColumn, j *querytree.JoinNode, side joinSide, s *scope) matchedColumn {
	if !s.joinUseNulls {
		return c
	}
	if n := qa.convertJoinedColumnTypeToNullIfNeeded(c.node, j.JoinType, side, s); n != nil {
		c.node = n
	}
	return c
}

// qualifyMatchedColumns sets the projection name of each column: its name,
// qualified when the name alone would bind to something else.
func (qa *queryAnalyzer) qualifyMatchedColumns(columns []matchedColumn, s *scope) []matchedColumn {
	for i, c := range columns {
		name := c.name
		if col, ok := c.node.(*querytree.ColumnNode); ok && !c.using {
			name = qa.qualifiedColumnName(col, c.name, s)
		}
		qa.nodeToProjectionName[c.node] = name
		columns[i].name = name
	}
	return columns
}

func (qa *queryAnalyzer) qualifiedColumnName(c *querytree.ColumnNode, name string, s *scope) string {
	te := c.Source
	if orig, ok := s.joinColumnsWithChangedTypes[c]; ok {
		if oc, ok := orig.(*querytree.ColumnNode); ok {
			te = oc.Source
		}
	}
	data, ok := s.tableExpressionData[te]
	if !ok || te == nil {
		return name
	}

	id := querytree.ParseIdentifier(name)
	needsQualifier := qa.tryBindIdentifierToAliases(id, s) ||
		(data.shouldQualifyColumns && qa.tryBindIdentifierToTableExpressions(id, te, s))
	if !needsQualifier {
		return name
	}

	qualifier := tableExpressionQualifier(te, data)
	for i := len(qualifier) - 1; i >= 0; i-- {
		id = querytree.NewIdentifier(append([]string{qualifier[i]}, id.Parts()...)...)
		if !qa.tryBindIdentifierToTableExpressions(id, te, s) {
			break
		}
	}
	return id.FullName()
}

// tableExpressionQualifier returns the parts that qualify the columns of a
// table expression: its alias, its database and table names, or its CTE
// name.
func tableExpressionQualifier(te querytree.Node, data *tableExpressionData) []string {
	if te.HasAlias() {
		return []string{te.Alias()}
	}
	if data.tableName != "" {
		if data.databaseName != "" {
			return []string{data.databaseName, data.tableName}
		}
		return []string{data.tableName}
	}
	switch n := te.(type) {
	case *querytree.QueryNode:
		if n.CTEName != "" {
			return []string{n.CTEName}
		}
	case *querytree.UnionNode:
		if n.CTEName != "" {
			return []string{n.CTEName}
		}
	}
	return nil
}

// applyColumnTransformers runs APPLY, EXCEPT and REPLACE over the matched
// columns, in transformer order.
func (qa *queryAnalyzer) applyColumnTransformers(m *querytree.MatcherNode, columns []matchedColumn, s *scope) ([]querytree.Node, []string, error) {
	transformers := m.TransformersList().Nodes
	used := make(map[*querytree.ColumnTransformerNode]map[string]bool)

	nodes := make([]querytree.Node, 0, len(columns))
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		node, name := c.node, c.name
		columnName := name
		if col, ok := node.(*querytree.ColumnNode); ok {
			columnName = col.Name
		}
		if _, ok := qa.resolvedExpressions[node]; !ok {
			qa.resolvedExpressions[node] = []string{name}
		}

		excluded := false
		for _, tn := range transformers {
			t, ok := tn.(*querytree.ColumnTransformerNode)
			if !ok {
				return nil, nil, sql.ErrLogical.New("expected column transformer, got " + querytree.String(tn))
			}
			if used[t] == nil {
				used[t] = make(map[string]bool)
			}

			switch t.TransformerType {
			case querytree.ApplyTransformer:
				applied, appliedName, err := qa.applyTransformer(t, node, s)
				if err != nil {
					return nil, nil, err
				}
				node, name = applied, appliedName
			case querytree.ExceptTransformer:
				if t.IsExcluded(columnName) {
					used[t][columnName] = true
					excluded = true
				}
			case querytree.ReplaceTransformer:
				replacement, ok := t.Replacement(columnName)
				if !ok {
					continue
				}
				used[t][columnName] = true
				r := querytree.Clone(replacement)
				if _, err := qa.resolveExpressionNode(&r, s, false, false, false); err != nil {
					return nil, nil, err
				}
				if l, ok := r.(*querytree.ListNode); ok {
					if l.Len() != 1 {
						return nil, nil, sql.NewErr(sql.ErrUnsupportedConstruct,
							"REPLACE transformer expression %s resolved into list of size %d. In scope %s",
							querytree.String(replacement), l.Len(), s.description())
					}
					r = l.Nodes[0]
				}
				node, name = r, columnName
			}
			if excluded {
				break
			}
		}
		if excluded {
			continue
		}
		nodes = append(nodes, node)
		names = append(names, name)
	}

	for _, tn := range transformers {
		t := tn.(*querytree.ColumnTransformerNode)
		if !t.IsStrict {
			continue
		}
		expected := t.ExceptNames
		if t.TransformerType == querytree.ReplaceTransformer {
			expected = t.ReplaceNames
		}
		var missing []string
		for _, n := range expected {
			if !used[t][n] {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			return nil, nil, sql.NewErr(sql.ErrBadArguments,
				"Strict %s column transformer %s expects following column(s) : %s",
				t.TransformerType, querytree.String(t), strings.Join(missing, ", "))
		}
	}
	return nodes, names, nil
}

// applyTransformer calls the APPLY lambda or function on the column.
func (qa *queryAnalyzer) applyTransformer(t *querytree.ColumnTransformerNode, column querytree.Node, s *scope) (querytree.Node, string, error) {
	switch fn := t.Expression.(type) {
	case *querytree.LambdaNode:
		lambda := querytree.Clone(fn).(*querytree.LambdaNode)
		sub := qa.newScope(lambda, s)
		names, err := qa.resolveLambda(fn, lambda, []querytree.Node{column}, sub)
		if err != nil {
			return nil, "", err
		}
		if len(names) != 1 {
			return nil, "", sql.ErrLogical.New(fmt.Sprintf(
				"APPLY lambda %s expected 1 projection name. Actual: %d", querytree.String(fn), len(names)))
		}
		return lambda.Expression, names[0], nil
	case *querytree.FunctionNode:
		call := querytree.Clone(fn).(*querytree.FunctionNode)
		call.ArgumentsList().Append(column)
		var n querytree.Node = call
		names, err := qa.resolveExpressionNode(&n, s, false, false, false)
		if err != nil {
			return nil, "", err
		}
		if len(names) != 1 {
			return nil, "", sql.ErrLogical.New(fmt.Sprintf(
				"APPLY function %s expected 1 projection name. Actual: %d", querytree.String(fn), len(names)))
		}
		return n, names[0], nil
	}
	return nil, "", sql.NewErr(sql.ErrBadArguments,
		"APPLY transformer %s expects a lambda or a function. In scope %s", querytree.String(t), s.description())
}
