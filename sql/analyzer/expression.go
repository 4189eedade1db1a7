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
	"strings"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// projectionNamePlaceholder is the projection name of a lambda until its
// body is resolved by the function that takes it.
const projectionNamePlaceholder = "__projection_name_placeholder"

// resolveExpressionNode resolves the expression in the slot and returns its
// projection names. The slot may be replaced: identifiers become columns,
// matchers become lists, constant functions become constants.
func (qa *queryAnalyzer) resolveExpressionNode(slot *querytree.Node, s *scope, allowLambda, allowTable, ignoreAlias bool) ([]string, error) {
	qa.depth++
	defer func() { qa.depth-- }()
	if limit := s.settings.MaxAnalyzerRecursionDepth; limit > 0 && uint64(qa.depth) > limit {
		return nil, sql.NewErr(sql.ErrTooDeep,
			"Maximum analyzer recursion depth %d exceeded. In scope %s", limit, s.description())
	}

	node := *slot
	if names, ok := qa.resolvedExpressions[node]; ok {
		// SELECT id IN (subquery AS value), value: the subquery was resolved
		// as an IN argument but is now used as a value.
		switch node.(type) {
		case *querytree.QueryNode, *querytree.UnionNode:
			if !allowTable && !querytree.IsCorrelated(node) {
				sub := qa.newScope(node, s)
				sub.subqueryDepth = s.subqueryDepth + 1
				if err := qa.evaluateScalarSubqueryIfNeeded(slot, sub); err != nil {
					return nil, err
				}
			}
		}
		return names, nil
	}

	var names []string
	if node.HasAlias() {
		names = append(names, node.Alias())
	} else if name, ok := qa.nodeToProjectionName[node]; ok {
		names = append(names, name)
	}

	s.pushExpression(node)
	defer s.popExpression()

	switch n := node.(type) {
	case *querytree.IdentifierNode:
		resolved, fromList, err := qa.resolveIdentifierExpression(n, s, allowLambda, allowTable, &names)
		if err != nil {
			return nil, err
		}
		*slot = resolved
		if fromList != nil {
			return fromList, nil
		}
		if len(names) == 0 {
			names = append(names, n.Identifier.FullName())
		}
	case *querytree.MatcherNode:
		matched, err := qa.resolveMatcher(slot, s)
		if err != nil {
			return nil, err
		}
		names = matched
	case *querytree.ListNode:
		// untuple(...) AS a resolves to a list with an alias.
		listNames, err := qa.resolveExpressionNodeList(slot, s, allowLambda, allowLambda)
		if err != nil {
			return nil, err
		}
		names = listNames
	case *querytree.ConstantNode:
		if len(names) == 0 {
			names = append(names, sql.FormatValue(n.Value))
		}
	case *querytree.ColumnNode:
		if n.Expression != nil {
			if _, err := qa.resolveExpressionNode(&n.Expression, s, false, false, false); err != nil {
				return nil, err
			}
			if err := qa.correctColumnExpressionType(n, s); err != nil {
				return nil, err
			}
		}
		if len(names) == 0 {
			names = append(names, n.Name)
		}
	case *querytree.FunctionNode:
		fnNames, err := qa.resolveFunction(slot, s)
		if err != nil {
			return nil, err
		}
		if _, isList := (*slot).(*querytree.ListNode); len(names) == 0 || isList {
			names = fnNames
		}
	case *querytree.LambdaNode:
		if !allowLambda {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Lambda %s is not allowed in expression context. In scope %s",
				querytree.String(n), s.description())
		}
		if len(names) == 0 {
			names = append(names, projectionNamePlaceholder)
		}
	case *querytree.QueryNode, *querytree.UnionNode:
		sub := qa.newScope(node, s)
		sub.subqueryDepth = s.subqueryDepth + 1
		name := fmt.Sprintf("_subquery_%d", qa.subqueryCounter)
		qa.subqueryCounter++

		var err error
		if q, ok := node.(*querytree.QueryNode); ok {
			err = qa.resolveQuery(q, sub)
		} else {
			err = qa.resolveUnion(node.(*querytree.UnionNode), sub)
		}
		if err != nil {
			return nil, err
		}
		if !allowTable && !querytree.IsCorrelated(node) {
			if err := qa.evaluateScalarSubqueryIfNeeded(slot, sub); err != nil {
				return nil, err
			}
		}
		if len(names) == 0 {
			names = append(names, name)
		}
	case *querytree.TableNode:
		if !allowTable {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Table %s is not allowed in expression context. In scope %s",
				querytree.String(n), s.description())
		}
		if len(names) == 0 {
			names = append(names, n.FullName())
		}
	default:
		return nil, sql.ErrLogical.New(fmt.Sprintf("%s %s is not allowed in expression context. In scope %s",
			node.Kind(), querytree.String(node), s.description()))
	}

	if err := qa.validateTreeSize(*slot, s); err != nil {
		return nil, err
	}

	if !qa.inAggregateFunctionScope(s) {
		if key := qa.nullableGroupByKey(*slot, s); key != nil {
			*slot = convertToNullable(querytree.Clone(key))
		}
	}

	if !ignoreAlias {
		updateAliasAfterResolve(node, *slot, s, allowLambda)
	}
	qa.resolvedExpressions[*slot] = names
	return names, nil
}

// resolveIdentifierExpression looks the identifier up as an expression, then
// as a lambda and as a table expression when those are allowed. The second
// result is set when the identifier resolved to a list with known names.
func (qa *queryAnalyzer) resolveIdentifierExpression(
	n *querytree.IdentifierNode,
	s *scope,
	allowLambda, allowTable bool,
	names *[]string,
) (querytree.Node, []string, error) {
	id := n.Identifier
	result, err := qa.tryResolveIdentifier(newLookup(id, expressionLookup), s, defaultResolveContext())
	if err != nil {
		return nil, nil, err
	}
	resolved := result.node
	if resolved != nil && len(*names) == 0 &&
		(result.place == placeJoinTree || result.place == placeExpressionArguments) {
		if name, ok := qa.nodeToProjectionName[resolved]; ok {
			*names = append(*names, name)
		}
	}

	if resolved == nil && allowLambda {
		r, err := qa.tryResolveIdentifier(newLookup(id, functionLookup), s, defaultResolveContext())
		if err != nil {
			return nil, nil, err
		}
		resolved = r.node
	}

	if resolved == nil && allowTable {
		r, err := qa.tryResolveIdentifier(newLookup(id, tableExpressionLookup), s, defaultResolveContext())
		if err != nil {
			return nil, nil, err
		}
		resolved = r.node
		if resolved != nil && isCTE(resolved) {
			if resolved, err = qa.resolveCTEReference(resolved, s); err != nil {
				return nil, nil, err
			}
		}
	}

	if resolved == nil {
		clarification := ""
		if allowLambda {
			clarification = " or function"
		}
		if allowTable {
			clarification = " or table expression"
		}
		hints := qa.identifierHints(newLookup(id, expressionLookup), s)
		if allowLambda {
			hints = appendUnique(hints, qa.identifierHints(newLookup(id, functionLookup), s)...)
		}
		if allowTable {
			hints = appendUnique(hints, qa.identifierHints(newLookup(id, tableExpressionLookup), s)...)
		}
		return nil, nil, sql.NewErr(sql.ErrUnknownIdentifier,
			"Unknown expression%s identifier `%s` in scope %s%s",
			clarification, id.FullName(), s.description(), hintsSuffix(hints))
	}

	if list, ok := resolved.(*querytree.ListNode); ok {
		listNames, ok := qa.resolvedExpressions[list]
		if !ok {
			return nil, nil, sql.ErrLogical.New(fmt.Sprintf(
				"Identifier '%s' resolve into list node and list node projection names are not initialized. In scope %s",
				id.FullName(), s.description()))
		}
		return list, listNames, nil
	}
	return resolved, nil, nil
}

func isCTE(n querytree.Node) bool {
	switch n := n.(type) {
	case *querytree.QueryNode:
		return n.IsCTE
	case *querytree.UnionNode:
		return n.IsCTE
	}
	return false
}

// resolveCTEReference resolves a copy of the CTE. The CTE cannot refer to
// itself while it is resolved.
func (qa *queryAnalyzer) resolveCTEReference(cte querytree.Node, s *scope) (querytree.Node, error) {
	copied := querytree.Clone(cte)
	name := ""
	switch c := copied.(type) {
	case *querytree.QueryNode:
		c.IsCTE = false
		name = c.CTEName
	case *querytree.UnionNode:
		c.IsCTE = false
		name = c.CTEName
	}

	sub := qa.newScope(copied, s)
	sub.subqueryDepth = s.subqueryDepth + 1

	wasInResolve := qa.ctesInResolve[name]
	qa.ctesInResolve[name] = true
	defer func() {
		if !wasInResolve {
			delete(qa.ctesInResolve, name)
		}
	}()

	var err error
	if q, ok := copied.(*querytree.QueryNode); ok {
		err = qa.resolveQuery(q, sub)
	} else {
		err = qa.resolveUnion(copied.(*querytree.UnionNode), sub)
	}
	return copied, err
}

func appendUnique(names []string, more ...string) []string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range more {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}

// resolveExpressionNodeList resolves each node of the list in the slot.
// Nodes that resolve to lists, like matchers, are flattened into the list.
func (qa *queryAnalyzer) resolveExpressionNodeList(slot *querytree.Node, s *scope, allowLambda, allowTable bool) ([]string, error) {
	list, ok := (*slot).(*querytree.ListNode)
	if !ok {
		return nil, sql.ErrLogical.New("expected list node, got " + querytree.String(*slot))
	}

	var result []querytree.Node
	var names []string
	for _, n := range list.Nodes {
		toResolve := n
		nodeNames, err := qa.resolveExpressionNode(&toResolve, s, allowLambda, allowTable, false)
		if err != nil {
			return nil, err
		}
		expected := 1
		if l, ok := toResolve.(*querytree.ListNode); ok {
			expected = l.Len()
			result = append(result, l.Nodes...)
		} else {
			result = append(result, toResolve)
		}
		if len(nodeNames) != expected {
			return nil, sql.ErrLogical.New(fmt.Sprintf(
				"Expression nodes list expected %d projection names. Actual: %d", expected, len(nodeNames)))
		}
		names = append(names, nodeNames...)
	}
	list.Nodes = result
	return names, nil
}

// resolveProjectionExpressionNodeList resolves the projection and returns
// its columns.
func (qa *queryAnalyzer) resolveProjectionExpressionNodeList(slot *querytree.Node, s *scope) ([]querytree.NameAndType, error) {
	names, err := qa.resolveExpressionNodeList(slot, s, false, false)
	if err != nil {
		return nil, err
	}
	nodes := querytree.AsList(*slot).Nodes
	columns := make([]querytree.NameAndType, len(nodes))
	for i, n := range nodes {
		switch n.(type) {
		case *querytree.ConstantNode, *querytree.FunctionNode, *querytree.ColumnNode,
			*querytree.QueryNode, *querytree.UnionNode:
		default:
			return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
				"Projection node must be constant, function, column, query or union")
		}
		columns[i] = querytree.NameAndType{Name: names[i], Type: querytree.ResultType(n)}
	}
	return columns, nil
}

// resolveSortNodeList resolves ORDER BY elements and their WITH FILL
// expressions.
func (qa *queryAnalyzer) resolveSortNodeList(slot *querytree.Node, s *scope) ([]string, error) {
	var result []string
	for _, n := range querytree.AsList(*slot).Nodes {
		sortNode, ok := n.(*querytree.SortNode)
		if !ok {
			return nil, sql.ErrLogical.New("expected sort node, got " + querytree.String(n))
		}

		exprNames, err := qa.resolveExpressionNode(&sortNode.Expression, s, false, false, false)
		if err != nil {
			return nil, err
		}
		if l, ok := sortNode.Expression.(*querytree.ListNode); ok {
			if l.Len() != 1 {
				return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
					"Sort column node expression resolved into list with size %d. Expected 1. In scope %s",
					l.Len(), s.description())
			}
			sortNode.Expression = l.Nodes[0]
		}
		if len(exprNames) != 1 {
			return nil, sql.ErrLogical.New(fmt.Sprintf(
				"Sort expression expected 1 projection name. Actual: %d", len(exprNames)))
		}

		fillFrom, err := qa.resolveFillExpression(&sortNode.FillFrom, "FROM", s)
		if err != nil {
			return nil, err
		}
		fillTo, err := qa.resolveFillExpression(&sortNode.FillTo, "TO", s)
		if err != nil {
			return nil, err
		}
		fillStep, err := qa.resolveFillExpression(&sortNode.FillStep, "STEP", s)
		if err != nil {
			return nil, err
		}
		result = append(result, sortColumnProjectionName(sortNode, exprNames[0], fillFrom, fillTo, fillStep))
	}
	return result, nil
}

func (qa *queryAnalyzer) resolveFillExpression(slot *querytree.Node, part string, s *scope) (string, error) {
	if *slot == nil {
		return "", nil
	}
	names, err := qa.resolveExpressionNode(slot, s, false, false, false)
	if err != nil {
		return "", err
	}
	c, ok := (*slot).(*querytree.ConstantNode)
	if !ok || !(sql.IsNumber(sql.RemoveNullable(c.Type)) || sql.IsDateOrDateTime(c.Type)) {
		return "", sql.NewErr(sql.ErrIllegalArgument,
			"Sort FILL %s expression must be constant with numeric type. Actual: %s. In scope %s",
			part, querytree.String(*slot), s.description())
	}
	if len(names) != 1 {
		return "", sql.ErrLogical.New(fmt.Sprintf(
			"Sort FILL %s expression expected 1 projection name. Actual: %d", part, len(names)))
	}
	return names[0], nil
}

func sortColumnProjectionName(n *querytree.SortNode, expr, fillFrom, fillTo, fillStep string) string {
	var sb strings.Builder
	sb.WriteString(expr)
	sb.WriteString(" ")
	sb.WriteString(n.Direction.String())
	switch n.Nulls {
	case querytree.NullsFirst:
		sb.WriteString(" NULLS FIRST")
	case querytree.NullsLast:
		sb.WriteString(" NULLS LAST")
	}
	if n.Collation != "" {
		sb.WriteString(" COLLATE ")
		sb.WriteString(n.Collation)
	}
	if n.WithFill {
		sb.WriteString(" WITH FILL")
		if n.FillFrom != nil {
			sb.WriteString(" FROM " + fillFrom)
		}
		if n.FillTo != nil {
			sb.WriteString(" TO " + fillTo)
		}
		if n.FillStep != nil {
			sb.WriteString(" STEP " + fillStep)
		}
	}
	return sb.String()
}

// resolveInterpolateColumnsNodeList resolves INTERPOLATE elements. Inside
// the interpolate expression, the name of a constant column refers to the
// column itself.
func (qa *queryAnalyzer) resolveInterpolateColumnsNodeList(slot *querytree.Node, s *scope) error {
	for _, n := range querytree.AsList(*slot).Nodes {
		in, ok := n.(*querytree.InterpolateNode)
		if !ok {
			return sql.ErrLogical.New("expected interpolate node, got " + querytree.String(n))
		}
		name := querytree.String(in.Expression)
		if id, ok := in.Expression.(*querytree.IdentifierNode); ok {
			name = id.Identifier.FullName()
		}

		if _, err := qa.resolveExpressionNode(&in.Expression, s, false, false, false); err != nil {
			return err
		}
		_, isConstant := in.Expression.(*querytree.ConstantNode)

		if in.InterpolateExpression == nil {
			continue
		}
		sub := qa.newScope(in.InterpolateExpression, s)
		if isConstant {
			sub.expressionArguments[name] = querytree.NewColumnNode(name, querytree.ResultType(in.Expression), in)
		}
		if _, err := qa.resolveExpressionNode(&in.InterpolateExpression, sub, false, false, false); err != nil {
			return err
		}
	}
	return nil
}

// resolveWindowNodeList resolves the windows of the WINDOW section.
func (qa *queryAnalyzer) resolveWindowNodeList(slot *querytree.Node, s *scope) error {
	list := querytree.AsList(*slot)
	for i := range list.Nodes {
		if _, err := qa.resolveWindow(&list.Nodes[i], s); err != nil {
			return err
		}
	}
	return nil
}

// cloneResolved clones the tree and marks the copies of resolved nodes as
// resolved, with the same projection names.
func (qa *queryAnalyzer) cloneResolved(n querytree.Node) querytree.Node {
	if n == nil {
		return nil
	}
	copied := querytree.Clone(n)
	qa.copyResolvedState(n, copied)
	return copied
}

func (qa *queryAnalyzer) copyResolvedState(original, copied querytree.Node) {
	if names, ok := qa.resolvedExpressions[original]; ok {
		qa.resolvedExpressions[copied] = names
	}
	if name, ok := qa.nodeToProjectionName[original]; ok {
		qa.nodeToProjectionName[copied] = name
	}
	oc, cc := querytree.Children(original), querytree.Children(copied)
	for i := range oc {
		if i < len(cc) {
			qa.copyResolvedState(*oc[i], *cc[i])
		}
	}
}

// validateTreeSize checks the size of the expression against
// max_expanded_ast_elements.
func (qa *queryAnalyzer) validateTreeSize(n querytree.Node, s *scope) error {
	limit := s.settings.MaxExpandedASTElements
	if limit == 0 || n == nil {
		return nil
	}
	if size := qa.treeSize(n); uint64(size) > limit {
		return sql.NewErr(sql.ErrTooDeep,
			"Size of expanded expression %s exceeded limit %d. Actual: %d. In scope %s",
			querytree.String(n), limit, size, s.description())
	}
	return nil
}

func (qa *queryAnalyzer) treeSize(n querytree.Node) int {
	if size, ok := qa.treeSizes[n]; ok {
		return size
	}
	size := 1
	for _, c := range querytree.Children(n) {
		size += qa.treeSize(*c)
	}
	qa.treeSizes[n] = size
	return size
}

// inAggregateFunctionScope returns whether an aggregate function is being
// resolved in the scope or its parents, up to the query scope.
func (qa *queryAnalyzer) inAggregateFunctionScope(s *scope) bool {
	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		if cur.expressions.hasAggregateFunction() {
			return true
		}
		if cur.isQuery() {
			break
		}
	}
	return false
}

// nullableGroupByKey returns the nullable GROUP BY key equal to n, if any.
func (qa *queryAnalyzer) nullableGroupByKey(n querytree.Node, s *scope) querytree.Node {
	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		for _, key := range cur.nullableGroupByKeys {
			if querytree.EqualIgnoringAliases(key, n) {
				return key
			}
		}
		if cur.isQuery() {
			break
		}
	}
	return nil
}

// convertToNullable makes the result type of the expression Nullable.
func convertToNullable(n querytree.Node) querytree.Node {
	switch n := n.(type) {
	case *querytree.ColumnNode:
		if sql.CanBeInsideNullable(n.Type) {
			n.Type = sql.MakeNullable(n.Type)
		}
	case *querytree.FunctionNode:
		if t := n.ResultType(); t != nil && sql.CanBeInsideNullable(t) {
			n.SetResultType(sql.MakeNullable(t))
		}
	case *querytree.ConstantNode:
		if sql.CanBeInsideNullable(n.Type) {
			n.Type = sql.MakeNullable(n.Type)
		}
	}
	return n
}
