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
	"sort"
	"strings"

	"github.com/dolthub/go-query-analyzer/internal/similartext"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// tryResolveIdentifier resolves an identifier in scope. Places are checked in
// this order: expression arguments, aliases and join tree (the order of these
// two depends on prefer_column_name_to_alias), CTEs, parent scopes and the
// database catalog.
//
// An identifier that cannot be found is not an error: the result is empty
// and the caller decides whether to look it up in another context.
func (qa *queryAnalyzer) tryResolveIdentifier(lookup identifierLookup, s *scope, rctx identifierResolveContext) (identifierResolveResult, error) {
	key := lookup.String()
	alreadyInResolve := s.lookupsInProcess[key] > 0
	s.lookupsInProcess[key]++
	defer func() {
		s.lookupsInProcess[key]--
		if s.lookupsInProcess[key] <= 0 {
			delete(s.lookupsInProcess, key)
		}
	}()

	result, err := qa.tryResolveIdentifierFromExpressionArguments(lookup, s)
	if err != nil {
		return identifierResolveResult{}, err
	}

	if !result.resolved() {
		prefer := s.settings.PreferColumnNameToAlias
		if lookup.isExpressionLookup() && isArrayJoinAlias(s, lookup) {
			// ARRAY JOIN aliases lose against join tree columns, so that
			// USING columns with the same name win.
			prefer = true
		}

		if prefer {
			if rctx.allowJoinTree {
				if result, err = qa.tryResolveIdentifierFromJoinTree(lookup, s); err != nil {
					return identifierResolveResult{}, err
				}
			}
			if !result.resolved() && rctx.allowAliases && !alreadyInResolve {
				if result, err = qa.tryResolveIdentifierFromAliases(lookup, s, rctx); err != nil {
					return identifierResolveResult{}, err
				}
			}
		} else {
			if rctx.allowAliases && !alreadyInResolve {
				if result, err = qa.tryResolveIdentifierFromAliases(lookup, s, rctx); err != nil {
					return identifierResolveResult{}, err
				}
			}
			if !result.resolved() && rctx.allowJoinTree {
				if result, err = qa.tryResolveIdentifierFromJoinTree(lookup, s); err != nil {
					return identifierResolveResult{}, err
				}
			}
		}

		if result.place == placeJoinTree {
			if c, ok := result.node.(*querytree.ColumnNode); ok && hasComputedExpression(c) {
				if _, err := qa.resolveExpressionNode(&c.Expression, s, false, false, false); err != nil {
					return identifierResolveResult{}, err
				}
				if err := qa.correctColumnExpressionType(c, s); err != nil {
					return identifierResolveResult{}, err
				}
			}
		}
	}

	if !result.resolved() && rctx.allowCTE && lookup.isTableLookup() {
		name := lookup.identifier.FullName()
		// A CTE cannot refer to itself: inside its own definition the name
		// binds to a table.
		if cte, ok := s.ctes[name]; ok && !qa.ctesInResolve[name] {
			result = identifierResolveResult{node: cte, place: placeCTE}
		}
	}

	if !result.resolved() {
		if result, err = qa.tryResolveIdentifierInParentScopes(lookup, s, rctx); err != nil {
			return identifierResolveResult{}, err
		}
	}

	if !result.resolved() && rctx.allowDatabaseCatalog && lookup.isTableLookup() {
		if result, err = qa.tryResolveTableIdentifierFromDatabaseCatalog(lookup.identifier); err != nil {
			return identifierResolveResult{}, err
		}
	}

	return result, nil
}

func isArrayJoinAlias(s *scope, lookup identifierLookup) bool {
	n, ok := s.aliases.find(lookup, true)
	if !ok {
		return false
	}
	c, ok := n.(*querytree.ColumnNode)
	if !ok {
		return false
	}
	_, ok = c.Source.(*querytree.ArrayJoinNode)
	return ok
}

// hasComputedExpression returns whether the column is computed from an
// expression of its table, like ALIAS columns. USING and ARRAY JOIN columns
// also carry expressions, but they are not computed.
func hasComputedExpression(c *querytree.ColumnNode) bool {
	if c.Expression == nil {
		return false
	}
	if _, ok := c.Expression.(*querytree.ListNode); ok {
		return false
	}
	switch c.Source.(type) {
	case *querytree.ArrayJoinNode, *querytree.JoinNode:
		return false
	}
	return true
}

// correctColumnExpressionType casts the expression of a computed column to
// the column type.
func (qa *queryAnalyzer) correctColumnExpressionType(c *querytree.ColumnNode, s *scope) error {
	if !hasComputedExpression(c) {
		return nil
	}
	t := querytree.ResultType(c.Expression)
	if t == nil || c.Type == nil || c.Type.Equals(t) {
		return nil
	}
	cast, err := qa.buildCast(c.Expression, c.Type, s)
	if err != nil {
		return err
	}
	c.Expression = cast
	return nil
}

func (qa *queryAnalyzer) tryResolveIdentifierFromExpressionArguments(lookup identifierLookup, s *scope) (identifierResolveResult, error) {
	id := lookup.identifier
	n, ok := s.expressionArguments[id.FullName()]
	resolvedFullName := ok
	if !ok {
		if n, ok = s.expressionArguments[id.Front()]; !ok {
			return identifierResolveResult{}, nil
		}
	}

	switch lookup.context {
	case expressionLookup:
		switch n.(type) {
		case *querytree.ConstantNode, *querytree.ColumnNode, *querytree.FunctionNode,
			*querytree.QueryNode, *querytree.UnionNode, *querytree.TableNode:
		default:
			return identifierResolveResult{}, nil
		}
	case functionLookup:
		if _, ok := n.(*querytree.LambdaNode); !ok {
			return identifierResolveResult{}, nil
		}
	case tableExpressionLookup:
		switch n.(type) {
		case *querytree.TableNode, *querytree.TableFunctionNode, *querytree.QueryNode, *querytree.UnionNode:
		default:
			return identifierResolveResult{}, nil
		}
	}

	if !resolvedFullName && id.IsCompound() && lookup.isExpressionLookup() {
		r, err := qa.tryResolveIdentifierFromCompoundExpression(id, 1, n, "", s, false)
		if err != nil || r == nil {
			return identifierResolveResult{}, err
		}
		return identifierResolveResult{node: r, place: placeExpressionArguments}, nil
	}
	return identifierResolveResult{node: n, place: placeExpressionArguments}, nil
}

// tryResolveIdentifierFromAliases binds the first part of the identifier to
// an alias of the scope and resolves the aliased expression in the scope
// alias expressions are resolved in.
func (qa *queryAnalyzer) tryResolveIdentifierFromAliases(lookup identifierLookup, s *scope, rctx identifierResolveContext) (identifierResolveResult, error) {
	id := lookup.identifier
	aliasNode, ok := s.aliases.find(lookup, false)
	if !ok {
		return identifierResolveResult{}, nil
	}
	if aliasNode == nil {
		return identifierResolveResult{}, sql.ErrLogical.New("node with alias " + id.Front() +
			" is not valid. In scope " + s.description())
	}

	resolveScope := s
	if rctx.scopeToResolveAliasExpression != nil {
		resolveScope = rctx.scopeToResolveAliasExpression
	}

	if !lookup.isTableLookup() {
		aliasNode = qa.cloneResolved(aliasNode)
		resolveScope.aliases.nodeToRemoveAliases = append(resolveScope.aliases.nodeToRemoveAliases, aliasNode)
	}

	// SELECT dummy + 1 AS dummy: the alias cannot be used inside the
	// expression it names.
	if s.expressions.expressionWithAlias(id.Front()) != nil {
		return identifierResolveResult{}, nil
	}

	switch n := aliasNode.(type) {
	case *querytree.IdentifierNode:
		if s.expressions.expressionWithAlias(n.Identifier.Front()) != nil && n.Identifier.Front() != id.Front() {
			return identifierResolveResult{}, sql.NewErr(sql.ErrRecursionDetected,
				"Cyclic aliases for identifier '%s'. In scope %s", id.FullName(), s.description())
		}

		resolveScope.pushExpression(aliasNode)
		r, err := qa.tryResolveIdentifier(newLookup(n.Identifier, lookup.context), resolveScope, rctx)
		resolveScope.popExpression()
		if err != nil {
			return identifierResolveResult{}, err
		}
		if !r.resolved() {
			return identifierResolveResult{}, nil
		}
		aliasNode = r.node
	case *querytree.FunctionNode:
		slot := aliasNode
		if _, err := qa.resolveExpressionNode(&slot, resolveScope, false, false, false); err != nil {
			return identifierResolveResult{}, err
		}
		if slot != aliasNode {
			resolveScope.aliases.nodeToRemoveAliases = append(resolveScope.aliases.nodeToRemoveAliases, slot)
		}
		aliasNode = slot
	case *querytree.QueryNode, *querytree.UnionNode:
		if rctx.allowSubqueryResolution {
			slot := aliasNode
			if _, err := qa.resolveExpressionNode(&slot, resolveScope, false, lookup.isTableLookup(), false); err != nil {
				return identifierResolveResult{}, err
			}
			if slot != aliasNode {
				resolveScope.aliases.nodeToRemoveAliases = append(resolveScope.aliases.nodeToRemoveAliases, slot)
			}
			aliasNode = slot
		}
	}

	if id.IsCompound() && aliasNode != nil {
		switch lookup.context {
		case expressionLookup:
			r, err := qa.tryResolveIdentifierFromCompoundExpression(id, 1, aliasNode, "", s, rctx.allowJoinTree)
			if err != nil || r == nil {
				return identifierResolveResult{}, err
			}
			return identifierResolveResult{node: r, place: placeAliases}, nil
		case functionLookup:
			return identifierResolveResult{}, sql.NewErr(sql.ErrUnknownIdentifier,
				"Compound identifier '%s' cannot be resolved as function. In scope %s", id.FullName(), s.description())
		default:
			return identifierResolveResult{}, sql.NewErr(sql.ErrUnknownIdentifier,
				"Compound identifier '%s' cannot be resolved as table expression. In scope %s", id.FullName(), s.description())
		}
	}

	return identifierResolveResult{node: aliasNode, place: placeAliases}, nil
}

// tryResolveIdentifierInParentScopes resolves the identifier in the parent
// scope. Expressions found there are resolved in the context of the initial
// scope.
func (qa *queryAnalyzer) tryResolveIdentifierInParentScopes(lookup identifierLookup, s *scope, rctx identifierResolveContext) (identifierResolveResult, error) {
	parent := qa.parentScope(s)
	if parent == nil {
		return identifierResolveResult{}, nil
	}

	initialIsQuery := s.isQuery()
	rctx = rctx.resolveAliasesAt(s)

	if initialIsQuery {
		// Outer table expressions can only be reached as CTEs from a
		// subquery.
		if lookup.isTableLookup() {
			rctx.allowJoinTree = false
			rctx.allowAliases = false
		}
		if !s.settings.EnableGlobalWithStatement {
			rctx.allowAliases = false
			rctx.allowCTE = false
		}
	}
	rctx.allowDatabaseCatalog = false

	result, err := qa.tryResolveIdentifier(lookup, parent, rctx)
	if err != nil || !result.resolved() {
		return identifierResolveResult{}, err
	}

	switch lookup.context {
	case tableExpressionLookup:
		isCTE := false
		switch n := result.node.(type) {
		case *querytree.QueryNode:
			isCTE = n.IsCTE
		case *querytree.UnionNode:
			isCTE = n.IsCTE
		}
		_, isTable := result.node.(*querytree.TableNode)
		fromArguments := result.place == placeExpressionArguments && isTable
		fromJoinTreeOrAliases := !initialIsQuery && (result.place == placeJoinTree || result.place == placeAliases)
		if !isCTE && !fromArguments && !fromJoinTreeOrAliases {
			return identifierResolveResult{}, nil
		}
		return result, nil
	case functionLookup:
		return result, nil
	}

	correlated := qa.collectCorrelatedColumns(result.node, s)
	if len(correlated) == 0 {
		return result, nil
	}
	if !s.settings.AllowExperimentalCorrelatedSubqueries {
		names := make([]string, len(correlated))
		for i, c := range correlated {
			names[i] = c.Name
		}
		return identifierResolveResult{}, sql.NewErr(sql.ErrUnsupportedConstruct,
			"Resolved identifier '%s' in parent scope to expression '%s' with correlated column '%s'"+
				" (Enable 'allow_experimental_correlated_subqueries' setting to allow correlated subqueries execution). In scope %s",
			lookup.identifier.FullName(), querytree.String(result.node), strings.Join(names, "', '"), s.description())
	}

	owner := qa.correlationOwner(s)
	switch n := owner.(type) {
	case *querytree.QueryNode:
		for _, c := range correlated {
			n.AddCorrelatedColumn(c)
		}
	case *querytree.UnionNode:
		list := querytree.AsList(n.CorrelatedColumns)
		for _, c := range correlated {
			found := false
			for _, e := range list.Nodes {
				if e == querytree.Node(c) {
					found = true
					break
				}
			}
			if !found {
				list.Append(c)
			}
		}
		n.CorrelatedColumns = list
	}
	return result, nil
}

// correlationOwner returns the query or union the scope belongs to.
func (qa *queryAnalyzer) correlationOwner(s *scope) querytree.Node {
	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		switch cur.node.(type) {
		case *querytree.QueryNode, *querytree.UnionNode:
			return cur.node
		}
	}
	return nil
}

// localColumnSources returns the table expressions columns of scope s can
// use without correlation: the join tree of its query, and the table
// expressions of the scopes between s and that query.
func (qa *queryAnalyzer) localColumnSources(s *scope) map[querytree.Node]bool {
	local := make(map[querytree.Node]bool)
	addJoinTree := func(joinTree querytree.Node) {
		querytree.Inspect(joinTree, func(n querytree.Node) bool {
			switch n.(type) {
			case *querytree.QueryNode, *querytree.UnionNode:
				local[n] = true
				return false
			case *querytree.TableNode, *querytree.TableFunctionNode, *querytree.JoinNode,
				*querytree.CrossJoinNode, *querytree.ArrayJoinNode:
				local[n] = true
			}
			return true
		})
	}

	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		for n := range cur.tableExpressionData {
			local[n] = true
		}
		if cur.expressionJoinTree != nil {
			addJoinTree(cur.expressionJoinTree)
		}
		switch n := cur.node.(type) {
		case *querytree.QueryNode:
			addJoinTree(n.JoinTree)
			return local
		case *querytree.UnionNode:
			return local
		}
	}
	return local
}

// collectCorrelatedColumns returns the columns of n whose table expression
// is not local to scope s.
func (qa *queryAnalyzer) collectCorrelatedColumns(n querytree.Node, s *scope) []*querytree.ColumnNode {
	local := qa.localColumnSources(s)
	var result []*querytree.ColumnNode
	querytree.InspectExpression(n, func(c querytree.Node) bool {
		col, ok := c.(*querytree.ColumnNode)
		if !ok || col.Source == nil {
			return true
		}
		if _, ok := col.Source.(*querytree.LambdaNode); ok {
			return true
		}
		if !local[col.Source] {
			result = append(result, col)
		}
		return true
	})
	return result
}

// tryResolveIdentifierFromTableColumns binds identifiers inside ALIAS
// column expressions to the other columns of the table.
func (qa *queryAnalyzer) tryResolveIdentifierFromTableColumns(lookup identifierLookup, s *scope) (identifierResolveResult, error) {
	if s.aliasColumns == nil || !lookup.isExpressionLookup() {
		return identifierResolveResult{}, nil
	}
	id := lookup.identifier
	if c, ok := s.aliasColumns[id.FullName()]; ok {
		return identifierResolveResult{node: c, place: placeJoinTree}, nil
	}
	c, ok := s.aliasColumns[id.Front()]
	if !ok {
		return identifierResolveResult{}, nil
	}
	if id.IsCompound() {
		r, err := qa.tryResolveIdentifierFromCompoundExpression(id, 1, c, "", s, false)
		if err != nil || r == nil {
			return identifierResolveResult{}, err
		}
		return identifierResolveResult{node: r, place: placeJoinTree}, nil
	}
	return identifierResolveResult{node: c, place: placeJoinTree}, nil
}

func (qa *queryAnalyzer) tryResolveIdentifierFromJoinTree(lookup identifierLookup, s *scope) (identifierResolveResult, error) {
	if lookup.isFunctionLookup() {
		return identifierResolveResult{}, nil
	}

	result, err := qa.tryResolveIdentifierFromTableColumns(lookup, s)
	if err != nil || result.resolved() {
		return result, err
	}

	joinTree := s.expressionJoinTree
	if joinTree == nil {
		q, ok := s.node.(*querytree.QueryNode)
		if !ok || q.JoinTree == nil {
			return identifierResolveResult{}, nil
		}
		joinTree = q.JoinTree
	}

	n, err := qa.tryResolveIdentifierFromJoinTreeNode(lookup, joinTree, s)
	if err != nil || n == nil {
		return identifierResolveResult{}, err
	}
	return identifierResolveResult{node: n, place: placeJoinTree}, nil
}

func (qa *queryAnalyzer) tryResolveIdentifierFromJoinTreeNode(lookup identifierLookup, n querytree.Node, s *scope) (querytree.Node, error) {
	switch n := n.(type) {
	case *querytree.JoinNode:
		return qa.tryResolveIdentifierFromJoin(lookup, n, s)
	case *querytree.CrossJoinNode:
		return qa.tryResolveIdentifierFromCrossJoin(lookup, n, s)
	case *querytree.ArrayJoinNode:
		return qa.tryResolveIdentifierFromArrayJoin(lookup, n, s)
	case *querytree.QueryNode, *querytree.UnionNode, *querytree.TableNode, *querytree.TableFunctionNode:
		// Columns of a table expression are not visible while its own
		// expressions, like table function arguments, are resolved.
		if s.tableExpressionsInResolve[n] {
			return nil, nil
		}
		return qa.tryResolveIdentifierFromTableExpression(lookup, n, s)
	}
	return nil, sql.ErrLogical.New("scope FROM section expected table, table function, query, union, join or array join. Actual " +
		querytree.String(n) + ". In scope " + s.description())
}

// tryResolveIdentifierFromTableExpression binds an identifier to a column of
// a table expression: as a column name, as table.column, or as
// database.table.column. For table lookups the identifier must name the
// table expression itself.
func (qa *queryAnalyzer) tryResolveIdentifierFromTableExpression(lookup identifierLookup, te querytree.Node, s *scope) (querytree.Node, error) {
	id := lookup.identifier
	data, err := s.data(te)
	if err != nil {
		return nil, err
	}

	if lookup.isTableLookup() {
		if id.Size() != 1 && id.Size() != 2 {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Expected identifier '%s' to contain 1 or 2 parts to be resolved as table expression. In scope %s",
				id.FullName(), s.description())
		}
		if id.Size() == 1 && (id.Front() == data.tableName || id.Front() == te.Alias()) {
			return te, nil
		}
		if id.Size() == 2 && id.At(0) == data.databaseName && id.At(1) == data.tableName {
			return te, nil
		}
		return nil, nil
	}

	if data.hasFullIdentifierName(id) {
		return qa.tryResolveIdentifierFromStorage(id, te, data, s, 0, false)
	}
	if data.canBindIdentifier(id) {
		r, err := qa.tryResolveIdentifierFromStorage(id, te, data, s, 0, true)
		if err != nil || r != nil {
			return r, err
		}
	}
	if id.Size() == 1 {
		return nil, nil
	}

	if (data.tableName != "" && id.Front() == data.tableName) || (te.HasAlias() && id.Front() == te.Alias()) {
		return qa.tryResolveIdentifierFromStorage(id, te, data, s, 1, false)
	}
	if id.Size() == 2 {
		return nil, nil
	}
	if id.At(0) == data.databaseName && id.At(1) == data.tableName {
		return qa.tryResolveIdentifierFromStorage(id, te, data, s, 2, false)
	}
	return nil, nil
}

// tryResolveIdentifierFromStorage binds the identifier without its first
// qualifierParts parts to a column of the table expression.
func (qa *queryAnalyzer) tryResolveIdentifierFromStorage(
	id querytree.Identifier,
	te querytree.Node,
	data *tableExpressionData,
	s *scope,
	qualifierParts int,
	canBeNotFound bool,
) (querytree.Node, error) {
	columnID := id.PopFirst(qualifierParts)
	if columnID.IsEmpty() {
		return nil, nil
	}

	var result querytree.Node
	cloneNeeded := true
	if c, ok := data.columns[columnID.FullName()]; ok {
		result = c
	} else if c, ok := data.columns[columnID.Front()]; ok {
		if columnID.IsCompound() {
			r, err := qa.tryResolveIdentifierFromCompoundExpression(id, qualifierParts+1, c, data.source(), s, canBeNotFound)
			if err != nil {
				return nil, err
			}
			result = r
			cloneNeeded = false
		} else {
			result = c
		}
	} else {
		// a.b.c where a.b is a dotted column name
		for size := columnID.Size() - 1; size > 1 && result == nil; size-- {
			prefix := querytree.NewIdentifier(columnID.Parts()[:size]...)
			if c, ok := data.columns[prefix.FullName()]; ok {
				r, err := qa.tryResolveIdentifierFromCompoundExpression(id, qualifierParts+size, c, data.source(), s, canBeNotFound)
				if err != nil {
					return nil, err
				}
				result = r
				cloneNeeded = false
			}
		}
	}

	if result == nil {
		if canBeNotFound {
			return nil, nil
		}
		return nil, sql.NewErr(sql.ErrUnknownIdentifier,
			"Identifier '%s' cannot be resolved from %s. In scope %s%s",
			id.FullName(), data.source(), s.description(),
			hintsSuffix(similartext.Closest(data.columnNames, columnID.FullName())))
	}
	if cloneNeeded {
		result = querytree.Clone(result)
	}

	// The projection name is qualified just enough to bind to this table
	// expression only.
	qualified := id
	for qualified.Size() > columnID.Size() {
		shorter := qualified.PopFirst(1)
		if qa.tryBindIdentifierToAliases(shorter, s) {
			break
		}
		if data.shouldQualifyColumns && qa.tryBindIdentifierToTableExpressions(shorter, te, s) {
			break
		}
		qualified = shorter
	}
	qa.nodeToProjectionName[result] = qualified.FullName()
	return result, nil
}

func (qa *queryAnalyzer) tryBindIdentifierToAliases(id querytree.Identifier, s *scope) bool {
	if id.IsEmpty() {
		return false
	}
	if _, ok := s.aliases.find(newLookup(id, expressionLookup), false); ok {
		return true
	}
	_, ok := s.aliases.arrayJoinAliases[id.Front()]
	return ok
}

// tryBindIdentifierToTableExpressions returns whether the identifier binds
// to a table expression of the scope other than te.
func (qa *queryAnalyzer) tryBindIdentifierToTableExpressions(id querytree.Identifier, te querytree.Node, s *scope) bool {
	for n, data := range s.tableExpressionData {
		if n == te {
			continue
		}
		if tryBindIdentifierToTableExpression(id, n, data) {
			return true
		}
	}
	return false
}

func tryBindIdentifierToTableExpression(id querytree.Identifier, te querytree.Node, data *tableExpressionData) bool {
	if id.IsEmpty() {
		return false
	}
	if data.hasFullIdentifierName(id) || data.canBindIdentifier(id) {
		return true
	}
	if id.Size() == 1 {
		return false
	}
	rest := id.PopFirst(1)
	if id.Front() == data.tableName || id.Front() == te.Alias() {
		if data.hasFullIdentifierName(rest) || data.canBindIdentifier(rest) {
			return true
		}
	}
	if id.Size() == 2 {
		return false
	}
	if id.At(0) == data.databaseName && id.At(1) == data.tableName {
		rest = id.PopFirst(2)
		return data.hasFullIdentifierName(rest) || data.canBindIdentifier(rest)
	}
	return false
}

// tryResolveIdentifierFromCompoundExpression binds the parts of the
// identifier after the first bindSize ones to a subcolumn of expr.
func (qa *queryAnalyzer) tryResolveIdentifierFromCompoundExpression(
	id querytree.Identifier,
	bindSize int,
	expr querytree.Node,
	source string,
	s *scope,
	canBeNotFound bool,
) (querytree.Node, error) {
	path := id.PopFirst(bindSize)
	t := querytree.ResultType(expr)
	if t == nil {
		if canBeNotFound {
			return nil, nil
		}
		return nil, sql.NewErr(sql.ErrUnknownIdentifier,
			"Identifier %s nested path %s cannot be resolved from expression %s. In scope %s",
			id.FullName(), path.FullName(), querytree.String(expr), s.description())
	}
	if _, ok := sql.Subcolumn(t, path.FullName()); !ok {
		if canBeNotFound {
			return nil, nil
		}
		from := "type " + t.Name()
		if source != "" {
			from = source + " of " + from
		}
		return nil, sql.NewErr(sql.ErrUnknownIdentifier,
			"Identifier %s nested path %s cannot be resolved from %s. In scope %s%s",
			id.FullName(), path.FullName(), from, s.description(), hintsSuffix(subcolumnHints(t, path)))
	}

	return qa.buildFunction(s, "getSubcolumn", expr, querytree.NewConstantNode(path.FullName()))
}

// subcolumnHints returns the tuple element names close to the path.
func subcolumnHints(t sql.Type, path querytree.Identifier) []string {
	tt, ok := sql.RemoveNullable(t).(sql.TupleType)
	if !ok || path.IsEmpty() {
		return nil
	}
	return similartext.Closest(tt.ElementNames(), path.Front())
}

// usingColumns maps USING column names to the USING column nodes.
func usingColumns(j *querytree.JoinNode) map[string]*querytree.ColumnNode {
	result := make(map[string]*querytree.ColumnNode)
	if !j.IsUsingJoin() {
		return result
	}
	for _, n := range j.UsingList().Nodes {
		if c, ok := n.(*querytree.ColumnNode); ok {
			result[c.Name] = c
		}
	}
	return result
}

// sameJoinColumn compares columns resolved from two join sides ignoring
// their types, which USING and join_use_nulls may have changed.
func (s *scope) sameJoinColumn(a, b querytree.Node) bool {
	if orig, ok := s.joinColumnsWithChangedTypes[a]; ok {
		a = orig
	}
	if orig, ok := s.joinColumnsWithChangedTypes[b]; ok {
		b = orig
	}
	ca, okA := a.(*querytree.ColumnNode)
	cb, okB := b.(*querytree.ColumnNode)
	if okA && okB {
		return ca.Name == cb.Name && ca.Source == cb.Source
	}
	return querytree.EqualIgnoringAliases(a, b)
}

type joinSide int

const (
	noSide joinSide = iota
	leftSide
	rightSide
)

func (qa *queryAnalyzer) tryResolveIdentifierFromJoin(lookup identifierLookup, j *querytree.JoinNode, s *scope) (querytree.Node, error) {
	left, err := qa.tryResolveIdentifierFromJoinTreeNode(lookup, j.Left, s)
	if err != nil {
		return nil, err
	}
	right, err := qa.tryResolveIdentifierFromJoinTreeNode(lookup, j.Right, s)
	if err != nil {
		return nil, err
	}

	id := lookup.identifier
	if !lookup.isExpressionLookup() {
		if left != nil && right != nil {
			return nil, sql.NewErr(sql.ErrAmbiguousIdentifier,
				"JOIN %s ambiguous identifier '%s'. In scope %s", querytree.String(j), id.FullName(), s.description())
		}
		if left != nil {
			return left, nil
		}
		return right, nil
	}

	var using map[string]*querytree.ColumnNode
	if !s.tableExpressionsInResolve[j] {
		using = usingColumns(j)
	}
	usingColumn, isUsing := using[id.FullName()]

	var result querytree.Node
	side := noSide
	switch {
	case left != nil && right != nil && isUsing:
		result, side = qa.usingJoinColumn(j, usingColumn, s)
	case left != nil && right != nil && s.sameJoinColumn(left, right):
		result, side = left, leftSide
	case left != nil && right != nil:
		result, side, err = qa.chooseJoinSide(lookup, j, left, right, s)
		if err != nil {
			return nil, err
		}
	case left != nil:
		result, side = withUsingType(left, usingColumn, s), leftSide
	case right != nil:
		result, side = withUsingType(right, usingColumn, s), rightSide
	default:
		return nil, nil
	}

	if s.joinUseNulls {
		name, hasName := qa.nodeToProjectionName[result]
		if nullable := qa.convertJoinedColumnTypeToNullIfNeeded(result, j.JoinType, side, s); nullable != nil {
			result = nullable
			if hasName {
				qa.nodeToProjectionName[result] = name
			}
		}
	}
	return result, nil
}

// usingJoinColumn returns the column a USING name binds to: the left column,
// or the right one for RIGHT joins, typed with the USING supertype. FULL
// joins bind to the USING column itself.
func (qa *queryAnalyzer) usingJoinColumn(j *querytree.JoinNode, using *querytree.ColumnNode, s *scope) (querytree.Node, joinSide) {
	if j.JoinType == querytree.FullJoin {
		c := querytree.Clone(using).(*querytree.ColumnNode)
		return c, noSide
	}
	sides := querytree.AsList(using.Expression)
	idx, side := 0, leftSide
	if j.JoinType == querytree.RightJoin {
		idx, side = 1, rightSide
	}
	inner := sides.Nodes[idx]
	c, ok := querytree.Clone(inner).(*querytree.ColumnNode)
	if !ok {
		return querytree.Clone(inner), side
	}
	if !c.Type.Equals(using.Type) {
		c.Type = using.Type
		s.joinColumnsWithChangedTypes[c] = inner
	}
	if name, ok := qa.nodeToProjectionName[inner]; ok {
		qa.nodeToProjectionName[c] = name
	}
	return c, side
}

func withUsingType(n querytree.Node, using *querytree.ColumnNode, s *scope) querytree.Node {
	if using == nil {
		return n
	}
	c, ok := n.(*querytree.ColumnNode)
	if !ok || c.Type.Equals(using.Type) {
		return n
	}
	clone := querytree.Clone(c).(*querytree.ColumnNode)
	clone.Type = using.Type
	s.joinColumnsWithChangedTypes[clone] = c
	return clone
}

// chooseJoinSide picks a side when the identifier binds to different
// columns on both sides. A side reached through its table alias wins.
func (qa *queryAnalyzer) chooseJoinSide(lookup identifierLookup, j *querytree.JoinNode, left, right querytree.Node, s *scope) (querytree.Node, joinSide, error) {
	front := lookup.identifier.Front()
	lc, okL := left.(*querytree.ColumnNode)
	rc, okR := right.(*querytree.ColumnNode)
	if okL && okR && lc.Source != nil && rc.Source != nil {
		leftAlias := lc.Source.Alias()
		rightAlias := rc.Source.Alias()
		if leftAlias != front && rightAlias == front {
			return right, rightSide, nil
		}
		if leftAlias != "" && rightAlias == "" && leftAlias != front {
			return right, rightSide, nil
		}
	}
	if s.joinsCount == 1 && s.settings.SingleJoinPreferLeftTable {
		return left, leftSide, nil
	}
	return nil, noSide, sql.NewErr(sql.ErrAmbiguousIdentifier,
		"JOIN %s ambiguous identifier '%s'. In scope %s",
		querytree.String(j), lookup.identifier.FullName(), s.description())
}

// convertJoinedColumnTypeToNullIfNeeded returns a Nullable copy of a column
// coming from the side of an outer join that may produce NULLs, or nil.
func (qa *queryAnalyzer) convertJoinedColumnTypeToNullIfNeeded(n querytree.Node, kind querytree.JoinType, side joinSide, s *scope) querytree.Node {
	c, ok := n.(*querytree.ColumnNode)
	if !ok {
		return nil
	}
	nullableSide := kind == querytree.FullJoin ||
		(kind == querytree.LeftJoin && side == rightSide) ||
		(kind == querytree.RightJoin && side == leftSide)
	if !nullableSide || !sql.CanBeInsideNullable(c.Type) || sql.IsNullable(c.Type) {
		return nil
	}

	clone := querytree.Clone(c).(*querytree.ColumnNode)
	clone.Type = sql.MakeNullable(c.Type)
	if hasComputedExpression(clone) {
		if cast, err := qa.buildCast(clone.Expression, clone.Type, s); err == nil {
			clone.Expression = cast
		}
	}
	original := querytree.Node(c)
	if orig, ok := s.joinColumnsWithChangedTypes[c]; ok {
		original = orig
	}
	s.joinColumnsWithChangedTypes[clone] = original
	return clone
}

func (qa *queryAnalyzer) tryResolveIdentifierFromCrossJoin(lookup identifierLookup, j *querytree.CrossJoinNode, s *scope) (querytree.Node, error) {
	var result querytree.Node
	for _, te := range j.TablesList().Nodes {
		r, err := qa.tryResolveIdentifierFromJoinTreeNode(lookup, te, s)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		if result == nil {
			result = r
			continue
		}
		if lookup.isExpressionLookup() && s.sameJoinColumn(result, r) {
			continue
		}
		if lookup.isExpressionLookup() && s.joinsCount == 1 && s.settings.SingleJoinPreferLeftTable {
			continue
		}
		return nil, sql.NewErr(sql.ErrAmbiguousIdentifier,
			"JOIN %s ambiguous identifier '%s'. In scope %s",
			querytree.String(j), lookup.identifier.FullName(), s.description())
	}
	return result, nil
}

func (qa *queryAnalyzer) tryResolveIdentifierFromArrayJoin(lookup identifierLookup, a *querytree.ArrayJoinNode, s *scope) (querytree.Node, error) {
	result, err := qa.tryResolveIdentifierFromJoinTreeNode(lookup, a.TableExpression, s)
	if err != nil {
		return nil, err
	}
	if s.tableExpressionsInResolve[a] || !lookup.isExpressionLookup() {
		return result, nil
	}

	if result != nil {
		// SELECT arr FROM t ARRAY JOIN arr: the unaliased array join column
		// replaces the array.
		for _, e := range a.JoinExpressionsList().Nodes {
			c, ok := e.(*querytree.ColumnNode)
			if !ok || c.HasAlias() || c.Expression == nil {
				continue
			}
			if querytree.EqualIgnoringAliases(c.Expression, result) {
				column := querytree.NewColumnNode(c.Name, c.Type, c.Source)
				if name, ok := qa.nodeToProjectionName[result]; ok {
					qa.nodeToProjectionName[column] = name
				}
				return column, nil
			}
		}
		return result, nil
	}

	return qa.tryResolveExpressionFromArrayJoinExpressions(lookup.identifier, a, s)
}

// tryResolveExpressionFromArrayJoinExpressions binds the identifier to an
// ARRAY JOIN column by its alias or name, optionally qualified by the ARRAY
// JOIN alias.
func (qa *queryAnalyzer) tryResolveExpressionFromArrayJoinExpressions(id querytree.Identifier, a *querytree.ArrayJoinNode, s *scope) (querytree.Node, error) {
	if a.HasAlias() && id.IsCompound() && id.Front() == a.Alias() {
		id = id.PopFirst(1)
	}
	for _, e := range a.JoinExpressionsList().Nodes {
		c, ok := e.(*querytree.ColumnNode)
		if !ok {
			continue
		}
		name := c.Alias()
		if name == "" {
			name = c.Name
		}

		var rest querytree.Identifier
		switch {
		case id.FullName() == name:
		case id.Front() == name:
			rest = id.PopFirst(1)
		default:
			continue
		}

		column := querytree.NewColumnNode(c.Name, c.Type, c.Source)
		if rest.IsEmpty() {
			return column, nil
		}
		r, err := qa.tryResolveIdentifierFromCompoundExpression(id, id.Size()-rest.Size(), column, "", s, true)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, nil
}

// tryResolveTableIdentifierFromDatabaseCatalog binds table or
// database.table to a table of the catalog.
func (qa *queryAnalyzer) tryResolveTableIdentifierFromDatabaseCatalog(id querytree.Identifier) (identifierResolveResult, error) {
	if id.Size() != 1 && id.Size() != 2 {
		return identifierResolveResult{}, sql.NewErr(sql.ErrBadArguments,
			"Expected table identifier to contain 1 or 2 parts. Actual '%s'", id.FullName())
	}
	if qa.Catalog == nil {
		return identifierResolveResult{}, nil
	}

	database, table := "", id.Front()
	if id.Size() == 2 {
		database, table = id.At(0), id.At(1)
	}
	t, ok, err := sql.FindTable(qa.ctx, qa.Catalog, database, table)
	if err != nil {
		return identifierResolveResult{}, err
	}
	if !ok {
		return identifierResolveResult{}, nil
	}
	return identifierResolveResult{node: querytree.NewTableNode(t), place: placeDatabaseCatalog}, nil
}

// identifierHints returns the names visible from the scope that are close to
// the identifier, for error messages.
func (qa *queryAnalyzer) identifierHints(lookup identifierLookup, s *scope) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for cur := s; cur != nil; cur = qa.parentScope(cur) {
		for name := range cur.aliases.aliasMap(lookup.context) {
			add(name)
		}
		for name := range cur.expressionArguments {
			add(name)
		}
		switch lookup.context {
		case expressionLookup:
			for te, data := range cur.tableExpressionData {
				qualifier := data.tableName
				if te.HasAlias() {
					qualifier = te.Alias()
				}
				for _, c := range data.columnNames {
					add(c)
					if qualifier != "" {
						add(qualifier + "." + c)
					}
				}
			}
		case tableExpressionLookup:
			for name := range cur.ctes {
				add(name)
			}
			for name := range cur.aliases.tableExpressions {
				add(name)
			}
		}
	}

	switch lookup.context {
	case tableExpressionLookup:
		if qa.Catalog != nil {
			if db, err := qa.Catalog.Database(qa.ctx, qa.ctx.GetCurrentDatabase()); err == nil {
				for _, name := range db.TableNames() {
					add(name)
				}
			}
		}
	case functionLookup:
		if qa.Functions != nil {
			for _, name := range qa.Functions.Names() {
				add(name)
			}
		}
		if qa.UDFs != nil {
			for _, name := range qa.UDFs.UserDefinedFunctionNames() {
				add(name)
			}
		}
	}

	sort.Strings(names)
	return similartext.Closest(names, lookup.identifier.FullName())
}

// hintsSuffix formats typo hints for the end of an error message.
func hintsSuffix(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return ". Maybe you meant: ['" + strings.Join(hints, "', '") + "']"
}
