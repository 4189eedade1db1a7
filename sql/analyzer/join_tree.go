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
	"sort"

	"github.com/dolthub/go-query-analyzer/internal/similartext"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/parse"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// initializeQueryJoinTreeNode replaces the table identifiers of the join
// tree with the tables, CTEs or table expressions they name, and marks every
// node of the join tree as in resolve process.
func (qa *queryAnalyzer) initializeQueryJoinTreeNode(slot *querytree.Node, s *scope) error {
	queue := []*querytree.Node{slot}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		switch n := (*cur).(type) {
		case *querytree.QueryNode, *querytree.UnionNode, *querytree.TableNode, *querytree.TableFunctionNode:
		case *querytree.ArrayJoinNode:
			queue = append(queue, &n.TableExpression)
		case *querytree.JoinNode:
			s.joinsCount++
			queue = append(queue, &n.Left, &n.Right)
		case *querytree.CrossJoinNode:
			tables := n.TablesList()
			s.joinsCount += tables.Len() - 1
			for i := range tables.Nodes {
				queue = append(queue, &tables.Nodes[i])
			}
		case *querytree.IdentifierNode:
			resolved, err := qa.initializeTableIdentifier(n, s)
			if err != nil {
				return err
			}
			*cur = resolved
		default:
			return sql.ErrLogical.New(fmt.Sprintf(
				"Query FROM section expected table, table function, query, union, join or array join. Actual %s. In scope %s",
				querytree.String(n), s.description()))
		}
		s.tableExpressionsInResolve[*cur] = true
	}
	return nil
}

// initializeTableIdentifier returns a copy of the table expression the
// identifier names, with the alias and modifiers of the identifier.
func (qa *queryAnalyzer) initializeTableIdentifier(id *querytree.IdentifierNode, s *scope) (querytree.Node, error) {
	rctx := defaultResolveContext()
	rctx.allowJoinTree = false
	rctx.allowAliases = false
	rctx.allowSubqueryResolution = false

	lookup := newLookup(id.Identifier, tableExpressionLookup)
	result, err := qa.tryResolveIdentifier(lookup, s, rctx)
	if err != nil {
		return nil, err
	}
	if !result.resolved() {
		return nil, sql.NewErr(sql.ErrUnknownTable,
			"Unknown table expression identifier '%s' in scope %s%s",
			id.Identifier.FullName(), s.description(), hintsSuffix(qa.tableHints(id.Identifier)))
	}

	resolved := querytree.Clone(result.node)
	switch n := resolved.(type) {
	case *querytree.QueryNode:
		n.IsCTE = false
	case *querytree.UnionNode:
		n.IsCTE = false
	}

	if id.HasAlias() {
		resolved.SetAlias(id.Alias())
	} else {
		resolved.RemoveAlias()
	}

	if m := id.Modifiers; m != nil {
		if !querytree.SetModifiers(resolved, m) {
			return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
				"Table expression modifiers %s are not supported for subquery %s",
				m, querytree.String(resolved))
		}
	}
	return resolved, nil
}

// tableHints returns the catalog tables with names close to the identifier.
func (qa *queryAnalyzer) tableHints(id querytree.Identifier) []string {
	if qa.Catalog == nil {
		return nil
	}
	db, err := qa.Catalog.Database(qa.ctx, qa.ctx.GetCurrentDatabase())
	if err != nil || db == nil {
		return nil
	}
	names := db.TableNames()
	sort.Strings(names)
	return similartext.Closest(names, id.FullName())
}

// validateTableExpressionModifiers checks FINAL is only used on tables and
// SAMPLE only on tables and table functions.
func (qa *queryAnalyzer) validateTableExpressionModifiers(te querytree.Node, s *scope) error {
	m := querytree.Modifiers(te)
	if m == nil {
		return nil
	}
	_, isTable := te.(*querytree.TableNode)
	_, isTableFunction := te.(*querytree.TableFunctionNode)
	if m.HasFinal && !isTable {
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"Table expression modifiers %s are not supported for %s. FINAL requires a table. In scope %s",
			m, querytree.String(te), s.description())
	}
	if (m.SampleRatio != nil || m.SampleOffset != nil) && !isTable && !isTableFunction {
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"Table expression modifiers %s are not supported for %s. SAMPLE requires a table or table function. In scope %s",
			m, querytree.String(te), s.description())
	}
	return nil
}

// initializeTableExpressionData collects the columns of a table, table
// function, subquery or union of the join tree.
func (qa *queryAnalyzer) initializeTableExpressionData(te querytree.Node, s *scope) error {
	if _, ok := s.tableExpressionData[te]; ok {
		return nil
	}

	data := newTableExpressionData()
	var storage sql.Table
	switch n := te.(type) {
	case *querytree.TableNode:
		data.tableName = n.TableName()
		data.databaseName = n.DatabaseName()
		data.tableExpressionName = n.FullName()
		data.description = "table"
		storage = n.Storage
	case *querytree.TableFunctionNode:
		if !n.IsResolved() {
			return sql.ErrLogical.New("table function " + n.Name + " must be resolved. In scope " + s.description())
		}
		data.tableExpressionName = n.Name
		data.description = "table function"
		storage = n.Storage()
	case *querytree.QueryNode:
		data.tableName = n.CTEName
		data.tableExpressionName = n.CTEName
		data.description = "subquery"
	case *querytree.UnionNode:
		data.tableName = n.CTEName
		data.tableExpressionName = n.CTEName
		data.description = "union"
	default:
		return sql.ErrLogical.New(fmt.Sprintf(
			"Expected table, table function, query or union. Actual %s %s. In scope %s",
			te.Kind(), querytree.String(te), s.description()))
	}
	if te.HasAlias() {
		data.tableExpressionName = te.Alias()
	}

	if storage != nil {
		if err := qa.initializeStorageColumns(data, te, storage, s); err != nil {
			return err
		}
	} else {
		for _, c := range querytree.ProjectionColumnsOf(te) {
			data.addColumn(querytree.NewColumnNode(c.Name, c.Type, te), sql.OrdinaryColumn)
		}
	}

	// SELECT a FROM t1 JOIN t2: a binds to t1 without qualification.
	if s.joinsCount == 1 && s.settings.SingleJoinPreferLeftTable && len(s.tableExpressionData) == 0 {
		data.shouldQualifyColumns = false
	}

	s.tableExpressionData[te] = data
	s.registerTableExpression(te)
	return nil
}

// initializeStorageColumns adds the readable columns of the storage. ALIAS
// column expressions are parsed and resolved against the other columns of
// the table, in dependency order.
func (qa *queryAnalyzer) initializeStorageColumns(data *tableExpressionData, te querytree.Node, storage sql.Table, s *scope) error {
	columns := make(map[string]*querytree.ColumnNode)
	var aliasColumns []*querytree.ColumnNode
	for _, c := range storage.Columns() {
		if c.Kind == sql.EphemeralColumn {
			continue
		}
		column := querytree.NewColumnNode(c.Name, c.Type, te)
		if c.Kind == sql.AliasColumn {
			expr, err := parse.ParseExpression(c.Expression)
			if err != nil {
				return sql.NewErr(sql.ErrBadArguments,
					"Cannot parse ALIAS column %s expression %s of %s: %s",
					c.Name, c.Expression, data.source(), err)
			}
			column.Expression = expr
			aliasColumns = append(aliasColumns, column)
		}
		columns[c.Name] = column
		data.addColumn(column, c.Kind)
	}

	for _, column := range aliasColumns {
		sub := qa.newScope(column.Expression, s)
		sub.aliasColumns = columns
		if _, err := qa.resolveExpressionNode(&column.Expression, sub, false, false, false); err != nil {
			return err
		}
		if err := qa.correctColumnExpressionType(column, sub); err != nil {
			return err
		}
	}
	return nil
}

// resolveQueryJoinTreeNode resolves the join tree node in the slot and its
// children. Table expressions get their data initialized and leave the in
// resolve process set once resolved.
func (qa *queryAnalyzer) resolveQueryJoinTreeNode(slot *querytree.Node, s *scope) error {
	switch n := (*slot).(type) {
	case *querytree.QueryNode, *querytree.UnionNode:
		name := cteNameOf(n)
		if name != "" && !qa.ctesInResolve[name] {
			qa.ctesInResolve[name] = true
			defer delete(qa.ctesInResolve, name)
		}
		if _, err := qa.resolveExpressionNode(slot, s, false, true, true); err != nil {
			return err
		}
	case *querytree.TableFunctionNode:
		if err := qa.resolveTableFunction(n, s); err != nil {
			return err
		}
	case *querytree.TableNode:
	case *querytree.ArrayJoinNode:
		if err := qa.resolveArrayJoin(n, s); err != nil {
			return err
		}
	case *querytree.CrossJoinNode:
		tables := n.TablesList()
		for i := range tables.Nodes {
			if err := qa.resolveQueryJoinTreeNode(&tables.Nodes[i], s); err != nil {
				return err
			}
			if err := validateJoinTableExpressionWithoutAlias(n, tables.Nodes[i], s); err != nil {
				return err
			}
		}
	case *querytree.JoinNode:
		if err := qa.resolveJoin(n, s); err != nil {
			return err
		}
	default:
		return sql.ErrLogical.New(fmt.Sprintf(
			"Query FROM section expected table, table function, query, union, join or array join. Actual %s. In scope %s",
			querytree.String(n), s.description()))
	}

	te := *slot
	switch te.(type) {
	case *querytree.TableNode, *querytree.TableFunctionNode, *querytree.QueryNode, *querytree.UnionNode:
		if err := qa.validateTableExpressionModifiers(te, s); err != nil {
			return err
		}
		if err := qa.initializeTableExpressionData(te, s); err != nil {
			return err
		}
	}

	if te.HasAlias() {
		switch te.(type) {
		case *querytree.JoinNode, *querytree.CrossJoinNode:
		default:
			alias := te.Alias()
			if existing, ok := s.aliases.tableExpressions[alias]; ok && existing != te {
				return sql.NewErr(sql.ErrMultipleExpressionsForAlias,
					"Duplicate aliases %s for table expressions in FROM section are not allowed. Try to register %s. Already registered: %s",
					alias, querytree.String(te), querytree.String(existing))
			}
			s.aliases.tableExpressions[alias] = te
		}
	}

	delete(s.tableExpressionsInResolve, te)
	return nil
}

func cteNameOf(n querytree.Node) string {
	switch n := n.(type) {
	case *querytree.QueryNode:
		return n.CTEName
	case *querytree.UnionNode:
		return n.CTEName
	}
	return ""
}

// validateJoinTableExpressionWithoutAlias checks that joined subqueries and
// table functions have an alias when joined_subquery_requires_alias is set.
func validateJoinTableExpressionWithoutAlias(join, te querytree.Node, s *scope) error {
	if !s.settings.JoinedSubqueryRequiresAlias || te.HasAlias() || cteNameOf(te) != "" {
		return nil
	}
	switch te.(type) {
	case *querytree.QueryNode, *querytree.UnionNode, *querytree.TableFunctionNode:
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"No alias for subquery or table function in JOIN (set joined_subquery_requires_alias=0 to disable restriction). While processing '%s'",
			querytree.String(join))
	}
	return nil
}

// resolveTableFunction binds the table function and executes it with its
// constant arguments. Identifier arguments that cannot be resolved are
// passed by name, as in remote('host', db, table).
func (qa *queryAnalyzer) resolveTableFunction(tf *querytree.TableFunctionNode, s *scope) error {
	if tf.IsResolved() {
		return nil
	}
	var fn sql.TableFunction
	ok := false
	if qa.Catalog != nil {
		fn, ok = qa.Catalog.TableFunction(tf.Name)
	}
	if !ok {
		var hints []string
		if qa.Catalog != nil {
			names := qa.Catalog.TableFunctionNames()
			sort.Strings(names)
			hints = similartext.Closest(names, tf.Name)
		}
		return sql.NewErr(sql.ErrUnknownFunction, "Unknown table function %s%s", tf.Name, hintsSuffix(hints))
	}

	args := tf.ArgumentsList()
	values := make([]interface{}, 0, args.Len())
	for i := range args.Nodes {
		arg := &args.Nodes[i]
		switch a := (*arg).(type) {
		case *querytree.IdentifierNode:
			r, err := qa.tryResolveIdentifier(newLookup(a.Identifier, expressionLookup), s, defaultResolveContext())
			if err != nil {
				return err
			}
			if !r.resolved() {
				values = append(values, a.Identifier.FullName())
				continue
			}
		case *querytree.TableFunctionNode:
			if err := qa.resolveTableFunction(a, s); err != nil {
				return err
			}
			values = append(values, a.Storage())
			continue
		}

		if _, err := qa.resolveExpressionNode(arg, s, false, true, false); err != nil {
			return err
		}
		switch a := (*arg).(type) {
		case *querytree.ConstantNode:
			values = append(values, a.Value)
		case *querytree.TableNode:
			values = append(values, a.Storage)
		default:
			return sql.NewErr(sql.ErrBadArguments,
				"Table function %s argument %s must be constant. In scope %s",
				tf.Name, querytree.String(a), s.description())
		}
	}

	storage, err := fn.Execute(qa.ctx, values)
	if err != nil {
		return err
	}
	tf.Resolve(fn, storage)
	return nil
}

// resolveArrayJoin resolves the ARRAY JOIN expressions into columns of the
// array elements.
func (qa *queryAnalyzer) resolveArrayJoin(a *querytree.ArrayJoinNode, s *scope) error {
	if err := qa.resolveQueryJoinTreeNode(&a.TableExpression, s); err != nil {
		return err
	}

	expressions := a.JoinExpressionsList()
	newExpressionAliasVisitor(s.aliases).visit(expressions)
	if expressions.Len() == 0 {
		return sql.NewErr(sql.ErrBadArguments,
			"ARRAY JOIN requires at least single expression. In scope %s", s.description())
	}
	for _, e := range expressions.Nodes {
		if e.HasAlias() {
			s.aliases.arrayJoinAliases[e.Alias()] = e
		}
	}

	var columns []querytree.Node
	names := make(map[string]bool)
	for _, e := range expressions.Nodes {
		alias := e.Alias()
		identifierName := ""
		if id, ok := e.(*querytree.IdentifierNode); ok {
			identifierName = id.Identifier.FullName()
		}

		resolved := e
		if _, err := qa.resolveExpressionNode(&resolved, s, false, false, true); err != nil {
			return err
		}
		arrays := []querytree.Node{resolved}
		if l, ok := resolved.(*querytree.ListNode); ok {
			arrays = l.Nodes
		}

		for _, array := range arrays {
			t := querytree.ResultType(array)
			var elem sql.Type
			switch at := t.(type) {
			case sql.ArrayType:
				elem = at.Elem
			case sql.MapType:
				elem = sql.NewTupleType([]sql.Type{at.Key, at.Value}, nil)
			default:
				typeName := "<nil>"
				if t != nil {
					typeName = t.Name()
				}
				return sql.NewErr(sql.ErrTypeMismatch,
					"ARRAY JOIN %s requires expression %s with Array or Map type. Actual: %s. In scope %s",
					querytree.String(a), querytree.String(array), typeName, s.description())
			}

			name := ""
			switch c := array.(type) {
			case *querytree.ColumnNode:
				name = c.Name
			}
			if alias != "" && len(arrays) == 1 {
				name = alias
			} else if name == "" && identifierName != "" {
				name = identifierName
			}
			if name == "" {
				name = fmt.Sprintf("__array_join_expression_%d", qa.arrayJoinCounter)
				qa.arrayJoinCounter++
			}
			if names[name] {
				return sql.NewErr(sql.ErrBadArguments,
					"ARRAY JOIN %s multiple array join expressions with name %s. In scope %s",
					querytree.String(a), name, s.description())
			}
			names[name] = true

			column := querytree.NewColumnNode(name, elem, a)
			column.Expression = array
			if alias != "" && len(arrays) == 1 {
				column.SetAlias(alias)
			}
			columns = append(columns, column)
		}
	}
	a.JoinExpressions = querytree.NewListNode(columns...)

	// Aliases of ARRAY JOIN expressions now name the array elements.
	for _, c := range columns {
		if c.HasAlias() {
			s.aliases.expressions[c.Alias()] = c
			s.aliases.arrayJoinAliases[c.Alias()] = c
		}
	}
	return nil
}

// resolveJoin resolves both sides of the JOIN and its ON or USING clause.
func (qa *queryAnalyzer) resolveJoin(j *querytree.JoinNode, s *scope) error {
	if err := qa.resolveQueryJoinTreeNode(&j.Left, s); err != nil {
		return err
	}
	if err := validateJoinTableExpressionWithoutAlias(j, j.Left, s); err != nil {
		return err
	}
	if err := qa.resolveQueryJoinTreeNode(&j.Right, s); err != nil {
		return err
	}
	if err := validateJoinTableExpressionWithoutAlias(j, j.Right, s); err != nil {
		return err
	}

	for _, side := range []querytree.Node{j.Left, j.Right} {
		if querytree.IsCorrelated(side) {
			return sql.NewErr(sql.ErrNotImplemented,
				"Correlated subqueries are not supported in JOINs yet, but found in %s. In scope %s",
				querytree.String(side), s.description())
		}
	}

	if j.IsUsingJoin() {
		return qa.resolveUsing(j, s)
	}
	if j.Expression == nil {
		return nil
	}

	newExpressionAliasVisitor(s.aliases).visit(j.Expression)
	names, err := qa.resolveExpressionNode(&j.Expression, s, false, false, false)
	if err != nil {
		return err
	}
	if l, ok := j.Expression.(*querytree.ListNode); ok {
		if l.Len() != 1 {
			return sql.NewErr(sql.ErrBadArguments,
				"JOIN %s join expression %s resolved into %d expressions. Expected 1. In scope %s",
				querytree.String(j), querytree.String(l), l.Len(), s.description())
		}
		j.Expression = l.Nodes[0]
	}
	if len(names) != 1 {
		return sql.ErrLogical.New(fmt.Sprintf("JOIN expression expected 1 projection name. Actual: %d", len(names)))
	}
	return nil
}

// resolveUsing replaces the USING identifiers with columns holding the
// columns they bind to on each side, typed with their supertype.
func (qa *queryAnalyzer) resolveUsing(j *querytree.JoinNode, s *scope) error {
	seen := make(map[string]bool)
	var columns []querytree.Node
	for _, n := range j.UsingList().Nodes {
		id, ok := n.(*querytree.IdentifierNode)
		if !ok {
			return sql.NewErr(sql.ErrUnsupportedConstruct,
				"JOIN %s USING clause expected identifier. Actual %s", querytree.String(j), querytree.String(n))
		}
		name := id.Identifier.FullName()
		if seen[name] {
			return sql.NewErr(sql.ErrBadArguments,
				"JOIN %s identifier '%s' appears more than once in USING clause. In scope %s",
				querytree.String(j), name, s.description())
		}
		seen[name] = true

		lookup := newLookup(id.Identifier, expressionLookup)
		var left querytree.Node
		if s.settings.CompatibilityJoinUsingTopLevelIdentifier {
			var err error
			if left, err = qa.tryResolveUsingFromProjection(name, j.Left, s); err != nil {
				return err
			}
		}
		if left == nil {
			var err error
			if left, err = qa.tryResolveIdentifierFromJoinTreeNode(lookup, j.Left, s); err != nil {
				return err
			}
		}
		if left == nil {
			return sql.NewErr(sql.ErrUnknownIdentifier,
				"Unknown identifier '%s' in left table expression of JOIN %s USING clause. In scope %s",
				name, querytree.String(j), s.description())
		}
		right, err := qa.tryResolveIdentifierFromJoinTreeNode(lookup, j.Right, s)
		if err != nil {
			return err
		}
		if right == nil {
			return sql.NewErr(sql.ErrUnknownIdentifier,
				"Unknown identifier '%s' in right table expression of JOIN %s USING clause. In scope %s",
				name, querytree.String(j), s.description())
		}

		lt, rt := querytree.ResultType(left), querytree.ResultType(right)
		supertype, err := sql.LeastSupertype([]sql.Type{lt, rt})
		if err != nil {
			return sql.NewErr(sql.ErrTypeMismatch,
				"JOIN %s cannot infer common type for %s and %s in USING for identifier '%s'. In scope %s",
				querytree.String(j), lt.Name(), rt.Name(), name, s.description())
		}

		column := querytree.NewColumnNode(name, supertype, j)
		column.Expression = querytree.NewListNode(left, right)
		columns = append(columns, column)
	}
	j.Expression = querytree.NewListNode(columns...)
	return nil
}

// tryResolveUsingFromProjection resolves the projection expression with the
// given alias against the left side of the join, as in
// SELECT a + 1 AS b FROM t1 JOIN t2 USING (b).
func (qa *queryAnalyzer) tryResolveUsingFromProjection(name string, left querytree.Node, s *scope) (querytree.Node, error) {
	q, ok := s.node.(*querytree.QueryNode)
	if !ok {
		return nil, nil
	}
	for _, p := range q.ProjectionList().Nodes {
		if p.Alias() != name {
			continue
		}
		expr := querytree.Clone(p)
		expr.RemoveAlias()

		sub := qa.newScope(expr, s)
		sub.expressionJoinTree = left
		sub.tableExpressionData = s.tableExpressionData
		if _, err := qa.resolveExpressionNode(&expr, sub, false, false, true); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, nil
}
