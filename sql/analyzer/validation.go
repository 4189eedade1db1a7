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

// findFunction returns the first function call of the expression matching
// the predicate, outside of subqueries and lambdas.
func findFunction(n querytree.Node, match func(*querytree.FunctionNode) bool) *querytree.FunctionNode {
	if n == nil {
		return nil
	}
	var found *querytree.FunctionNode
	querytree.InspectExpression(n, func(c querytree.Node) bool {
		if f, ok := c.(*querytree.FunctionNode); ok && match(f) {
			found = f
		}
		return found == nil
	})
	return found
}

func assertNoFunction(n querytree.Node, kind, place string, match func(*querytree.FunctionNode) bool) error {
	if f := findFunction(n, match); f != nil {
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"%s function %s is found %s in query", kind, querytree.String(f), place)
	}
	return nil
}

func isAggregate(f *querytree.FunctionNode) bool { return f.IsAggregateFunction() }

func isWindow(f *querytree.FunctionNode) bool { return f.IsWindowFunction() }

func isGrouping(f *querytree.FunctionNode) bool { return f.Name == "grouping" }

func assertNoAggregates(n querytree.Node, place string) error {
	if err := assertNoFunction(n, "Aggregate", place, isAggregate); err != nil {
		return err
	}
	if err := assertNoFunction(n, "GROUPING", place, isGrouping); err != nil {
		return err
	}
	return assertNoFunction(n, "Window", place, isWindow)
}

// validateFilters checks the type of the PREWHERE, WHERE, HAVING and QUALIFY
// filters.
func validateFilters(q *querytree.QueryNode) error {
	filters := []struct {
		node  querytree.Node
		place string
	}{
		{q.Prewhere, "PREWHERE"},
		{q.Where, "WHERE"},
		{q.Having, "HAVING"},
		{q.Qualify, "QUALIFY"},
	}
	for _, f := range filters {
		if f.node == nil {
			continue
		}
		t := querytree.ResultType(f.node)
		if t == nil {
			return sql.NewErr(sql.ErrUnsupportedConstruct,
				"Unexpected expression '%s' in filter in %s. In query %s",
				querytree.String(f.node), f.place, querytree.String(q))
		}
		if !canBeUsedInBooleanContext(t) {
			return sql.NewErr(sql.ErrIllegalArgument,
				"Invalid type for filter in %s: %s. In query %s", f.place, t.Name(), querytree.String(q))
		}
	}
	if findFunction(q.Prewhere, func(f *querytree.FunctionNode) bool { return f.Name == "arrayJoin" }) != nil {
		return sql.NewErr(sql.ErrNotImplemented,
			"ARRAY JOIN is not allowed in PREWHERE. In query %s", querytree.String(q))
	}
	return nil
}

func canBeUsedInBooleanContext(t sql.Type) bool {
	t = sql.RemoveNullable(t)
	return sql.IsNumber(t) || sql.IsNothing(t) || sql.IsDateOrDateTime(t)
}

// validateAggregates checks that outside of aggregate functions the
// projection, HAVING, ORDER BY and QUALIFY only use GROUP BY keys when the
// query aggregates.
func (qa *queryAnalyzer) validateAggregates(q *querytree.QueryNode, s *scope) error {
	switch q.JoinTree.(type) {
	case nil, *querytree.QueryNode, *querytree.UnionNode:
	default:
		if err := assertNoAggregates(q.JoinTree, "in JOIN TREE"); err != nil {
			return err
		}
	}
	if err := assertNoAggregates(q.Where, "in WHERE"); err != nil {
		return err
	}
	if err := assertNoAggregates(q.Prewhere, "in PREWHERE"); err != nil {
		return err
	}
	if err := assertNoFunction(q.Having, "Window", "in HAVING", isWindow); err != nil {
		return err
	}

	var keys []querytree.Node
	if q.IsGroupByWithGroupingSets {
		for _, set := range q.GroupByList().Nodes {
			keys = append(keys, querytree.AsList(set).Nodes...)
		}
	} else {
		keys = q.GroupByList().Nodes
	}
	for _, key := range keys {
		if err := assertNoAggregates(key, "in GROUP BY"); err != nil {
			return err
		}
	}

	sections := []querytree.Node{q.Projection, q.Having, q.OrderBy, q.Qualify, q.Interpolate}
	for _, section := range sections {
		if err := assertNoNestedAggregates(section); err != nil {
			return err
		}
	}

	hasAggregation := len(keys) > 0
	for _, section := range sections {
		if hasAggregation {
			break
		}
		hasAggregation = findFunction(section, isAggregate) != nil
	}

	if !hasAggregation {
		if q.IsGroupByWithTotals || q.IsGroupByWithRollup || q.IsGroupByWithCube || q.IsGroupByWithGroupingSets {
			return sql.NewErr(sql.ErrNotImplemented,
				"WITH TOTALS, ROLLUP, CUBE or GROUPING SETS are not supported without aggregation")
		}
		return nil
	}

	v := &groupByColumnsValidator{keys: keys, query: q, local: qa.localColumnSources(s)}
	for _, section := range sections {
		if err := v.validate(section); err != nil {
			return err
		}
	}
	return nil
}

// assertNoNestedAggregates fails on an aggregate function inside the
// arguments of another aggregate function.
func assertNoNestedAggregates(n querytree.Node) error {
	if n == nil {
		return nil
	}
	var err error
	querytree.InspectExpression(n, func(c querytree.Node) bool {
		if err != nil {
			return false
		}
		f, ok := c.(*querytree.FunctionNode)
		if !ok || !f.IsAggregateFunction() {
			return true
		}
		for _, a := range f.ArgumentNodes() {
			if e := assertNoFunction(a, "Aggregate", "inside another aggregate function", isAggregate); e != nil {
				err = e
				return false
			}
		}
		return false
	})
	return err
}

// groupByColumnsValidator checks that the columns of an aggregating query
// are inside aggregate functions or GROUP BY keys.
type groupByColumnsValidator struct {
	keys  []querytree.Node
	query *querytree.QueryNode
	local map[querytree.Node]bool
}

func (v *groupByColumnsValidator) isKey(n querytree.Node) bool {
	for _, key := range v.keys {
		if key == n || querytree.EqualIgnoringAliases(key, n) {
			return true
		}
	}
	return false
}

func (v *groupByColumnsValidator) validate(n querytree.Node) error {
	if n == nil {
		return nil
	}
	switch n := n.(type) {
	case *querytree.ConstantNode:
		return nil
	case *querytree.QueryNode, *querytree.UnionNode, *querytree.LambdaNode:
		return nil
	case *querytree.ColumnNode:
		if v.isKey(n) {
			return nil
		}
		if _, isLambda := n.Source.(*querytree.LambdaNode); isLambda {
			return nil
		}
		if !v.local[n.Source] {
			return nil
		}
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"Column %s is not under aggregate function and not in GROUP BY keys. In query %s",
			querytree.String(n), querytree.String(v.query))
	case *querytree.FunctionNode:
		if v.isKey(n) {
			return nil
		}
		if n.IsAggregateFunction() {
			return nil
		}
		if n.Name == "grouping" {
			for _, a := range n.ArgumentNodes() {
				if !v.isKey(a) {
					return sql.NewErr(sql.ErrUnsupportedConstruct,
						"GROUPING function argument %s is not in GROUP BY keys. In query %s",
						querytree.String(a), querytree.String(v.query))
				}
			}
			return nil
		}
	}
	if v.isKey(n) {
		return nil
	}
	for _, c := range querytree.Children(n) {
		if err := v.validate(*c); err != nil {
			return err
		}
	}
	return nil
}
