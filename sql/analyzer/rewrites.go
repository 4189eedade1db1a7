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
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// replaceNodesWithPositionalArguments replaces the integer constants of the
// list, also inside sort nodes, with copies of the projection entries they
// number. Negative numbers count from the end of the projection.
func (qa *queryAnalyzer) replaceNodesWithPositionalArguments(list *querytree.ListNode, projection []querytree.Node, section string, s *scope) error {
	for i := range list.Nodes {
		slot := &list.Nodes[i]
		if sortNode, ok := (*slot).(*querytree.SortNode); ok {
			slot = &sortNode.Expression
		}

		c, ok := (*slot).(*querytree.ConstantNode)
		if !ok || c.Value == nil || !sql.IsInteger(sql.RemoveNullable(c.Type)) || c.Type.Kind() == sql.KindBool {
			continue
		}
		pos, err := cast.ToInt64E(c.Value)
		if err != nil {
			// UInt64 values beyond the Int64 range are out of bounds.
			return sql.NewErr(sql.ErrIllegalArgument,
				"Positional argument number %v is out of bounds. Expected in range [1, %d]. In scope %s",
				c.Value, len(projection), s.description())
		}

		index := pos - 1
		if pos < 0 {
			if -pos > int64(len(projection)) {
				return sql.NewErr(sql.ErrIllegalArgument,
					"Positional argument number %d is out of bounds. Expected in range [-%d, -1]. In scope %s",
					pos, len(projection), s.description())
			}
			index = int64(len(projection)) + pos
		} else if pos == 0 || pos > int64(len(projection)) {
			return sql.NewErr(sql.ErrIllegalArgument,
				"Positional argument number %d is out of bounds. Expected in range [1, %d]. In scope %s",
				pos, len(projection), s.description())
		}

		target := projection[index]
		if section == "GROUP BY" {
			if f, ok := target.(*querytree.FunctionNode); ok && (f.IsAggregateFunction() || hasAggregateFunction(f)) {
				return sql.NewErr(sql.ErrUnsupportedConstruct,
					"Illegal value (aggregate function) for positional argument in %s. In scope %s",
					section, s.description())
			}
		}

		replacement := qa.cloneResolved(target)
		replacement.RemoveAlias()
		*slot = replacement
	}
	return nil
}

// expandGroupByAll sets the GROUP BY keys of GROUP BY ALL: the largest
// subtrees of the projection that contain no aggregate, window or grouping
// function.
func expandGroupByAll(q *querytree.QueryNode) {
	keys := q.GroupByList()
	for _, n := range q.ProjectionList().Nodes {
		keys.Nodes, _ = collectOrdinary(n, keys.Nodes)
	}
	q.IsGroupByAll = false
}

// collectOrdinary appends the ordinary subtrees of n to into and returns
// whether n holds an aggregate.
func collectOrdinary(n querytree.Node, into []querytree.Node) ([]querytree.Node, bool) {
	switch n := n.(type) {
	case *querytree.ColumnNode:
		return append(into, n), false
	case *querytree.FunctionNode:
		if n.IsAggregateFunction() || n.IsWindowFunction() || n.Name == "grouping" {
			return into, true
		}
		start := len(into)
		hasAggregate := false
		for _, a := range n.ArgumentNodes() {
			var aggregate bool
			into, aggregate = collectOrdinary(a, into)
			hasAggregate = hasAggregate || aggregate
		}
		if hasAggregate {
			return into, true
		}
		return append(into[:start], n), false
	}
	return into, false
}

// expandOrderByAll replaces ORDER BY ALL with a sort on each projection
// entry, with the direction of the ALL sort.
func (qa *queryAnalyzer) expandOrderByAll(q *querytree.QueryNode, s *scope) error {
	if !s.settings.EnableOrderByAll {
		return nil
	}
	sorts := q.OrderByList()
	if sorts.Len() != 1 {
		return sql.ErrLogical.New(fmt.Sprintf("ORDER BY ALL expects 1 sort node. Actual: %d", sorts.Len()))
	}
	all, ok := sorts.Nodes[0].(*querytree.SortNode)
	if !ok {
		return sql.ErrLogical.New("Select analyze for not sort node.")
	}

	projection := q.ProjectionList().Nodes
	expanded := make([]querytree.Node, 0, len(projection))
	for _, n := range projection {
		if names, ok := qa.resolvedExpressions[n]; ok {
			if len(names) != 1 {
				return sql.ErrLogical.New(fmt.Sprintf(
					"Expression nodes list expected 1 projection names. Actual %d", len(names)))
			}
			if strings.EqualFold(names[0], "all") {
				return sql.NewErr(sql.ErrUnsupportedConstruct,
					"Cannot use ORDER BY ALL to sort a column with name 'all', please disable setting `enable_order_by_all` and try again")
			}
		}
		sortNode := querytree.NewSortNode(n, all.Direction)
		sortNode.Nulls = all.Nulls
		sortNode.Collation = all.Collation
		expanded = append(expanded, sortNode)
	}
	q.OrderBy = querytree.NewListNode(expanded...)
	q.IsOrderByAll = false
	return nil
}

// convertLimitOffsetExpression resolves a LIMIT or OFFSET expression into a
// UInt64 constant.
func (qa *queryAnalyzer) convertLimitOffsetExpression(slot *querytree.Node, section string, s *scope) error {
	if *slot == nil {
		return nil
	}
	if _, err := qa.resolveExpressionNode(slot, s, false, false, false); err != nil {
		return err
	}
	c, ok := (*slot).(*querytree.ConstantNode)
	if !ok || !sql.IsNumber(sql.RemoveNullable(c.Type)) {
		return sql.NewErr(sql.ErrIllegalArgument,
			"%s expression must be constant with numeric type. Actual: %s. In scope %s",
			section, querytree.String(*slot), s.description())
	}
	v, err := toExactUint64(c.Value)
	if err != nil {
		return sql.NewErr(sql.ErrIllegalArgument,
			"%s numeric constant expression is not representable as UInt64. Actual: %s. In scope %s",
			section, querytree.String(*slot), s.description())
	}
	converted := querytree.NewConstantNodeWithType(v, sql.UInt64)
	converted.SourceExpression = c.SourceExpression
	*slot = converted
	return nil
}

// toExactUint64 converts a numeric constant to UInt64, failing when the
// conversion changes the value.
func toExactUint64(v interface{}) (uint64, error) {
	switch v := v.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			return 0, fmt.Errorf("%v is not an exact UInt64", v)
		}
		return uint64(v), nil
	case float32:
		return toExactUint64(float64(v))
	case decimal.Decimal:
		if v.Sign() < 0 || !v.Equal(v.Truncate(0)) {
			return 0, fmt.Errorf("%s is not an exact UInt64", v)
		}
		return cast.ToUint64E(v.String())
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%d is negative", v)
		}
	}
	return cast.ToUint64E(v)
}
