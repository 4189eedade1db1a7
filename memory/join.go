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

package memory

import (
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// joinTreeRows returns one scope per row produced by the join tree. A query
// without FROM produces a single empty row.
func joinTreeRows(ctx *sql.Context, n querytree.Node, outer *scope) ([]*scope, error) {
	switch n := n.(type) {
	case nil:
		return []*scope{newScope(outer)}, nil
	case *querytree.TableNode:
		return tableRows(ctx, n, n.Storage, outer)
	case *querytree.TableFunctionNode:
		return tableRows(ctx, n, n.Storage(), outer)
	case *querytree.QueryNode, *querytree.UnionNode:
		block, err := execute(ctx, n, outer)
		if err != nil {
			return nil, err
		}
		return blockRows(n, block, outer), nil
	case *querytree.JoinNode:
		return joinRows(ctx, n, outer)
	case *querytree.CrossJoinNode:
		rows := []*scope{newScope(outer)}
		for _, t := range n.TablesList().Nodes {
			right, err := joinTreeRows(ctx, t, outer)
			if err != nil {
				return nil, err
			}
			var product []*scope
			for _, l := range rows {
				for _, r := range right {
					product = append(product, merge(l, r))
				}
			}
			rows = product
		}
		return rows, nil
	case *querytree.ArrayJoinNode:
		return arrayJoinRows(ctx, n, outer)
	}
	return nil, sql.NewErr(sql.ErrNotImplemented, "%s %s cannot be executed", n.Kind(), querytree.String(n))
}

func tableRows(ctx *sql.Context, n querytree.Node, t sql.Table, outer *scope) ([]*scope, error) {
	if t == nil {
		return nil, sql.ErrLogical.New("table expression " + querytree.String(n) + " has no storage")
	}
	block, err := scanTable(ctx, n, t)
	if err != nil {
		return nil, err
	}
	return blockRows(n, block, outer), nil
}

func blockRows(source querytree.Node, block *sql.Block, outer *scope) []*scope {
	rows := make([]*scope, len(block.Rows))
	for i, r := range block.Rows {
		values := make(map[string]interface{}, len(block.Columns))
		for j, c := range block.Columns {
			if j < len(r) {
				values[c.Name] = r[j]
			}
		}
		s := newScope(outer)
		s.values[source] = values
		rows[i] = s
	}
	return rows
}

// nullRow returns a scope where every table expression of the join tree
// side has only NULL values.
func nullRow(side querytree.Node, outer *scope) *scope {
	s := newScope(outer)
	for _, t := range tableExpressions(side) {
		s.values[t] = map[string]interface{}{}
	}
	return s
}

// tableExpressions returns the nodes that are value sources in a join tree,
// ARRAY JOIN nodes included.
func tableExpressions(n querytree.Node) []querytree.Node {
	result := querytree.ExtractTableExpressions(n)
	querytree.Inspect(n, func(c querytree.Node) bool {
		switch c.(type) {
		case *querytree.ArrayJoinNode:
			result = append(result, c)
		case *querytree.QueryNode, *querytree.UnionNode:
			return false
		}
		return true
	})
	return result
}

func joinRows(ctx *sql.Context, j *querytree.JoinNode, outer *scope) ([]*scope, error) {
	left, err := joinTreeRows(ctx, j.Left, outer)
	if err != nil {
		return nil, err
	}
	right, err := joinTreeRows(ctx, j.Right, outer)
	if err != nil {
		return nil, err
	}

	if j.JoinType == querytree.PasteJoin {
		var rows []*scope
		for i := 0; i < len(left) && i < len(right); i++ {
			rows = append(rows, merge(left[i], right[i]))
		}
		return rows, nil
	}

	var rows []*scope
	rightMatched := make([]bool, len(right))
	for _, l := range left {
		matched := false
		for i, r := range right {
			s := merge(l, r)
			ok, err := joinMatches(ctx, j, s)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = true
				rightMatched[i] = true
				rows = append(rows, s)
			}
		}
		if !matched && (j.JoinType == querytree.LeftJoin || j.JoinType == querytree.FullJoin) {
			rows = append(rows, merge(l, nullRow(j.Right, outer)))
		}
	}
	if j.JoinType == querytree.RightJoin || j.JoinType == querytree.FullJoin {
		for i, r := range right {
			if !rightMatched[i] {
				rows = append(rows, merge(nullRow(j.Left, outer), r))
			}
		}
	}
	return rows, nil
}

func joinMatches(ctx *sql.Context, j *querytree.JoinNode, s *scope) (bool, error) {
	if j.Expression == nil {
		return true, nil
	}
	if !j.IsUsingJoin() {
		v, err := eval(ctx, j.Expression, s)
		if err != nil {
			return false, err
		}
		return isTrue(v), nil
	}

	for _, u := range j.UsingList().Nodes {
		c, ok := u.(*querytree.ColumnNode)
		if !ok {
			return false, sql.ErrLogical.New("USING element " + querytree.String(u) + " is not a column")
		}
		sides := querytree.AsList(c.Expression)
		if sides == nil || sides.Len() != 2 {
			return false, sql.ErrLogical.New("USING column " + c.Name + " does not have two sides")
		}
		l, err := eval(ctx, sides.Nodes[0], s)
		if err != nil {
			return false, err
		}
		r, err := eval(ctx, sides.Nodes[1], s)
		if err != nil {
			return false, err
		}
		if l == nil || r == nil || sql.CompareValues(l, r) != 0 {
			return false, nil
		}
	}
	return true, nil
}

func arrayJoinRows(ctx *sql.Context, a *querytree.ArrayJoinNode, outer *scope) ([]*scope, error) {
	rows, err := joinTreeRows(ctx, a.TableExpression, outer)
	if err != nil {
		return nil, err
	}

	var columns []*querytree.ColumnNode
	for _, e := range a.JoinExpressionsList().Nodes {
		c, ok := e.(*querytree.ColumnNode)
		if !ok {
			return nil, sql.ErrLogical.New("ARRAY JOIN expression " + querytree.String(e) + " is not a column")
		}
		columns = append(columns, c)
	}

	var result []*scope
	for _, s := range rows {
		arrays := make([][]interface{}, len(columns))
		size := -1
		for i, c := range columns {
			v, err := eval(ctx, c.Expression, s)
			if err != nil {
				return nil, err
			}
			arrays[i], _ = v.([]interface{})
			if size >= 0 && len(arrays[i]) != size {
				return nil, sql.NewErr(sql.ErrBadArguments, "Sizes of ARRAY-JOIN-ed arrays do not match")
			}
			size = len(arrays[i])
		}

		if size <= 0 && a.IsLeft {
			values := make(map[string]interface{}, len(columns))
			for _, c := range columns {
				values[c.Name] = c.Type.Default()
			}
			row := &scope{values: copyValues(s.values), outer: s.outer}
			row.values[a] = values
			result = append(result, row)
			continue
		}

		for i := 0; i < size; i++ {
			values := make(map[string]interface{}, len(columns))
			for k, c := range columns {
				values[c.Name] = arrays[k][i]
			}
			row := &scope{values: copyValues(s.values), outer: s.outer}
			row.values[a] = values
			result = append(result, row)
		}
	}
	return result, nil
}

func copyValues(values map[querytree.Node]map[string]interface{}) map[querytree.Node]map[string]interface{} {
	result := make(map[querytree.Node]map[string]interface{}, len(values)+1)
	for k, v := range values {
		result[k] = v
	}
	return result
}
