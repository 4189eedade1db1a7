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
	"github.com/dolthub/go-query-analyzer/sql/expression/function"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// scope holds the values visible while evaluating an expression for one row:
// the columns of every table expression of the row, keyed by the table
// expression node, and the results of the aggregates of the row group.
type scope struct {
	values     map[querytree.Node]map[string]interface{}
	aggregates map[*querytree.FunctionNode]interface{}
	outer      *scope
}

func newScope(outer *scope) *scope {
	return &scope{
		values: make(map[querytree.Node]map[string]interface{}),
		outer:  outer,
	}
}

// merge returns a scope with the values of both scopes. Both must share the
// same outer scope.
func merge(a, b *scope) *scope {
	s := newScope(a.outer)
	for k, v := range a.values {
		s.values[k] = v
	}
	for k, v := range b.values {
		s.values[k] = v
	}
	return s
}

// column returns the value of a column. sourceFound is false when no scope
// has values for the column source.
func (s *scope) column(c *querytree.ColumnNode) (v interface{}, sourceFound, found bool) {
	for cur := s; cur != nil; cur = cur.outer {
		if values, ok := cur.values[c.Source]; ok {
			v, found = values[c.Name]
			return v, true, found
		}
	}
	return nil, false, false
}

func (s *scope) aggregate(f *querytree.FunctionNode) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.outer {
		if v, ok := cur.aggregates[f]; ok {
			return v, true
		}
	}
	return nil, false
}

// eval computes the value of a resolved expression.
func eval(ctx *sql.Context, n querytree.Node, s *scope) (interface{}, error) {
	switch n := n.(type) {
	case *querytree.ConstantNode:
		return n.Value, nil
	case *querytree.ColumnNode:
		return evalColumn(ctx, n, s)
	case *querytree.FunctionNode:
		switch {
		case n.IsAggregateFunction():
			v, ok := s.aggregate(n)
			if !ok {
				return nil, sql.ErrLogical.New("aggregate function " + n.Name + " is evaluated outside of aggregation")
			}
			return v, nil
		case n.IsWindowFunction():
			return nil, sql.NewErr(sql.ErrNotImplemented, "Window function %s cannot be executed", n.Name)
		case n.IsOrdinaryFunction():
			return evalFunction(ctx, n, s)
		}
		return nil, sql.ErrLogical.New("function " + n.Name + " is not resolved")
	case *querytree.ListNode:
		values := make([]interface{}, len(n.Nodes))
		for i, e := range n.Nodes {
			v, err := eval(ctx, e, s)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	case *querytree.QueryNode, *querytree.UnionNode:
		return evalScalar(ctx, n, s)
	case *querytree.LambdaNode:
		return lambda(ctx, n, s), nil
	case nil:
		return nil, sql.ErrLogical.New("evaluating an empty expression")
	}
	return nil, sql.NewErr(sql.ErrNotImplemented, "%s %s cannot be evaluated", n.Kind(), querytree.String(n))
}

func evalColumn(ctx *sql.Context, c *querytree.ColumnNode, s *scope) (interface{}, error) {
	v, sourceFound, found := s.column(c)
	if found {
		return v, nil
	}

	switch e := c.Expression.(type) {
	case nil:
	case *querytree.ListNode:
		// USING column: the value of the first side that has one.
		for _, side := range e.Nodes {
			v, err := eval(ctx, side, s)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	default:
		return eval(ctx, e, s)
	}

	if sourceFound {
		return nil, nil
	}
	return nil, sql.ErrLogical.New("column " + c.Name + " has no value source")
}

func evalFunction(ctx *sql.Context, f *querytree.FunctionNode, s *scope) (interface{}, error) {
	fn := f.Function()
	if fn == nil {
		return nil, sql.ErrLogical.New("function " + f.Name + " has no implementation")
	}

	args := f.ArgumentNodes()
	values := make([]interface{}, len(args))
	for i, a := range args {
		var v interface{}
		var err error
		switch a.(type) {
		case *querytree.QueryNode, *querytree.UnionNode, *querytree.TableNode:
			if function.IsInFunction(fn.Name()) && i == 1 {
				v, err = evalSet(ctx, a, s)
				break
			}
			v, err = eval(ctx, a, s)
		default:
			v, err = eval(ctx, a, s)
		}
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return fn.Eval(ctx, values)
}

func lambda(ctx *sql.Context, l *querytree.LambdaNode, s *scope) sql.Lambda {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != len(l.ArgumentNames) {
			return nil, sql.NewErr(sql.ErrIllegalArgument,
				"Lambda %s expect %d arguments. Actual: %d", querytree.String(l), len(l.ArgumentNames), len(args))
		}
		values := make(map[string]interface{}, len(args))
		for i, name := range l.ArgumentNames {
			values[name] = args[i]
		}
		inner := newScope(s)
		inner.values[l] = values
		return eval(ctx, l.Expression, inner)
	}
}

// evalScalar runs a subquery that must return at most one row.
func evalScalar(ctx *sql.Context, n querytree.Node, s *scope) (interface{}, error) {
	block, err := execute(ctx, n, s)
	if err != nil {
		return nil, err
	}
	switch len(block.Rows) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, sql.NewErr(sql.ErrScalarSubqueryCardinality, "Scalar subquery returned more than one row")
	}
	row := block.Rows[0]
	if len(row) == 1 {
		return row[0], nil
	}
	return sql.Tuple(append([]interface{}(nil), row...)), nil
}

// evalSet runs the right side of IN: one element per row, tuples for rows
// with several columns.
func evalSet(ctx *sql.Context, n querytree.Node, s *scope) (interface{}, error) {
	var block *sql.Block
	var err error
	if t, ok := n.(*querytree.TableNode); ok {
		block, err = scanTable(ctx, t, t.Storage)
	} else {
		block, err = execute(ctx, n, s)
	}
	if err != nil {
		return nil, err
	}
	elements := make([]interface{}, len(block.Rows))
	for i, row := range block.Rows {
		if len(row) == 1 {
			elements[i] = row[0]
		} else {
			elements[i] = sql.Tuple(append([]interface{}(nil), row...))
		}
	}
	return elements, nil
}

// isTrue returns whether a filter value keeps the row.
func isTrue(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case uint64:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}
