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
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/hash"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// Executor runs resolved queries over in-memory tables. It is the executor
// the analyzer uses to compute scalar subqueries.
//
// Supported are joins of every kind, ARRAY JOIN, WHERE, GROUP BY with
// aggregates, HAVING, DISTINCT, ORDER BY, LIMIT and OFFSET, and UNION.
// Window functions and LIMIT BY are not.
type Executor struct {
	executions uint64
}

// NewExecutor returns a new executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Executions returns how many queries the executor has run.
func (e *Executor) Executions() uint64 {
	return atomic.LoadUint64(&e.executions)
}

// Execute runs a resolved query or union. A maxRows greater than zero stops
// the result at maxRows+1 rows, enough for callers to tell a result that is
// too large.
func (e *Executor) Execute(ctx *sql.Context, n querytree.Node, maxRows uint64) (*sql.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	atomic.AddUint64(&e.executions, 1)

	span, ctx := ctx.Span("memory.execute")
	defer span.Finish()

	logrus.WithField("query", querytree.String(n)).Debug("executing query")

	block, err := execute(ctx, n, nil)
	if err != nil {
		return nil, err
	}
	if maxRows > 0 && uint64(len(block.Rows)) > maxRows+1 {
		block.Rows = block.Rows[:maxRows+1]
	}
	return block, nil
}

func execute(ctx *sql.Context, n querytree.Node, outer *scope) (*sql.Block, error) {
	switch n := n.(type) {
	case *querytree.QueryNode:
		return executeQuery(ctx, n, outer)
	case *querytree.UnionNode:
		return executeUnion(ctx, n, outer)
	case *querytree.TableNode:
		return scanTable(ctx, n, n.Storage)
	case *querytree.TableFunctionNode:
		return scanTable(ctx, n, n.Storage())
	}
	return nil, sql.NewErr(sql.ErrBadArguments, "Node %s with type %s cannot be executed", querytree.String(n), n.Kind())
}

func blockColumns(columns []querytree.NameAndType) []sql.BlockColumn {
	result := make([]sql.BlockColumn, len(columns))
	for i, c := range columns {
		result[i] = sql.BlockColumn{Name: c.Name, Type: c.Type}
	}
	return result
}

func scanTable(ctx *sql.Context, n querytree.Node, t sql.Table) (*sql.Block, error) {
	source, ok := t.(sql.RowSource)
	if !ok {
		return nil, sql.NewErr(sql.ErrNotImplemented, "Table %s cannot be read", querytree.String(n))
	}
	rows, err := source.Rows(ctx)
	if err != nil {
		return nil, err
	}
	block := &sql.Block{Rows: rows}
	for _, c := range storedColumns(t.Columns()) {
		block.Columns = append(block.Columns, sql.BlockColumn{Name: c.Name, Type: c.Type})
	}
	return block, nil
}

// output is a row of the result together with the scope it was computed in,
// which ORDER BY needs.
type output struct {
	scope  *scope
	values sql.Row
}

func executeQuery(ctx *sql.Context, q *querytree.QueryNode, outer *scope) (*sql.Block, error) {
	if q.LimitBy != nil && querytree.AsList(q.LimitBy).Len() > 0 {
		return nil, sql.NewErr(sql.ErrNotImplemented, "LIMIT BY cannot be executed")
	}

	rows, err := joinTreeRows(ctx, q.JoinTree, outer)
	if err != nil {
		return nil, err
	}
	for _, filter := range []querytree.Node{q.Prewhere, q.Where} {
		if rows, err = filterRows(ctx, filter, rows); err != nil {
			return nil, err
		}
	}

	aggregates := collectAggregates(q)
	if q.HasGroupBy() || len(aggregates) > 0 {
		if rows, err = groupRows(ctx, q, rows, aggregates, outer); err != nil {
			return nil, err
		}
	}
	for _, filter := range []querytree.Node{q.Having, q.Qualify} {
		if rows, err = filterRows(ctx, filter, rows); err != nil {
			return nil, err
		}
	}

	projection := q.ProjectionList().Nodes
	result := make([]output, 0, len(rows))
	for _, s := range rows {
		values := make(sql.Row, len(projection))
		for i, p := range projection {
			v, err := eval(ctx, p, s)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		result = append(result, output{s, values})
	}

	if q.IsDistinct {
		if result, err = distinct(result); err != nil {
			return nil, err
		}
	}
	if err := sortRows(ctx, q.OrderByList().Nodes, result); err != nil {
		return nil, err
	}
	if result, err = limitRows(q, result); err != nil {
		return nil, err
	}

	block := &sql.Block{Columns: blockColumns(q.ProjectionColumns())}
	for _, r := range result {
		block.Rows = append(block.Rows, r.values)
	}
	return block, nil
}

func filterRows(ctx *sql.Context, filter querytree.Node, rows []*scope) ([]*scope, error) {
	if filter == nil {
		return rows, nil
	}
	var kept []*scope
	for _, s := range rows {
		v, err := eval(ctx, filter, s)
		if err != nil {
			return nil, err
		}
		if isTrue(v) {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// collectAggregates returns the aggregate functions computed by the query.
func collectAggregates(q *querytree.QueryNode) []*querytree.FunctionNode {
	var result []*querytree.FunctionNode
	for _, section := range []querytree.Node{q.Projection, q.Having, q.Qualify, q.OrderBy} {
		querytree.InspectExpression(section, func(n querytree.Node) bool {
			f, ok := n.(*querytree.FunctionNode)
			if ok && f.IsAggregateFunction() {
				result = append(result, f)
				return false
			}
			switch n.(type) {
			case *querytree.QueryNode, *querytree.UnionNode:
				return false
			}
			return true
		})
	}
	return result
}

type group struct {
	keys   []interface{}
	scope  *scope
	states []sql.AggregateState
}

func constantParameters(f *querytree.FunctionNode) ([]interface{}, error) {
	var params []interface{}
	for _, p := range f.ParametersList().Nodes {
		c, ok := p.(*querytree.ConstantNode)
		if !ok {
			return nil, sql.NewErr(sql.ErrIllegalArgument,
				"Parameter %s for function %s expected to have constant value", querytree.String(p), f.Name)
		}
		params = append(params, c.Value)
	}
	return params, nil
}

func newStates(aggregates []*querytree.FunctionNode) ([]sql.AggregateState, error) {
	states := make([]sql.AggregateState, len(aggregates))
	for i, f := range aggregates {
		params, err := constantParameters(f)
		if err != nil {
			return nil, err
		}
		args := f.ArgumentNodes()
		types := make([]sql.Type, len(args))
		for j, a := range args {
			types[j] = querytree.ResultType(a)
		}
		if states[i], err = f.Aggregate().NewState(params, types); err != nil {
			return nil, err
		}
	}
	return states, nil
}

// groupRows returns one scope per group, holding the values of the first row
// of the group and the aggregate results.
func groupRows(
	ctx *sql.Context,
	q *querytree.QueryNode,
	rows []*scope,
	aggregates []*querytree.FunctionNode,
	outer *scope,
) ([]*scope, error) {
	keyNodes := q.GroupByList().Nodes
	groups := make(map[uint64][]*group)
	var ordered []*group

	for _, s := range rows {
		keys := make([]interface{}, len(keyNodes))
		for i, k := range keyNodes {
			v, err := eval(ctx, k, s)
			if err != nil {
				return nil, err
			}
			keys[i] = v
		}
		h, err := hash.HashOf(keys...)
		if err != nil {
			return nil, err
		}

		var g *group
		for _, candidate := range groups[h] {
			if sql.CompareValues(candidate.keys, keys) == 0 {
				g = candidate
				break
			}
		}
		if g == nil {
			states, err := newStates(aggregates)
			if err != nil {
				return nil, err
			}
			g = &group{keys: keys, scope: s, states: states}
			groups[h] = append(groups[h], g)
			ordered = append(ordered, g)
		}

		for i, f := range aggregates {
			args := f.ArgumentNodes()
			values := make([]interface{}, len(args))
			for j, a := range args {
				if values[j], err = eval(ctx, a, s); err != nil {
					return nil, err
				}
			}
			if err := g.states[i].Update(values); err != nil {
				return nil, err
			}
		}
	}

	// Aggregation without keys yields a row even for empty input.
	if len(ordered) == 0 && len(keyNodes) == 0 {
		states, err := newStates(aggregates)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, &group{scope: newScope(outer), states: states})
	}

	result := make([]*scope, len(ordered))
	for i, g := range ordered {
		s := &scope{values: g.scope.values, outer: g.scope.outer}
		s.aggregates = make(map[*querytree.FunctionNode]interface{}, len(aggregates))
		for j, f := range aggregates {
			s.aggregates[f] = g.states[j].Result()
		}
		result[i] = s
	}
	return result, nil
}

func distinct(rows []output) ([]output, error) {
	seen := make(map[uint64][]sql.Row)
	var result []output
	for _, r := range rows {
		h, err := hash.HashOf([]interface{}(r.values)...)
		if err != nil {
			return nil, err
		}
		duplicate := false
		for _, other := range seen[h] {
			if sql.CompareValues([]interface{}(other), []interface{}(r.values)) == 0 {
				duplicate = true
				break
			}
		}
		if !duplicate {
			seen[h] = append(seen[h], r.values)
			result = append(result, r)
		}
	}
	return result, nil
}

func sortRows(ctx *sql.Context, sorts []querytree.Node, rows []output) error {
	if len(sorts) == 0 {
		return nil
	}

	keys := make([][]interface{}, len(rows))
	for i, r := range rows {
		keys[i] = make([]interface{}, len(sorts))
		for j, n := range sorts {
			expr := n
			if s, ok := n.(*querytree.SortNode); ok {
				expr = s.Expression
			}
			v, err := eval(ctx, expr, r.scope)
			if err != nil {
				return err
			}
			keys[i][j] = v
		}
	}

	index := make([]int, len(rows))
	for i := range index {
		index[i] = i
	}
	// NULLs go last unless NULLS FIRST is given, whatever the direction.
	sort.SliceStable(index, func(x, y int) bool {
		ka, kb := keys[index[x]], keys[index[y]]
		for j, n := range sorts {
			direction, nulls := querytree.Ascending, querytree.NullsDefault
			if s, ok := n.(*querytree.SortNode); ok {
				direction, nulls = s.Direction, s.Nulls
			}
			a, b := ka[j], kb[j]
			if (a == nil) != (b == nil) {
				return (a == nil) == (nulls == querytree.NullsFirst)
			}
			c := sql.CompareValues(a, b)
			if c == 0 {
				continue
			}
			if direction == querytree.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	sorted := make([]output, len(rows))
	for i, j := range index {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
	return nil
}

func limitRows(q *querytree.QueryNode, rows []output) ([]output, error) {
	offset, err := limitValue(q.Offset, 0)
	if err != nil {
		return nil, err
	}
	limit, err := limitValue(q.Limit, uint64(len(rows)))
	if err != nil {
		return nil, err
	}
	if offset >= uint64(len(rows)) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit < uint64(len(rows)) {
		rows = rows[:limit]
	}
	return rows, nil
}

func limitValue(n querytree.Node, def uint64) (uint64, error) {
	if n == nil {
		return def, nil
	}
	c, ok := n.(*querytree.ConstantNode)
	if !ok {
		return 0, sql.NewErr(sql.ErrIllegalArgument,
			"%s LIMIT/OFFSET expression must be constant with numeric type", querytree.String(n))
	}
	return cast.ToUint64E(c.Value)
}

func executeUnion(ctx *sql.Context, u *querytree.UnionNode, outer *scope) (*sql.Block, error) {
	var blocks []*sql.Block
	for _, q := range u.QueriesList().Nodes {
		b, err := execute(ctx, q, outer)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	result := &sql.Block{Columns: blockColumns(u.ProjectionColumns())}
	if len(blocks) == 0 {
		return result, nil
	}

	switch u.Mode {
	case querytree.UnionAll:
		for _, b := range blocks {
			result.Rows = append(result.Rows, b.Rows...)
		}
	case querytree.UnionDistinct, querytree.UnionDefault:
		var all []output
		for _, b := range blocks {
			for _, r := range b.Rows {
				all = append(all, output{values: r})
			}
		}
		unique, err := distinct(all)
		if err != nil {
			return nil, err
		}
		for _, r := range unique {
			result.Rows = append(result.Rows, r.values)
		}
	case querytree.ExceptAll, querytree.ExceptDistinct, querytree.IntersectAll, querytree.IntersectDistinct:
		except := u.Mode == querytree.ExceptAll || u.Mode == querytree.ExceptDistinct
		rows := blocks[0].Rows
		for _, b := range blocks[1:] {
			var kept []sql.Row
			for _, r := range rows {
				if containsRow(b.Rows, r) != except {
					kept = append(kept, r)
				}
			}
			rows = kept
		}
		if u.Mode == querytree.ExceptDistinct || u.Mode == querytree.IntersectDistinct {
			var all []output
			for _, r := range rows {
				all = append(all, output{values: r})
			}
			unique, err := distinct(all)
			if err != nil {
				return nil, err
			}
			rows = nil
			for _, r := range unique {
				rows = append(rows, r.values)
			}
		}
		result.Rows = rows
	}
	return result, nil
}

func containsRow(rows []sql.Row, row sql.Row) bool {
	for _, r := range rows {
		if sql.CompareValues([]interface{}(r), []interface{}(row)) == 0 {
			return true
		}
	}
	return false
}
