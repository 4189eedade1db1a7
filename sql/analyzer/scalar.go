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

	"github.com/opentracing/opentracing-go"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/expression/function"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// scalarResult is the computed value of a scalar subquery.
type scalarResult struct {
	typ   sql.Type
	value interface{}
}

func (r *scalarResult) scalar() sql.Scalar {
	return sql.Scalar{Type: r.typ, Value: r.value}
}

// evaluateScalarSubqueryIfNeeded computes the resolved, uncorrelated
// subquery in the slot and replaces it with its value. Values of composite
// types are registered in the query context and read with __getScalar.
func (qa *queryAnalyzer) evaluateScalarSubqueryIfNeeded(slot *querytree.Node, sub *scope) error {
	node := *slot
	switch node.(type) {
	case *querytree.QueryNode, *querytree.UnionNode:
	default:
		return sql.ErrLogical.New(fmt.Sprintf(
			"Node must have query or union type. Actual %s %s", node.Kind(), querytree.String(node)))
	}
	if querytree.IsCorrelated(node) {
		return sql.NewErr(sql.ErrNotImplemented, "Cannot evaluate correlated scalar subquery")
	}

	withoutAlias := querytree.Clone(node)
	withoutAlias.RemoveAlias()
	hash := querytree.TreeHash(withoutAlias)
	key := strconv.FormatUint(hash, 16)

	span, ctx := qa.ctx.Span("scalar_subquery", opentracing.Tags{"hash": key})
	defer span.Finish()

	canUseGlobal := !sub.settings.OnlyAnalyze && !qa.readsViewSource(node)
	cache := qa.localScalarCache
	if canUseGlobal {
		cache = qa.globalScalarCache
	}

	result, cacheHit := cache[hash]
	if !cacheHit {
		registry := ctx.QueryContext()
		if canUseGlobal && registry != nil {
			scalar, registered, err := registry.GetOrCompute(key, func() (sql.Scalar, error) {
				r, err := qa.executeScalarSubquery(ctx, node, sub)
				if err != nil {
					return sql.Scalar{}, err
				}
				return r.scalar(), nil
			})
			if err != nil {
				return err
			}
			result = &scalarResult{typ: scalar.Type, value: scalar.Value}
			cacheHit = registered
		} else {
			r, err := qa.executeScalarSubquery(ctx, node, sub)
			if err != nil {
				return err
			}
			result = r
		}
		cache[hash] = result
	}
	span.SetTag("cache_hit", cacheHit)

	replacement, err := qa.scalarReplacement(node, key, result, sub)
	if err != nil {
		return err
	}
	*slot = replacement
	return nil
}

// readsViewSource returns whether the subquery reads the table the query is
// the view source of. Such results cannot be shared with other queries.
func (qa *queryAnalyzer) readsViewSource(n querytree.Node) bool {
	view := qa.ctx.ViewSource()
	if view == "" {
		return false
	}
	found := false
	querytree.Inspect(n, func(n querytree.Node) bool {
		if t, ok := n.(*querytree.TableNode); ok && (t.TableName() == view || t.FullName() == view) {
			found = true
		}
		return !found
	})
	return found
}

// executeScalarSubquery runs the subquery and checks it returned one row.
// Without an executor, or with only_analyze, the row holds the default
// values of the projection types.
func (qa *queryAnalyzer) executeScalarSubquery(ctx *sql.Context, n querytree.Node, s *scope) (*scalarResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	columns := querytree.ProjectionColumnsOf(n)
	if len(columns) == 0 {
		return nil, sql.ErrLogical.New("scalar subquery " + querytree.String(n) + " has no projection columns")
	}

	var block *sql.Block
	if s.settings.OnlyAnalyze || qa.Executor == nil {
		row := make(sql.Row, len(columns))
		for i, c := range columns {
			row[i] = c.Type.Default()
		}
		block = &sql.Block{Rows: []sql.Row{row}}
	} else {
		qa.Log("executing scalar subquery %s", querytree.String(n))
		var err error
		if block, err = qa.Executor.Execute(ctx, n, 1); err != nil {
			return nil, err
		}
	}

	t := columns[0].Type
	if len(columns) > 1 {
		elems := make([]sql.Type, len(columns))
		for i, c := range columns {
			elems[i] = c.Type
		}
		t = sql.NewTupleType(elems, uniqueTupleNames(columns))
	}

	switch {
	case block.NumRows() == 0:
		if !sql.IsNullable(t) && !sql.CanBeInsideNullable(t) {
			return nil, sql.NewErr(sql.ErrScalarSubqueryCardinality,
				"Scalar subquery returned empty result of type %s which cannot be Nullable", t.Name())
		}
		return &scalarResult{typ: sql.MakeNullable(t), value: nil}, nil
	case block.NumRows() > 1:
		return nil, sql.NewErr(sql.ErrScalarSubqueryCardinality, "Scalar subquery returned more than one row")
	}

	row := block.Rows[0]
	if len(row) != len(columns) {
		return nil, sql.ErrLogical.New(fmt.Sprintf(
			"scalar subquery returned %d columns, expected %d", len(row), len(columns)))
	}
	if len(columns) == 1 {
		return &scalarResult{typ: sql.MakeNullable(t), value: row[0]}, nil
	}
	return &scalarResult{typ: t, value: sql.Tuple(append([]interface{}(nil), row...))}, nil
}

// uniqueTupleNames returns the projection names, with a numeric suffix on
// repeated names.
func uniqueTupleNames(columns []querytree.NameAndType) []string {
	seen := make(map[string]int, len(columns))
	names := make([]string, len(columns))
	for i, c := range columns {
		name := c.Name
		if n := seen[c.Name]; n > 0 {
			name = fmt.Sprintf("%s_%d", c.Name, n)
		}
		seen[c.Name]++
		names[i] = name
	}
	return names
}

// scalarReplacement returns the node a computed scalar subquery is replaced
// by: a constant, or __getScalar for composite values.
func (qa *queryAnalyzer) scalarReplacement(original querytree.Node, key string, r *scalarResult, s *scope) (querytree.Node, error) {
	registry := qa.ctx.QueryContext()
	if !s.settings.EnableScalarSubqueryOptimization || !isComplexScalarType(r.typ) || registry == nil {
		if r.value == nil && !sql.IsNothing(sql.RemoveNullable(r.typ)) {
			cast, err := qa.buildCast(querytree.NewConstantNode(nil), r.typ, s)
			if err != nil {
				return nil, err
			}
			if c, ok := cast.(*querytree.ConstantNode); ok {
				c.SourceExpression = original
				return c, nil
			}
		}
		c := querytree.NewConstantNodeWithType(r.value, r.typ)
		c.SourceExpression = original
		return c, nil
	}

	analyzeKey := key
	if s.settings.OnlyAnalyze {
		analyzeKey += "_analyze"
	}
	registry.Add(analyzeKey, r.scalar())

	fn := querytree.NewFunctionNode(function.GetScalarName,
		querytree.NewConstantNodeWithType(analyzeKey, sql.String))
	fn.ResolveAsFunction(function.ResolveGetScalar(r.typ), r.typ)
	return fn, nil
}

// isComplexScalarType returns whether values of the type are kept in the
// query context instead of being inlined as constants.
func isComplexScalarType(t sql.Type) bool {
	switch sql.RemoveNullable(t).Kind() {
	case sql.KindArray, sql.KindTuple, sql.KindAggregateFunction, sql.KindFunction, sql.KindSet:
		return true
	}
	return false
}
