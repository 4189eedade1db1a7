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

// expressionAliasVisitor registers the aliases of the expressions of a tree.
// Lambdas and subqueries are registered but not visited: their inner
// aliases belong to their own scope.
type expressionAliasVisitor struct {
	aliases *scopeAliases
}

func newExpressionAliasVisitor(a *scopeAliases) *expressionAliasVisitor {
	return &expressionAliasVisitor{aliases: a}
}

func (v *expressionAliasVisitor) visit(n querytree.Node) {
	if n == nil {
		return
	}
	v.add(n, false)
	for _, slot := range querytree.Children(n) {
		switch c := (*slot).(type) {
		case nil:
		case *querytree.LambdaNode:
			v.add(c, true)
		case *querytree.QueryNode:
			if !c.IsCTE {
				v.add(c, false)
			}
		case *querytree.UnionNode:
			if !c.IsCTE {
				v.add(c, false)
			}
		default:
			v.visit(c)
		}
	}
}

func (v *expressionAliasVisitor) add(n querytree.Node, isLambda bool) {
	if !n.HasAlias() {
		return
	}
	switch n.(type) {
	case *querytree.WindowNode, *querytree.SortNode, *querytree.InterpolateNode, *querytree.ColumnTransformerNode:
		return
	}
	alias := n.Alias()
	a := v.aliases

	if isLambda {
		if _, ok := a.expressions[alias]; ok {
			a.markDuplicated(n)
		}
		if _, ok := a.lambdas[alias]; ok {
			a.markDuplicated(n)
			return
		}
		a.lambdas[alias] = n
		return
	}

	if _, ok := a.lambdas[alias]; ok {
		a.markDuplicated(n)
	}
	if _, ok := a.expressions[alias]; ok {
		a.markDuplicated(n)
		return
	}
	a.expressions[alias] = n
	if id, ok := n.(*querytree.IdentifierNode); ok {
		a.transitive[alias] = id.Identifier
	}
}

// registerTableExpressionAliases registers the aliases of the table
// expressions of a join tree. Subqueries are not visited.
func registerTableExpressionAliases(joinTree querytree.Node, s *scope) error {
	if joinTree == nil {
		return nil
	}
	if joinTree.HasAlias() {
		alias := joinTree.Alias()
		if _, ok := s.aliases.tableExpressions[alias]; ok {
			return sql.NewErr(sql.ErrMultipleExpressionsForAlias,
				"Multiple table expressions with same alias %s. In scope %s", alias, s.description())
		}
		s.aliases.tableExpressions[alias] = joinTree
	}

	switch n := joinTree.(type) {
	case *querytree.JoinNode:
		if err := registerTableExpressionAliases(n.Left, s); err != nil {
			return err
		}
		return registerTableExpressionAliases(n.Right, s)
	case *querytree.CrossJoinNode:
		for _, te := range n.TablesList().Nodes {
			if err := registerTableExpressionAliases(te, s); err != nil {
				return err
			}
		}
	case *querytree.ArrayJoinNode:
		return registerTableExpressionAliases(n.TableExpression, s)
	}
	return nil
}

// updateAliasAfterResolve points the alias of the original node to its
// resolved replacement, so later uses of the alias start from it.
func updateAliasAfterResolve(original, resolved querytree.Node, s *scope, allowLambda bool) {
	if !original.HasAlias() || s.groupByUseNulls {
		return
	}
	alias := original.Alias()
	if n, ok := s.aliases.expressions[alias]; ok && n == original {
		s.aliases.expressions[alias] = resolved
	}
	if allowLambda {
		if n, ok := s.aliases.lambdas[alias]; ok && n == original {
			s.aliases.lambdas[alias] = resolved
		}
	}
}
