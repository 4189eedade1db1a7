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

// resolveLambda binds the arguments of the lambda to args and resolves its
// body in the lambda scope s. original is the lambda toResolve was cloned
// from; it identifies the lambda for recursion detection.
func (qa *queryAnalyzer) resolveLambda(original querytree.Node, toResolve *querytree.LambdaNode, args []querytree.Node, s *scope) ([]string, error) {
	if qa.lambdasInResolve[original] {
		return nil, sql.NewErr(sql.ErrRecursionDetected,
			"Recursive lambda %s. In scope %s", querytree.String(toResolve), s.description())
	}
	qa.lambdasInResolve[original] = true
	defer delete(qa.lambdasInResolve, original)

	names := toResolve.ArgumentNames
	if len(args) != len(names) {
		return nil, sql.NewErr(sql.ErrIllegalArgument,
			"Lambda %s expect %d arguments. Actual: %d. In scope %s",
			querytree.String(toResolve), len(names), len(args), s.description())
	}

	newExpressionAliasVisitor(s.aliases).visit(toResolve.Expression)

	for i, name := range names {
		_, isExpression := s.aliases.expressions[name]
		_, isLambda := s.aliases.lambdas[name]
		if isExpression || isLambda {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Alias name '%s' inside lambda %s cannot have same name as lambda argument. In scope %s",
				name, querytree.String(toResolve), s.description())
		}
		s.expressionArguments[name] = args[i]
	}
	toResolve.Arguments = querytree.NewListNode(args...)

	return qa.resolveExpressionNode(&toResolve.Expression, s, false, false, false)
}
