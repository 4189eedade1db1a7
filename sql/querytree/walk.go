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

package querytree

// slots returns every child slot of the node in a stable order, nil children
// included. The arity is fixed per kind, except for lists.
func slots(n Node) []*Node {
	switch n := n.(type) {
	case *ColumnNode:
		return []*Node{&n.Expression}
	case *FunctionNode:
		return []*Node{&n.Parameters, &n.Arguments, &n.Window}
	case *LambdaNode:
		return []*Node{&n.Arguments, &n.Expression}
	case *ListNode:
		return n.Slots()
	case *QueryNode:
		return []*Node{
			&n.With, &n.Projection, &n.JoinTree, &n.Prewhere, &n.Where, &n.GroupBy,
			&n.Having, &n.Window, &n.Qualify, &n.OrderBy, &n.Interpolate,
			&n.LimitByLimit, &n.LimitByOffset, &n.LimitBy, &n.Limit, &n.Offset,
		}
	case *UnionNode:
		return []*Node{&n.Queries}
	case *TableFunctionNode:
		return []*Node{&n.Arguments}
	case *MatcherNode:
		return []*Node{&n.Transformers}
	case *JoinNode:
		return []*Node{&n.Left, &n.Right, &n.Expression}
	case *CrossJoinNode:
		return []*Node{&n.TableExpressions}
	case *ArrayJoinNode:
		return []*Node{&n.TableExpression, &n.JoinExpressions}
	case *SortNode:
		return []*Node{&n.Expression, &n.FillFrom, &n.FillTo, &n.FillStep}
	case *WindowNode:
		return []*Node{&n.PartitionBy, &n.OrderBy, &n.FrameBeginOffset, &n.FrameEndOffset}
	case *InterpolateNode:
		return []*Node{&n.Expression, &n.InterpolateExpression}
	case *ColumnTransformerNode:
		return []*Node{&n.Expression, &n.Replacements}
	}
	return nil
}

// Children returns the slots of the non-nil children of the node. Writing
// through a slot replaces the child.
func Children(n Node) []*Node {
	all := slots(n)
	result := make([]*Node, 0, len(all))
	for _, s := range all {
		if *s != nil {
			result = append(result, s)
		}
	}
	return result
}

// Inspect traverses the tree in depth-first order, calling f for each node
// before its children. Children are skipped if f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, child := range Children(n) {
		Inspect(*child, f)
	}
}

// InspectSlots is like Inspect but passes the slot of each node, starting
// with the given one.
func InspectSlots(slot *Node, f func(*Node) bool) {
	if *slot == nil || !f(slot) {
		return
	}
	for _, child := range Children(*slot) {
		InspectSlots(child, f)
	}
}

// InspectExpression is like Inspect but does not descend into subqueries and
// lambdas, which have their own scope.
func InspectExpression(n Node, f func(Node) bool) {
	Inspect(n, func(c Node) bool {
		if c != n {
			switch c.(type) {
			case *QueryNode, *UnionNode, *LambdaNode:
				f(c)
				return false
			}
		}
		return f(c)
	})
}

// CountNodes returns the number of nodes in the tree.
func CountNodes(n Node) int {
	count := 0
	Inspect(n, func(Node) bool {
		count++
		return true
	})
	return count
}

// ExtractTableExpressions returns the leaf table expressions of a join tree:
// tables, table functions, queries and unions.
func ExtractTableExpressions(joinTree Node) []Node {
	var result []Node
	var visit func(Node)
	visit = func(n Node) {
		switch n := n.(type) {
		case *JoinNode:
			visit(n.Left)
			visit(n.Right)
		case *CrossJoinNode:
			for _, t := range n.TablesList().Nodes {
				visit(t)
			}
		case *ArrayJoinNode:
			visit(n.TableExpression)
		case nil:
		default:
			result = append(result, n)
		}
	}
	visit(joinTree)
	return result
}
