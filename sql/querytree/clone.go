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

// Clone returns a deep copy of the tree. Back references to nodes inside the
// tree point to their copies; back references to nodes outside are kept.
func Clone(n Node) Node {
	return CloneAndReplace(n, nil)
}

// CloneAndReplace is like Clone, but nodes that are keys of replacements are
// replaced by the mapped node instead of being copied.
func CloneAndReplace(n Node, replacements map[Node]Node) Node {
	if n == nil {
		return nil
	}
	c := &cloner{replacements: replacements, mapping: make(map[Node]Node)}
	result := c.clone(n)
	for _, copied := range c.mapping {
		switch copied := copied.(type) {
		case *ColumnNode:
			if src, ok := c.mapping[copied.Source]; ok && copied.Source != nil {
				copied.Source = src
			}
		case *ConstantNode:
			if src, ok := c.mapping[copied.SourceExpression]; ok && copied.SourceExpression != nil {
				copied.SourceExpression = src
			}
		}
	}
	return result
}

type cloner struct {
	replacements map[Node]Node
	mapping      map[Node]Node
}

func (c *cloner) clone(n Node) Node {
	if n == nil {
		return nil
	}
	if r, ok := c.replacements[n]; ok {
		return r
	}
	copied := shallowCopy(n)
	c.mapping[n] = copied
	for _, slot := range slots(copied) {
		*slot = c.clone(*slot)
	}
	return copied
}

func shallowCopy(n Node) Node {
	switch n := n.(type) {
	case *IdentifierNode:
		c := *n
		c.Modifiers = n.Modifiers.clone()
		return &c
	case *ColumnNode:
		c := *n
		return &c
	case *ConstantNode:
		c := *n
		return &c
	case *FunctionNode:
		c := *n
		return &c
	case *LambdaNode:
		c := *n
		c.ArgumentNames = append([]string(nil), n.ArgumentNames...)
		return &c
	case *ListNode:
		c := *n
		c.Nodes = append([]Node(nil), n.Nodes...)
		return &c
	case *QueryNode:
		c := *n
		c.projectionColumns = append([]NameAndType(nil), n.projectionColumns...)
		if n.CorrelatedColumns != nil {
			c.CorrelatedColumns = NewListNode(AsList(n.CorrelatedColumns).Nodes...)
		}
		return &c
	case *UnionNode:
		c := *n
		c.projectionColumns = append([]NameAndType(nil), n.projectionColumns...)
		if n.CorrelatedColumns != nil {
			c.CorrelatedColumns = NewListNode(AsList(n.CorrelatedColumns).Nodes...)
		}
		return &c
	case *TableNode:
		c := *n
		c.Modifiers = n.Modifiers.clone()
		return &c
	case *TableFunctionNode:
		c := *n
		c.Modifiers = n.Modifiers.clone()
		return &c
	case *MatcherNode:
		c := *n
		c.ColumnIdentifiers = append([]Identifier(nil), n.ColumnIdentifiers...)
		return &c
	case *JoinNode:
		c := *n
		return &c
	case *CrossJoinNode:
		c := *n
		return &c
	case *ArrayJoinNode:
		c := *n
		return &c
	case *SortNode:
		c := *n
		return &c
	case *WindowNode:
		c := *n
		return &c
	case *InterpolateNode:
		c := *n
		return &c
	case *ColumnTransformerNode:
		c := *n
		c.ExceptNames = append([]string(nil), n.ExceptNames...)
		c.ReplaceNames = append([]string(nil), n.ReplaceNames...)
		return &c
	}
	panic("unknown query tree node")
}
