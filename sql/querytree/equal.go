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

import (
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/hash"
)

// CompareOptions configure structural comparison and hashing.
type CompareOptions struct {
	IgnoreAliases bool
}

// Equal returns whether both trees are structurally equal, aliases included.
func Equal(a, b Node) bool {
	return EqualWithOptions(a, b, CompareOptions{})
}

// EqualIgnoringAliases returns whether both trees are structurally equal,
// without looking at aliases.
func EqualIgnoringAliases(a, b Node) bool {
	return EqualWithOptions(a, b, CompareOptions{IgnoreAliases: true})
}

// EqualWithOptions returns whether both trees are structurally equal.
func EqualWithOptions(a, b Node, opts CompareOptions) bool {
	c := &comparator{opts: opts, inProgress: make(map[nodePair]bool)}
	return c.equal(a, b)
}

type nodePair struct {
	a, b Node
}

type comparator struct {
	opts       CompareOptions
	inProgress map[nodePair]bool
}

func (c *comparator) equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if !c.opts.IgnoreAliases && a.Alias() != b.Alias() {
		return false
	}
	if !c.equalImpl(a, b) {
		return false
	}
	as, bs := slots(a), slots(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !c.equal(*as[i], *bs[i]) {
			return false
		}
	}
	return true
}

// equalSource compares back references. A pair already being compared is
// assumed equal, so cycles like lambda arguments pointing to their lambda
// terminate.
func (c *comparator) equalSource(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	pair := nodePair{a, b}
	if c.inProgress[pair] {
		return true
	}
	c.inProgress[pair] = true
	return c.equal(a, b)
}

func typesEqual(a, b sql.Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

func (c *comparator) equalImpl(a, b Node) bool {
	switch a := a.(type) {
	case *IdentifierNode:
		b := b.(*IdentifierNode)
		return a.Identifier.Equals(b.Identifier) && a.Modifiers.String() == b.Modifiers.String()
	case *ColumnNode:
		b := b.(*ColumnNode)
		return a.Name == b.Name && typesEqual(a.Type, b.Type) && c.equalSource(a.Source, b.Source)
	case *ConstantNode:
		b := b.(*ConstantNode)
		if !typesEqual(a.Type, b.Type) {
			return false
		}
		ha, errA := hash.HashOf(a.Value)
		hb, errB := hash.HashOf(b.Value)
		return errA == nil && errB == nil && ha == hb
	case *FunctionNode:
		b := b.(*FunctionNode)
		return a.Name == b.Name && a.kind == b.kind && typesEqual(a.resultType, b.resultType)
	case *LambdaNode:
		b := b.(*LambdaNode)
		return stringsEqual(a.ArgumentNames, b.ArgumentNames)
	case *ListNode:
		return len(a.Nodes) == len(b.(*ListNode).Nodes)
	case *QueryNode:
		b := b.(*QueryNode)
		return a.IsSubquery == b.IsSubquery && a.IsCTE == b.IsCTE && a.CTEName == b.CTEName &&
			a.IsDistinct == b.IsDistinct && a.IsLimitWithTies == b.IsLimitWithTies &&
			a.IsGroupByWithTotals == b.IsGroupByWithTotals && a.IsGroupByWithRollup == b.IsGroupByWithRollup &&
			a.IsGroupByWithCube == b.IsGroupByWithCube && a.IsGroupByWithGroupingSets == b.IsGroupByWithGroupingSets &&
			a.IsGroupByAll == b.IsGroupByAll && a.IsOrderByAll == b.IsOrderByAll &&
			a.IsRecursiveWith == b.IsRecursiveWith && projectionsEqual(a.projectionColumns, b.projectionColumns)
	case *UnionNode:
		b := b.(*UnionNode)
		return a.IsSubquery == b.IsSubquery && a.IsCTE == b.IsCTE && a.CTEName == b.CTEName &&
			a.IsRecursiveCTE == b.IsRecursiveCTE && a.Mode == b.Mode
	case *TableNode:
		b := b.(*TableNode)
		return a.FullName() == b.FullName() && a.Modifiers.String() == b.Modifiers.String()
	case *TableFunctionNode:
		b := b.(*TableFunctionNode)
		return a.Name == b.Name && a.Modifiers.String() == b.Modifiers.String()
	case *MatcherNode:
		b := b.(*MatcherNode)
		if a.MatcherType != b.MatcherType || !a.Qualifier.Equals(b.Qualifier) || a.Pattern != b.Pattern ||
			len(a.ColumnIdentifiers) != len(b.ColumnIdentifiers) {
			return false
		}
		for i := range a.ColumnIdentifiers {
			if !a.ColumnIdentifiers[i].Equals(b.ColumnIdentifiers[i]) {
				return false
			}
		}
		return true
	case *JoinNode:
		b := b.(*JoinNode)
		return a.JoinType == b.JoinType && a.Strictness == b.Strictness && a.IsUsing == b.IsUsing
	case *CrossJoinNode:
		return true
	case *ArrayJoinNode:
		return a.IsLeft == b.(*ArrayJoinNode).IsLeft
	case *SortNode:
		b := b.(*SortNode)
		return a.Direction == b.Direction && a.Nulls == b.Nulls && a.Collation == b.Collation && a.WithFill == b.WithFill
	case *WindowNode:
		b := b.(*WindowNode)
		return a.Frame == b.Frame && a.ParentWindowName == b.ParentWindowName
	case *InterpolateNode:
		return true
	case *ColumnTransformerNode:
		b := b.(*ColumnTransformerNode)
		return a.TransformerType == b.TransformerType && a.IsStrict == b.IsStrict &&
			a.ExceptPattern == b.ExceptPattern && stringsEqual(a.ExceptNames, b.ExceptNames) &&
			stringsEqual(a.ReplaceNames, b.ReplaceNames)
	}
	return false
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func projectionsEqual(a, b []NameAndType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !typesEqual(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

// TreeHash returns a structural hash of the tree, aliases included. Equal
// trees have equal hashes.
func TreeHash(n Node) uint64 {
	return TreeHashWithOptions(n, CompareOptions{})
}

// TreeHashWithOptions returns a structural hash of the tree.
func TreeHashWithOptions(n Node, opts CompareOptions) uint64 {
	h := hash.New()
	writeTreeHash(h, n, opts)
	return h.Sum64()
}

func writeTreeHash(h *hash.Hasher, n Node, opts CompareOptions) {
	if n == nil {
		h.WriteString("<nil>")
		return
	}
	h.WriteUint64(uint64(n.Kind()))
	if !opts.IgnoreAliases {
		h.WriteString(n.Alias())
	}
	switch n := n.(type) {
	case *IdentifierNode:
		h.WriteString(n.Identifier.FullName())
		h.WriteString(n.Modifiers.String())
	case *ColumnNode:
		h.WriteString(n.Name)
		writeType(h, n.Type)
		writeSourceHash(h, n.Source)
	case *ConstantNode:
		writeType(h, n.Type)
		_ = h.WriteValue(n.Value)
	case *FunctionNode:
		h.WriteString(n.Name)
		h.WriteUint64(uint64(n.kind))
		writeType(h, n.resultType)
	case *LambdaNode:
		for _, a := range n.ArgumentNames {
			h.WriteString(a)
		}
	case *ListNode:
		h.WriteUint64(uint64(len(n.Nodes)))
	case *QueryNode:
		h.WriteBool(n.IsSubquery)
		h.WriteBool(n.IsCTE)
		h.WriteString(n.CTEName)
		h.WriteBool(n.IsDistinct)
		h.WriteBool(n.IsGroupByWithTotals)
		h.WriteBool(n.IsGroupByWithRollup)
		h.WriteBool(n.IsGroupByWithCube)
		h.WriteBool(n.IsGroupByAll)
		h.WriteBool(n.IsOrderByAll)
		for _, c := range n.projectionColumns {
			h.WriteString(c.Name)
			writeType(h, c.Type)
		}
	case *UnionNode:
		h.WriteBool(n.IsSubquery)
		h.WriteBool(n.IsCTE)
		h.WriteString(n.CTEName)
		h.WriteUint64(uint64(n.Mode))
	case *TableNode:
		h.WriteString(n.FullName())
		h.WriteString(n.Modifiers.String())
	case *TableFunctionNode:
		h.WriteString(n.Name)
		h.WriteString(n.Modifiers.String())
	case *MatcherNode:
		h.WriteUint64(uint64(n.MatcherType))
		h.WriteString(n.Qualifier.FullName())
		h.WriteString(n.Pattern)
		for _, id := range n.ColumnIdentifiers {
			h.WriteString(id.FullName())
		}
	case *JoinNode:
		h.WriteUint64(uint64(n.JoinType))
		h.WriteUint64(uint64(n.Strictness))
		h.WriteBool(n.IsUsing)
	case *ArrayJoinNode:
		h.WriteBool(n.IsLeft)
	case *SortNode:
		h.WriteUint64(uint64(n.Direction))
		h.WriteUint64(uint64(n.Nulls))
		h.WriteString(n.Collation)
		h.WriteBool(n.WithFill)
	case *WindowNode:
		h.WriteString(n.ParentWindowName)
		h.WriteBool(n.Frame.IsDefault)
		h.WriteUint64(uint64(n.Frame.Type))
		h.WriteUint64(uint64(n.Frame.BeginType))
		h.WriteBool(n.Frame.BeginPreceding)
		h.WriteUint64(uint64(n.Frame.EndType))
		h.WriteBool(n.Frame.EndPreceding)
	case *ColumnTransformerNode:
		h.WriteUint64(uint64(n.TransformerType))
		h.WriteBool(n.IsStrict)
		h.WriteString(n.ExceptPattern)
		for _, name := range n.ExceptNames {
			h.WriteString(name)
		}
		for _, name := range n.ReplaceNames {
			h.WriteString(name)
		}
	}
	for _, slot := range slots(n) {
		writeTreeHash(h, *slot, opts)
	}
}

func writeType(h *hash.Hasher, t sql.Type) {
	if t == nil {
		h.WriteString("<untyped>")
		return
	}
	h.WriteString(t.Name())
}

// writeSourceHash hashes a back reference by its identity-defining
// attributes only, so hashing terminates on cycles.
func writeSourceHash(h *hash.Hasher, src Node) {
	if src == nil {
		h.WriteString("<no source>")
		return
	}
	h.WriteUint64(uint64(src.Kind()))
	h.WriteString(src.Alias())
	switch src := src.(type) {
	case *TableNode:
		h.WriteString(src.FullName())
	case *TableFunctionNode:
		h.WriteString(src.Name)
	case *QueryNode:
		h.WriteString(src.CTEName)
	case *UnionNode:
		h.WriteString(src.CTEName)
	case *LambdaNode:
		for _, a := range src.ArgumentNames {
			h.WriteString(a)
		}
	}
}
