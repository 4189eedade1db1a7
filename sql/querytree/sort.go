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

// SortDirection is the direction of an ORDER BY element.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

func (d SortDirection) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// NullsOrder tells where NULL values go.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// SortNode is an ORDER BY element.
type SortNode struct {
	base
	Expression Node
	Direction  SortDirection
	Nulls      NullsOrder
	Collation  string
	WithFill   bool
	FillFrom   Node
	FillTo     Node
	FillStep   Node
}

// NewSortNode returns a sort element for the expression.
func NewSortNode(expr Node, direction SortDirection) *SortNode {
	return &SortNode{Expression: expr, Direction: direction}
}

func (*SortNode) Kind() NodeKind { return SortKind }
func (*SortNode) node()          {}

// FrameType is the unit of a window frame.
type FrameType int

const (
	RowsFrame FrameType = iota
	RangeFrame
	GroupsFrame
)

func (f FrameType) String() string {
	switch f {
	case RowsFrame:
		return "ROWS"
	case GroupsFrame:
		return "GROUPS"
	}
	return "RANGE"
}

// FrameBoundType is the type of a window frame bound.
type FrameBoundType int

const (
	UnboundedBound FrameBoundType = iota
	CurrentRowBound
	OffsetBound
)

// WindowFrame is the frame of a window.
type WindowFrame struct {
	IsDefault      bool
	Type           FrameType
	BeginType      FrameBoundType
	BeginPreceding bool
	EndType        FrameBoundType
	EndPreceding   bool
}

// DefaultWindowFrame returns RANGE BETWEEN UNBOUNDED PRECEDING AND CURRENT
// ROW.
func DefaultWindowFrame() WindowFrame {
	return WindowFrame{
		IsDefault:      true,
		Type:           RangeFrame,
		BeginType:      UnboundedBound,
		BeginPreceding: true,
		EndType:        CurrentRowBound,
	}
}

// WindowNode is a window definition, in OVER (...) or WINDOW w AS (...).
type WindowNode struct {
	base
	// ParentWindowName is the name of the window this one extends, as in
	// OVER (w ORDER BY x).
	ParentWindowName string
	PartitionBy      Node
	OrderBy          Node
	Frame            WindowFrame
	FrameBeginOffset Node
	FrameEndOffset   Node
}

// NewWindowNode returns a window with the default frame.
func NewWindowNode() *WindowNode {
	return &WindowNode{PartitionBy: NewListNode(), OrderBy: NewListNode(), Frame: DefaultWindowFrame()}
}

func (*WindowNode) Kind() NodeKind { return WindowKind }
func (*WindowNode) node()          {}

// PartitionByList returns the PARTITION BY expressions.
func (w *WindowNode) PartitionByList() *ListNode { return listField(&w.PartitionBy) }

// OrderByList returns the ORDER BY sort nodes.
func (w *WindowNode) OrderByList() *ListNode { return listField(&w.OrderBy) }

// InterpolateNode is an INTERPOLATE element of ORDER BY ... WITH FILL.
type InterpolateNode struct {
	base
	// Expression is the interpolated projection column.
	Expression Node
	// InterpolateExpression computes the filled value.
	InterpolateExpression Node
}

// NewInterpolateNode returns INTERPOLATE (column AS expr).
func NewInterpolateNode(column, expr Node) *InterpolateNode {
	return &InterpolateNode{Expression: column, InterpolateExpression: expr}
}

func (*InterpolateNode) Kind() NodeKind { return InterpolateKind }
func (*InterpolateNode) node()          {}
