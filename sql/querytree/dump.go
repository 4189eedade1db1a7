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
	"fmt"
	"strings"

	"github.com/dolthub/go-query-analyzer/sql"
)

// Dump returns an indented debug representation of the tree. Nodes are
// numbered in visit order and back references print the id of their target.
func Dump(n Node) string {
	d := &dumper{ids: make(map[Node]int)}
	d.assignIDs(n)
	d.dump(n, 0)
	return d.sb.String()
}

type dumper struct {
	sb  strings.Builder
	ids map[Node]int
}

func (d *dumper) assignIDs(n Node) {
	Inspect(n, func(c Node) bool {
		if l, ok := c.(*ListNode); ok && l.Len() == 0 {
			return false
		}
		if _, ok := d.ids[c]; !ok {
			d.ids[c] = len(d.ids)
		}
		return true
	})
}

func (d *dumper) id(n Node) string {
	if id, ok := d.ids[n]; ok {
		return fmt.Sprint(id)
	}
	return "<external>"
}

func (d *dumper) section(indent int, name string, n Node) {
	if n == nil {
		return
	}
	if l, ok := n.(*ListNode); ok && l.Len() == 0 {
		return
	}
	d.sb.WriteString(strings.Repeat(" ", indent))
	d.sb.WriteString(name)
	d.sb.WriteString("\n")
	d.dump(n, indent+2)
}

func (d *dumper) dump(n Node, indent int) {
	pad := strings.Repeat(" ", indent)
	fmt.Fprintf(&d.sb, "%s%s id: %s", pad, n.Kind(), d.id(n))
	if n.HasAlias() {
		fmt.Fprintf(&d.sb, ", alias: %s", n.Alias())
	}
	switch n := n.(type) {
	case *IdentifierNode:
		fmt.Fprintf(&d.sb, ", identifier: %s", n.Identifier.FullName())
	case *ColumnNode:
		fmt.Fprintf(&d.sb, ", column_name: %s, result_type: %s", n.Name, typeName(n.Type))
		if n.Source != nil {
			fmt.Fprintf(&d.sb, ", source_id: %s", d.id(n.Source))
		}
	case *ConstantNode:
		fmt.Fprintf(&d.sb, ", constant_value: %s, constant_value_type: %s", sql.FormatValue(n.Value), typeName(n.Type))
	case *FunctionNode:
		kind := "ordinary"
		switch n.kind {
		case UnresolvedFunction:
			kind = "unresolved"
		case AggregateFunction:
			kind = "aggregate"
		case WindowFunction:
			kind = "window"
		}
		fmt.Fprintf(&d.sb, ", function_name: %s, function_type: %s", n.Name, kind)
		if n.resultType != nil {
			fmt.Fprintf(&d.sb, ", result_type: %s", n.resultType.Name())
		}
	case *LambdaNode:
		fmt.Fprintf(&d.sb, ", arguments: (%s)", strings.Join(n.ArgumentNames, ", "))
	case *ListNode:
		fmt.Fprintf(&d.sb, ", nodes: %d", n.Len())
	case *QueryNode:
		fmt.Fprintf(&d.sb, ", is_subquery: %d, is_cte: %d", boolToInt(n.IsSubquery), boolToInt(n.IsCTE))
		if n.IsDistinct {
			d.sb.WriteString(", is_distinct: 1")
		}
		if n.IsGroupByAll {
			d.sb.WriteString(", is_group_by_all: 1")
		}
		if n.CTEName != "" {
			fmt.Fprintf(&d.sb, ", cte_name: %s", n.CTEName)
		}
	case *UnionNode:
		fmt.Fprintf(&d.sb, ", union_mode: %s", n.Mode)
		if n.CTEName != "" {
			fmt.Fprintf(&d.sb, ", cte_name: %s", n.CTEName)
		}
	case *TableNode:
		fmt.Fprintf(&d.sb, ", table_name: %s%s", n.FullName(), n.Modifiers.String())
	case *TableFunctionNode:
		fmt.Fprintf(&d.sb, ", table_function_name: %s%s", n.Name, n.Modifiers.String())
	case *MatcherNode:
		var m strings.Builder
		writeMatcher(&m, n)
		fmt.Fprintf(&d.sb, ", matcher: %s", m.String())
	case *JoinNode:
		fmt.Fprintf(&d.sb, ", kind: %s", n.JoinType)
		if n.Strictness != UnspecifiedStrictness {
			fmt.Fprintf(&d.sb, ", strictness: %s", n.Strictness)
		}
	case *ArrayJoinNode:
		fmt.Fprintf(&d.sb, ", is_left: %d", boolToInt(n.IsLeft))
	case *SortNode:
		fmt.Fprintf(&d.sb, ", sort_direction: %s", strings.ToUpper(n.Direction.String()))
		if n.WithFill {
			d.sb.WriteString(", with_fill: 1")
		}
	case *WindowNode:
		if !n.Frame.IsDefault {
			fmt.Fprintf(&d.sb, ", frame_type: %s", n.Frame.Type)
		}
		if n.ParentWindowName != "" {
			fmt.Fprintf(&d.sb, ", parent_window_name: %s", n.ParentWindowName)
		}
	case *ColumnTransformerNode:
		fmt.Fprintf(&d.sb, ", transformer_type: %s", n.TransformerType)
		if n.IsStrict {
			d.sb.WriteString(", strict: 1")
		}
	}
	d.sb.WriteString("\n")

	inner := indent + 2
	switch n := n.(type) {
	case *QueryNode:
		if cols := n.projectionColumns; len(cols) > 0 {
			fmt.Fprintf(&d.sb, "%sPROJECTION COLUMNS\n", strings.Repeat(" ", inner))
			for _, c := range cols {
				fmt.Fprintf(&d.sb, "%s%s %s\n", strings.Repeat(" ", inner+2), c.Name, typeName(c.Type))
			}
		}
		d.section(inner, "WITH", n.With)
		d.section(inner, "PROJECTION", n.Projection)
		d.section(inner, "JOIN TREE", n.JoinTree)
		d.section(inner, "PREWHERE", n.Prewhere)
		d.section(inner, "WHERE", n.Where)
		d.section(inner, "GROUP BY", n.GroupBy)
		d.section(inner, "HAVING", n.Having)
		d.section(inner, "WINDOW", n.Window)
		d.section(inner, "QUALIFY", n.Qualify)
		d.section(inner, "ORDER BY", n.OrderBy)
		d.section(inner, "INTERPOLATE", n.Interpolate)
		d.section(inner, "LIMIT BY LIMIT", n.LimitByLimit)
		d.section(inner, "LIMIT BY OFFSET", n.LimitByOffset)
		d.section(inner, "LIMIT BY", n.LimitBy)
		d.section(inner, "LIMIT", n.Limit)
		d.section(inner, "OFFSET", n.Offset)
	case *FunctionNode:
		d.section(inner, "PARAMETERS", n.Parameters)
		d.section(inner, "ARGUMENTS", n.Arguments)
		d.section(inner, "WINDOW", n.Window)
	case *ColumnNode:
		d.section(inner, "EXPRESSION", n.Expression)
	case *LambdaNode:
		d.section(inner, "ARGUMENTS", n.Arguments)
		d.section(inner, "EXPRESSION", n.Expression)
	case *JoinNode:
		d.section(inner, "LEFT TABLE EXPRESSION", n.Left)
		d.section(inner, "RIGHT TABLE EXPRESSION", n.Right)
		name := "JOIN EXPRESSION"
		if n.IsUsing {
			name = "USING"
		}
		d.section(inner, name, n.Expression)
	case *ArrayJoinNode:
		d.section(inner, "TABLE EXPRESSION", n.TableExpression)
		d.section(inner, "JOIN EXPRESSIONS", n.JoinExpressions)
	case *SortNode:
		d.section(inner, "EXPRESSION", n.Expression)
		d.section(inner, "FILL FROM", n.FillFrom)
		d.section(inner, "FILL TO", n.FillTo)
		d.section(inner, "FILL STEP", n.FillStep)
	case *WindowNode:
		d.section(inner, "PARTITION BY", n.PartitionBy)
		d.section(inner, "ORDER BY", n.OrderBy)
		d.section(inner, "FRAME BEGIN OFFSET", n.FrameBeginOffset)
		d.section(inner, "FRAME END OFFSET", n.FrameEndOffset)
	case *TableFunctionNode:
		d.section(inner, "ARGUMENTS", n.Arguments)
	default:
		for _, c := range Children(n) {
			d.dump(*c, inner)
		}
	}
}

func typeName(t sql.Type) string {
	if t == nil {
		return "<unresolved>"
	}
	return t.Name()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
