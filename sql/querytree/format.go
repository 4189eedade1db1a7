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

var binaryOperators = map[string]string{
	"plus":            "+",
	"minus":           "-",
	"multiply":        "*",
	"divide":          "/",
	"modulo":          "%",
	"equals":          "=",
	"notEquals":       "!=",
	"less":            "<",
	"greater":         ">",
	"lessOrEquals":    "<=",
	"greaterOrEquals": ">=",
	"and":             "AND",
	"or":              "OR",
	"like":            "LIKE",
	"notLike":         "NOT LIKE",
	"in":              "IN",
	"notIn":           "NOT IN",
	"globalIn":        "GLOBAL IN",
	"globalNotIn":     "GLOBAL NOT IN",
}

// String returns SQL-like text for the tree. It is used in error messages.
func String(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n, true)
	return sb.String()
}

// StringWithoutAlias is like String but omits the alias of the root.
func StringWithoutAlias(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n, false)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node, withAlias bool) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	writeNodeBody(sb, n)
	if withAlias && n.HasAlias() {
		switch n.(type) {
		case *ListNode, *TableNode, *TableFunctionNode:
		default:
			sb.WriteString(" AS ")
			sb.WriteString(n.Alias())
		}
	}
}

func writeList(sb *strings.Builder, nodes []Node, sep string) {
	for i, c := range nodes {
		if i > 0 {
			sb.WriteString(sep)
		}
		writeNode(sb, c, true)
	}
}

func writeNodeBody(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *IdentifierNode:
		sb.WriteString(n.Identifier.FullName())
		sb.WriteString(n.Modifiers.String())
	case *ColumnNode:
		switch src := n.Source.(type) {
		case *TableNode:
			if src.HasAlias() {
				sb.WriteString(src.Alias())
			} else {
				sb.WriteString(src.TableName())
			}
			sb.WriteString(".")
		case nil, *LambdaNode:
		default:
			if src.HasAlias() {
				sb.WriteString(src.Alias())
				sb.WriteString(".")
			}
		}
		sb.WriteString(n.Name)
	case *ConstantNode:
		sb.WriteString(sql.FormatValue(n.Value))
	case *FunctionNode:
		writeFunction(sb, n)
	case *LambdaNode:
		sb.WriteString("lambda(tuple(")
		sb.WriteString(strings.Join(n.ArgumentNames, ", "))
		sb.WriteString("), ")
		writeNode(sb, n.Expression, true)
		sb.WriteString(")")
	case *ListNode:
		writeList(sb, n.Nodes, ", ")
	case *QueryNode:
		writeQuery(sb, n)
	case *UnionNode:
		sb.WriteString("(")
		for i, q := range n.QueriesList().Nodes {
			if i > 0 {
				sb.WriteString(" ")
				sb.WriteString(n.Mode.String())
				sb.WriteString(" ")
			}
			writeNode(sb, q, true)
		}
		sb.WriteString(")")
	case *TableNode:
		sb.WriteString(n.FullName())
		sb.WriteString(n.Modifiers.String())
		if n.HasAlias() {
			sb.WriteString(" AS ")
			sb.WriteString(n.Alias())
		}
	case *TableFunctionNode:
		sb.WriteString(n.Name)
		sb.WriteString("(")
		writeList(sb, n.ArgumentsList().Nodes, ", ")
		sb.WriteString(")")
		sb.WriteString(n.Modifiers.String())
		if n.HasAlias() {
			sb.WriteString(" AS ")
			sb.WriteString(n.Alias())
		}
	case *MatcherNode:
		writeMatcher(sb, n)
	case *JoinNode:
		writeNode(sb, n.Left, true)
		sb.WriteString(" ")
		if n.Strictness != UnspecifiedStrictness {
			sb.WriteString(n.Strictness.String())
			sb.WriteString(" ")
		}
		sb.WriteString(n.JoinType.String())
		sb.WriteString(" JOIN ")
		writeNode(sb, n.Right, true)
		if n.IsUsing {
			sb.WriteString(" USING (")
			writeUsingList(sb, n.UsingList())
			sb.WriteString(")")
		} else if n.Expression != nil {
			sb.WriteString(" ON ")
			writeNode(sb, n.Expression, true)
		}
	case *CrossJoinNode:
		writeList(sb, n.TablesList().Nodes, ", ")
	case *ArrayJoinNode:
		writeNode(sb, n.TableExpression, true)
		if n.IsLeft {
			sb.WriteString(" LEFT")
		}
		sb.WriteString(" ARRAY JOIN ")
		writeList(sb, n.JoinExpressionsList().Nodes, ", ")
	case *SortNode:
		writeNode(sb, n.Expression, true)
		sb.WriteString(" ")
		sb.WriteString(n.Direction.String())
		switch n.Nulls {
		case NullsFirst:
			sb.WriteString(" NULLS FIRST")
		case NullsLast:
			sb.WriteString(" NULLS LAST")
		}
		if n.Collation != "" {
			sb.WriteString(" COLLATE ")
			sb.WriteString(n.Collation)
		}
		if n.WithFill {
			sb.WriteString(" WITH FILL")
			writeFillPart(sb, " FROM ", n.FillFrom)
			writeFillPart(sb, " TO ", n.FillTo)
			writeFillPart(sb, " STEP ", n.FillStep)
		}
	case *WindowNode:
		sb.WriteString(WindowString(n))
	case *InterpolateNode:
		writeNode(sb, n.Expression, true)
		sb.WriteString(" AS ")
		writeNode(sb, n.InterpolateExpression, true)
	case *ColumnTransformerNode:
		writeTransformer(sb, n)
	default:
		sb.WriteString(n.Kind().String())
	}
}

func writeFillPart(sb *strings.Builder, keyword string, n Node) {
	if n == nil {
		return
	}
	sb.WriteString(keyword)
	writeNode(sb, n, true)
}

func writeUsingList(sb *strings.Builder, l *ListNode) {
	for i, c := range l.Nodes {
		if i > 0 {
			sb.WriteString(", ")
		}
		if col, ok := c.(*ColumnNode); ok {
			sb.WriteString(col.Name)
			continue
		}
		writeNode(sb, c, false)
	}
}

func writeFunction(sb *strings.Builder, f *FunctionNode) {
	args := f.ArgumentsList().Nodes
	if op, ok := binaryOperators[f.Name]; ok && len(args) == 2 {
		sb.WriteString("(")
		writeNode(sb, args[0], true)
		sb.WriteString(" ")
		sb.WriteString(op)
		sb.WriteString(" ")
		writeNode(sb, args[1], true)
		sb.WriteString(")")
		return
	}
	switch {
	case f.Name == "not" && len(args) == 1:
		sb.WriteString("NOT ")
		writeNode(sb, args[0], true)
		return
	case f.Name == "negate" && len(args) == 1:
		sb.WriteString("-")
		writeNode(sb, args[0], true)
		return
	case f.Name == "tuple" && len(args) > 0:
		sb.WriteString("(")
		writeList(sb, args, ", ")
		sb.WriteString(")")
		return
	case f.Name == "array":
		sb.WriteString("[")
		writeList(sb, args, ", ")
		sb.WriteString("]")
		return
	}
	sb.WriteString(f.Name)
	if params := f.ParametersList().Nodes; len(params) > 0 {
		sb.WriteString("(")
		writeList(sb, params, ", ")
		sb.WriteString(")")
	}
	sb.WriteString("(")
	writeList(sb, args, ", ")
	sb.WriteString(")")
	switch w := f.Window.(type) {
	case nil:
	case *IdentifierNode:
		sb.WriteString(" OVER ")
		sb.WriteString(w.Identifier.FullName())
	case *WindowNode:
		sb.WriteString(" OVER (")
		sb.WriteString(WindowString(w))
		sb.WriteString(")")
	}
}

// WindowString returns the text of a window definition, like PARTITION BY a
// ORDER BY b ASC ROWS BETWEEN 1 PRECEDING AND CURRENT ROW.
func WindowString(w *WindowNode) string {
	var parts []string
	if w.ParentWindowName != "" {
		parts = append(parts, w.ParentWindowName)
	}
	if l := w.PartitionByList(); l.Len() > 0 {
		parts = append(parts, "PARTITION BY "+String(l))
	}
	if l := w.OrderByList(); l.Len() > 0 {
		parts = append(parts, "ORDER BY "+String(l))
	}
	if !w.Frame.IsDefault {
		parts = append(parts, fmt.Sprintf("%s BETWEEN %s AND %s",
			w.Frame.Type,
			frameBoundString(w.Frame.BeginType, w.Frame.BeginPreceding, w.FrameBeginOffset),
			frameBoundString(w.Frame.EndType, w.Frame.EndPreceding, w.FrameEndOffset)))
	}
	return strings.Join(parts, " ")
}

func frameBoundString(t FrameBoundType, preceding bool, offset Node) string {
	direction := "FOLLOWING"
	if preceding {
		direction = "PRECEDING"
	}
	switch t {
	case CurrentRowBound:
		return "CURRENT ROW"
	case UnboundedBound:
		return "UNBOUNDED " + direction
	}
	return String(offset) + " " + direction
}

func writeMatcher(sb *strings.Builder, m *MatcherNode) {
	if m.IsQualified() {
		sb.WriteString(m.Qualifier.FullName())
		sb.WriteString(".")
	}
	switch m.MatcherType {
	case AsteriskMatcher:
		sb.WriteString("*")
	case ColumnsRegexpMatcher:
		sb.WriteString("COLUMNS(")
		sb.WriteString(sql.FormatValue(m.Pattern))
		sb.WriteString(")")
	case ColumnsListMatcher:
		names := make([]string, len(m.ColumnIdentifiers))
		for i, id := range m.ColumnIdentifiers {
			names[i] = id.FullName()
		}
		sb.WriteString("COLUMNS(")
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString(")")
	}
	for _, t := range m.TransformersList().Nodes {
		sb.WriteString(" ")
		writeNode(sb, t, false)
	}
}

func writeTransformer(sb *strings.Builder, t *ColumnTransformerNode) {
	sb.WriteString(t.TransformerType.String())
	if t.IsStrict {
		sb.WriteString(" STRICT")
	}
	switch t.TransformerType {
	case ApplyTransformer:
		sb.WriteString("(")
		if f, ok := t.Expression.(*FunctionNode); ok && f.ArgumentsList().Len() == 0 {
			sb.WriteString(f.Name)
		} else {
			writeNode(sb, t.Expression, true)
		}
		sb.WriteString(")")
	case ExceptTransformer:
		sb.WriteString(" (")
		if t.ExceptPattern != "" {
			sb.WriteString(sql.FormatValue(t.ExceptPattern))
		} else {
			sb.WriteString(strings.Join(t.ExceptNames, ", "))
		}
		sb.WriteString(")")
	case ReplaceTransformer:
		sb.WriteString(" (")
		replacements := AsList(t.Replacements).Nodes
		for i, name := range t.ReplaceNames {
			if i > 0 {
				sb.WriteString(", ")
			}
			if i < len(replacements) {
				writeNode(sb, replacements[i], false)
			}
			sb.WriteString(" AS ")
			sb.WriteString(name)
		}
		sb.WriteString(")")
	}
}

func writeQuery(sb *strings.Builder, q *QueryNode) {
	if q.IsSubquery || q.IsCTE {
		sb.WriteString("(")
		defer sb.WriteString(")")
	}
	if l := q.WithList(); l.Len() > 0 {
		sb.WriteString("WITH ")
		writeList(sb, l.Nodes, ", ")
		sb.WriteString(" ")
	}
	sb.WriteString("SELECT ")
	if q.IsDistinct {
		sb.WriteString("DISTINCT ")
	}
	writeList(sb, q.ProjectionList().Nodes, ", ")
	if q.JoinTree != nil {
		sb.WriteString(" FROM ")
		writeNode(sb, q.JoinTree, true)
	}
	writeClause(sb, " PREWHERE ", q.Prewhere)
	writeClause(sb, " WHERE ", q.Where)
	if q.IsGroupByAll {
		sb.WriteString(" GROUP BY ALL")
	} else if l := q.GroupByList(); l.Len() > 0 {
		sb.WriteString(" GROUP BY ")
		if q.IsGroupByWithGroupingSets {
			sb.WriteString("GROUPING SETS (")
			for i, set := range l.Nodes {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString("(")
				writeNode(sb, set, true)
				sb.WriteString(")")
			}
			sb.WriteString(")")
		} else {
			writeList(sb, l.Nodes, ", ")
		}
		switch {
		case q.IsGroupByWithRollup:
			sb.WriteString(" WITH ROLLUP")
		case q.IsGroupByWithCube:
			sb.WriteString(" WITH CUBE")
		}
		if q.IsGroupByWithTotals {
			sb.WriteString(" WITH TOTALS")
		}
	}
	writeClause(sb, " HAVING ", q.Having)
	if l := q.WindowList(); l.Len() > 0 {
		sb.WriteString(" WINDOW ")
		for i, w := range l.Nodes {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(w.Alias())
			sb.WriteString(" AS (")
			writeNode(sb, w, false)
			sb.WriteString(")")
		}
	}
	writeClause(sb, " QUALIFY ", q.Qualify)
	if q.IsOrderByAll {
		sb.WriteString(" ORDER BY ALL")
	} else if l := q.OrderByList(); l.Len() > 0 {
		sb.WriteString(" ORDER BY ")
		writeList(sb, l.Nodes, ", ")
	}
	if l := q.InterpolateList(); l.Len() > 0 {
		sb.WriteString(" INTERPOLATE (")
		writeList(sb, l.Nodes, ", ")
		sb.WriteString(")")
	}
	if l := q.LimitByList(); l.Len() > 0 {
		writeClause(sb, " LIMIT ", q.LimitByLimit)
		writeClause(sb, " OFFSET ", q.LimitByOffset)
		sb.WriteString(" BY ")
		writeList(sb, l.Nodes, ", ")
	}
	writeClause(sb, " LIMIT ", q.Limit)
	if q.IsLimitWithTies {
		sb.WriteString(" WITH TIES")
	}
	writeClause(sb, " OFFSET ", q.Offset)
}

func writeClause(sb *strings.Builder, keyword string, n Node) {
	if n == nil {
		return
	}
	sb.WriteString(keyword)
	writeNode(sb, n, true)
}
