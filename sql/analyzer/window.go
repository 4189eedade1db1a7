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
	"strings"

	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// resolveWindow resolves the window in the slot and returns its projection
// name. A window identifier is replaced by a copy of the named window of the
// nearest query.
func (qa *queryAnalyzer) resolveWindow(slot *querytree.Node, s *scope) (string, error) {
	var parentName string
	identifier, isIdentifier := (*slot).(*querytree.IdentifierNode)
	if isIdentifier {
		parentName = identifier.Identifier.FullName()
	} else if w, ok := (*slot).(*querytree.WindowNode); ok {
		parentName = w.ParentWindowName
	} else {
		return "", sql.ErrLogical.New(fmt.Sprintf("Window %s must be identifier or window. In scope %s",
			querytree.String(*slot), s.description()))
	}

	var projectionName string
	if parentName != "" {
		queryScope := qa.nearestQueryScope(s)
		if queryScope == nil {
			return "", sql.ErrLogical.New(fmt.Sprintf("Window '%s' does not exist", parentName))
		}
		parent, ok := queryScope.windows[parentName]
		if !ok {
			return "", sql.NewErr(sql.ErrBadArguments,
				"Window '%s' does not exist. In scope %s", parentName, queryScope.description())
		}
		if qa.windowsInResolve[parent] {
			return "", sql.NewErr(sql.ErrRecursionDetected,
				"Recursive window %s. In scope %s", parentName, s.description())
		}
		qa.windowsInResolve[parent] = true
		defer delete(qa.windowsInResolve, parent)

		if isIdentifier {
			*slot = qa.cloneResolved(parent)
			projectionName = parentName
		} else if err := mergeWindowWithParentWindow((*slot).(*querytree.WindowNode), parent, s); err != nil {
			return "", err
		}
	}

	w := (*slot).(*querytree.WindowNode)
	w.ParentWindowName = ""

	w.PartitionByList()
	partitionNames, err := qa.resolveExpressionNodeList(&w.PartitionBy, s, false, false)
	if err != nil {
		return "", err
	}
	w.OrderByList()
	orderNames, err := qa.resolveSortNodeList(&w.OrderBy, s)
	if err != nil {
		return "", err
	}

	beginName, err := qa.resolveFrameOffset(&w.FrameBeginOffset, "begin", w.Frame.Type, s)
	if err != nil {
		return "", err
	}
	endName, err := qa.resolveFrameOffset(&w.FrameEndOffset, "end", w.Frame.Type, s)
	if err != nil {
		return "", err
	}
	if err := checkWindowFrame(w.Frame); err != nil {
		return "", err
	}

	if projectionName == "" {
		projectionName = windowProjectionName(w, parentName, partitionNames, orderNames, beginName, endName)
	}
	return projectionName, nil
}

// mergeWindowWithParentWindow completes w AS (parent ORDER BY ...) with the
// partition and order of the parent window.
func mergeWindowWithParentWindow(w, parent *querytree.WindowNode, s *scope) error {
	if w.PartitionByList().Len() > 0 {
		return sql.NewErr(sql.ErrBadArguments,
			"Derived window definition '%s' is not allowed to override PARTITION BY. In scope %s",
			querytree.WindowString(w), s.description())
	}
	if w.OrderByList().Len() > 0 && parent.OrderByList().Len() > 0 {
		return sql.NewErr(sql.ErrBadArguments,
			"Derived window definition '%s' is not allowed to override a non-empty ORDER BY. In scope %s",
			querytree.WindowString(w), s.description())
	}
	if !parent.Frame.IsDefault {
		return sql.NewErr(sql.ErrBadArguments,
			"Parent window '%s' is not allowed to define a frame: while processing derived window definition '%s'. In scope %s",
			w.ParentWindowName, querytree.WindowString(w), s.description())
	}
	w.PartitionBy = querytree.Clone(parent.PartitionByList())
	if parent.OrderByList().Len() > 0 {
		w.OrderBy = querytree.Clone(parent.OrderByList())
	}
	return nil
}

// resolveFrameOffset resolves the OFFSET of a frame bound, which must be a
// nonnegative numeric constant. ROWS and GROUPS offsets must be integers.
func (qa *queryAnalyzer) resolveFrameOffset(slot *querytree.Node, bound string, frameType querytree.FrameType, s *scope) (string, error) {
	if *slot == nil {
		return "", nil
	}
	names, err := qa.resolveExpressionNode(slot, s, false, false, false)
	if err != nil {
		return "", err
	}
	c, ok := (*slot).(*querytree.ConstantNode)
	if !ok || !sql.IsNumber(sql.RemoveNullable(c.Type)) {
		return "", sql.NewErr(sql.ErrBadArguments,
			"Window frame %s OFFSET expression must be constant with numeric type. Actual %s. In scope %s",
			bound, querytree.String(*slot), s.description())
	}
	if len(names) != 1 {
		return "", sql.ErrLogical.New(fmt.Sprintf(
			"Window frame %s OFFSET expected 1 projection name. Actual %d", bound, len(names)))
	}

	v, err := cast.ToFloat64E(c.Value)
	if err != nil {
		return "", sql.NewErr(sql.ErrBadArguments,
			"Window frame %s OFFSET expression must be constant with numeric type. Actual %s. In scope %s",
			bound, querytree.String(*slot), s.description())
	}
	if v < 0 {
		return "", sql.NewErr(sql.ErrBadArguments,
			"Frame %s offset must be nonnegative, %s given", bound, names[0])
	}
	if frameType != querytree.RangeFrame && !sql.IsInteger(sql.RemoveNullable(c.Type)) {
		return "", sql.NewErr(sql.ErrBadArguments,
			"Frame %s offset for '%s' frame must be a nonnegative integer, %s of type %s given",
			bound, frameType, names[0], c.Type.Name())
	}
	return names[0], nil
}

func checkWindowFrame(f querytree.WindowFrame) error {
	if f.BeginType == querytree.UnboundedBound && !f.BeginPreceding {
		return sql.NewErr(sql.ErrBadArguments, "Frame start cannot be UNBOUNDED FOLLOWING")
	}
	if f.EndType == querytree.UnboundedBound && f.EndPreceding {
		return sql.NewErr(sql.ErrBadArguments, "Frame end cannot be UNBOUNDED PRECEDING")
	}
	return nil
}

// windowProjectionName returns [parent] [PARTITION BY ...] [ORDER BY ...]
// [frame].
func windowProjectionName(w *querytree.WindowNode, parentName string, partition, order []string, begin, end string) string {
	var parts []string
	if parentName != "" {
		parts = append(parts, parentName)
	}
	if len(partition) > 0 {
		parts = append(parts, "PARTITION BY "+strings.Join(partition, ", "))
	}
	if len(order) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(order, ", "))
	}
	if f := w.Frame; !f.IsDefault {
		parts = append(parts, f.Type.String()+" BETWEEN "+
			frameBoundName(f.BeginType, f.BeginPreceding, begin)+" AND "+
			frameBoundName(f.EndType, f.EndPreceding, end))
	}
	return strings.Join(parts, " ")
}

func frameBoundName(t querytree.FrameBoundType, preceding bool, offset string) string {
	direction := " FOLLOWING"
	if preceding {
		direction = " PRECEDING"
	}
	switch t {
	case querytree.CurrentRowBound:
		return "CURRENT ROW"
	case querytree.UnboundedBound:
		return "UNBOUNDED" + direction
	}
	return offset + direction
}
