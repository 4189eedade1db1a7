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

// Package parse turns SQL text into an unresolved query tree.
package parse // import "github.com/dolthub/go-query-analyzer/sql/parse"

import (
	"fmt"
	"strconv"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	errors "gopkg.in/src-d/go-errors.v1"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

var (
	// ErrUnsupportedSyntax is thrown when a specific syntax is not already supported
	ErrUnsupportedSyntax = errors.NewKind("unsupported syntax: %s")

	// ErrUnsupportedFeature is thrown when a feature is not already supported
	ErrUnsupportedFeature = errors.NewKind("unsupported feature: %s")

	// ErrInvalidSQLValType is returned when a SQLVal type is not valid.
	ErrInvalidSQLValType = errors.NewKind("invalid SQLVal of type: %d")

	// ErrInvalidSortOrder is returned when a sort order is not valid.
	ErrInvalidSortOrder = errors.NewKind("invalid sort order: %s")

	// ErrSyntax wraps the errors of the SQL parser.
	ErrSyntax = errors.NewKind("syntax error in query: %s")

	// ErrEmptyQuery is returned when a query has only comments or spaces.
	ErrEmptyQuery = errors.NewKind("empty query")
)

// Parse parses the given SQL query and returns the corresponding unresolved
// query tree: a *querytree.QueryNode or a *querytree.UnionNode.
func Parse(ctx *sql.Context, query string) (querytree.Node, error) {
	span, _ := ctx.Span("parse", opentracing.Tag{Key: "query", Value: query})
	defer span.Finish()

	s := strings.TrimSpace(removeComments(query))
	if strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(s[:len(s)-1])
	}

	if s == "" {
		logrus.WithField("query", query).
			Infof("query became empty, so it will be ignored")
		return nil, ErrEmptyQuery.New()
	}

	stmt, err := sqlparser.Parse(s)
	if err != nil {
		return nil, ErrSyntax.Wrap(err, s)
	}

	return convert(stmt)
}

// ParseExpression parses a single expression, such as the definition of an
// ALIAS column.
func ParseExpression(expr string) (querytree.Node, error) {
	stmt, err := sqlparser.Parse("SELECT " + expr)
	if err != nil {
		return nil, ErrSyntax.Wrap(err, expr)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || len(sel.SelectExprs) != 1 {
		return nil, ErrUnsupportedSyntax.New(expr)
	}
	return selectExprToNode(sel.SelectExprs[0])
}

func convert(stmt sqlparser.Statement) (querytree.Node, error) {
	switch n := stmt.(type) {
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(n))
	case *sqlparser.Select:
		return convertSelect(n)
	case *sqlparser.Union:
		return convertUnion(n)
	case *sqlparser.ParenSelect:
		return convert(n.Select)
	}
}

func convertSelect(s *sqlparser.Select) (*querytree.QueryNode, error) {
	q := querytree.NewQueryNode()
	q.IsDistinct = s.Distinct != ""

	joinTree, err := tableExprsToJoinTree(s.From)
	if err != nil {
		return nil, err
	}
	q.JoinTree = joinTree

	projection, err := selectExprsToNodes(s.SelectExprs)
	if err != nil {
		return nil, err
	}
	q.Projection = querytree.NewListNode(projection...)

	if s.Where != nil {
		if q.Where, err = exprToNode(s.Where.Expr); err != nil {
			return nil, err
		}
	}

	if len(s.GroupBy) > 0 {
		groupBy, err := exprsToNodes(s.GroupBy)
		if err != nil {
			return nil, err
		}
		q.GroupBy = querytree.NewListNode(groupBy...)
	}

	if s.Having != nil {
		if q.Having, err = exprToNode(s.Having.Expr); err != nil {
			return nil, err
		}
	}

	if err := setOrderAndLimit(q, s.OrderBy, s.Limit); err != nil {
		return nil, err
	}
	return q, nil
}

// convertUnion flattens nested unions of the same kind into a single node.
// ORDER BY and LIMIT of a union apply to an outer query reading it.
func convertUnion(u *sqlparser.Union) (querytree.Node, error) {
	mode, err := unionMode(u.Type)
	if err != nil {
		return nil, err
	}

	var queries []querytree.Node
	for _, side := range []sqlparser.SelectStatement{u.Left, u.Right} {
		n, err := convert(side)
		if err != nil {
			return nil, err
		}
		if inner, ok := n.(*querytree.UnionNode); ok && inner.Mode == mode {
			queries = append(queries, inner.QueriesList().Nodes...)
			continue
		}
		queries = append(queries, n)
	}

	union := querytree.NewUnionNode(mode, queries...)
	if len(u.OrderBy) == 0 && u.Limit == nil {
		return union, nil
	}

	union.IsSubquery = true
	q := querytree.NewQueryNode()
	q.Projection = querytree.NewListNode(querytree.NewAsteriskMatcher())
	q.JoinTree = union
	if err := setOrderAndLimit(q, u.OrderBy, u.Limit); err != nil {
		return nil, err
	}
	return q, nil
}

func unionMode(t string) (querytree.UnionMode, error) {
	switch strings.ToLower(t) {
	case sqlparser.UnionStr:
		return querytree.UnionDefault, nil
	case sqlparser.UnionAllStr:
		return querytree.UnionAll, nil
	case sqlparser.UnionDistinctStr:
		return querytree.UnionDistinct, nil
	}
	return 0, ErrUnsupportedFeature.New(t)
}

func setOrderAndLimit(q *querytree.QueryNode, ob sqlparser.OrderBy, l *sqlparser.Limit) error {
	if len(ob) > 0 {
		sorts, err := orderByToSortNodes(ob)
		if err != nil {
			return err
		}
		q.OrderBy = querytree.NewListNode(sorts...)
	}

	if l == nil {
		return nil
	}
	var err error
	if l.Rowcount != nil {
		if q.Limit, err = exprToNode(l.Rowcount); err != nil {
			return err
		}
	}
	if l.Offset != nil {
		if q.Offset, err = exprToNode(l.Offset); err != nil {
			return err
		}
	}
	return nil
}

func orderByToSortNodes(ob sqlparser.OrderBy) ([]querytree.Node, error) {
	var sorts []querytree.Node
	for _, o := range ob {
		e, err := exprToNode(o.Expr)
		if err != nil {
			return nil, err
		}

		var direction querytree.SortDirection
		switch strings.ToLower(o.Direction) {
		default:
			return nil, ErrInvalidSortOrder.New(o.Direction)
		case sqlparser.AscScr, "":
			direction = querytree.Ascending
		case sqlparser.DescScr:
			direction = querytree.Descending
		}
		sorts = append(sorts, querytree.NewSortNode(e, direction))
	}
	return sorts, nil
}

func tableExprsToJoinTree(te sqlparser.TableExprs) (querytree.Node, error) {
	if len(te) == 0 || (len(te) == 1 && isDual(te[0])) {
		return nil, nil
	}

	var tables []querytree.Node
	for _, t := range te {
		n, err := tableExprToNode(t)
		if err != nil {
			return nil, err
		}
		tables = append(tables, n)
	}
	if len(tables) == 1 {
		return tables[0], nil
	}
	return querytree.NewCrossJoinNode(tables...), nil
}

func isDual(te sqlparser.TableExpr) bool {
	a, ok := te.(*sqlparser.AliasedTableExpr)
	if !ok {
		return false
	}
	t, ok := a.Expr.(sqlparser.TableName)
	return ok && t.Qualifier.IsEmpty() && strings.ToLower(t.Name.String()) == "dual"
}

func tableExprToNode(te sqlparser.TableExpr) (querytree.Node, error) {
	switch t := te.(type) {
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(te))
	case *sqlparser.AliasedTableExpr:
		var n querytree.Node
		switch e := t.Expr.(type) {
		case sqlparser.TableName:
			n = tableNameToIdentifier(e)
		case *sqlparser.Subquery:
			q, err := subqueryToNode(e)
			if err != nil {
				return nil, err
			}
			n = q
		default:
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(te))
		}
		if !t.As.IsEmpty() {
			n.SetAlias(t.As.String())
		}
		return n, nil
	case *sqlparser.ParenTableExpr:
		return tableExprsToJoinTree(t.Exprs)
	case *sqlparser.JoinTableExpr:
		return joinToNode(t)
	}
}

func tableNameToIdentifier(t sqlparser.TableName) *querytree.IdentifierNode {
	if t.Qualifier.IsEmpty() {
		return querytree.NewIdentifierNode(t.Name.String())
	}
	return querytree.NewIdentifierNode(t.Qualifier.String(), t.Name.String())
}

func joinToNode(t *sqlparser.JoinTableExpr) (querytree.Node, error) {
	var joinType querytree.JoinType
	switch strings.ToLower(t.Join) {
	case sqlparser.JoinStr:
		joinType = querytree.InnerJoin
	case sqlparser.LeftJoinStr:
		joinType = querytree.LeftJoin
	case sqlparser.RightJoinStr:
		joinType = querytree.RightJoin
	default:
		return nil, ErrUnsupportedFeature.New(t.Join)
	}

	left, err := tableExprToNode(t.LeftExpr)
	if err != nil {
		return nil, err
	}
	right, err := tableExprToNode(t.RightExpr)
	if err != nil {
		return nil, err
	}

	if len(t.Condition.Using) > 0 {
		using := make([]querytree.Node, len(t.Condition.Using))
		for i, c := range t.Condition.Using {
			using[i] = querytree.NewIdentifierNode(c.String())
		}
		return querytree.NewJoinNode(left, right, querytree.NewListNode(using...),
			joinType, querytree.UnspecifiedStrictness), nil
	}

	if t.Condition.On == nil {
		if joinType != querytree.InnerJoin {
			return nil, ErrUnsupportedFeature.New(t.Join + " without a join condition")
		}
		return querytree.NewCrossJoinNode(left, right), nil
	}

	on, err := exprToNode(t.Condition.On)
	if err != nil {
		return nil, err
	}
	return querytree.NewJoinNode(left, right, on, joinType, querytree.UnspecifiedStrictness), nil
}

func subqueryToNode(s *sqlparser.Subquery) (querytree.Node, error) {
	n, err := convert(s.Select)
	if err != nil {
		return nil, err
	}
	switch n := n.(type) {
	case *querytree.QueryNode:
		n.IsSubquery = true
	case *querytree.UnionNode:
		n.IsSubquery = true
	}
	return n, nil
}

func selectExprsToNodes(se sqlparser.SelectExprs) ([]querytree.Node, error) {
	nodes := make([]querytree.Node, len(se))
	for i, e := range se {
		n, err := selectExprToNode(e)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func selectExprToNode(se sqlparser.SelectExpr) (querytree.Node, error) {
	switch e := se.(type) {
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(e))
	case *sqlparser.StarExpr:
		if e.TableName.IsEmpty() {
			return querytree.NewAsteriskMatcher(), nil
		}
		return querytree.NewAsteriskMatcher(tableNameParts(e.TableName)...), nil
	case *sqlparser.AliasedExpr:
		n, err := exprToNode(e.Expr)
		if err != nil {
			return nil, err
		}
		if !e.As.IsEmpty() {
			n.SetAlias(e.As.String())
		}
		return n, nil
	}
}

func tableNameParts(t sqlparser.TableName) []string {
	if t.Qualifier.IsEmpty() {
		return []string{t.Name.String()}
	}
	return []string{t.Qualifier.String(), t.Name.String()}
}

func exprsToNodes(exprs []sqlparser.Expr) ([]querytree.Node, error) {
	nodes := make([]querytree.Node, len(exprs))
	for i, e := range exprs {
		n, err := exprToNode(e)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func exprToNode(e sqlparser.Expr) (querytree.Node, error) {
	switch v := e.(type) {
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(e))
	case *sqlparser.SQLVal:
		return convertVal(v)
	case sqlparser.BoolVal:
		return querytree.NewConstantNode(bool(v)), nil
	case *sqlparser.NullVal:
		return querytree.NewConstantNode(nil), nil
	case *sqlparser.ColName:
		parts := []string{v.Name.String()}
		if !v.Qualifier.IsEmpty() {
			parts = append(tableNameParts(v.Qualifier), parts...)
		}
		return querytree.NewIdentifierNode(parts...), nil
	case *sqlparser.FuncExpr:
		return funcExprToNode(v)
	case *sqlparser.ParenExpr:
		return exprToNode(v.Expr)
	case *sqlparser.AndExpr:
		return binaryFunction("and", v.Left, v.Right)
	case *sqlparser.OrExpr:
		return binaryFunction("or", v.Left, v.Right)
	case *sqlparser.NotExpr:
		c, err := exprToNode(v.Expr)
		if err != nil {
			return nil, err
		}
		return querytree.NewFunctionNode("not", c), nil
	case *sqlparser.ComparisonExpr:
		return comparisonExprToNode(v)
	case *sqlparser.IsExpr:
		return isExprToNode(v)
	case *sqlparser.RangeCond:
		return rangeCondToNode(v)
	case *sqlparser.BinaryExpr:
		return binaryExprToNode(v)
	case *sqlparser.UnaryExpr:
		return unaryExprToNode(v)
	case sqlparser.ValTuple:
		args, err := exprsToNodes(v)
		if err != nil {
			return nil, err
		}
		return querytree.NewFunctionNode("tuple", args...), nil
	case *sqlparser.Subquery:
		return subqueryToNode(v)
	case *sqlparser.ExistsExpr:
		q, err := subqueryToNode(v.Subquery)
		if err != nil {
			return nil, err
		}
		return querytree.NewFunctionNode("exists", q), nil
	case *sqlparser.CaseExpr:
		return caseExprToNode(v)
	case *sqlparser.ConvertExpr:
		return convertExprToNode(v)
	}
}

func convertVal(v *sqlparser.SQLVal) (querytree.Node, error) {
	switch v.Type {
	case sqlparser.StrVal:
		return querytree.NewConstantNode(string(v.Val)), nil
	case sqlparser.IntVal:
		// The parser folds unary minus into integer literals.
		if strings.HasPrefix(string(v.Val), "-") {
			if val, err := strconv.ParseInt(string(v.Val), 10, 64); err == nil {
				return querytree.NewConstantNode(val), nil
			}
		} else if val, err := strconv.ParseUint(string(v.Val), 10, 64); err == nil {
			return querytree.NewConstantNode(val), nil
		}
		val, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, err
		}
		return querytree.NewConstantNode(val), nil
	case sqlparser.FloatVal:
		val, err := strconv.ParseFloat(string(v.Val), 64)
		if err != nil {
			return nil, err
		}
		return querytree.NewConstantNode(val), nil
	case sqlparser.HexNum:
		val, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(string(v.Val)), "0x"), 16, 64)
		if err != nil {
			return nil, err
		}
		return querytree.NewConstantNode(val), nil
	case sqlparser.ValArg:
		return nil, ErrUnsupportedFeature.New("query parameters")
	}

	return nil, ErrInvalidSQLValType.New(v.Type)
}

// negativeLiteral returns -n for numeric literals so that -1 is a constant
// of a signed type instead of a call to negate.
func negativeLiteral(v *sqlparser.SQLVal) (querytree.Node, bool) {
	switch v.Type {
	case sqlparser.IntVal:
		s := "-" + string(v.Val)
		if strings.HasPrefix(string(v.Val), "-") {
			s = string(v.Val[1:])
			if val, err := strconv.ParseUint(s, 10, 64); err == nil {
				return querytree.NewConstantNode(val), true
			}
		}
		if val, err := strconv.ParseInt(s, 10, 64); err == nil {
			return querytree.NewConstantNode(val), true
		}
	case sqlparser.FloatVal:
		if val, err := strconv.ParseFloat(string(v.Val), 64); err == nil {
			return querytree.NewConstantNode(-val), true
		}
	}
	return nil, false
}

func binaryFunction(name string, left, right sqlparser.Expr) (querytree.Node, error) {
	l, err := exprToNode(left)
	if err != nil {
		return nil, err
	}
	r, err := exprToNode(right)
	if err != nil {
		return nil, err
	}
	return querytree.NewFunctionNode(name, l, r), nil
}

var comparisonFunctions = map[string]string{
	sqlparser.EqualStr:        "equals",
	sqlparser.NotEqualStr:     "notEquals",
	sqlparser.LessThanStr:     "less",
	sqlparser.GreaterThanStr:  "greater",
	sqlparser.LessEqualStr:    "lessOrEquals",
	sqlparser.GreaterEqualStr: "greaterOrEquals",
	sqlparser.InStr:           "in",
	sqlparser.NotInStr:        "notIn",
	sqlparser.LikeStr:         "like",
	sqlparser.NotLikeStr:      "notLike",
}

func comparisonExprToNode(c *sqlparser.ComparisonExpr) (querytree.Node, error) {
	name, ok := comparisonFunctions[strings.ToLower(c.Operator)]
	if !ok {
		return nil, ErrUnsupportedFeature.New(c.Operator)
	}
	if c.Escape != nil {
		return nil, ErrUnsupportedFeature.New("LIKE with ESCAPE")
	}
	return binaryFunction(name, c.Left, c.Right)
}

func isExprToNode(c *sqlparser.IsExpr) (querytree.Node, error) {
	e, err := exprToNode(c.Expr)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(c.Operator) {
	case sqlparser.IsNullStr:
		return querytree.NewFunctionNode("isNull", e), nil
	case sqlparser.IsNotNullStr:
		return querytree.NewFunctionNode("isNotNull", e), nil
	}
	return nil, ErrUnsupportedFeature.New(fmt.Sprintf("IS expression with operator: %s", c.Operator))
}

func rangeCondToNode(v *sqlparser.RangeCond) (querytree.Node, error) {
	val, err := exprToNode(v.Left)
	if err != nil {
		return nil, err
	}
	lower, err := exprToNode(v.From)
	if err != nil {
		return nil, err
	}
	upper, err := exprToNode(v.To)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(v.Operator) {
	case sqlparser.BetweenStr:
		return querytree.NewFunctionNode("and",
			querytree.NewFunctionNode("greaterOrEquals", val, lower),
			querytree.NewFunctionNode("lessOrEquals", querytree.Clone(val), upper),
		), nil
	case sqlparser.NotBetweenStr:
		return querytree.NewFunctionNode("or",
			querytree.NewFunctionNode("less", val, lower),
			querytree.NewFunctionNode("greater", querytree.Clone(val), upper),
		), nil
	}
	return nil, ErrUnsupportedFeature.New(fmt.Sprintf("RangeCond with operator: %s", v.Operator))
}

var arithmeticFunctions = map[string]string{
	sqlparser.PlusStr:   "plus",
	sqlparser.MinusStr:  "minus",
	sqlparser.MultStr:   "multiply",
	sqlparser.DivStr:    "divide",
	sqlparser.IntDivStr: "intDiv",
	sqlparser.ModStr:    "modulo",
}

func binaryExprToNode(be *sqlparser.BinaryExpr) (querytree.Node, error) {
	name, ok := arithmeticFunctions[strings.ToLower(be.Operator)]
	if !ok {
		return nil, ErrUnsupportedFeature.New(be.Operator)
	}
	return binaryFunction(name, be.Left, be.Right)
}

func unaryExprToNode(u *sqlparser.UnaryExpr) (querytree.Node, error) {
	switch u.Operator {
	case sqlparser.UPlusStr:
		return exprToNode(u.Expr)
	case sqlparser.UMinusStr:
		if v, ok := u.Expr.(*sqlparser.SQLVal); ok {
			if n, ok := negativeLiteral(v); ok {
				return n, nil
			}
		}
		e, err := exprToNode(u.Expr)
		if err != nil {
			return nil, err
		}
		return querytree.NewFunctionNode("negate", e), nil
	case sqlparser.BangStr:
		e, err := exprToNode(u.Expr)
		if err != nil {
			return nil, err
		}
		return querytree.NewFunctionNode("not", e), nil
	}
	return nil, ErrUnsupportedFeature.New(u.Operator)
}

// caseExprToNode rewrites CASE into multiIf(cond1, then1, ..., else).
func caseExprToNode(c *sqlparser.CaseExpr) (querytree.Node, error) {
	var subject querytree.Node
	if c.Expr != nil {
		var err error
		if subject, err = exprToNode(c.Expr); err != nil {
			return nil, err
		}
	}

	var args []querytree.Node
	for _, w := range c.Whens {
		cond, err := exprToNode(w.Cond)
		if err != nil {
			return nil, err
		}
		if subject != nil {
			cond = querytree.NewFunctionNode("equals", querytree.Clone(subject), cond)
		}
		val, err := exprToNode(w.Val)
		if err != nil {
			return nil, err
		}
		args = append(args, cond, val)
	}

	if c.Else != nil {
		e, err := exprToNode(c.Else)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	} else {
		args = append(args, querytree.NewConstantNode(nil))
	}
	return querytree.NewFunctionNode("multiIf", args...), nil
}

// convertExprToNode rewrites CAST(x AS type) and CONVERT(x, type) into
// CAST(x, 'type') with the equivalent column type name.
func convertExprToNode(c *sqlparser.ConvertExpr) (querytree.Node, error) {
	e, err := exprToNode(c.Expr)
	if err != nil {
		return nil, err
	}

	var typeName string
	switch strings.ToLower(c.Type.Type) {
	case "signed", "signed integer":
		typeName = "Int64"
	case "unsigned", "unsigned integer":
		typeName = "UInt64"
	case "char", "nchar", "binary":
		typeName = "String"
	case "date":
		typeName = "Date"
	case "datetime":
		typeName = "DateTime"
	case "decimal":
		precision, scale := "10", "0"
		if c.Type.Length != nil {
			precision = string(c.Type.Length.Val)
		}
		if c.Type.Scale != nil {
			scale = string(c.Type.Scale.Val)
		}
		typeName = fmt.Sprintf("Decimal(%s, %s)", precision, scale)
	default:
		// Column type names, as in CAST(x AS UInt8).
		t, err := sql.ParseType(c.Type.Type)
		if err != nil {
			return nil, ErrUnsupportedFeature.New("CAST to " + c.Type.Type)
		}
		typeName = t.Name()
	}

	return querytree.NewFunctionNode("CAST", e, querytree.NewConstantNode(typeName)), nil
}

func funcExprToNode(f *sqlparser.FuncExpr) (querytree.Node, error) {
	name := f.Name.String()
	switch strings.ToLower(name) {
	case "columns":
		return columnsMatcher(f)
	case "lambda":
		return lambdaToNode(f)
	}

	var args []querytree.Node
	for _, se := range f.Exprs {
		// count(*) counts rows.
		if _, ok := se.(*sqlparser.StarExpr); ok && strings.ToLower(name) == "count" {
			continue
		}
		a, err := selectExprToNode(se)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	if f.Distinct {
		name += "Distinct"
	}
	if !f.Qualifier.IsEmpty() {
		return nil, ErrUnsupportedFeature.New("qualified function " + f.Qualifier.String() + "." + name)
	}
	return querytree.NewFunctionNode(name, args...), nil
}

// columnsMatcher returns the matcher of COLUMNS('regexp') or COLUMNS(a, b).
func columnsMatcher(f *sqlparser.FuncExpr) (querytree.Node, error) {
	var qualifier []string
	if !f.Qualifier.IsEmpty() {
		qualifier = []string{f.Qualifier.String()}
	}

	if len(f.Exprs) == 1 {
		if ae, ok := f.Exprs[0].(*sqlparser.AliasedExpr); ok {
			if v, ok := ae.Expr.(*sqlparser.SQLVal); ok && v.Type == sqlparser.StrVal {
				return querytree.NewColumnsRegexpMatcher(string(v.Val), qualifier...)
			}
		}
	}

	var ids []querytree.Identifier
	for _, se := range f.Exprs {
		n, err := selectExprToNode(se)
		if err != nil {
			return nil, err
		}
		id, ok := n.(*querytree.IdentifierNode)
		if !ok {
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
		}
		ids = append(ids, id.Identifier)
	}
	if len(ids) == 0 {
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
	}
	return querytree.NewColumnsListMatcher(ids, qualifier...), nil
}

// lambdaToNode converts lambda(tuple(x, y), body), the function form of
// (x, y) -> body.
func lambdaToNode(f *sqlparser.FuncExpr) (querytree.Node, error) {
	if len(f.Exprs) != 2 {
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
	}
	params, ok := f.Exprs[0].(*sqlparser.AliasedExpr)
	if !ok {
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
	}

	var argExprs []sqlparser.Expr
	switch p := params.Expr.(type) {
	case *sqlparser.FuncExpr:
		if strings.ToLower(p.Name.String()) != "tuple" {
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
		}
		for _, se := range p.Exprs {
			ae, ok := se.(*sqlparser.AliasedExpr)
			if !ok {
				return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
			}
			argExprs = append(argExprs, ae.Expr)
		}
	case sqlparser.ValTuple:
		argExprs = p
	case *sqlparser.ParenExpr:
		argExprs = []sqlparser.Expr{p.Expr}
	case *sqlparser.ColName:
		argExprs = []sqlparser.Expr{p}
	default:
		return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
	}

	names := make([]string, len(argExprs))
	for i, a := range argExprs {
		c, ok := a.(*sqlparser.ColName)
		if !ok || !c.Qualifier.IsEmpty() {
			return nil, ErrUnsupportedSyntax.New(sqlparser.String(f))
		}
		names[i] = c.Name.String()
	}

	body, err := selectExprToNode(f.Exprs[1])
	if err != nil {
		return nil, err
	}
	return querytree.NewLambdaNode(names, body), nil
}
