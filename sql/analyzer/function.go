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

	"github.com/dolthub/go-query-analyzer/internal/similartext"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/expression/function"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// maxConstantFoldingSize is the size above which function results are not
// folded into constants.
const maxConstantFoldingSize = 1 << 20

// resolveFunction binds the function in the slot. The slot may be replaced
// by the body of a lambda, by a constant when the call is folded, by a list
// for untuple, or by one branch of a constant if.
func (qa *queryAnalyzer) resolveFunction(slot *querytree.Node, s *scope) ([]string, error) {
	fn := (*slot).(*querytree.FunctionNode)
	if fn.IsResolved() {
		return qa.resolvedFunctionProjectionNames(fn, s)
	}
	name := fn.Name

	fn.ParametersList()
	paramNames, err := qa.resolveExpressionNodeList(&fn.Parameters, s, false, false)
	if err != nil {
		return nil, err
	}
	params := make([]interface{}, 0, fn.ParametersList().Len())
	for _, p := range fn.ParametersList().Nodes {
		c, ok := p.(*querytree.ConstantNode)
		if !ok {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Parameter for function '%s' expected to have constant value. Actual: %s. In scope %s",
				name, querytree.String(p), s.description())
		}
		params = append(params, c.Value)
	}

	var lambda querytree.Node
	if !fn.IsWindowFunction() {
		r, err := qa.tryResolveIdentifier(newLookup(querytree.NewIdentifier(name), functionLookup), s, defaultResolveContext())
		if err != nil {
			return nil, err
		}
		lambda = r.node
	}

	var isIn, isExists, isIf bool
	if lambda == nil {
		isIn = function.IsInFunction(name)
		isExists = name == "exists"
		isIf = name == "if"

		lower := strings.ToLower(name)
		if args := fn.ArgumentsList(); args.Len() == 1 && (lower == "count" || lower == "countstate") {
			if m, ok := args.Nodes[0].(*querytree.MatcherNode); ok && !m.IsQualified() {
				args.Nodes = nil
			}
		}
	}

	if isIf && fn.ArgumentsList().Len() > 0 {
		replaced, names, err := qa.tryResolveConstantIf(slot, fn, s)
		if err != nil || replaced {
			return names, err
		}
	}

	if isExists {
		args := fn.ArgumentsList()
		if args.Len() != 1 {
			return nil, sql.NewErr(sql.ErrBadArguments,
				"Function 'exists' expects 1 argument. In scope %s", s.description())
		}
		sub := querytree.NewQueryNode()
		sub.IsSubquery = true
		sub.Projection = querytree.NewListNode(querytree.NewConstantNodeWithType(uint64(1), sql.UInt64))
		sub.JoinTree = args.Nodes[0]
		sub.Limit = querytree.NewConstantNodeWithType(uint64(1), sql.UInt64)

		var existsArg querytree.Node = sub
		existsNames, err := qa.resolveExpressionNode(&existsArg, s, true, true, false)
		if err != nil {
			return nil, err
		}
		if sub.IsCorrelated() {
			fn.Arguments = querytree.NewListNode(existsArg)
			if marker, ok := qa.Functions.Function("exists"); ok {
				fn.ResolveAsFunction(marker, sql.UInt8)
			} else {
				fn.MarkResolved(sql.UInt8)
			}
			return []string{functionProjectionName(fn.Name, paramNames, existsNames)}, nil
		}

		in := querytree.NewFunctionNode("in", querytree.NewConstantNodeWithType(uint64(1), sql.UInt64), existsArg)
		*slot = in
		fn = in
		name = "in"
		isIn = true
	}

	fn.ArgumentsList()
	argNames, err := qa.resolveExpressionNodeList(&fn.Arguments, s, true, isIn || isExists)
	if err != nil {
		return nil, err
	}
	args := fn.ArgumentsList().Nodes

	if !s.settings.FormatDisplaySecretsInShowAndSelect {
		qa.maskSecretArguments(name, args, argNames, s)
	}

	if isIn {
		if s.settings.TransformNullIn {
			name = function.NullInName(name)
		}
		if len(args) != 2 {
			return nil, sql.NewErr(sql.ErrBadArguments, "Function '%s' expects 2 arguments", name)
		}
		if isCorrelatedSubquery(args[0]) || isCorrelatedSubquery(args[1]) {
			return nil, sql.NewErr(sql.ErrNotImplemented,
				"Correlated subqueries are not supported as IN function arguments yet, but found in expression: %s",
				querytree.String(fn))
		}
		if tf, ok := args[1].(*querytree.TableFunctionNode); ok {
			args[1] = tableFunctionSubquery(tf)
		}
		switch args[0].(type) {
		case *querytree.QueryNode, *querytree.UnionNode:
			sub := qa.newScope(args[0], s)
			sub.subqueryDepth = s.subqueryDepth + 1
			if err := qa.evaluateScalarSubqueryIfNeeded(&args[0], sub); err != nil {
				return nil, err
			}
		}
	}

	columns, lambdaIndexes, allConstant, err := qa.argumentColumns(fn.Name, args, argNames, isIn, s)
	if err != nil {
		return nil, err
	}
	argTypes := make([]sql.Type, len(columns))
	for i, c := range columns {
		argTypes[i] = c.Type
	}

	names := []string{functionProjectionName(fn.Name, paramNames, argNames)}

	if !fn.IsWindowFunction() {
		if lambda == nil && qa.UDFs != nil {
			if udf, ok := qa.UDFs.UserDefinedFunction(name); ok {
				lambda = udf
			}
		}
		if lambda != nil {
			return qa.resolveLambdaCall(slot, fn, lambda, args, len(params), names, s)
		}

		switch name {
		case "untuple":
			return qa.resolveUntuple(slot, fn, argNames, s)
		case "grouping":
			if len(args) == 0 {
				return nil, sql.NewErr(sql.ErrBadArguments, "Function GROUPING expects at least one argument")
			}
			if len(args) > function.MaxGroupingArguments {
				return nil, sql.NewErr(sql.ErrBadArguments,
					"Function GROUPING can have up to %d arguments, but %d provided",
					function.MaxGroupingArguments, len(args))
			}
			grouping, ok := qa.Functions.Function("grouping")
			if !ok {
				return nil, sql.ErrLogical.New("function grouping is not registered")
			}
			fn.ResolveAsFunction(grouping, sql.UInt64)
			return names, nil
		}
	}

	if fn.IsWindowFunction() {
		if err := qa.resolveWindowFunction(fn, name, params, argTypes, lambdaIndexes, s); err != nil {
			return nil, err
		}
		windowIsIdentifier := false
		if _, ok := fn.Window.(*querytree.IdentifierNode); ok {
			windowIsIdentifier = true
		}
		windowName, err := qa.resolveWindow(&fn.Window, s)
		if err != nil {
			return nil, err
		}
		if err := forceOffsetFunctionFrame(fn, name); err != nil {
			return nil, err
		}
		if windowIsIdentifier {
			names[0] += " OVER " + windowName
		} else {
			names[0] += " OVER (" + windowName + ")"
		}
		return names, nil
	}

	impl, ok := qa.Functions.Function(name)
	if !ok {
		if !qa.Functions.IsAggregate(name) {
			return nil, sql.NewErr(sql.ErrUnknownFunction,
				"Function with name '%s' does not exist. In scope %s%s",
				name, s.description(), hintsSuffix(qa.functionHints(name, s)))
		}
		if len(lambdaIndexes) > 0 {
			return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
				"Aggregate function '%s' does not support lambda arguments", name)
		}
		aggregateName := rewriteAggregateFunctionName(name, s.settings)
		aggregate, ok := qa.Functions.AggregateFunction(aggregateName)
		if !ok {
			return nil, sql.NewErr(sql.ErrUnknownAggregateFunction,
				"Aggregate function with name '%s' does not exist. In scope %s%s",
				aggregateName, s.description(), hintsSuffix(qa.aggregateHints(aggregateName)))
		}
		t, err := aggregate.ReturnType(params, argTypes)
		if err != nil {
			return nil, err
		}
		fn.Name = aggregate.Name()
		fn.ResolveAsAggregateFunction(aggregate, t)
		return names, nil
	}

	if len(params) > 0 {
		return nil, sql.NewErr(sql.ErrBadArguments, "Function %s is not parametric", name)
	}

	if len(lambdaIndexes) > 0 {
		if err := qa.resolveLambdaArguments(impl, args, columns, argNames, lambdaIndexes, s); err != nil {
			return nil, err
		}
		names = []string{functionProjectionName(fn.Name, paramNames, argNames)}
	}

	if isIn {
		left, leftOK := args[0].(*querytree.ConstantNode)
		right, rightOK := args[1].(*querytree.ConstantNode)
		if leftOK && rightOK {
			set := buildSet(left.Type, right.Value, right.Type, s.settings.TransformNullIn)
			columns[1].Constant = true
			columns[1].Value = set
		} else {
			columns[1].Constant = false
			columns[1].Value = nil
			allConstant = false
		}
		columns[1].Type = sql.Set
	}

	bound, t, err := qa.bindFunction(impl, querytree.TreeHash(fn), columns)
	if err != nil {
		return nil, err
	}
	folded, err := qa.tryFoldConstant(fn, bound, t, columns, allConstant)
	if err != nil {
		return nil, err
	}
	fn.Name = bound.Name()
	fn.ResolveAsFunction(bound, t)
	if folded != nil {
		*slot = folded
	}
	return names, nil
}

// resolvedFunctionProjectionNames returns the projection names of a function
// that was bound before, like the copies made by cloneResolved.
func (qa *queryAnalyzer) resolvedFunctionProjectionNames(fn *querytree.FunctionNode, s *scope) ([]string, error) {
	paramNames, err := qa.resolveExpressionNodeList(&fn.Parameters, s, false, false)
	if err != nil {
		return nil, err
	}
	fn.ArgumentsList()
	argNames, err := qa.resolveExpressionNodeList(&fn.Arguments, s, true, true)
	if err != nil {
		return nil, err
	}
	return []string{functionProjectionName(fn.Name, paramNames, argNames)}, nil
}

// tryResolveConstantIf handles if(cond, a, b) whose condition is constant.
// When the branch that is not taken does not resolve, the function is
// replaced by the branch that is.
func (qa *queryAnalyzer) tryResolveConstantIf(slot *querytree.Node, fn *querytree.FunctionNode, s *scope) (bool, []string, error) {
	args := fn.ArgumentsList().Nodes
	if _, err := qa.resolveExpressionNode(&args[0], s, false, false, false); err != nil {
		return false, nil, err
	}
	condition, ok := constantCondition(args[0])
	if !ok || len(args) != 3 {
		return false, nil, nil
	}

	taken, other := 1, 2
	if !condition {
		taken, other = 2, 1
	}
	if _, err := qa.resolveExpressionNode(&args[other], s, false, false, false); err == nil {
		return false, nil, nil
	} else {
		qa.Log("branch %s of constant if is not resolved: %s", querytree.String(args[other]), err)
	}

	names, err := qa.resolveExpressionNode(&args[taken], s, false, false, false)
	if err != nil {
		return false, nil, err
	}
	*slot = args[taken]
	return true, names, nil
}

// constantCondition returns the value of a UInt8 constant condition. NULL is
// false.
func constantCondition(n querytree.Node) (bool, bool) {
	c, ok := n.(*querytree.ConstantNode)
	if !ok {
		return false, false
	}
	t := sql.RemoveNullable(c.Type)
	switch t.Kind() {
	case sql.KindUInt8, sql.KindBool, sql.KindNothing:
	default:
		return false, false
	}
	switch v := c.Value.(type) {
	case nil:
		return false, true
	case bool:
		return v, true
	case uint64:
		return v != 0, true
	case int64:
		return v != 0, true
	}
	return false, false
}

func isCorrelatedSubquery(n querytree.Node) bool {
	switch n.(type) {
	case *querytree.QueryNode, *querytree.UnionNode:
		return querytree.IsCorrelated(n)
	}
	return false
}

// tableFunctionSubquery wraps a table function into SELECT <columns> FROM
// table function.
func tableFunctionSubquery(tf *querytree.TableFunctionNode) querytree.Node {
	q := querytree.NewQueryNode()
	q.IsSubquery = true
	projection := querytree.NewListNode()
	var columns []querytree.NameAndType
	if storage := tf.Storage(); storage != nil {
		for _, c := range storage.Columns() {
			if c.Kind != sql.OrdinaryColumn {
				continue
			}
			projection.Append(querytree.NewColumnNode(c.Name, c.Type, tf))
			columns = append(columns, querytree.NameAndType{Name: c.Name, Type: c.Type})
		}
	}
	q.Projection = projection
	q.JoinTree = tf
	q.SetProjectionColumns(columns)
	return q
}

// maskSecretArguments hides the constant arguments functions declare as
// secret. Equal constants get the same mask id within the query.
func (qa *queryAnalyzer) maskSecretArguments(name string, args []querytree.Node, argNames []string, s *scope) {
	impl, ok := qa.Functions.Function(name)
	if !ok {
		return
	}
	secret, ok := impl.(sql.SecretArgumentsFunction)
	if !ok {
		return
	}
	columns := make([]sql.ArgumentColumn, len(args))
	for i, a := range args {
		columns[i] = sql.ArgumentColumn{Name: argNames[i], Type: querytree.ResultType(a)}
		if c, ok := a.(*querytree.ConstantNode); ok {
			columns[i].Constant = true
			columns[i].Value = c.Value
		}
	}
	start, count := secret.SecretArguments(columns)
	for i := start; i < start+count && i < len(args); i++ {
		c, ok := args[i].(*querytree.ConstantNode)
		if !ok {
			continue
		}
		hash := querytree.TreeHash(c)
		mask, ok := s.projectionMask[hash]
		if !ok {
			mask = len(s.projectionMask) + 1
			s.projectionMask[hash] = mask
		}
		argNames[i] = fmt.Sprintf("[HIDDEN id: %d]", mask)
	}
}

// argumentColumns describes the resolved arguments. Lambdas get a Function
// type with unknown argument types; their positions are returned.
func (qa *queryAnalyzer) argumentColumns(
	name string,
	args []querytree.Node,
	argNames []string,
	isIn bool,
	s *scope,
) ([]sql.ArgumentColumn, []int, bool, error) {
	columns := make([]sql.ArgumentColumn, len(args))
	var lambdas []int
	allConstant := true
	for i, a := range args {
		c := sql.ArgumentColumn{Name: argNames[i]}
		switch n := a.(type) {
		case *querytree.LambdaNode:
			c.Type = sql.FunctionType{Args: make([]sql.Type, n.ArgumentsList().Len())}
			lambdas = append(lambdas, i)
		default:
			if isIn && i == 1 {
				c.Type = sql.Set
			} else {
				c.Type = querytree.ResultType(a)
			}
		}
		if c.Type == nil {
			return nil, nil, false, sql.ErrLogical.New(fmt.Sprintf(
				"Function '%s' argument is not resolved. In scope %s", name, s.description()))
		}

		switch n := a.(type) {
		case *querytree.ConstantNode:
			c.Constant = true
			c.Value = n.Value
			c.Type = n.Type
		case *querytree.FunctionNode:
			if v, ok := qa.scalarArgumentValue(n); ok {
				c.Constant = true
				c.Value = v
				c.Type = n.ResultType()
			}
		}
		allConstant = allConstant && c.Constant
		columns[i] = c
	}
	return columns, lambdas, allConstant, nil
}

// scalarArgumentValue returns the value a __getScalar call reads, when it is
// registered in the query context.
func (qa *queryAnalyzer) scalarArgumentValue(fn *querytree.FunctionNode) (interface{}, bool) {
	if fn.Name != function.GetScalarName || fn.ArgumentsList().Len() != 1 {
		return nil, false
	}
	key, ok := fn.ArgumentsList().Nodes[0].(*querytree.ConstantNode)
	if !ok {
		return nil, false
	}
	registry := qa.ctx.QueryContext()
	if registry == nil {
		return nil, false
	}
	scalar, ok := registry.Get(fmt.Sprint(key.Value))
	if !ok {
		return nil, false
	}
	return scalar.Value, true
}

// resolveLambdaCall replaces a call of a lambda, or of a user defined
// function, by the lambda body with the call arguments substituted.
func (qa *queryAnalyzer) resolveLambdaCall(
	slot *querytree.Node,
	fn *querytree.FunctionNode,
	lambda querytree.Node,
	args []querytree.Node,
	paramsCount int,
	names []string,
	s *scope,
) ([]string, error) {
	l, ok := lambda.(*querytree.LambdaNode)
	if !ok {
		return nil, sql.ErrLogical.New(fmt.Sprintf(
			"Function identifier '%s' must be resolved as lambda. Actual: %s. In scope %s",
			fn.Name, querytree.String(lambda), s.description()))
	}
	if paramsCount > 0 {
		return nil, sql.NewErr(sql.ErrBadArguments, "Function %s is not parametric", querytree.String(fn))
	}

	clone := querytree.Clone(l).(*querytree.LambdaNode)
	lambdaScope := qa.newScope(clone, s)
	lambdaNames, err := qa.resolveLambda(l, clone, args, lambdaScope)
	if err != nil {
		return nil, err
	}
	*slot = clone.Expression
	if _, ok := clone.Expression.(*querytree.ListNode); ok {
		return lambdaNames, nil
	}
	return names, nil
}

// resolveUntuple expands untuple(x) into one tupleElement call per element
// of x.
func (qa *queryAnalyzer) resolveUntuple(slot *querytree.Node, fn *querytree.FunctionNode, argNames []string, s *scope) ([]string, error) {
	args := fn.ArgumentsList().Nodes
	if len(args) != 1 {
		return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
			"Function 'untuple' must have 1 argument. In scope %s", s.description())
	}
	arg := args[0]
	if _, ok := arg.(*querytree.LambdaNode); ok {
		return nil, sql.NewErr(sql.ErrTypeMismatch, "Function untuple can't have lambda-expressions as arguments")
	}
	t := querytree.ResultType(arg)
	tuple, ok := t.(sql.TupleType)
	if !ok {
		typeName := "<unknown>"
		if t != nil {
			typeName = t.Name()
		}
		return nil, sql.NewErr(sql.ErrUnsupportedConstruct,
			"Function 'untuple' argument must have compound type. Actual type %s. In scope %s",
			typeName, s.description())
	}

	elements := tuple.ElementNames()
	result := querytree.NewListNode()
	names := make([]string, 0, len(elements))
	for i, element := range elements {
		elementArg := arg
		if i > 0 {
			elementArg = qa.cloneResolved(arg)
		}
		var n querytree.Node = querytree.NewFunctionNode("tupleElement", elementArg, querytree.NewConstantNode(element))
		if _, err := qa.resolveFunction(&n, s); err != nil {
			return nil, err
		}
		result.Append(n)

		if fn.HasAlias() {
			names = append(names, fn.Alias()+"."+element)
		} else {
			names = append(names, fmt.Sprintf("tupleElement(%s, '%s')", argNames[0], element))
		}
	}
	for i, n := range result.Nodes {
		qa.resolvedExpressions[n] = names[i : i+1]
	}
	*slot = result
	return names, nil
}

// resolveWindowFunction binds a function with OVER to a window function or
// to an aggregate function.
func (qa *queryAnalyzer) resolveWindowFunction(
	fn *querytree.FunctionNode,
	name string,
	params []interface{},
	argTypes []sql.Type,
	lambdaIndexes []int,
	s *scope,
) error {
	aggregate, ok := qa.Functions.WindowFunction(name)
	if !ok {
		if !qa.Functions.IsAggregate(name) {
			return sql.NewErr(sql.ErrUnknownAggregateFunction,
				"Aggregate function with name '%s' does not exist. In scope %s%s",
				name, s.description(), hintsSuffix(qa.aggregateHints(name)))
		}
		if aggregate, ok = qa.Functions.AggregateFunction(rewriteAggregateFunctionName(name, s.settings)); !ok {
			return sql.NewErr(sql.ErrUnknownAggregateFunction,
				"Aggregate function with name '%s' does not exist. In scope %s", name, s.description())
		}
	}
	if len(lambdaIndexes) > 0 {
		return sql.NewErr(sql.ErrUnsupportedConstruct,
			"Window function '%s' does not support lambda arguments", name)
	}
	t, err := aggregate.ReturnType(params, argTypes)
	if err != nil {
		return err
	}
	fn.Name = aggregate.Name()
	fn.ResolveAsWindowFunction(aggregate, t)
	return nil
}

// forceOffsetFunctionFrame sets the frame of lag and lead to the whole
// partition. They do not accept an explicit frame.
func forceOffsetFunctionFrame(fn *querytree.FunctionNode, name string) error {
	if name != "lag" && name != "lead" {
		return nil
	}
	w, ok := fn.Window.(*querytree.WindowNode)
	if !ok {
		return nil
	}
	if !w.Frame.IsDefault {
		return sql.NewErr(sql.ErrBadArguments,
			"Window function '%s' does not expect window frame to be explicitly specified. In expression %s",
			name, querytree.String(fn))
	}
	w.Frame = querytree.WindowFrame{
		Type:           querytree.RowsFrame,
		BeginType:      querytree.UnboundedBound,
		BeginPreceding: true,
		EndType:        querytree.UnboundedBound,
		EndPreceding:   false,
	}
	return nil
}

// resolveLambdaArguments resolves the lambda arguments of a higher order
// function with the argument types the function calls them with.
func (qa *queryAnalyzer) resolveLambdaArguments(
	impl sql.Function,
	args []querytree.Node,
	columns []sql.ArgumentColumn,
	argNames []string,
	lambdaIndexes []int,
	s *scope,
) error {
	higherOrder, ok := impl.(sql.HigherOrderFunction)
	if !ok {
		return sql.NewErr(sql.ErrBadArguments, "Function %s does not support lambda arguments", impl.Name())
	}
	types, err := higherOrder.LambdaArgumentTypes(columns)
	if err != nil {
		return err
	}

	for _, i := range lambdaIndexes {
		original := args[i].(*querytree.LambdaNode)
		toResolve := querytree.Clone(original).(*querytree.LambdaNode)
		argCount := toResolve.ArgumentsList().Len()
		if i >= len(types) || types[i] == nil {
			return sql.ErrLogical.New(fmt.Sprintf(
				"Function '%s' expected function data type for lambda argument with index %d. In scope %s",
				impl.Name(), i, s.description()))
		}
		if len(types[i]) != argCount {
			return sql.NewErr(sql.ErrIllegalArgument,
				"Lambda %s expect %d arguments. Actual: %d. In scope %s",
				querytree.String(original), argCount, len(types[i]), s.description())
		}

		lambdaScope := qa.newScope(toResolve, s)
		lambdaArgs := make([]querytree.Node, argCount)
		for j := range lambdaArgs {
			lambdaArgs[j] = querytree.NewColumnNode(toResolve.ArgumentNames[j], types[i][j], toResolve)
		}
		lambdaNames, err := qa.resolveLambda(original, toResolve, lambdaArgs, lambdaScope)
		if err != nil {
			return err
		}
		if list, ok := toResolve.Expression.(*querytree.ListNode); ok {
			if list.Len() != 1 {
				return sql.NewErr(sql.ErrUnsupportedConstruct,
					"Lambda as function argument resolved as list node with size %d. Expected 1. In scope %s",
					list.Len(), querytree.String(toResolve))
			}
			toResolve.Expression = list.Nodes[0]
		}

		if argNames[i] == projectionNamePlaceholder {
			if len(lambdaNames) != 1 {
				return sql.ErrLogical.New(fmt.Sprintf(
					"Lambda argument inside function expected to have 1 projection name. Actual: %d", len(lambdaNames)))
			}
			argNames[i] = "lambda(tuple(" + strings.Join(toResolve.ArgumentNames, ", ") + "), " + lambdaNames[0] + ")"
		}

		t := sql.FunctionType{Args: types[i], Return: querytree.ResultType(toResolve.Expression)}
		columns[i].Type = t
		args[i] = toResolve
		qa.resolvedExpressions[toResolve] = argNames[i : i+1]
	}
	return nil
}

// buildSet computes the elements of a constant IN right side, converted to
// the type of the left side. Elements that cannot be converted are skipped.
func buildSet(leftType sql.Type, right interface{}, rightType sql.Type, transformNullIn bool) *sql.SetValue {
	elementType := sql.RemoveNullable(leftType)
	var values []interface{}
	switch v := right.(type) {
	case []interface{}:
		values = v
	case sql.Tuple:
		rt, _ := sql.RemoveNullable(rightType).(sql.TupleType)
		lt, leftIsTuple := elementType.(sql.TupleType)
		if leftIsTuple && len(lt.Elems) == len(v) && !tupleOfTuples(rt) {
			values = []interface{}{v}
		} else {
			values = v
		}
	default:
		values = []interface{}{v}
	}

	set := &sql.SetValue{ElementType: elementType}
	for _, v := range values {
		if v == nil {
			if transformNullIn {
				set.Elements = append(set.Elements, nil)
			}
			continue
		}
		converted, err := sql.ConvertValue(v, elementType)
		if err != nil || converted == nil {
			continue
		}
		set.Elements = append(set.Elements, converted)
	}
	return set
}

func tupleOfTuples(t sql.TupleType) bool {
	if len(t.Elems) == 0 {
		return false
	}
	for _, e := range t.Elems {
		if !sql.IsTuple(sql.RemoveNullable(e)) {
			return false
		}
	}
	return true
}

// bindFunction builds the function to evaluate for the argument columns and
// its result type. Built functions are cached by the hash of the call.
func (qa *queryAnalyzer) bindFunction(impl sql.Function, hash uint64, columns []sql.ArgumentColumn) (sql.Function, sql.Type, error) {
	bound, ok := qa.functionCache[hash]
	if !ok || bound.Name() != impl.Name() {
		bound = impl
		if b, ok := impl.(sql.BindableFunction); ok {
			var err error
			if bound, err = b.Bind(columns); err != nil {
				return nil, nil, err
			}
		}
		qa.functionCache[hash] = bound
	}
	t, err := bound.ReturnType(columns)
	if err != nil {
		return nil, nil, err
	}
	return bound, t, nil
}

// tryFoldConstant computes the function when its result is known during
// analysis and returns the constant that replaces the call.
func (qa *queryAnalyzer) tryFoldConstant(
	fn *querytree.FunctionNode,
	bound sql.Function,
	t sql.Type,
	columns []sql.ArgumentColumn,
	allConstant bool,
) (*querytree.ConstantNode, error) {
	if !bound.IsSuitableForConstantFolding() {
		return nil, nil
	}

	var value interface{}
	if allConstant {
		values := make([]interface{}, len(columns))
		for i, c := range columns {
			values[i] = c.Value
		}
		v, err := bound.Eval(qa.ctx, values)
		if err != nil {
			return nil, err
		}
		value = v
	} else if cr, ok := bound.(sql.ConstantResultFunction); ok {
		v, ok := cr.ConstantResult(columns)
		if !ok {
			return nil, nil
		}
		value = v
	} else {
		return nil, nil
	}

	if hasAggregateFunction(fn) || hasFunction(fn, "arrayJoin") || sql.ValueSize(value) >= maxConstantFoldingSize {
		return nil, nil
	}
	c := querytree.NewConstantNodeWithType(value, t)
	c.SourceExpression = fn
	return c, nil
}

// hasAggregateFunction returns whether an argument of the function, outside
// of subqueries and lambdas, is an aggregate function.
func hasAggregateFunction(fn *querytree.FunctionNode) bool {
	found := false
	for _, a := range fn.ArgumentNodes() {
		querytree.InspectExpression(a, func(n querytree.Node) bool {
			if f, ok := n.(*querytree.FunctionNode); ok && f.IsAggregateFunction() {
				found = true
			}
			return !found
		})
	}
	return found
}

func hasFunction(fn *querytree.FunctionNode, name string) bool {
	found := false
	for _, a := range fn.ArgumentNodes() {
		querytree.InspectExpression(a, func(n querytree.Node) bool {
			if f, ok := n.(*querytree.FunctionNode); ok && f.Name == name {
				found = true
			}
			return !found
		})
	}
	return found
}

// functionProjectionName returns name(params)(args). Arrays are written
// [args].
func functionProjectionName(name string, params, args []string) string {
	var sb strings.Builder
	isArray := name == "array"
	if !isArray {
		sb.WriteString(name)
	}
	if len(params) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(params, ", "))
		sb.WriteString(")")
	}
	open, close := "(", ")"
	if isArray {
		open, close = "[", "]"
	}
	sb.WriteString(open)
	sb.WriteString(strings.Join(args, ", "))
	sb.WriteString(close)
	return sb.String()
}

// rewriteAggregateFunctionName applies count_distinct_implementation and
// aggregate_functions_null_for_empty, and moves combinators so the
// function runs the cheapest way.
func rewriteAggregateFunctionName(name string, settings *sql.Settings) string {
	lower := strings.ToLower(name)
	countDistinct := settings.CountDistinctImplementation
	if countDistinct == "" {
		countDistinct = "uniqExact"
	}

	result := name
	switch {
	case lower == "countdistinct":
		result = countDistinct
	case lower == "countifdistinct":
		result = countDistinct + "If"
	case strings.HasSuffix(lower, "ifdistinct"):
		result = name[:len(name)-len("ifdistinct")] + "DistinctIf"
	}

	if settings.AggregateFunctionsNullForEmpty && !strings.HasSuffix(result, "OrNull") && !returnsDefaultWhenOnlyNull(result) {
		result += "OrNull"
	}

	// sumIfOrNull becomes sumOrNullIf.
	if strings.HasSuffix(result, "OrNull") && !returnsDefaultWhenOnlyNull(result) {
		base := strings.TrimSuffix(result, "OrNull")
		for _, suffix := range []string{"MergeState", "Merge", "State", "If"} {
			if strings.HasSuffix(base, suffix) {
				result = strings.TrimSuffix(base, suffix) + "OrNull" + suffix
				break
			}
		}
	}
	return result
}

// returnsDefaultWhenOnlyNull is true for the aggregate functions that
// return a default value, not NULL, for empty input.
func returnsDefaultWhenOnlyNull(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "count") || strings.HasPrefix(lower, "uniq")
}

// functionHints returns the function names close to name: registry
// functions, user defined functions and lambdas of the scope.
func (qa *queryAnalyzer) functionHints(name string, s *scope) []string {
	candidates := qa.Functions.Names()
	if qa.UDFs != nil {
		candidates = append(candidates, qa.UDFs.UserDefinedFunctionNames()...)
	}
	for alias, n := range s.aliases.lambdas {
		if _, ok := n.(*querytree.LambdaNode); ok {
			candidates = append(candidates, alias)
		}
	}
	return similartext.Closest(candidates, name)
}

func (qa *queryAnalyzer) aggregateHints(name string) []string {
	var candidates []string
	for _, n := range qa.Functions.Names() {
		if qa.Functions.IsAggregate(n) {
			candidates = append(candidates, n)
		} else if _, ok := qa.Functions.WindowFunction(n); ok {
			candidates = append(candidates, n)
		}
	}
	return similartext.Closest(candidates, name)
}

// buildFunction returns a resolved call of a registry function on resolved
// arguments. The call is folded when all arguments are constant.
func (qa *queryAnalyzer) buildFunction(s *scope, name string, args ...querytree.Node) (querytree.Node, error) {
	impl, ok := qa.Functions.Function(name)
	if !ok {
		return nil, sql.NewErr(sql.ErrUnknownFunction,
			"Function with name '%s' does not exist. In scope %s", name, s.description())
	}
	fn := querytree.NewFunctionNode(name, args...)

	argNames := make([]string, len(args))
	columns := make([]sql.ArgumentColumn, len(args))
	allConstant := true
	for i, a := range args {
		if names, ok := qa.resolvedExpressions[a]; ok && len(names) == 1 {
			argNames[i] = names[0]
		} else if c, ok := a.(*querytree.ConstantNode); ok {
			argNames[i] = sql.FormatValue(c.Value)
		} else {
			argNames[i] = querytree.StringWithoutAlias(a)
		}
		columns[i] = sql.ArgumentColumn{Name: argNames[i], Type: querytree.ResultType(a)}
		if c, ok := a.(*querytree.ConstantNode); ok {
			columns[i].Constant = true
			columns[i].Value = c.Value
		}
		allConstant = allConstant && columns[i].Constant
	}

	bound, t, err := qa.bindFunction(impl, querytree.TreeHash(fn), columns)
	if err != nil {
		return nil, err
	}
	folded, err := qa.tryFoldConstant(fn, bound, t, columns, allConstant)
	if err != nil {
		return nil, err
	}
	fn.ResolveAsFunction(bound, t)

	names := []string{functionProjectionName(name, nil, argNames)}
	if folded != nil {
		qa.resolvedExpressions[folded] = names
		return folded, nil
	}
	qa.resolvedExpressions[fn] = names
	return fn, nil
}

// buildCast returns _CAST(expr, 'T').
func (qa *queryAnalyzer) buildCast(expr querytree.Node, t sql.Type, s *scope) (querytree.Node, error) {
	return qa.buildFunction(s, "_CAST", expr, querytree.NewConstantNodeWithType(t.Name(), sql.String))
}
