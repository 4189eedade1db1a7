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

import "github.com/dolthub/go-query-analyzer/sql"

// FunctionNodeKind tells what a function node was resolved to.
type FunctionNodeKind int

const (
	UnresolvedFunction FunctionNodeKind = iota
	OrdinaryFunction
	AggregateFunction
	WindowFunction
)

// FunctionNode is a function call. Until it is resolved, only the name,
// parameters and arguments are set.
type FunctionNode struct {
	base
	Name string
	// Parameters are the parameters of parametric aggregate functions, like
	// the 0.5 of quantile(0.5)(x).
	Parameters Node
	Arguments  Node
	// Window is nil, an identifier naming a window, or a window node.
	Window Node

	kind       FunctionNodeKind
	function   sql.Function
	aggregate  sql.AggregateFunction
	resultType sql.Type
}

// NewFunctionNode returns an unresolved call to the named function.
func NewFunctionNode(name string, args ...Node) *FunctionNode {
	return &FunctionNode{Name: name, Parameters: NewListNode(), Arguments: NewListNode(args...)}
}

func (*FunctionNode) Kind() NodeKind { return FunctionKind }
func (*FunctionNode) node()          {}

// ResultType returns the result type, or nil if the function is not
// resolved.
func (f *FunctionNode) ResultType() sql.Type { return f.resultType }

// ParametersList returns the function parameters.
func (f *FunctionNode) ParametersList() *ListNode {
	if f.Parameters == nil {
		f.Parameters = NewListNode()
	}
	return AsList(f.Parameters)
}

// ArgumentsList returns the function arguments.
func (f *FunctionNode) ArgumentsList() *ListNode {
	if f.Arguments == nil {
		f.Arguments = NewListNode()
	}
	return AsList(f.Arguments)
}

// ArgumentNodes returns the function argument nodes.
func (f *FunctionNode) ArgumentNodes() []Node {
	return f.ArgumentsList().Nodes
}

// IsResolved returns whether the function was bound.
func (f *FunctionNode) IsResolved() bool { return f.kind != UnresolvedFunction }

// FunctionKind returns what the function was resolved to.
func (f *FunctionNode) FunctionKind() FunctionNodeKind { return f.kind }

// IsOrdinaryFunction returns whether the function is an ordinary function.
func (f *FunctionNode) IsOrdinaryFunction() bool { return f.kind == OrdinaryFunction }

// IsAggregateFunction returns whether the function is an aggregate function
// without OVER.
func (f *FunctionNode) IsAggregateFunction() bool { return f.kind == AggregateFunction }

// IsWindowFunction returns whether the function has an OVER clause.
func (f *FunctionNode) IsWindowFunction() bool {
	return f.kind == WindowFunction || (f.kind == UnresolvedFunction && f.Window != nil)
}

// Function returns the bound ordinary function.
func (f *FunctionNode) Function() sql.Function { return f.function }

// Aggregate returns the bound aggregate or window function.
func (f *FunctionNode) Aggregate() sql.AggregateFunction { return f.aggregate }

// ResolveAsFunction binds the node to an ordinary function.
func (f *FunctionNode) ResolveAsFunction(fn sql.Function, resultType sql.Type) {
	f.kind = OrdinaryFunction
	f.function = fn
	f.aggregate = nil
	f.resultType = resultType
}

// ResolveAsAggregateFunction binds the node to an aggregate function.
func (f *FunctionNode) ResolveAsAggregateFunction(fn sql.AggregateFunction, resultType sql.Type) {
	f.kind = AggregateFunction
	f.function = nil
	f.aggregate = fn
	f.resultType = resultType
}

// ResolveAsWindowFunction binds the node to a window function.
func (f *FunctionNode) ResolveAsWindowFunction(fn sql.AggregateFunction, resultType sql.Type) {
	f.kind = WindowFunction
	f.function = nil
	f.aggregate = fn
	f.resultType = resultType
}

// MarkResolved sets the result type of a function that is not bound to a
// registry function, like the correlated exists marker.
func (f *FunctionNode) MarkResolved(resultType sql.Type) {
	f.kind = OrdinaryFunction
	f.resultType = resultType
}

// SetResultType changes the result type of a resolved function.
func (f *FunctionNode) SetResultType(t sql.Type) { f.resultType = t }
