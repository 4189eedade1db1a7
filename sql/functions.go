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

package sql

// ArgumentColumn describes a resolved function argument.
type ArgumentColumn struct {
	Name string
	Type Type
	// Constant is true when Value holds the value of the argument.
	Constant bool
	Value    interface{}
}

// Function is an ordinary (row by row) function.
type Function interface {
	// Name returns the canonical name of the function.
	Name() string
	// ReturnType checks the arguments and returns the result type.
	ReturnType(args []ArgumentColumn) (Type, error)
	// Eval computes the function for one set of argument values.
	Eval(ctx *Context, args []interface{}) (interface{}, error)
	// IsSuitableForConstantFolding returns whether a call with constant
	// arguments can be replaced by its result during analysis.
	IsSuitableForConstantFolding() bool
	// IsDeterministic returns whether the function always returns the same
	// value for the same arguments.
	IsDeterministic() bool
}

// HigherOrderFunction is a Function that takes lambda arguments.
type HigherOrderFunction interface {
	Function
	// LambdaArgumentTypes returns, for each argument position, the argument
	// types the lambda at that position is called with. Positions that do
	// not hold a lambda are nil.
	LambdaArgumentTypes(args []ArgumentColumn) ([][]Type, error)
}

// SecretArgumentsFunction is a Function some of whose arguments must not be
// shown, like keys of encryption functions.
type SecretArgumentsFunction interface {
	Function
	// SecretArguments returns the range of arguments to hide.
	SecretArguments(args []ArgumentColumn) (start, count int)
}

// ConstantResultFunction is a Function that can produce a constant even for
// non-constant arguments, like toTypeName.
type ConstantResultFunction interface {
	Function
	ConstantResult(args []ArgumentColumn) (interface{}, bool)
}

// AggregateState accumulates the values of an aggregate function.
type AggregateState interface {
	Update(args []interface{}) error
	Result() interface{}
}

// AggregateFunction is a function computed over groups of rows.
type AggregateFunction interface {
	Name() string
	ReturnType(params []interface{}, args []Type) (Type, error)
	NewState(params []interface{}, args []Type) (AggregateState, error)
}

// FunctionRegistry gives access to all the known functions.
type FunctionRegistry interface {
	// Function returns an ordinary function.
	Function(name string) (Function, bool)
	// AggregateFunction returns an aggregate function. Names with combinator
	// suffixes, like sumIf, are resolved.
	AggregateFunction(name string) (AggregateFunction, bool)
	// WindowFunction returns a function that can only be used with OVER,
	// like row_number.
	WindowFunction(name string) (AggregateFunction, bool)
	// IsAggregate returns whether name is an aggregate function.
	IsAggregate(name string) bool
	// Names returns the names of all functions, for hints.
	Names() []string
}

// Lambda is the value a lambda argument takes when a higher order function
// is evaluated. It computes the lambda body for one set of argument values.
type Lambda func(args ...interface{}) (interface{}, error)

// BindableFunction is a Function whose evaluation depends on the types of
// its arguments, like tupleElement on named tuples. Bind returns the function
// to evaluate for the given argument columns.
type BindableFunction interface {
	Function
	Bind(args []ArgumentColumn) (Function, error)
}
