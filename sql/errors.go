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

import (
	"fmt"

	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrUnknownIdentifier is returned when an identifier cannot be bound to
	// any column, alias, argument, table or CTE in scope.
	ErrUnknownIdentifier = errors.NewKind("%s")

	// ErrUnknownTable is returned when a table expression identifier in FROM
	// cannot be found.
	ErrUnknownTable = errors.NewKind("%s")

	// ErrAmbiguousIdentifier is returned when an identifier binds to more than
	// one side of a join.
	ErrAmbiguousIdentifier = errors.NewKind("%s")

	// ErrUnknownFunction is returned for unknown functions and table functions.
	ErrUnknownFunction = errors.NewKind("%s")

	// ErrUnknownAggregateFunction is returned when an aggregate function or
	// combinator cannot be found.
	ErrUnknownAggregateFunction = errors.NewKind("%s")

	// ErrTypeMismatch is returned when an expression has a type that is not
	// allowed where it is used.
	ErrTypeMismatch = errors.NewKind("%s")

	// ErrNoCommonType is returned when no supertype exists for a set of types.
	ErrNoCommonType = errors.NewKind("%s")

	// ErrIllegalArgument is returned for malformed arguments: window frames,
	// LIMIT values, lambda arity, positional arguments.
	ErrIllegalArgument = errors.NewKind("%s")

	// ErrUnsupportedConstruct is returned when a construct is not allowed in
	// the clause it appears in.
	ErrUnsupportedConstruct = errors.NewKind("%s")

	// ErrRecursionDetected is returned for cyclic aliases, lambdas, windows
	// and CTEs.
	ErrRecursionDetected = errors.NewKind("%s")

	// ErrTooDeep is returned when subqueries or expressions nest deeper than
	// allowed.
	ErrTooDeep = errors.NewKind("%s")

	// ErrScalarSubqueryCardinality is returned when a scalar subquery yields
	// more than one row, or an empty result that cannot be NULL.
	ErrScalarSubqueryCardinality = errors.NewKind("%s")

	// ErrBadArguments is returned for generic argument errors.
	ErrBadArguments = errors.NewKind("%s")

	// ErrMultipleExpressionsForAlias is returned when one alias names two
	// different expressions.
	ErrMultipleExpressionsForAlias = errors.NewKind("%s")

	// ErrNotImplemented is returned for combinations of features that are
	// not supported.
	ErrNotImplemented = errors.NewKind("%s")

	// ErrLogical is returned when an internal invariant does not hold.
	ErrLogical = errors.NewKind("logical error: %s")

	// ErrInvalidType is returned when a type name cannot be parsed.
	ErrInvalidType = errors.NewKind("invalid type: %s")

	// ErrUnknownSetting is returned when setting a name Settings does not have.
	ErrUnknownSetting = errors.NewKind("unknown setting %s")

	// ErrInvalidSettingValue is returned when a setting value cannot be
	// converted to the setting's type.
	ErrInvalidSettingValue = errors.NewKind("invalid value %v for setting %s: %s")

	// ErrTableNotFound is returned by catalogs for missing tables.
	ErrTableNotFound = errors.NewKind("table not found: %s")

	// ErrDatabaseNotFound is returned by catalogs for missing databases.
	ErrDatabaseNotFound = errors.NewKind("database not found: %s")

	// ErrFunctionEval is returned when a function fails on constant arguments.
	ErrFunctionEval = errors.NewKind("function %s: %s")
)

// NewErr formats the message of an error kind that carries a single
// formatted message.
func NewErr(kind *errors.Kind, format string, args ...interface{}) error {
	return kind.New(fmt.Sprintf(format, args...))
}
