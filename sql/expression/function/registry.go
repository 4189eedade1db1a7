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
package function

import (
	"sort"
	"strings"

	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/expression/function/aggregation"
)

// Defaults are the ordinary functions of a new Registry.
var Defaults = []sql.Function{
	newArithmetic(opPlus),
	newArithmetic(opMinus),
	newArithmetic(opMultiply),
	newArithmetic(opDivide),
	newArithmetic(opModulo),
	newArithmetic(opIntDiv),
	newNegate(),
	newComparison("equals", func(c int) bool { return c == 0 }),
	newComparison("notEquals", func(c int) bool { return c != 0 }),
	newComparison("less", func(c int) bool { return c < 0 }),
	newComparison("greater", func(c int) bool { return c > 0 }),
	newComparison("lessOrEquals", func(c int) bool { return c <= 0 }),
	newComparison("greaterOrEquals", func(c int) bool { return c >= 0 }),
	newLogical("and", true),
	newLogical("or", false),
	newNot(),
	newXor(),
	newIsNull("isNull", false),
	newIsNull("isNotNull", true),
	newLike("like", false, false),
	newLike("notLike", true, false),
	newLike("ilike", false, true),
	newLike("notILike", true, true),
	newPatternMatch("match", func(re string) string { return re }, false),
	newIf(),
	newMultiIf(),
	newIfNull(),
	newCoalesce(),
	newNullIf(),
	newAssumeNotNull(),
	newToNullable(),
	newTuple(),
	newTupleElement(),
	newGetSubcolumn(),
	newExists(),
	newGrouping(),
	newArray(),
	newArrayMap(),
	newArrayFilter(),
	newArrayExists(),
	newArrayJoin(),
	newLength(),
	newHas(),
	newRange(),
	newArrayElement(),
	newIn("in"),
	newIn("notIn"),
	newIn("globalIn"),
	newIn("globalNotIn"),
	newIn("nullIn"),
	newIn("notNullIn"),
	newIn("globalNullIn"),
	newIn("globalNotNullIn"),
	newCast("_CAST"),
	newCast("CAST"),
	newConversion("toUInt8", sql.UInt8),
	newConversion("toUInt64", sql.UInt64),
	newConversion("toInt32", sql.Int32),
	newConversion("toInt64", sql.Int64),
	newConversion("toFloat64", sql.Float64),
	newConversion("toString", sql.String),
	newConversion("toDate", sql.Date),
	newConversion("toDateTime", sql.DateTime),
	newConversion("toUUID", sql.UUID),
	newDecimalConversion("toDecimal32", 9),
	newDecimalConversion("toDecimal64", 18),
	newToTypeName(),
	newMaterialize(),
	newIdentity(),
	newGetScalar(),
	newConcat(),
	newCaseFunction("lower", strings.ToLower),
	newCaseFunction("upper", strings.ToUpper),
	newSubstring(),
	newEncryption("encrypt", false),
	newEncryption("aes_encrypt_mysql", false),
	newEncryption("decrypt", true),
	newRand(),
	newGenerateUUIDv4(),
	newNow(),
}

// caseInsensitive are the functions that can be called in any case, the way
// SQL standard functions are.
var caseInsensitive = map[string]bool{
	"cast": true, "coalesce": true, "concat": true, "if": true, "ifNull": true,
	"isNull": true, "isNotNull": true, "length": true, "lower": true, "upper": true,
	"nullIf": true, "substring": true, "rand": true, "now": true,
}

// aliases are alternative names of functions.
var aliases = map[string]string{
	"substr":    "substring",
	"lcase":     "lower",
	"ucase":     "upper",
	"nvl":       "ifNull",
	"rand32":    "rand",
	"tuple_get": "tupleElement",
}

// Registry is the default sql.FunctionRegistry. It is safe for concurrent
// reads once built.
type Registry struct {
	functions map[string]sql.Function
	// folded maps lower case names of case insensitive functions and aliases
	// to canonical names.
	folded  map[string]string
	windows map[string]sql.AggregateFunction
}

var _ sql.FunctionRegistry = (*Registry)(nil)

// NewRegistry returns a registry with the default functions.
func NewRegistry() *Registry {
	r := &Registry{
		functions: make(map[string]sql.Function),
		folded:    make(map[string]string),
		windows:   make(map[string]sql.AggregateFunction),
	}
	for _, f := range Defaults {
		r.Register(f)
	}
	for alias, name := range aliases {
		r.folded[strings.ToLower(alias)] = name
	}
	for _, w := range []*windowFunction{
		newRanking("row_number"),
		newRanking("rank"),
		newRanking("dense_rank"),
		newOffset("lagInFrame", false),
		newOffset("leadInFrame", true),
		newOffset("lag", false),
		newOffset("lead", true),
	} {
		r.RegisterWindow(w)
	}
	return r
}

// Register adds an ordinary function, replacing any function with the same
// name.
func (r *Registry) Register(f sql.Function) {
	r.functions[f.Name()] = f
	if caseInsensitive[f.Name()] || caseInsensitive[strings.ToLower(f.Name())] {
		r.folded[strings.ToLower(f.Name())] = f.Name()
	}
}

// RegisterWindow adds a function that can only be used with OVER.
func (r *Registry) RegisterWindow(f sql.AggregateFunction) {
	r.windows[f.Name()] = f
}

func (r *Registry) canonical(name string) string {
	if _, ok := r.functions[name]; ok {
		return name
	}
	if c, ok := r.folded[strings.ToLower(name)]; ok {
		return c
	}
	return name
}

// Function implements the sql.FunctionRegistry interface.
func (r *Registry) Function(name string) (sql.Function, bool) {
	f, ok := r.functions[r.canonical(name)]
	return f, ok
}

// AggregateFunction implements the sql.FunctionRegistry interface.
func (r *Registry) AggregateFunction(name string) (sql.AggregateFunction, bool) {
	return aggregation.Lookup(name)
}

// WindowFunction implements the sql.FunctionRegistry interface.
func (r *Registry) WindowFunction(name string) (sql.AggregateFunction, bool) {
	f, ok := r.windows[name]
	return f, ok
}

// IsAggregate implements the sql.FunctionRegistry interface.
func (r *Registry) IsAggregate(name string) bool {
	_, ok := aggregation.Lookup(name)
	return ok
}

// Names implements the sql.FunctionRegistry interface.
func (r *Registry) Names() []string {
	var names []string
	for name := range r.functions {
		names = append(names, name)
	}
	for alias := range aliases {
		names = append(names, alias)
	}
	for name := range r.windows {
		names = append(names, name)
	}
	names = append(names, aggregation.Names()...)
	sort.Strings(names)
	return names
}
