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
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TypeKind identifies the family of a Type.
type TypeKind int

const (
	KindNothing TypeKind = iota
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindBool
	KindString
	KindDate
	KindDateTime
	KindUUID
	KindNullable
	KindArray
	KindTuple
	KindMap
	KindFunction
	KindSet
	KindAggregateFunction
)

// Type is the result type of an expression.
type Type interface {
	// Kind returns the type family.
	Kind() TypeKind
	// Name returns the full name of the type, e.g. Array(Nullable(UInt8)).
	Name() string
	// FamilyName returns the name of the type family, e.g. Array.
	FamilyName() string
	// Equals returns whether both types are the same.
	Equals(Type) bool
	// Default returns the default value of the type.
	Default() interface{}
}

type primitiveType struct {
	kind TypeKind
	name string
	def  interface{}
}

func (t primitiveType) Kind() TypeKind       { return t.kind }
func (t primitiveType) Name() string         { return t.name }
func (t primitiveType) FamilyName() string   { return t.name }
func (t primitiveType) Default() interface{} { return t.def }
func (t primitiveType) String() string       { return t.name }

func (t primitiveType) Equals(o Type) bool {
	if o == nil {
		return false
	}
	return o.Kind() == t.kind && !isComposite(o.Kind())
}

var (
	Nothing  Type = primitiveType{KindNothing, "Nothing", nil}
	UInt8    Type = primitiveType{KindUInt8, "UInt8", uint64(0)}
	UInt16   Type = primitiveType{KindUInt16, "UInt16", uint64(0)}
	UInt32   Type = primitiveType{KindUInt32, "UInt32", uint64(0)}
	UInt64   Type = primitiveType{KindUInt64, "UInt64", uint64(0)}
	Int8     Type = primitiveType{KindInt8, "Int8", int64(0)}
	Int16    Type = primitiveType{KindInt16, "Int16", int64(0)}
	Int32    Type = primitiveType{KindInt32, "Int32", int64(0)}
	Int64    Type = primitiveType{KindInt64, "Int64", int64(0)}
	Float32  Type = primitiveType{KindFloat32, "Float32", float64(0)}
	Float64  Type = primitiveType{KindFloat64, "Float64", float64(0)}
	Bool     Type = primitiveType{KindBool, "Bool", false}
	String   Type = primitiveType{KindString, "String", ""}
	Date     Type = primitiveType{KindDate, "Date", time.Unix(0, 0).UTC()}
	DateTime Type = primitiveType{KindDateTime, "DateTime", time.Unix(0, 0).UTC()}
	UUID     Type = primitiveType{KindUUID, "UUID", "00000000-0000-0000-0000-000000000000"}
	Set      Type = primitiveType{KindSet, "Set", nil}
)

func isComposite(k TypeKind) bool {
	switch k {
	case KindNullable, KindArray, KindTuple, KindMap, KindFunction, KindDecimal, KindAggregateFunction:
		return true
	}
	return false
}

// NullableType wraps a type so it can hold NULL.
type NullableType struct {
	Nested Type
}

func (t NullableType) Kind() TypeKind       { return KindNullable }
func (t NullableType) Name() string         { return "Nullable(" + t.Nested.Name() + ")" }
func (t NullableType) FamilyName() string   { return "Nullable" }
func (t NullableType) Default() interface{} { return nil }
func (t NullableType) String() string       { return t.Name() }

func (t NullableType) Equals(o Type) bool {
	n, ok := o.(NullableType)
	return ok && n.Nested.Equals(t.Nested)
}

// ArrayType is an array of elements of the same type.
type ArrayType struct {
	Elem Type
}

func (t ArrayType) Kind() TypeKind       { return KindArray }
func (t ArrayType) Name() string         { return "Array(" + t.Elem.Name() + ")" }
func (t ArrayType) FamilyName() string   { return "Array" }
func (t ArrayType) Default() interface{} { return []interface{}{} }
func (t ArrayType) String() string       { return t.Name() }

func (t ArrayType) Equals(o Type) bool {
	a, ok := o.(ArrayType)
	return ok && a.Elem.Equals(t.Elem)
}

// TupleType is a fixed list of element types, optionally named.
type TupleType struct {
	Elems []Type
	// Names are the element names. Empty when the tuple has no explicit names.
	Names []string
}

// NewTupleType returns a tuple type. Names may be nil.
func NewTupleType(elems []Type, names []string) TupleType {
	if len(names) != len(elems) {
		names = nil
	}
	return TupleType{Elems: elems, Names: names}
}

func (t TupleType) Kind() TypeKind     { return KindTuple }
func (t TupleType) FamilyName() string { return "Tuple" }
func (t TupleType) String() string     { return t.Name() }

func (t TupleType) Name() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		if t.HasExplicitNames() {
			parts[i] = t.Names[i] + " " + e.Name()
		} else {
			parts[i] = e.Name()
		}
	}
	return "Tuple(" + strings.Join(parts, ", ") + ")"
}

func (t TupleType) Default() interface{} {
	vals := make(Tuple, len(t.Elems))
	for i, e := range t.Elems {
		vals[i] = e.Default()
	}
	return vals
}

func (t TupleType) Equals(o Type) bool {
	ot, ok := o.(TupleType)
	if !ok || len(ot.Elems) != len(t.Elems) || ot.HasExplicitNames() != t.HasExplicitNames() {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equals(ot.Elems[i]) {
			return false
		}
		if t.HasExplicitNames() && t.Names[i] != ot.Names[i] {
			return false
		}
	}
	return true
}

// HasExplicitNames returns whether the tuple elements are named.
func (t TupleType) HasExplicitNames() bool {
	return len(t.Names) == len(t.Elems) && len(t.Names) > 0
}

// ElementNames returns the element names, using 1-based positions for
// unnamed tuples.
func (t TupleType) ElementNames() []string {
	if t.HasExplicitNames() {
		return t.Names
	}
	names := make([]string, len(t.Elems))
	for i := range t.Elems {
		names[i] = strconv.Itoa(i + 1)
	}
	return names
}

// ElementIndex returns the position of the named element, accepting 1-based
// positions as names.
func (t TupleType) ElementIndex(name string) (int, bool) {
	for i, n := range t.ElementNames() {
		if n == name {
			return i, true
		}
	}
	if pos, err := strconv.Atoi(name); err == nil && pos >= 1 && pos <= len(t.Elems) {
		return pos - 1, true
	}
	return 0, false
}

// MapType maps keys to values.
type MapType struct {
	Key   Type
	Value Type
}

func (t MapType) Kind() TypeKind       { return KindMap }
func (t MapType) Name() string         { return "Map(" + t.Key.Name() + ", " + t.Value.Name() + ")" }
func (t MapType) FamilyName() string   { return "Map" }
func (t MapType) Default() interface{} { return []interface{}{} }
func (t MapType) String() string       { return t.Name() }

func (t MapType) Equals(o Type) bool {
	m, ok := o.(MapType)
	return ok && m.Key.Equals(t.Key) && m.Value.Equals(t.Value)
}

// Nested returns the Array(Tuple(keys, values)) representation of the map.
func (t MapType) Nested() ArrayType {
	return ArrayType{Elem: NewTupleType([]Type{t.Key, t.Value}, []string{"keys", "values"})}
}

// FunctionType is the type of a lambda argument.
type FunctionType struct {
	Args   []Type
	Return Type
}

func (t FunctionType) Kind() TypeKind       { return KindFunction }
func (t FunctionType) FamilyName() string   { return "Function" }
func (t FunctionType) Default() interface{} { return nil }
func (t FunctionType) String() string       { return t.Name() }

func (t FunctionType) Name() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.Name()
	}
	ret := "?"
	if t.Return != nil {
		ret = t.Return.Name()
	}
	return "Function((" + strings.Join(args, ", ") + ") -> " + ret + ")"
}

func (t FunctionType) Equals(o Type) bool {
	f, ok := o.(FunctionType)
	if !ok || len(f.Args) != len(t.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equals(f.Args[i]) {
			return false
		}
	}
	if t.Return == nil || f.Return == nil {
		return t.Return == f.Return
	}
	return t.Return.Equals(f.Return)
}

// DecimalType is a fixed point number with the given precision and scale.
type DecimalType struct {
	Precision int
	Scale     int
}

func (t DecimalType) Kind() TypeKind       { return KindDecimal }
func (t DecimalType) FamilyName() string   { return "Decimal" }
func (t DecimalType) Default() interface{} { return decimal.Zero }
func (t DecimalType) String() string       { return t.Name() }

func (t DecimalType) Name() string {
	return fmt.Sprintf("Decimal(%d, %d)", t.Precision, t.Scale)
}

func (t DecimalType) Equals(o Type) bool {
	d, ok := o.(DecimalType)
	return ok && d.Precision == t.Precision && d.Scale == t.Scale
}

// AggregateFunctionType is the intermediate state type of an aggregate
// function, produced by the State combinator.
type AggregateFunctionType struct {
	Function string
	Args     []Type
}

func (t AggregateFunctionType) Kind() TypeKind       { return KindAggregateFunction }
func (t AggregateFunctionType) FamilyName() string   { return "AggregateFunction" }
func (t AggregateFunctionType) Default() interface{} { return nil }
func (t AggregateFunctionType) String() string       { return t.Name() }

func (t AggregateFunctionType) Name() string {
	parts := []string{t.Function}
	for _, a := range t.Args {
		parts = append(parts, a.Name())
	}
	return "AggregateFunction(" + strings.Join(parts, ", ") + ")"
}

func (t AggregateFunctionType) Equals(o Type) bool {
	a, ok := o.(AggregateFunctionType)
	if !ok || a.Function != t.Function || len(a.Args) != len(t.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equals(a.Args[i]) {
			return false
		}
	}
	return true
}

// MakeNullable wraps t in Nullable unless it already is nullable or cannot be
// inside Nullable.
func MakeNullable(t Type) Type {
	if t == nil || IsNullable(t) || !CanBeInsideNullable(t) {
		return t
	}
	return NullableType{Nested: t}
}

// RemoveNullable returns the nested type of a Nullable type, or t.
func RemoveNullable(t Type) Type {
	if n, ok := t.(NullableType); ok {
		return n.Nested
	}
	return t
}

// IsNullable returns whether the type is Nullable.
func IsNullable(t Type) bool {
	return t != nil && t.Kind() == KindNullable
}

// CanBeInsideNullable returns whether Nullable(t) is a valid type.
func CanBeInsideNullable(t Type) bool {
	switch t.Kind() {
	case KindNullable, KindArray, KindTuple, KindMap, KindFunction, KindSet, KindAggregateFunction:
		return false
	}
	return true
}

// IsInteger returns whether the type is a signed or unsigned integer.
func IsInteger(t Type) bool {
	switch t.Kind() {
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64, KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsUnsigned returns whether the type is an unsigned integer.
func IsUnsigned(t Type) bool {
	switch t.Kind() {
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64, KindBool:
		return true
	}
	return false
}

// IsFloat returns whether the type is a floating point number.
func IsFloat(t Type) bool {
	return t.Kind() == KindFloat32 || t.Kind() == KindFloat64
}

// IsNumber returns whether the type is an integer, float, decimal or bool.
func IsNumber(t Type) bool {
	return IsInteger(t) || IsFloat(t) || t.Kind() == KindDecimal || t.Kind() == KindBool
}

// IsDateOrDateTime returns whether the type is a Date or DateTime.
func IsDateOrDateTime(t Type) bool {
	return t.Kind() == KindDate || t.Kind() == KindDateTime
}

// IsArray returns whether the type is an Array.
func IsArray(t Type) bool { return t != nil && t.Kind() == KindArray }

// IsMap returns whether the type is a Map.
func IsMap(t Type) bool { return t != nil && t.Kind() == KindMap }

// IsTuple returns whether the type is a Tuple.
func IsTuple(t Type) bool { return t != nil && t.Kind() == KindTuple }

// IsNothing returns whether the type is Nothing or Nullable(Nothing).
func IsNothing(t Type) bool {
	return t != nil && RemoveNullable(t).Kind() == KindNothing
}

// IntegerBits returns the width of an integer type. Bool counts as 8 bits.
func IntegerBits(t Type) int {
	switch t.Kind() {
	case KindUInt8, KindInt8, KindBool:
		return 8
	case KindUInt16, KindInt16:
		return 16
	case KindUInt32, KindInt32:
		return 32
	case KindUInt64, KindInt64:
		return 64
	}
	return 0
}

// UnsignedOfBits returns the narrowest unsigned integer type of at least the
// given width.
func UnsignedOfBits(bits int) Type {
	switch {
	case bits <= 8:
		return UInt8
	case bits <= 16:
		return UInt16
	case bits <= 32:
		return UInt32
	default:
		return UInt64
	}
}

// SignedOfBits returns the narrowest signed integer type of at least the given
// width.
func SignedOfBits(bits int) Type {
	switch {
	case bits <= 8:
		return Int8
	case bits <= 16:
		return Int16
	case bits <= 32:
		return Int32
	default:
		return Int64
	}
}

// Subcolumn returns the type of the subcolumn at the given dotted path.
// Tuples expose their elements, Nullable exposes "null", Arrays expose
// "size0" and the subcolumns of their elements as arrays, Maps expose "keys"
// and "values".
func Subcolumn(t Type, path string) (Type, bool) {
	if path == "" {
		return t, true
	}
	switch tt := t.(type) {
	case TupleType:
		names := tt.ElementNames()
		for i, name := range names {
			if path == name {
				return tt.Elems[i], true
			}
			if strings.HasPrefix(path, name+".") {
				return Subcolumn(tt.Elems[i], path[len(name)+1:])
			}
		}
		return nil, false
	case NullableType:
		if path == "null" {
			return UInt8, true
		}
		sub, ok := Subcolumn(tt.Nested, path)
		if !ok {
			return nil, false
		}
		return MakeNullable(sub), true
	case ArrayType:
		if path == "size0" {
			return UInt64, true
		}
		sub, ok := Subcolumn(tt.Elem, path)
		if !ok {
			return nil, false
		}
		return ArrayType{Elem: sub}, true
	case MapType:
		switch path {
		case "keys":
			return ArrayType{Elem: tt.Key}, true
		case "values":
			return ArrayType{Elem: tt.Value}, true
		}
		return nil, false
	}
	return nil, false
}
