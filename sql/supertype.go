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
	"strings"
)

func typeNames(types []Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}

func noSupertype(types []Type, reason string) error {
	if reason != "" {
		return NewErr(ErrNoCommonType, "There is no supertype for types %s because %s", typeNames(types), reason)
	}
	return NewErr(ErrNoCommonType, "There is no supertype for types %s", typeNames(types))
}

// LeastSupertype returns the narrowest type all the given types can be
// converted to without loss. Nothing is ignored, Nullable is propagated.
func LeastSupertype(types []Type) (Type, error) {
	if len(types) == 0 {
		return Nothing, nil
	}

	allEqual := true
	for _, t := range types[1:] {
		if !t.Equals(types[0]) {
			allEqual = false
			break
		}
	}
	if allEqual {
		return types[0], nil
	}

	var nonNothing []Type
	for _, t := range types {
		if t.Kind() != KindNothing {
			nonNothing = append(nonNothing, t)
		}
	}
	if len(nonNothing) == 0 {
		return Nothing, nil
	}
	if len(nonNothing) == 1 {
		return nonNothing[0], nil
	}

	hasNullable := false
	nested := make([]Type, 0, len(nonNothing))
	for _, t := range nonNothing {
		if n, ok := t.(NullableType); ok {
			hasNullable = true
			if n.Nested.Kind() != KindNothing {
				nested = append(nested, n.Nested)
			}
			continue
		}
		nested = append(nested, t)
	}
	if hasNullable {
		if len(nested) == 0 {
			return NullableType{Nested: Nothing}, nil
		}
		st, err := LeastSupertype(nested)
		if err != nil {
			return nil, noSupertype(types, "")
		}
		return MakeNullable(st), nil
	}

	return leastSupertypeNotNullable(nonNothing)
}

func leastSupertypeNotNullable(types []Type) (Type, error) {
	counts := make(map[TypeKind]int)
	for _, t := range types {
		counts[t.Kind()]++
	}
	all := func(kinds ...TypeKind) bool {
		n := 0
		for _, k := range kinds {
			n += counts[k]
		}
		return n == len(types)
	}
	some := func(kinds ...TypeKind) bool {
		for _, k := range kinds {
			if counts[k] > 0 {
				return true
			}
		}
		return false
	}

	if some(KindArray) {
		if !all(KindArray) {
			return nil, noSupertype(types, "some of them are Array and some of them are not")
		}
		elems := make([]Type, len(types))
		for i, t := range types {
			elems[i] = t.(ArrayType).Elem
		}
		st, err := LeastSupertype(elems)
		if err != nil {
			return nil, err
		}
		return ArrayType{Elem: st}, nil
	}

	if some(KindTuple) {
		if !all(KindTuple) {
			return nil, noSupertype(types, "some of them are Tuple and some of them are not")
		}
		size := len(types[0].(TupleType).Elems)
		for _, t := range types {
			if len(t.(TupleType).Elems) != size {
				return nil, noSupertype(types, "Tuples have different sizes")
			}
		}
		elems := make([]Type, size)
		for i := 0; i < size; i++ {
			col := make([]Type, len(types))
			for j, t := range types {
				col[j] = t.(TupleType).Elems[i]
			}
			st, err := LeastSupertype(col)
			if err != nil {
				return nil, err
			}
			elems[i] = st
		}
		return NewTupleType(elems, types[0].(TupleType).Names), nil
	}

	if some(KindMap) {
		if !all(KindMap) {
			return nil, noSupertype(types, "some of them are Maps and some of them are not")
		}
		keys := make([]Type, len(types))
		values := make([]Type, len(types))
		for i, t := range types {
			keys[i] = t.(MapType).Key
			values[i] = t.(MapType).Value
		}
		k, err := LeastSupertype(keys)
		if err != nil {
			return nil, err
		}
		v, err := LeastSupertype(values)
		if err != nil {
			return nil, err
		}
		return MapType{Key: k, Value: v}, nil
	}

	if some(KindString) {
		if !all(KindString) {
			return nil, noSupertype(types, "some of them are String and some of them are not")
		}
		return String, nil
	}

	if some(KindDate, KindDateTime) {
		if !all(KindDate, KindDateTime) {
			return nil, noSupertype(types, "some of them are Date/DateTime and some of them are not")
		}
		if some(KindDateTime) {
			return DateTime, nil
		}
		return Date, nil
	}

	if some(KindUUID, KindFunction, KindSet, KindAggregateFunction) {
		return nil, noSupertype(types, "")
	}

	if some(KindDecimal) {
		if some(KindFloat32, KindFloat64) {
			return nil, noSupertype(types, "some of them are Decimal and some of them are floating point numbers")
		}
		maxScale, maxIntDigits := 0, 0
		for _, t := range types {
			var scale, intDigits int
			if d, ok := t.(DecimalType); ok {
				scale, intDigits = d.Scale, d.Precision-d.Scale
			} else {
				intDigits = integerDigits(t)
			}
			if scale > maxScale {
				maxScale = scale
			}
			if intDigits > maxIntDigits {
				maxIntDigits = intDigits
			}
		}
		precision := decimalPrecisionFor(maxIntDigits + maxScale)
		return DecimalType{Precision: precision, Scale: maxScale}, nil
	}

	maxFloat, maxSigned, maxUnsigned := 0, 0, 0
	for _, t := range types {
		switch {
		case t.Kind() == KindFloat32:
			maxFloat = maxInt(maxFloat, 32)
		case t.Kind() == KindFloat64:
			maxFloat = 64
		case IsUnsigned(t):
			maxUnsigned = maxInt(maxUnsigned, IntegerBits(t))
		case IsInteger(t):
			maxSigned = maxInt(maxSigned, IntegerBits(t))
		default:
			return nil, noSupertype(types, "")
		}
	}

	if maxFloat > 0 {
		widest := maxInt(maxSigned, maxUnsigned)
		switch {
		case maxFloat <= 32 && widest <= 16:
			return Float32, nil
		case widest <= 32:
			return Float64, nil
		}
		return nil, noSupertype(types, "some of them are integers and some are floating point, but there is no floating point type that can exactly represent all required integers")
	}

	if maxSigned > 0 {
		bits := maxSigned
		if maxUnsigned > 0 && maxUnsigned*2 > bits {
			bits = maxUnsigned * 2
		}
		if bits > 64 {
			return nil, noSupertype(types, "some of them are signed integers and some are unsigned integers, but there is no signed integer type that can exactly represent all required unsigned integer values")
		}
		return SignedOfBits(bits), nil
	}

	if counts[KindBool] == len(types) {
		return Bool, nil
	}
	return UnsignedOfBits(maxUnsigned), nil
}

func integerDigits(t Type) int {
	switch IntegerBits(t) {
	case 8:
		return 3
	case 16:
		return 5
	case 32:
		return 10
	case 64:
		return 20
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
