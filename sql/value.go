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
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Tuple is the value of a Tuple typed expression.
type Tuple []interface{}

// SetValue is the value of a Set typed constant, built for the right side of
// IN functions.
type SetValue struct {
	ElementType Type
	Elements    []interface{}
}

// Contains returns whether v is one of the set elements.
func (s *SetValue) Contains(v interface{}) bool {
	for _, e := range s.Elements {
		if CompareValues(e, v) == 0 {
			return true
		}
	}
	return false
}

// FormatValue returns the SQL literal text of a value, the way it is shown in
// projection names.
func FormatValue(v interface{}) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v interface{}) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("NULL")
	case string:
		sb.WriteByte('\'')
		sb.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v))
		sb.WriteByte('\'')
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case uint64:
		sb.WriteString(strconv.FormatUint(v, 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case float64:
		sb.WriteString(formatFloat(v))
	case decimal.Decimal:
		sb.WriteString(v.String())
	case time.Time:
		sb.WriteByte('\'')
		sb.WriteString(v.Format("2006-01-02 15:04:05"))
		sb.WriteByte('\'')
	case []interface{}:
		sb.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e)
		}
		sb.WriteByte(']')
	case Tuple:
		sb.WriteByte('(')
		for i, e := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e)
		}
		sb.WriteByte(')')
	case *SetValue:
		sb.WriteString("Set(")
		for i, e := range v.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, e)
		}
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FieldType returns the narrowest type able to hold a literal value.
func FieldType(v interface{}) Type {
	switch v := v.(type) {
	case nil:
		return NullableType{Nested: Nothing}
	case bool:
		return Bool
	case uint64:
		switch {
		case v <= math.MaxUint8:
			return UInt8
		case v <= math.MaxUint16:
			return UInt16
		case v <= math.MaxUint32:
			return UInt32
		}
		return UInt64
	case int64:
		if v >= 0 {
			return FieldType(uint64(v))
		}
		switch {
		case v >= math.MinInt8:
			return Int8
		case v >= math.MinInt16:
			return Int16
		case v >= math.MinInt32:
			return Int32
		}
		return Int64
	case float64:
		return Float64
	case string:
		return String
	case decimal.Decimal:
		digits := len(strings.TrimLeft(v.Coefficient().String(), "-"))
		scale := int(-v.Exponent())
		if scale < 0 {
			digits -= scale
			scale = 0
		}
		if digits < scale {
			digits = scale
		}
		return DecimalType{Precision: decimalPrecisionFor(digits), Scale: scale}
	case time.Time:
		return DateTime
	case []interface{}:
		elems := make([]Type, len(v))
		for i, e := range v {
			elems[i] = FieldType(e)
		}
		if len(elems) == 0 {
			return ArrayType{Elem: Nothing}
		}
		st, err := LeastSupertype(elems)
		if err != nil {
			return ArrayType{Elem: Nothing}
		}
		return ArrayType{Elem: st}
	case Tuple:
		elems := make([]Type, len(v))
		for i, e := range v {
			elems[i] = FieldType(e)
		}
		return NewTupleType(elems, nil)
	case *SetValue:
		return Set
	}
	return String
}

func decimalPrecisionFor(digits int) int {
	switch {
	case digits <= 9:
		return 9
	case digits <= 18:
		return 18
	case digits <= 38:
		return 38
	}
	return 76
}

// CompareValues compares two values of compatible types. NULL sorts first.
func CompareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	a, b = boolToUint(a), boolToUint(b)
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		if !ok {
			bs = FormatValue(b)
		}
		return strings.Compare(av, bs)
	case Tuple:
		bt, ok := b.(Tuple)
		if !ok {
			return compareText(a, b)
		}
		return compareLists(av, bt)
	case []interface{}:
		bl, ok := b.([]interface{})
		if !ok {
			return compareText(a, b)
		}
		return compareLists(av, bl)
	case time.Time:
		if bt, ok := b.(time.Time); ok {
			switch {
			case av.Before(bt):
				return -1
			case av.After(bt):
				return 1
			}
			return 0
		}
	case decimal.Decimal:
		bd, err := ToDecimal(b)
		if err == nil {
			return av.Cmp(bd)
		}
	}
	if _, ok := b.(decimal.Decimal); ok {
		return -CompareValues(b, a)
	}
	if isNumeric(a) && isNumeric(b) {
		ai, aIsInt := a.(int64)
		bu, bIsUint := b.(uint64)
		if aIsInt && bIsUint {
			if ai < 0 {
				return -1
			}
			return compareUint(uint64(ai), bu)
		}
		au, aIsUint := a.(uint64)
		bi, bIsInt := b.(int64)
		if aIsUint && bIsInt {
			if bi < 0 {
				return 1
			}
			return compareUint(au, uint64(bi))
		}
		if aIsUint && bIsUint {
			return compareUint(au, bu)
		}
		af, bf := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return compareText(a, b)
}

func boolToUint(v interface{}) interface{} {
	if b, ok := v.(bool); ok {
		if b {
			return uint64(1)
		}
		return uint64(0)
	}
	return v
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareText(a, b interface{}) int {
	return strings.Compare(FormatValue(a), FormatValue(b))
}

func compareLists(a, b []interface{}) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareUint(uint64(len(a)), uint64(len(b)))
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case uint64, int64, float64:
		return true
	}
	return false
}

// ToDecimal converts a number or numeric string to a decimal.
func ToDecimal(v interface{}) (decimal.Decimal, error) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case int64:
		return decimal.New(v, 0), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case bool:
		if v {
			return decimal.New(1, 0), nil
		}
		return decimal.Zero, nil
	case string:
		return decimal.NewFromString(v)
	}
	return decimal.Zero, fmt.Errorf("cannot convert %v to decimal", v)
}

// ConvertValue converts a value to the given type, the way _CAST does for
// constants.
func ConvertValue(v interface{}, t Type) (interface{}, error) {
	if v == nil {
		if IsNullable(t) || t.Kind() == KindNothing {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot convert NULL to non-Nullable type %s", t.Name())
	}
	t = RemoveNullable(t)
	switch t.Kind() {
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		if f, ok := v.(float64); ok && f < 0 {
			return nil, fmt.Errorf("cannot convert %v to %s", v, t.Name())
		}
		if i, ok := v.(int64); ok && i < 0 {
			return uint64(i), nil
		}
		if d, ok := v.(decimal.Decimal); ok {
			return uint64(d.IntPart()), nil
		}
		u, err := cast.ToUint64E(v)
		if err != nil {
			return nil, err
		}
		bits := IntegerBits(t)
		if bits < 64 {
			u &= (uint64(1) << uint(bits)) - 1
		}
		return u, nil
	case KindInt8, KindInt16, KindInt32, KindInt64:
		if u, ok := v.(uint64); ok {
			return int64(u), nil
		}
		if d, ok := v.(decimal.Decimal); ok {
			return d.IntPart(), nil
		}
		return cast.ToInt64E(v)
	case KindFloat32, KindFloat64:
		if d, ok := v.(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f, nil
		}
		return cast.ToFloat64E(v)
	case KindBool:
		switch n := v.(type) {
		case uint64:
			return n != 0, nil
		case int64:
			return n != 0, nil
		case float64:
			return n != 0, nil
		}
		return cast.ToBoolE(v)
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return strings.Trim(FormatValue(v), "'"), nil
	case KindDecimal:
		d, err := ToDecimal(v)
		if err != nil {
			return nil, err
		}
		return d.Round(int32(t.(DecimalType).Scale)), nil
	case KindDate, KindDateTime:
		return cast.ToTimeE(v)
	case KindUUID:
		return cast.ToStringE(v)
	case KindArray:
		list, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot convert %v to %s", FormatValue(v), t.Name())
		}
		elem := t.(ArrayType).Elem
		out := make([]interface{}, len(list))
		for i, e := range list {
			c, err := ConvertValue(e, elem)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case KindTuple:
		tup, ok := v.(Tuple)
		tt := t.(TupleType)
		if !ok || len(tup) != len(tt.Elems) {
			return nil, fmt.Errorf("cannot convert %v to %s", FormatValue(v), t.Name())
		}
		out := make(Tuple, len(tup))
		for i, e := range tup {
			c, err := ConvertValue(e, tt.Elems[i])
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return v, nil
}

// ValueSize estimates the in-memory size of a value in bytes.
func ValueSize(v interface{}) int {
	switch v := v.(type) {
	case nil, bool:
		return 1
	case string:
		return len(v) + 8
	case []interface{}:
		size := 8
		for _, e := range v {
			size += ValueSize(e)
		}
		return size
	case Tuple:
		size := 0
		for _, e := range v {
			size += ValueSize(e)
		}
		return size
	case *SetValue:
		size := 8
		for _, e := range v.Elements {
			size += ValueSize(e)
		}
		return size
	}
	return 8
}
