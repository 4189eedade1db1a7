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
	"math"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

type arithmeticOp int

const (
	opPlus arithmeticOp = iota
	opMinus
	opMultiply
	opDivide
	opModulo
	opIntDiv
)

var arithmeticNames = map[arithmeticOp]string{
	opPlus:     "plus",
	opMinus:    "minus",
	opMultiply: "multiply",
	opDivide:   "divide",
	opModulo:   "modulo",
	opIntDiv:   "intDiv",
}

func newArithmetic(op arithmeticOp) sql.Function {
	name := arithmeticNames[op]
	return &builtin{
		name:           name,
		minArgs:        2,
		maxArgs:        2,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			return arithmeticResultType(name, op, args[0].Type, args[1].Type)
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			return evalArithmetic(name, op, args[0], args[1])
		},
	}
}

func nextIntegerBits(bits int) int {
	if bits >= 64 {
		return 64
	}
	return bits * 2
}

func arithmeticResultType(name string, op arithmeticOp, left, right sql.Type) (sql.Type, error) {
	for i, t := range []sql.Type{left, right} {
		if !sql.IsNumber(t) {
			return nil, illegalType(name, t, i)
		}
	}

	ld, lIsDecimal := left.(sql.DecimalType)
	rd, rIsDecimal := right.(sql.DecimalType)
	switch {
	case lIsDecimal || rIsDecimal:
		if sql.IsFloat(left) || sql.IsFloat(right) {
			return sql.Float64, nil
		}
		precision, scale := 0, 0
		for _, d := range []sql.DecimalType{ld, rd} {
			if d.Precision > precision {
				precision = d.Precision
			}
			if d.Scale > scale {
				scale = d.Scale
			}
		}
		if precision == 0 {
			precision = 18
		}
		switch op {
		case opMultiply:
			scale = ld.Scale + rd.Scale
		case opDivide, opIntDiv, opModulo:
			scale = ld.Scale
		}
		if precision < 38 && op == opMultiply {
			precision = 38
		}
		return sql.DecimalType{Precision: precision, Scale: scale}, nil
	case sql.IsFloat(left) || sql.IsFloat(right) || op == opDivide:
		return sql.Float64, nil
	}

	bits := sql.IntegerBits(left)
	if b := sql.IntegerBits(right); b > bits {
		bits = b
	}
	signed := !sql.IsUnsigned(left) || !sql.IsUnsigned(right)
	switch op {
	case opPlus, opMultiply:
		bits = nextIntegerBits(bits)
	case opMinus:
		bits = nextIntegerBits(bits)
		signed = true
	case opModulo, opIntDiv:
		signed = !sql.IsUnsigned(left)
		bits = sql.IntegerBits(left)
	}
	if signed {
		return sql.SignedOfBits(bits), nil
	}
	return sql.UnsignedOfBits(bits), nil
}

func evalArithmetic(name string, op arithmeticOp, a, b interface{}) (interface{}, error) {
	if _, ok := a.(decimal.Decimal); ok {
		return evalDecimal(name, op, a, b)
	}
	if _, ok := b.(decimal.Decimal); ok {
		return evalDecimal(name, op, a, b)
	}

	_, aFloat := a.(float64)
	_, bFloat := b.(float64)
	if aFloat || bFloat || op == opDivide {
		x, err := toFloat(a)
		if err != nil {
			return nil, sql.ErrFunctionEval.New(name, err.Error())
		}
		y, err := toFloat(b)
		if err != nil {
			return nil, sql.ErrFunctionEval.New(name, err.Error())
		}
		switch op {
		case opPlus:
			return x + y, nil
		case opMinus:
			return x - y, nil
		case opMultiply:
			return x * y, nil
		case opDivide:
			return x / y, nil
		case opModulo:
			return math.Mod(x, y), nil
		case opIntDiv:
			if y == 0 {
				return nil, sql.ErrFunctionEval.New(name, "Division by zero")
			}
			return int64(x / y), nil
		}
	}

	ua, aUnsigned := toUnsigned(a)
	ub, bUnsigned := toUnsigned(b)
	if aUnsigned && bUnsigned && op != opMinus {
		switch op {
		case opPlus:
			return ua + ub, nil
		case opMultiply:
			return ua * ub, nil
		case opModulo, opIntDiv:
			if ub == 0 {
				return nil, sql.ErrFunctionEval.New(name, "Division by zero")
			}
			if op == opModulo {
				return ua % ub, nil
			}
			return ua / ub, nil
		}
	}

	x, err := toSigned(a)
	if err != nil {
		return nil, sql.ErrFunctionEval.New(name, err.Error())
	}
	y, err := toSigned(b)
	if err != nil {
		return nil, sql.ErrFunctionEval.New(name, err.Error())
	}
	switch op {
	case opPlus:
		return x + y, nil
	case opMinus:
		return x - y, nil
	case opMultiply:
		return x * y, nil
	case opModulo, opIntDiv:
		if y == 0 {
			return nil, sql.ErrFunctionEval.New(name, "Division by zero")
		}
		if op == opModulo {
			return x % y, nil
		}
		return x / y, nil
	}
	return nil, sql.ErrFunctionEval.New(name, "unsupported operation")
}

func evalDecimal(name string, op arithmeticOp, a, b interface{}) (interface{}, error) {
	x, err := sql.ToDecimal(a)
	if err != nil {
		return nil, sql.ErrFunctionEval.New(name, err.Error())
	}
	y, err := sql.ToDecimal(b)
	if err != nil {
		return nil, sql.ErrFunctionEval.New(name, err.Error())
	}
	switch op {
	case opPlus:
		return x.Add(y), nil
	case opMinus:
		return x.Sub(y), nil
	case opMultiply:
		return x.Mul(y), nil
	}
	if y.IsZero() {
		return nil, sql.ErrFunctionEval.New(name, "Division by zero")
	}
	switch op {
	case opDivide:
		return x.DivRound(y, -x.Exponent()), nil
	case opIntDiv:
		return x.Div(y).Truncate(0), nil
	}
	return x.Mod(y), nil
}

func toUnsigned(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case uint64:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, nil
	}
	return cast.ToFloat64E(v)
}

func toSigned(v interface{}) (int64, error) {
	switch v := v.(type) {
	case uint64:
		return int64(v), nil
	case int64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return cast.ToInt64E(v)
}

func newNegate() sql.Function {
	return &builtin{
		name:           "negate",
		minArgs:        1,
		maxArgs:        1,
		propagateNulls: true,
		returnType: func(args []sql.ArgumentColumn) (sql.Type, error) {
			t := args[0].Type
			switch {
			case !sql.IsNumber(t):
				return nil, illegalType("negate", t, 0)
			case sql.IsUnsigned(t):
				return sql.SignedOfBits(nextIntegerBits(sql.IntegerBits(t))), nil
			}
			return t, nil
		},
		eval: func(_ *sql.Context, args []interface{}) (interface{}, error) {
			switch v := args[0].(type) {
			case float64:
				return -v, nil
			case decimal.Decimal:
				return v.Neg(), nil
			}
			i, err := toSigned(args[0])
			if err != nil {
				return nil, sql.ErrFunctionEval.New("negate", err.Error())
			}
			return -i, nil
		},
	}
}
