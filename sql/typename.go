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
	"strconv"
	"strings"
)

var simpleTypes = map[string]Type{
	"nothing":  Nothing,
	"uint8":    UInt8,
	"uint16":   UInt16,
	"uint32":   UInt32,
	"uint64":   UInt64,
	"int8":     Int8,
	"int16":    Int16,
	"int32":    Int32,
	"int64":    Int64,
	"float32":  Float32,
	"float64":  Float64,
	"bool":     Bool,
	"boolean":  Bool,
	"string":   String,
	"date":     Date,
	"datetime": DateTime,
	"uuid":     UUID,
	"set":      Set,

	// MySQL names, as they come out of CAST and CONVERT.
	"tinyint":  Int8,
	"smallint": Int16,
	"int":      Int32,
	"integer":  Int32,
	"bigint":   Int64,
	"signed":   Int64,
	"unsigned": UInt64,
	"float":    Float32,
	"double":   Float64,
	"real":     Float64,
	"char":     String,
	"varchar":  String,
	"text":     String,
	"binary":   String,
	"blob":     String,
	"json":     String,
}

// ParseType parses a type name such as Array(Nullable(UInt8)) or
// Tuple(a UInt8, b String).
func ParseType(name string) (Type, error) {
	p := &typeParser{input: name}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, ErrInvalidType.New(name)
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error.
func MustParseType(name string) Type {
	t, err := ParseType(name)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) word() string {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '(' || c == ')' || c == ',' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *typeParser) consume(c byte) bool {
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) args() ([]string, []Type, error) {
	var (
		names []string
		types []Type
	)
	if p.consume(')') {
		return nil, nil, nil
	}
	for {
		save := p.pos
		first := p.word()
		p.skipSpaces()
		// "name Type" element of a named tuple
		if p.pos < len(p.input) && p.input[p.pos] != ',' && p.input[p.pos] != ')' && p.input[p.pos] != '(' {
			t, err := p.parse()
			if err != nil {
				return nil, nil, err
			}
			names = append(names, first)
			types = append(types, t)
		} else {
			p.pos = save
			t, err := p.parse()
			if err != nil {
				return nil, nil, err
			}
			types = append(types, t)
		}
		if p.consume(')') {
			break
		}
		if !p.consume(',') {
			return nil, nil, ErrInvalidType.New(p.input)
		}
	}
	if len(names) != len(types) {
		names = nil
	}
	return names, types, nil
}

func (p *typeParser) skipArgs() error {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		p.pos++
		if c == ')' {
			return nil
		}
	}
	return ErrInvalidType.New(p.input)
}

func (p *typeParser) intArgs() ([]int, error) {
	var out []int
	for {
		w := p.word()
		n, err := strconv.Atoi(w)
		if err != nil {
			return nil, ErrInvalidType.New(p.input)
		}
		out = append(out, n)
		if p.consume(')') {
			return out, nil
		}
		if !p.consume(',') {
			return nil, ErrInvalidType.New(p.input)
		}
	}
}

func (p *typeParser) parse() (Type, error) {
	family := p.word()
	if family == "" {
		return nil, ErrInvalidType.New(p.input)
	}
	lower := strings.ToLower(family)
	if !p.consume('(') {
		if t, ok := simpleTypes[lower]; ok {
			return t, nil
		}
		switch lower {
		case "decimal", "numeric":
			return DecimalType{Precision: 10, Scale: 0}, nil
		case "datetime64":
			return DateTime, nil
		}
		return nil, ErrInvalidType.New(p.input)
	}

	switch lower {
	case "decimal", "numeric":
		ints, err := p.intArgs()
		if err != nil {
			return nil, err
		}
		d := DecimalType{Precision: ints[0]}
		if len(ints) > 1 {
			d.Scale = ints[1]
		}
		return d, nil
	case "decimal32", "decimal64", "decimal128", "decimal256":
		ints, err := p.intArgs()
		if err != nil {
			return nil, err
		}
		precision := map[string]int{"decimal32": 9, "decimal64": 18, "decimal128": 38, "decimal256": 76}[lower]
		return DecimalType{Precision: precision, Scale: ints[0]}, nil
	case "datetime64", "datetime", "varchar", "char", "fixedstring":
		// precision, timezone or length arguments are accepted and ignored
		if err := p.skipArgs(); err != nil {
			return nil, err
		}
		if lower == "datetime64" || lower == "datetime" {
			return DateTime, nil
		}
		return String, nil
	}

	names, args, err := p.args()
	if err != nil {
		return nil, err
	}
	switch lower {
	case "nullable":
		if len(args) != 1 {
			return nil, ErrInvalidType.New(p.input)
		}
		return NullableType{Nested: args[0]}, nil
	case "lowcardinality":
		if len(args) != 1 {
			return nil, ErrInvalidType.New(p.input)
		}
		return args[0], nil
	case "array":
		if len(args) != 1 {
			return nil, ErrInvalidType.New(p.input)
		}
		return ArrayType{Elem: args[0]}, nil
	case "tuple":
		return NewTupleType(args, names), nil
	case "map":
		if len(args) != 2 {
			return nil, ErrInvalidType.New(p.input)
		}
		return MapType{Key: args[0], Value: args[1]}, nil
	}
	return nil, ErrInvalidType.New(p.input)
}
