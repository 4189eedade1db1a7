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

package memory

import (
	"github.com/spf13/cast"

	"github.com/dolthub/go-query-analyzer/sql"
)

// maxGeneratedRows bounds the tables built by numbers and zeros.
const maxGeneratedRows = 1 << 20

var _ sql.TableFunction = NumbersTableFunction{}
var _ sql.TableFunction = ZerosTableFunction{}

// NumbersTableFunction is numbers(N) or numbers(offset, N): a table with a
// single UInt64 column number holding offset .. offset+N-1.
type NumbersTableFunction struct{}

// Name implements the sql.TableFunction interface.
func (NumbersTableFunction) Name() string { return "numbers" }

// Execute implements the sql.TableFunction interface.
func (f NumbersTableFunction) Execute(_ *sql.Context, args []interface{}) (sql.Table, error) {
	var offset, count uint64
	var err error
	switch len(args) {
	case 1:
		count, err = generatedRows(f.Name(), args[0])
	case 2:
		if offset, err = cast.ToUint64E(args[0]); err != nil {
			return nil, sql.NewErr(sql.ErrIllegalArgument,
				"Illegal offset %v of table function numbers", args[0])
		}
		count, err = generatedRows(f.Name(), args[1])
	default:
		return nil, sql.NewErr(sql.ErrBadArguments,
			"Table function 'numbers' requires 1 or 2 arguments: [offset, ] length")
	}
	if err != nil {
		return nil, err
	}

	t := NewTable("numbers", &sql.Column{Name: "number", Type: sql.UInt64})
	t.database = "system"
	t.rows = make([]sql.Row, count)
	for i := uint64(0); i < count; i++ {
		t.rows[i] = sql.Row{offset + i}
	}
	return t, nil
}

// ZerosTableFunction is zeros(N): a table with a single UInt8 column zero
// and N rows.
type ZerosTableFunction struct{}

// Name implements the sql.TableFunction interface.
func (ZerosTableFunction) Name() string { return "zeros" }

// Execute implements the sql.TableFunction interface.
func (f ZerosTableFunction) Execute(_ *sql.Context, args []interface{}) (sql.Table, error) {
	if len(args) != 1 {
		return nil, sql.NewErr(sql.ErrBadArguments,
			"Table function 'zeros' requires exactly 1 argument: length")
	}
	count, err := generatedRows(f.Name(), args[0])
	if err != nil {
		return nil, err
	}

	t := NewTable("zeros", &sql.Column{Name: "zero", Type: sql.UInt8})
	t.database = "system"
	t.rows = make([]sql.Row, count)
	for i := range t.rows {
		t.rows[i] = sql.Row{uint64(0)}
	}
	return t, nil
}

func generatedRows(name string, v interface{}) (uint64, error) {
	if _, isString := v.(string); isString || v == nil {
		return 0, sql.NewErr(sql.ErrIllegalArgument,
			"Illegal type of argument of table function %s: expected an unsigned integer", name)
	}
	n, err := cast.ToUint64E(v)
	if err != nil {
		return 0, sql.NewErr(sql.ErrIllegalArgument,
			"Illegal type of argument of table function %s: expected an unsigned integer", name)
	}
	if n > maxGeneratedRows {
		return 0, sql.NewErr(sql.ErrIllegalArgument,
			"Table function %s cannot generate more than %d rows", name, maxGeneratedRows)
	}
	return n, nil
}
