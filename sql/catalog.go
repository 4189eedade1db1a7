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

import "fmt"

// ColumnKind tells how a table column gets its values.
type ColumnKind int

const (
	// OrdinaryColumn is a stored column returned by SELECT *.
	OrdinaryColumn ColumnKind = iota
	// MaterializedColumn is computed on insert and stored.
	MaterializedColumn
	// AliasColumn is computed from its expression on read.
	AliasColumn
	// EphemeralColumn only exists during insert.
	EphemeralColumn
)

func (k ColumnKind) String() string {
	switch k {
	case OrdinaryColumn:
		return "ORDINARY"
	case MaterializedColumn:
		return "MATERIALIZED"
	case AliasColumn:
		return "ALIAS"
	case EphemeralColumn:
		return "EPHEMERAL"
	}
	return fmt.Sprintf("ColumnKind(%d)", int(k))
}

// Column is a table column.
type Column struct {
	Name string
	Type Type
	Kind ColumnKind
	// Expression is the defining SQL expression of ALIAS and MATERIALIZED
	// columns.
	Expression string
}

// Table is a table of a database.
type Table interface {
	// Name returns the table name.
	Name() string
	// Database returns the name of the database the table belongs to.
	Database() string
	// Columns returns all the table columns, in definition order.
	Columns() []*Column
}

// RowSource is a Table that can return its rows.
type RowSource interface {
	Table
	Rows(ctx *Context) ([]Row, error)
}

// Database is a collection of tables.
type Database interface {
	Name() string
	// Table returns the table with the given name. The boolean is false if no
	// such table exists.
	Table(ctx *Context, name string) (Table, bool, error)
	// TableNames returns the names of all the tables.
	TableNames() []string
}

// TableFunction builds a table from constant arguments, e.g. numbers(10).
type TableFunction interface {
	Name() string
	Execute(ctx *Context, args []interface{}) (Table, error)
}

// Catalog gives access to databases and table functions.
type Catalog interface {
	// Database returns the database with the given name.
	Database(ctx *Context, name string) (Database, error)
	// DatabaseNames returns the names of all the databases.
	DatabaseNames() []string
	// TableFunction returns the table function with the given name.
	TableFunction(name string) (TableFunction, bool)
	// TableFunctionNames returns the names of all table functions.
	TableFunctionNames() []string
}

// FindTable looks up a table in the catalog. An empty database name means
// the current database of the context.
func FindTable(ctx *Context, c Catalog, database, table string) (Table, bool, error) {
	if database == "" {
		database = ctx.GetCurrentDatabase()
	}
	db, err := c.Database(ctx, database)
	if err != nil {
		if ErrDatabaseNotFound.Is(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return db.Table(ctx, table)
}

// Row is a row of values.
type Row []interface{}

// BlockColumn describes one column of a Block.
type BlockColumn struct {
	Name string
	Type Type
}

// Block is the result of executing a query.
type Block struct {
	Columns []BlockColumn
	Rows    []Row
}

// NumRows returns the number of rows in the block.
func (b *Block) NumRows() int { return len(b.Rows) }
