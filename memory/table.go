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
	"sync"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/dolthub/go-query-analyzer/sql"
)

var (
	// ErrTableAlreadyExists is returned when creating a table whose name is
	// taken.
	ErrTableAlreadyExists = errors.NewKind("table with name %s already exists")

	// ErrInsertLength is returned when an inserted row does not have one value
	// per stored column.
	ErrInsertLength = errors.NewKind("table %s expects %d values, got %d")

	// ErrInsertValue is returned when a value cannot be stored in its column.
	ErrInsertValue = errors.NewKind("cannot insert value %v in column %s of table %s: %s")
)

// Table represents an in-memory table.
type Table struct {
	name     string
	database string
	columns  []*sql.Column

	mu   sync.RWMutex
	rows []sql.Row
}

var _ sql.RowSource = (*Table)(nil)

// NewTable creates a new table with the given name and columns.
func NewTable(name string, columns ...*sql.Column) *Table {
	return &Table{
		name:    name,
		columns: columns,
	}
}

// Name implements the sql.Table interface.
func (t *Table) Name() string {
	return t.name
}

// Database implements the sql.Table interface.
func (t *Table) Database() string {
	return t.database
}

// Columns implements the sql.Table interface.
func (t *Table) Columns() []*sql.Column {
	return t.columns
}

// StoredColumns returns the columns that hold values in the rows of the
// table: ordinary and materialized ones.
func (t *Table) StoredColumns() []*sql.Column {
	return storedColumns(t.columns)
}

func storedColumns(columns []*sql.Column) []*sql.Column {
	var stored []*sql.Column
	for _, c := range columns {
		if c.Kind == sql.OrdinaryColumn || c.Kind == sql.MaterializedColumn {
			stored = append(stored, c)
		}
	}
	return stored
}

// Insert appends a row to the table. It takes one value per stored column,
// converted to the column type.
func (t *Table) Insert(_ *sql.Context, values ...interface{}) error {
	stored := t.StoredColumns()
	if len(values) != len(stored) {
		return ErrInsertLength.New(t.name, len(stored), len(values))
	}

	row := make(sql.Row, len(values))
	for i, v := range values {
		c, err := sql.ConvertValue(v, stored[i].Type)
		if err != nil {
			return ErrInsertValue.New(v, stored[i].Name, t.name, err.Error())
		}
		row[i] = c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
	return nil
}

// Rows implements the sql.RowSource interface. Rows hold the values of the
// stored columns.
func (t *Table) Rows(_ *sql.Context) ([]sql.Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := make([]sql.Row, len(t.rows))
	copy(rows, t.rows)
	return rows, nil
}
