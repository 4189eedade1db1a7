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
	"sort"
	"sync"

	"github.com/dolthub/go-query-analyzer/sql"
)

// Database is an in-memory database.
type Database struct {
	name   string
	mu     sync.RWMutex
	tables map[string]*Table
}

var _ sql.Database = (*Database)(nil)

// NewDatabase creates a new database with the given name.
func NewDatabase(name string) *Database {
	return &Database{
		name:   name,
		tables: map[string]*Table{},
	}
}

// Name returns the database name.
func (d *Database) Name() string {
	return d.name
}

// Table implements the sql.Database interface. Table names are case
// sensitive.
func (d *Database) Table(_ *sql.Context, name string) (sql.Table, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.tables[name]
	if !ok {
		return nil, false, nil
	}
	return t, true, nil
}

// TableNames implements the sql.Database interface.
func (d *Database) TableNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.tables))
	for k := range d.tables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AddTable adds a new table to the database. The table belongs to this
// database from now on.
func (d *Database) AddTable(t *Table) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t.database = d.name
	d.tables[t.name] = t
}

// CreateTable creates an empty table with the given name and columns.
func (d *Database) CreateTable(name string, columns ...*sql.Column) (*Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tables[name]; ok {
		return nil, ErrTableAlreadyExists.New(name)
	}
	t := NewTable(name, columns...)
	t.database = d.name
	d.tables[name] = t
	return t, nil
}

// DropTable drops the table with the given name.
func (d *Database) DropTable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tables[name]; !ok {
		return sql.ErrTableNotFound.New(name)
	}
	delete(d.tables, name)
	return nil
}
