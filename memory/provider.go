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
	"strings"
	"sync"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/dolthub/go-query-analyzer/internal/similartext"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

// ErrFunctionAlreadyExists is returned when creating a user defined function
// whose name is taken.
var ErrFunctionAlreadyExists = errors.NewKind("user defined function %s already exists")

// Catalog is a collection of in-memory databases, table functions and SQL
// user defined functions.
type Catalog struct {
	mu             sync.RWMutex
	dbs            map[string]sql.Database
	tableFunctions map[string]sql.TableFunction
	functions      map[string]*querytree.LambdaNode
}

var _ sql.Catalog = (*Catalog)(nil)

// NewCatalog returns a catalog with the given databases and the numbers and
// zeros table functions.
func NewCatalog(dbs ...sql.Database) *Catalog {
	c := &Catalog{
		dbs:            make(map[string]sql.Database, len(dbs)),
		tableFunctions: make(map[string]sql.TableFunction),
		functions:      make(map[string]*querytree.LambdaNode),
	}
	for _, db := range dbs {
		c.dbs[strings.ToLower(db.Name())] = db
	}
	for _, tf := range []sql.TableFunction{NumbersTableFunction{}, ZerosTableFunction{}} {
		c.tableFunctions[tf.Name()] = tf
	}
	return c
}

// Database returns the Database with the given name if it exists.
func (c *Catalog) Database(_ *sql.Context, name string) (sql.Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	db, ok := c.dbs[strings.ToLower(name)]
	if ok {
		return db, nil
	}

	names := make([]string, 0, len(c.dbs))
	for n := range c.dbs {
		names = append(names, n)
	}
	sort.Strings(names)

	similar := similartext.Find(names, name)
	return nil, sql.ErrDatabaseNotFound.New(name + similar)
}

// DatabaseNames implements the sql.Catalog interface.
func (c *Catalog) DatabaseNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.dbs))
	for _, db := range c.dbs {
		names = append(names, db.Name())
	}
	sort.Strings(names)
	return names
}

// AddDatabase adds a database to the catalog, replacing any database with
// the same name.
func (c *Catalog) AddDatabase(db sql.Database) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dbs[strings.ToLower(db.Name())] = db
}

// TableFunction implements the sql.Catalog interface.
func (c *Catalog) TableFunction(name string) (sql.TableFunction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tf, ok := c.tableFunctions[name]
	return tf, ok
}

// TableFunctionNames implements the sql.Catalog interface.
func (c *Catalog) TableFunctionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tableFunctions))
	for n := range c.tableFunctions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddTableFunction registers a table function.
func (c *Catalog) AddTableFunction(tf sql.TableFunction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tableFunctions[tf.Name()] = tf
}

// CreateFunction registers a SQL user defined function, written as a
// lambda: CREATE FUNCTION name AS (x, y) -> x + y.
func (c *Catalog) CreateFunction(name string, lambda *querytree.LambdaNode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.functions[name]; ok {
		return ErrFunctionAlreadyExists.New(name)
	}
	c.functions[name] = lambda
	return nil
}

// UserDefinedFunction returns a copy of the lambda of a user defined
// function.
func (c *Catalog) UserDefinedFunction(name string) (*querytree.LambdaNode, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	l, ok := c.functions[name]
	if !ok {
		return nil, false
	}
	return querytree.Clone(l).(*querytree.LambdaNode), true
}

// UserDefinedFunctionNames returns the names of all user defined functions.
func (c *Catalog) UserDefinedFunctionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.functions))
	for n := range c.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
