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

package cli

import (
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"
	"gopkg.in/yaml.v2"

	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
)

// ErrInvalidSchema is returned when a schema file cannot be loaded.
var ErrInvalidSchema = errors.NewKind("invalid schema: %s")

// Schema describes the databases, tables and user defined functions the
// queries are resolved against.
//
//	databases:
//	  - name: default
//	    tables:
//	      - name: t
//	        columns:
//	          - {name: a, type: UInt64}
//	          - {name: b, type: String, kind: ALIAS, expression: "toString(a)"}
//	        rows:
//	          - [1]
type Schema struct {
	Databases []DatabaseSchema `yaml:"databases"`
}

// DatabaseSchema is a database of the schema file.
type DatabaseSchema struct {
	Name   string        `yaml:"name"`
	Tables []TableSchema `yaml:"tables"`
}

// TableSchema is a table of the schema file. Rows hold one value per stored
// column.
type TableSchema struct {
	Name    string          `yaml:"name"`
	Columns []ColumnSchema  `yaml:"columns"`
	Rows    [][]interface{} `yaml:"rows"`
}

// ColumnSchema is a table column of the schema file.
type ColumnSchema struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Kind       string `yaml:"kind"`
	Expression string `yaml:"expression"`
}

// ReadSchema decodes a YAML schema.
func ReadSchema(r io.Reader) (*Schema, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, ErrInvalidSchema.Wrap(err, err.Error())
	}
	return &s, nil
}

func columnKind(kind string) (sql.ColumnKind, error) {
	switch strings.ToUpper(kind) {
	case "", "ORDINARY":
		return sql.OrdinaryColumn, nil
	case "MATERIALIZED":
		return sql.MaterializedColumn, nil
	case "ALIAS":
		return sql.AliasColumn, nil
	case "EPHEMERAL":
		return sql.EphemeralColumn, nil
	}
	return 0, ErrInvalidSchema.New(fmt.Sprintf("unknown column kind %q", kind))
}

// Build creates the in-memory databases of the schema and adds them to the
// catalog.
func (s *Schema) Build(ctx *sql.Context, c *memory.Catalog) error {
	for _, dbs := range s.Databases {
		if dbs.Name == "" {
			return ErrInvalidSchema.New("database without name")
		}
		db := memory.NewDatabase(dbs.Name)
		for _, ts := range dbs.Tables {
			columns := make([]*sql.Column, len(ts.Columns))
			for i, cs := range ts.Columns {
				typ, err := sql.ParseType(cs.Type)
				if err != nil {
					return ErrInvalidSchema.New(fmt.Sprintf("column %s.%s: %s", ts.Name, cs.Name, err))
				}
				kind, err := columnKind(cs.Kind)
				if err != nil {
					return err
				}
				columns[i] = &sql.Column{Name: cs.Name, Type: typ, Kind: kind, Expression: cs.Expression}
			}

			table, err := db.CreateTable(ts.Name, columns...)
			if err != nil {
				return err
			}
			for _, row := range ts.Rows {
				if err := table.Insert(ctx, row...); err != nil {
					return err
				}
			}
		}
		c.AddDatabase(db)
	}
	return nil
}
