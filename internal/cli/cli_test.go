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
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
)

const testSchema = `
databases:
  - name: default
    tables:
      - name: users
        columns:
          - {name: id, type: UInt64}
          - {name: name, type: String}
          - {name: upper_name, type: String, kind: ALIAS, expression: "upper(name)"}
        rows:
          - [1, ann]
          - [2, bob]
  - name: other
    tables:
      - name: empty
        columns:
          - {name: x, type: "Nullable(Int32)"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "resolve")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(args)
	cmd.SetErr(ioutil.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaBuild(t *testing.T) {
	require := require.New(t)

	schema, err := ReadSchema(strings.NewReader(testSchema))
	require.NoError(err)
	require.Len(schema.Databases, 2)

	ctx := sql.NewEmptyContext()
	c := memory.NewCatalog()
	require.NoError(schema.Build(ctx, c))

	db, err := c.Database(ctx, "default")
	require.NoError(err)
	table, ok, err := db.Table(ctx, "users")
	require.NoError(err)
	require.True(ok)

	columns := table.Columns()
	require.Len(columns, 3)
	require.Equal(sql.AliasColumn, columns[2].Kind)
	require.Equal("upper(name)", columns[2].Expression)

	rows, err := table.(*memory.Table).Rows(ctx)
	require.NoError(err)
	require.Equal([]sql.Row{{uint64(1), "ann"}, {uint64(2), "bob"}}, rows)

	_, err = c.Database(ctx, "other")
	require.NoError(err)
}

func TestSchemaErrors(t *testing.T) {
	testCases := []struct {
		name   string
		schema string
	}{
		{"unknown field", "databases:\n  - name: db\n    foo: bar\n"},
		{"unknown type", "databases:\n  - name: db\n    tables:\n      - name: t\n        columns:\n          - {name: a, type: Foo}\n"},
		{"unknown kind", "databases:\n  - name: db\n    tables:\n      - name: t\n        columns:\n          - {name: a, type: UInt8, kind: VIRTUAL}\n"},
		{"no database name", "databases:\n  - tables: []\n"},
		{"short row", "databases:\n  - name: db\n    tables:\n      - name: t\n        columns:\n          - {name: a, type: UInt8}\n          - {name: b, type: UInt8}\n        rows:\n          - [1]\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			schema, err := ReadSchema(strings.NewReader(tt.schema))
			if err != nil {
				require.True(ErrInvalidSchema.Is(err))
				return
			}
			require.Error(schema.Build(sql.NewEmptyContext(), memory.NewCatalog()))
		})
	}
}

func TestQueryCommand(t *testing.T) {
	schema := writeFile(t, "schema.yaml", testSchema)

	testCases := []struct {
		name     string
		args     []string
		stdin    string
		expected string
	}{
		{
			"filter",
			[]string{"query", "--schema", schema, "SELECT name FROM users WHERE id = 2"},
			"",
			"name\n'bob'\n",
		},
		{
			"query from stdin",
			[]string{"query", "--schema", schema, "-"},
			"SELECT id FROM users ORDER BY id DESC",
			"id\n2\n1\n",
		},
		{
			"other database",
			[]string{"query", "--schema", schema, "-d", "other", "SELECT count() FROM empty"},
			"",
			"count()\n0\n",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(err)
			require.Equal(tt.expected, out)
		})
	}
}

func TestAnalyzeCommand(t *testing.T) {
	require := require.New(t)
	schema := writeFile(t, "schema.yaml", testSchema)

	out, err := run(t, "", "analyze", "--schema", schema, "SELECT name FROM users")
	require.NoError(err)
	require.Contains(out, "users")

	out, err = run(t, "", "analyze", "--dump", "--schema", schema, "SELECT name FROM users")
	require.NoError(err)
	require.Contains(out, "QUERY")

	_, err = run(t, "", "analyze", "--schema", schema, "SELECT foo FROM users")
	require.Error(err)
	require.Contains(err.Error(), "identifier `foo`")
}

func TestSettingsCommand(t *testing.T) {
	require := require.New(t)
	settings := writeFile(t, "settings.yaml", "max_subquery_depth: 7\n")

	out, err := run(t, "", "settings", "--settings", settings, "--set", "enable_order_by_all=off")
	require.NoError(err)
	require.Contains(out, "max_subquery_depth\t7\n")
	require.Contains(out, "enable_order_by_all\tfalse\n")
	require.Contains(out, "enable_positional_arguments\ttrue\n")

	_, err = run(t, "", "settings", "--set", "enable_order_by_all")
	require.Error(err)

	_, err = run(t, "", "settings", "--set", "no_such_setting=1")
	require.Error(err)
	require.True(sql.ErrUnknownSetting.Is(err))
}

func TestPositionalArgumentsOverride(t *testing.T) {
	require := require.New(t)
	schema := writeFile(t, "schema.yaml", testSchema)

	out, err := run(t, "", "query", "--schema", schema, "SELECT id, name FROM users ORDER BY 1 DESC")
	require.NoError(err)
	require.Equal("id\tname\n2\t'bob'\n1\t'ann'\n", out)

	out, err = run(t, "", "query", "--schema", schema,
		"--set", "enable_positional_arguments=false",
		"SELECT id, name FROM users ORDER BY 1 DESC")
	require.NoError(err)
	require.Equal("id\tname\n1\t'ann'\n2\t'bob'\n", out)
}
