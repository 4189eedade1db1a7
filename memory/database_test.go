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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

func TestDatabase_AddTable(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	db := NewDatabase("test")
	require.Empty(db.TableNames())

	_, err := db.CreateTable("test_table", &sql.Column{Name: "a", Type: sql.Int32})
	require.NoError(err)
	require.Equal([]string{"test_table"}, db.TableNames())

	tt, ok, err := db.Table(ctx, "test_table")
	require.NoError(err)
	require.True(ok)
	require.Equal("test", tt.Database())

	_, err = db.CreateTable("test_table")
	require.Error(err)
	require.True(ErrTableAlreadyExists.Is(err))

	_, ok, err = db.Table(ctx, "TEST_TABLE")
	require.NoError(err)
	require.False(ok)
}

func TestDatabase_DropTable(t *testing.T) {
	require := require.New(t)
	db := NewDatabase("test")
	db.AddTable(NewTable("t1"))
	db.AddTable(NewTable("t2"))
	require.Equal([]string{"t1", "t2"}, db.TableNames())

	require.NoError(db.DropTable("t1"))
	require.Equal([]string{"t2"}, db.TableNames())

	err := db.DropTable("t1")
	require.Error(err)
	require.True(sql.ErrTableNotFound.Is(err))
}

func TestCatalog(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	c := NewCatalog(NewDatabase("mydb"), NewDatabase("other"))

	db, err := c.Database(ctx, "MyDB")
	require.NoError(err)
	require.Equal("mydb", db.Name())
	require.Equal([]string{"mydb", "other"}, c.DatabaseNames())

	_, err = c.Database(ctx, "mydv")
	require.Error(err)
	require.True(sql.ErrDatabaseNotFound.Is(err))
	require.Contains(err.Error(), "maybe you mean mydb?")

	require.Equal([]string{"numbers", "zeros"}, c.TableFunctionNames())
	_, ok := c.TableFunction("numbers")
	require.True(ok)
	_, ok = c.TableFunction("generateSeries")
	require.False(ok)
}
