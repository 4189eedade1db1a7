package sqle_test

import (
	"fmt"

	sqle "github.com/dolthub/go-query-analyzer"
	"github.com/dolthub/go-query-analyzer/memory"
	"github.com/dolthub/go-query-analyzer/sql"
)

func Example() {
	e := sqle.New()
	ctx := sql.NewEmptyContext()

	// Create a test memory database and register it to the default engine.
	e.AddDatabase(createTestDatabase(ctx))
	ctx.SetCurrentDatabase("test")

	_, block, err := e.Query(ctx, `SELECT name, count(*) FROM mytable
	WHERE name = 'John Doe'
	GROUP BY name`)
	checkIfError(err)

	// Iterate results and print them.
	for _, ro := range block.Rows {
		name := ro[0]
		count := ro[1]

		fmt.Println(name, count)
	}

	// Output: John Doe 2
}

func checkIfError(err error) {
	if err != nil {
		panic(err)
	}
}

func createTestDatabase(ctx *sql.Context) sql.Database {
	db := memory.NewDatabase("test")
	table, err := db.CreateTable("mytable",
		&sql.Column{Name: "name", Type: sql.String},
		&sql.Column{Name: "email", Type: sql.String},
	)
	checkIfError(err)

	checkIfError(table.Insert(ctx, "John Doe", "john@doe.com"))
	checkIfError(table.Insert(ctx, "John Doe", "johnalt@doe.com"))
	checkIfError(table.Insert(ctx, "Jane Doe", "jane@doe.com"))
	checkIfError(table.Insert(ctx, "Evil Bob", "evilbob@gmail.com"))
	return db
}
