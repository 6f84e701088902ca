// Package schema provides minimal table metadata and statement builders for the engine.
//
// It covers what callers need to create a table, insert into it, select from it and delete
// from it without writing dialect specific SQL by hand. DML statements are goqu datasets
// compiled per dialect; DDL is rendered here since goqu has no DDL support.
//
// Usage example:
//
//	mytable, _ := schema.NewTable("mytable",
//		schema.NewColumn("id", schema.Integer).PrimaryKey(),
//		schema.NewColumn("name", schema.String(255)),
//	)
//
//	_, _ = engine.Execute(ctx, schema.CreateTable(mytable))
//	result, _ := engine.Execute(ctx, mytable.Insert())
//	pk, _ := result.InsertedPrimaryKey() // [1]
package schema
