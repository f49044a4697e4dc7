// Package query builds and executes entity queries.
//
// A Builder accumulates a queryir.Select for one entity under one alias,
// binds named parameters, compiles through a querysql.Dialect and hydrates
// the result rows into meta.Entity values:
//
//	b := query.New(db, querysql.SQLite{}, md, "category").
//		Where(queryir.Equals{Left: queryir.Col("category", "id"), Right: queryir.P("id")}).
//		SetParameter("id", 7)
//	entities, err := b.GetMany(ctx)
//
// Builder methods chain. The first construction error (an unknown
// property, an unknown relation) is remembered and returned by SQL and
// the Get methods.
//
// Result columns are named "<alias>_<column>" (see RawKey). Raw rows
// returned by GetRawAndEntities are keyed by those names.
package query
