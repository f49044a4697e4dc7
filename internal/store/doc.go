// Package store manages the database connection tree repositories read
// from.
//
// # Drivers
//
//   - sqlite3 (github.com/mattn/go-sqlite3): the default. Pragmas are set
//     in the DSN so they apply to every pooled connection.
//   - postgres (github.com/lib/pq).
//
// The SQL dialect is chosen once, when the store is opened, and handed to
// every repository the store creates.
//
// # Database Configuration (sqlite3)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// # Migrations
//
// Migrate applies goose SQL migrations from an fs.FS. The traversal code
// never creates or alters tables; migrations exist for the sample schema
// and for tests.
package store
