package store

import (
	"context"
	"database/sql"
	"io/fs"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/querysql"
	"github.com/roach88/arbor/internal/tree"
	arborerr "github.com/roach88/arbor/pkg/errors"
)

// Store wraps a database handle and its SQL dialect.
type Store struct {
	db      *sql.DB
	driver  string
	dialect querysql.Dialect
	logger  *slog.Logger
}

// Open connects to a database. driver is "sqlite3" or "postgres"; for
// sqlite3 the DSN is a file path (or ":memory:").
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := querysql.DialectFor(driver)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeStoreDriverUnsupported, "open store", arborerr.Field("driver", driver))
	}
	if driver != "sqlite3" && driver != "postgres" {
		return nil, arborerr.New(arborerr.CodeStoreDriverUnsupported, "no database/sql driver registered", arborerr.Field("driver", driver))
	}

	if driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeStoreOpenFailure, "failed to open database", arborerr.Field("driver", driver))
	}

	if driver == "sqlite3" {
		// SQLite only supports one writer at a time, and every :memory:
		// connection is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, arborerr.Wrap(err, arborerr.CodeStoreOpenFailure, "failed to connect to database", arborerr.Field("driver", driver))
	}

	s := &Store{
		db:      db,
		driver:  driver,
		dialect: dialect,
		logger:  slog.Default().With(slog.String("driver", driver)),
	}
	s.logger.Debug("store opened", slog.String("dialect", dialect.Name()))
	return s, nil
}

// sqliteDSN appends the connection pragmas to a sqlite3 DSN unless the
// caller already passed query parameters.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Dialect returns the SQL dialect of the connection.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// Repository returns a tree repository for md bound to this store.
func (s *Store) Repository(md *meta.EntityMetadata, opts ...tree.RepositoryOption) *tree.TreeRepository {
	return tree.NewRepository(s.db, s.dialect, md, opts...)
}

// Migrate applies every pending goose migration found at the root of
// fsys. It returns the versions applied.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS) ([]int64, error) {
	dialect := goose.DialectSQLite3
	if s.driver == "postgres" {
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeStoreMigrateFailure, "load migrations")
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeStoreMigrateFailure, "apply migrations")
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	s.logger.Info("migrations applied", slog.Int("count", len(applied)))
	return applied, nil
}
