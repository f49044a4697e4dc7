// Package sample provides a demo schema for the three tree encodings:
// CUE entity definitions, goose migrations creating their tables, YAML
// fixtures and a seeder that writes one fixture into all three encodings.
package sample

import (
	"embed"
	"io/fs"

	"github.com/roach88/arbor/internal/schema"
)

// Entity names defined by the sample schema.
const (
	User            = "User"
	ClosureCategory = "ClosureCategory"
	NestedCategory  = "NestedCategory"
	PathCategory    = "PathCategory"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed migrations/*.sql
var migrationsFS embed.FS

//go:embed fixtures/catalog.yaml
var catalogYAML []byte

// Schema compiles the sample entity definitions.
func Schema() (*schema.Registry, error) {
	return schema.CompileBytes(schemaCUE, "sample/schema.cue")
}

// SchemaSource returns the CUE source of the sample schema.
func SchemaSource() []byte {
	return schemaCUE
}

// Migrations returns the goose migrations creating the sample tables.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err) // embedded directory is always present
	}
	return sub
}

// Catalog returns the built-in fixture.
func Catalog() (*Fixture, error) {
	return ParseFixture(catalogYAML)
}
