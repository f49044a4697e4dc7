package querysql

import (
	"fmt"
	"strings"
)

// Dialect isolates the SQL differences between database families.
//
// A dialect is selected once per connection (see DialectFor) and passed to
// the compiler; call sites never branch on the driver themselves.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "postgres", "mysql").
	Name() string

	// Quote returns the dialect-safe quoted form of an identifier.
	Quote(ident string) string

	// Placeholder returns the bind placeholder for the 1-based index.
	Placeholder(index int) string

	// NumberedPlaceholders reports whether a placeholder can be referenced
	// more than once ($1 ... $1). When false every occurrence binds a new
	// argument.
	NumberedPlaceholders() bool

	// PathPrefix renders "value starts with prefix followed by suffix".
	// value and prefix are compiled SQL expressions, suffix is a raw LIKE
	// pattern tail such as "%" or ".%". LIKE wildcards inside prefix match
	// only themselves.
	PathPrefix(value, prefix, suffix string) string

	// LimitOffset renders the LIMIT/OFFSET tail (with a leading space), or
	// "" when both are zero.
	LimitOffset(limit, offset int) string
}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "sqlite3", "sqlite":
		return SQLite{}, nil
	case "postgres", "pgx", "postgresql":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driverName)
	}
}

// SQLite concatenates strings natively with ||.
type SQLite struct{}

func (SQLite) Name() string               { return "sqlite" }
func (SQLite) Quote(ident string) string  { return quoteWith(ident, '"') }
func (SQLite) Placeholder(int) string     { return "?" }
func (SQLite) NumberedPlaceholders() bool { return false }

func (SQLite) PathPrefix(value, prefix, suffix string) string {
	return fmt.Sprintf("%s LIKE %s || %s ESCAPE %s",
		value, escapeLike(prefix, quoteLiteral), quoteLiteral(suffix), quoteLiteral(likeEscape))
}

func (SQLite) LimitOffset(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	default:
		return ""
	}
}

// Postgres uses CONCAT guarded by NULLIF: when the prefix is empty or NULL
// the pattern collapses to NULL and matches nothing, instead of "%"
// matching every row.
type Postgres struct{}

func (Postgres) Name() string               { return "postgres" }
func (Postgres) Quote(ident string) string  { return quoteWith(ident, '"') }
func (Postgres) Placeholder(i int) string   { return fmt.Sprintf("$%d", i) }
func (Postgres) NumberedPlaceholders() bool { return true }

func (Postgres) PathPrefix(value, prefix, suffix string) string {
	return concatPathPrefix(value, prefix, suffix, quoteLiteral)
}

func (Postgres) LimitOffset(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

// MySQL quotes with backticks and, like Postgres, concatenates with CONCAT.
// Backslashes in its string literals are escapes and are doubled.
type MySQL struct{}

func (MySQL) Name() string               { return "mysql" }
func (MySQL) Quote(ident string) string  { return quoteWith(ident, '`') }
func (MySQL) Placeholder(int) string     { return "?" }
func (MySQL) NumberedPlaceholders() bool { return false }

func (MySQL) PathPrefix(value, prefix, suffix string) string {
	return concatPathPrefix(value, prefix, suffix, quoteBackslashLiteral)
}

func (MySQL) LimitOffset(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		// MySQL has no OFFSET without LIMIT; this is its documented idiom.
		return fmt.Sprintf(" LIMIT 18446744073709551615 OFFSET %d", offset)
	default:
		return ""
	}
}

// likeEscape is the ESCAPE character of every rendered LIKE.
const likeEscape = `\`

func concatPathPrefix(value, prefix, suffix string, literal func(string) string) string {
	lit := literal(suffix)
	return fmt.Sprintf("%s LIKE NULLIF(CONCAT(%s, %s), %s) ESCAPE %s",
		value, escapeLike(prefix, literal), lit, lit, literal(likeEscape))
}

// escapeLike wraps a pattern expression so the escape character and the
// LIKE wildcards it yields at run time are matched literally.
func escapeLike(expr string, literal func(string) string) string {
	for _, c := range []string{likeEscape, "%", "_"} {
		expr = fmt.Sprintf("REPLACE(%s, %s, %s)", expr, literal(c), literal(likeEscape+c))
	}
	return expr
}

func quoteWith(ident string, q byte) string {
	s := string(q)
	return s + strings.ReplaceAll(ident, s, s+s) + s
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteBackslashLiteral(s string) string {
	return quoteLiteral(strings.ReplaceAll(s, `\`, `\\`))
}
