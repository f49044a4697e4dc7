package query

import (
	"context"
	"database/sql"

	"github.com/roach88/arbor/internal/meta"
)

// Querier is the read side of *sql.DB, *sql.Tx and *sql.Conn.
//
// Only *sql.DB runs statements concurrently; callers sharing a *sql.Tx or
// *sql.Conn between goroutines must serialize their queries.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RawAndEntities pairs raw result rows with the entities hydrated from
// them. Raw[i] is the row Entities[i] was built from.
type RawAndEntities struct {
	Raw      []map[string]any
	Entities []*meta.Entity
}

// GetMany executes the row query and returns the hydrated entities.
// Returns an empty slice (not nil) when nothing matches.
func (b *Builder) GetMany(ctx context.Context) ([]*meta.Entity, error) {
	res, err := b.GetRawAndEntities(ctx)
	if err != nil {
		return nil, err
	}
	return res.Entities, nil
}

// GetRawAndEntities executes the row query and returns both the raw rows
// and the hydrated entities.
func (b *Builder) GetRawAndEntities(ctx context.Context) (*RawAndEntities, error) {
	query, args, err := b.SQL()
	if err != nil {
		return nil, err
	}

	raws, err := b.queryRaw(ctx, query, args)
	if err != nil {
		return nil, err
	}

	res := &RawAndEntities{
		Raw:      raws,
		Entities: make([]*meta.Entity, len(raws)),
	}
	for i, raw := range raws {
		res.Entities[i] = b.hydrate(raw)
	}
	return res, nil
}

// GetCount executes the count query.
func (b *Builder) GetCount(ctx context.Context) (int, error) {
	query, args, err := b.CountSQL()
	if err != nil {
		return 0, err
	}

	rows, err := b.querier.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return int(count), nil
}

// queryRaw runs a query and reads every row into a map keyed by result
// column name.
func (b *Builder) queryRaw(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := b.querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		raw := make(map[string]any, len(names))
		for i, name := range names {
			raw[name] = meta.NormalizeValue(vals[i])
		}
		out = append(out, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// hydrate builds an entity from a raw row.
func (b *Builder) hydrate(raw map[string]any) *meta.Entity {
	e := meta.NewEntity(nil)
	for _, c := range b.columns() {
		if v, ok := raw[RawKey(b.alias, c.DatabaseName)]; ok {
			e.Values[c.PropertyName] = v
		}
	}
	if len(b.relations) == 0 {
		return e
	}

	e.Relations = make(map[string]*meta.Entity, len(b.relations))
	for _, rel := range b.relations {
		relAlias := RawKey(b.alias, rel.PropertyName)
		target := meta.NewEntity(nil)
		for _, c := range rel.Target.Columns {
			target.Values[c.PropertyName] = raw[RawKey(relAlias, c.DatabaseName)]
		}
		// LEFT JOIN miss: every primary key column is NULL.
		if _, ok := rel.Target.KeyOf(target); !ok {
			target = nil
		}
		e.Relations[rel.PropertyName] = target
	}
	return e
}
