package query

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/queryir"
	"github.com/roach88/arbor/internal/querysql"
)

func testMetadata() *meta.EntityMetadata {
	userID := &meta.Column{PropertyName: "id", DatabaseName: "id", Primary: true}
	user := &meta.EntityMetadata{
		Name:      "User",
		TableName: "user",
		Columns:   []*meta.Column{userID, {PropertyName: "name", DatabaseName: "name"}},
	}

	id := &meta.Column{PropertyName: "id", DatabaseName: "id", Primary: true}
	parentID := &meta.Column{PropertyName: "parentId", DatabaseName: "parent_id", ReferencedColumn: id}
	ownerID := &meta.Column{PropertyName: "ownerId", DatabaseName: "user_id", ReferencedColumn: userID}
	return &meta.EntityMetadata{
		Name:      "Category",
		TableName: "category",
		Columns: []*meta.Column{
			id,
			{PropertyName: "name", DatabaseName: "name"},
			parentID,
			ownerID,
		},
		ParentRelation: &meta.TreeRelation{PropertyName: "parent", JoinColumns: []*meta.Column{parentID}},
		Relations: []*meta.Relation{
			{PropertyName: "owner", Target: user, JoinColumns: []*meta.Column{ownerID}},
		},
	}
}

func byID(alias string) queryir.Predicate {
	return queryir.Equals{Left: queryir.Col(alias, "id"), Right: queryir.P("id")}
}

func TestBuilder_SQL(t *testing.T) {
	md := testMetadata()

	sql, args, err := New(nil, querysql.SQLite{}, md, "c").
		Where(byID("c")).
		SetParameter("id", 1).
		OrderBy("name", Desc).
		Limit(3).
		SQL()
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "c"."id" AS "c_id", "c"."name" AS "c_name", "c"."parent_id" AS "c_parent_id", "c"."user_id" AS "c_user_id" `+
			`FROM "category" "c" WHERE "c"."id" = ? ORDER BY "c"."name" DESC LIMIT 3`,
		sql)
	assert.Equal(t, []any{1}, args)
}

func TestBuilder_SelectAndRelation(t *testing.T) {
	md := testMetadata()

	sql, _, err := New(nil, querysql.SQLite{}, md, "c").
		Select("id", "name").
		LeftJoinRelation("owner").
		SQL()
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT "c"."id" AS "c_id", "c"."name" AS "c_name", "c_owner"."id" AS "c_owner_id", "c_owner"."name" AS "c_owner_name" `+
			`FROM "category" "c" LEFT JOIN "user" "c_owner" ON "c_owner"."id" = "c"."user_id"`,
		sql)
}

func TestBuilder_AndWhereAndCount(t *testing.T) {
	md := testMetadata()

	b := New(nil, querysql.Postgres{}, md, "c").
		Where(byID("c")).
		AndWhere(queryir.IsNull{Operand: queryir.Col("c", "parent_id")}).
		SetParameters(map[string]any{"id": "x"}).
		OrderBy("id", Asc).
		Limit(5)

	sql, args, err := b.CountSQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) AS "count" FROM (SELECT DISTINCT "c"."id" AS "c_id" FROM "category" "c" WHERE "c"."id" = $1 AND "c"."parent_id" IS NULL) "counted"`,
		sql)
	assert.Equal(t, []any{"x"}, args)
}

func TestBuilder_SubQuerySharesParameters(t *testing.T) {
	md := testMetadata()

	b := New(nil, querysql.SQLite{}, md, "c")
	sub, err := b.SubQuery(md, "reference").
		Select("name").
		Where(byID("reference")).
		SetParameter("id", 9).
		Operand()
	require.NoError(t, err)

	sql, args, err := b.Where(queryir.Equals{Left: queryir.Col("c", "name"), Right: sub}).Select("id").SQL()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "c"."id" AS "c_id" FROM "category" "c" WHERE "c"."name" = (SELECT "reference"."name" AS "reference_name" FROM "category" "reference" WHERE "reference"."id" = ?)`,
		sql)
	assert.Equal(t, []any{9}, args)
	assert.Equal(t, map[string]any{"id": 9}, b.Parameters())
}

func TestBuilder_ConstructionErrors(t *testing.T) {
	md := testMetadata()

	testCases := []struct {
		name    string
		build   func(b *Builder) *Builder
		wantErr string
	}{
		{
			name:    "unknown select property",
			build:   func(b *Builder) *Builder { return b.Select("id", "color") },
			wantErr: `Category has no property "color"`,
		},
		{
			name:    "unknown order property",
			build:   func(b *Builder) *Builder { return b.OrderBy("color", Asc) },
			wantErr: `Category has no property "color"`,
		},
		{
			name:    "unknown relation",
			build:   func(b *Builder) *Builder { return b.LeftJoinRelation("tags") },
			wantErr: `Category has no relation "tags"`,
		},
		{
			name: "first error wins",
			build: func(b *Builder) *Builder {
				return b.LeftJoinRelation("tags").Select("color")
			},
			wantErr: `no relation "tags"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.build(New(nil, querysql.SQLite{}, md, "c"))

			_, _, err := b.SQL()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)

			_, err = b.GetMany(context.Background())
			require.Error(t, err)
		})
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "query.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE user (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE category (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id INTEGER REFERENCES category(id),
			user_id INTEGER REFERENCES user(id)
		);
		INSERT INTO user (id, name) VALUES (1, 'ada');
		INSERT INTO category (id, name, parent_id, user_id) VALUES
			(1, 'root', NULL, 1),
			(2, 'left', 1, NULL),
			(3, 'right', 1, 1);
	`)
	require.NoError(t, err)
	return db
}

func TestBuilder_Execute(t *testing.T) {
	db := openTestDB(t)
	md := testMetadata()
	ctx := context.Background()

	t.Run("get many", func(t *testing.T) {
		entities, err := New(db, querysql.SQLite{}, md, "c").OrderBy("id", Asc).GetMany(ctx)
		require.NoError(t, err)
		require.Len(t, entities, 3)

		assert.Equal(t, int64(1), entities[0].Get("id"))
		assert.Equal(t, "root", entities[0].Get("name"))
		assert.Nil(t, entities[0].Get("parentId"))
		assert.Equal(t, int64(1), entities[1].Get("parentId"))
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		entities, err := New(db, querysql.SQLite{}, md, "c").
			Where(byID("c")).
			SetParameter("id", 42).
			GetMany(ctx)
		require.NoError(t, err)
		assert.NotNil(t, entities)
		assert.Empty(t, entities)
	})

	t.Run("raw rows align with entities", func(t *testing.T) {
		res, err := New(db, querysql.SQLite{}, md, "c").
			LeftJoinRelation("owner").
			OrderBy("id", Asc).
			GetRawAndEntities(ctx)
		require.NoError(t, err)
		require.Len(t, res.Raw, 3)
		require.Len(t, res.Entities, 3)

		for i, raw := range res.Raw {
			assert.Equal(t, raw["c_id"], res.Entities[i].Get("id"))
		}

		owner := res.Entities[0].Relation("owner")
		require.NotNil(t, owner)
		assert.Equal(t, "ada", owner.Get("name"))

		assert.Contains(t, res.Entities[1].Relations, "owner")
		assert.Nil(t, res.Entities[1].Relation("owner"))
	})

	t.Run("count", func(t *testing.T) {
		n, err := New(db, querysql.SQLite{}, md, "c").
			Where(queryir.Equals{Left: queryir.Col("c", "parent_id"), Right: queryir.P("parentId")}).
			SetParameter("parentId", 1).
			GetCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New(db, querysql.SQLite{}, md, "c").GetMany(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}
