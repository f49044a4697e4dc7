package sample

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/roach88/arbor/internal/querysql"
	arborerr "github.com/roach88/arbor/pkg/errors"
)

// PathSeparator separates segments of PathCategory paths.
const PathSeparator = "."

// layout holds the per-encoding values of every fixture node.
type layout struct {
	order []FixtureNode
	chain map[string][]string // root-to-node ids, node included
	left  map[string]int
	right map[string]int
}

func newLayout(f *Fixture) *layout {
	l := &layout{
		order: f.preorder(),
		chain: make(map[string][]string, len(f.Nodes)),
		left:  make(map[string]int, len(f.Nodes)),
		right: make(map[string]int, len(f.Nodes)),
	}

	children := make(map[string][]string)
	var roots []string
	for _, n := range l.order {
		if n.Parent == "" {
			roots = append(roots, n.ID)
			l.chain[n.ID] = []string{n.ID}
			continue
		}
		children[n.Parent] = append(children[n.Parent], n.ID)
		parentChain := l.chain[n.Parent]
		chain := make([]string, len(parentChain), len(parentChain)+1)
		copy(chain, parentChain)
		l.chain[n.ID] = append(chain, n.ID)
	}

	counter := 1
	var number func(id string)
	number = func(id string) {
		l.left[id] = counter
		counter++
		for _, c := range children[id] {
			number(c)
		}
		l.right[id] = counter
		counter++
	}
	for _, r := range roots {
		number(r)
	}
	return l
}

func (l *layout) path(id string) string {
	return strings.Join(l.chain[id], PathSeparator)
}

// Seed replaces the contents of the sample tables with the fixture,
// written once per encoding: closure pairs (self-pairs included),
// nested-set bounds numbered depth-first, and dotted materialized paths.
// It runs in one transaction.
func Seed(ctx context.Context, db *sql.DB, d querysql.Dialect, f *Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	l := newLayout(f)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return arborerr.Wrap(err, arborerr.CodeSampleSeedFailure, "begin seed transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"closure_category_closure", "closure_category", "nested_category", "path_category", "app_user"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+d.Quote(table)); err != nil {
			return arborerr.Wrap(err, arborerr.CodeSampleSeedFailure, "clear table", arborerr.Field("table", table))
		}
	}

	s := &seeder{ctx: ctx, tx: tx, d: d}
	for _, u := range f.Users {
		s.insert("app_user", []string{"id", "name"}, u.ID, u.Name)
	}
	for _, n := range l.order {
		parent, owner := nullable(n.Parent), nullable(n.Owner)

		s.insert("closure_category", []string{"id", "name", "parent_id", "user_id"}, n.ID, n.Name, parent, owner)
		for _, anc := range l.chain[n.ID] {
			s.insert("closure_category_closure", []string{"ancestor_id", "descendant_id"}, anc, n.ID)
		}
		s.insert("nested_category", []string{"id", "name", "parent_id", "user_id", "nsleft", "nsright"},
			n.ID, n.Name, parent, owner, l.left[n.ID], l.right[n.ID])
		s.insert("path_category", []string{"id", "name", "parent_id", "user_id", "mpath"},
			n.ID, n.Name, parent, owner, l.path(n.ID))
	}
	if s.err != nil {
		return s.err
	}

	if err := tx.Commit(); err != nil {
		return arborerr.Wrap(err, arborerr.CodeSampleSeedFailure, "commit seed transaction")
	}
	slog.Info("sample seeded", slog.Int("users", len(f.Users)), slog.Int("nodes", len(f.Nodes)))
	return nil
}

// seeder runs inserts until the first error.
type seeder struct {
	ctx context.Context
	tx  *sql.Tx
	d   querysql.Dialect
	err error
}

func (s *seeder) insert(table string, cols []string, args ...any) {
	if s.err != nil {
		return
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.d.Quote(c)
		marks[i] = s.d.Placeholder(i + 1)
	}
	stmt := "INSERT INTO " + s.d.Quote(table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	if _, err := s.tx.ExecContext(s.ctx, stmt, args...); err != nil {
		s.err = arborerr.Wrap(err, arborerr.CodeSampleSeedFailure, "insert", arborerr.Field("table", table))
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
