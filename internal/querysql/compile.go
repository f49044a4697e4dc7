package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/arbor/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for one dialect.
//
// CRITICAL: All values are parameterized (never interpolated). Identifiers
// are quoted by the dialect.
type SQLCompiler struct {
	Dialect Dialect

	// Params holds the values for named Param operands.
	// Must be set before compilation.
	Params map[string]any
}

// NewSQLCompiler creates a new SQLCompiler for the given dialect.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{
		Dialect: d,
		Params:  make(map[string]any),
	}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, args, error) tuple. Args are positional, in placeholder
// order.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if c.Dialect == nil {
		return "", nil, fmt.Errorf("compiler has no dialect")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	st := &compileState{c: c, positions: make(map[string]int)}

	var sql string
	var err error
	switch query := q.(type) {
	case queryir.Select:
		sql, err = st.compileSelect(query)
	case queryir.Count:
		sql, err = st.compileCount(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
	if err != nil {
		return "", nil, err
	}
	return sql, st.args, nil
}

// compileState carries the arguments of one compilation so a compiler can
// be shared between goroutines.
type compileState struct {
	c         *SQLCompiler
	args      []any
	positions map[string]int
}

func (s *compileState) quote(ident string) string {
	return s.c.Dialect.Quote(ident)
}

// compileSelect compiles a queryir.Select to SQL.
func (s *compileState) compileSelect(q queryir.Select) (string, error) {
	var b strings.Builder

	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(s.compileProjections(q.Columns))

	b.WriteString(" FROM ")
	b.WriteString(s.compileTable(q.From))

	for _, j := range q.Joins {
		on, err := s.compilePredicate(j.On)
		if err != nil {
			return "", fmt.Errorf("compile join %s: %w", j.Table.Alias, err)
		}
		switch j.Kind {
		case queryir.LeftJoin:
			b.WriteString(" LEFT JOIN ")
		default:
			b.WriteString(" INNER JOIN ")
		}
		b.WriteString(s.compileTable(j.Table))
		b.WriteString(" ON ")
		b.WriteString(on)
	}

	if q.Where != nil {
		where, err := s.compilePredicate(q.Where)
		if err != nil {
			return "", fmt.Errorf("compile where: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := o.Direction
			if dir == "" {
				dir = queryir.Asc
			}
			terms[i] = s.compileColumn(o.Column) + " " + string(dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	b.WriteString(s.c.Dialect.LimitOffset(q.Limit, q.Offset))

	return b.String(), nil
}

// compileCount wraps the source in SELECT COUNT(*) over its distinct rows.
func (s *compileState) compileCount(q queryir.Count) (string, error) {
	src := q.Source
	src.Distinct = true
	src.OrderBy = nil
	src.Limit = 0
	src.Offset = 0

	inner, err := s.compileSelect(src)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) AS %s FROM (%s) %s",
		s.quote("count"), inner, s.quote("counted")), nil
}

// compileProjections renders the SELECT list. Keeps declaration order;
// callers rely on it for deterministic output.
func (s *compileState) compileProjections(cols []queryir.Projection) string {
	if len(cols) == 0 {
		return "*"
	}
	parts := make([]string, len(cols))
	for i, p := range cols {
		if p.As == "" {
			parts[i] = s.compileColumn(p.Column)
			continue
		}
		parts[i] = s.compileColumn(p.Column) + " AS " + s.quote(p.As)
	}
	return strings.Join(parts, ", ")
}

func (s *compileState) compileTable(t queryir.Table) string {
	if t.Alias == "" || t.Alias == t.Name {
		return s.quote(t.Name)
	}
	return s.quote(t.Name) + " " + s.quote(t.Alias)
}

func (s *compileState) compileColumn(c queryir.Column) string {
	if c.Table == "" {
		return s.quote(c.Name)
	}
	return s.quote(c.Table) + "." + s.quote(c.Name)
}

// compilePredicate compiles a predicate to a SQL boolean expression.
// CRITICAL: Values NEVER interpolated - always placeholders.
func (s *compileState) compilePredicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil
	case queryir.Equals:
		return s.binary(pred.Left, "=", pred.Right)
	case queryir.Between:
		v, err := s.compileOperand(pred.Value)
		if err != nil {
			return "", err
		}
		lo, err := s.compileOperand(pred.Low)
		if err != nil {
			return "", err
		}
		hi, err := s.compileOperand(pred.High)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", v, lo, hi), nil
	case queryir.IsNull:
		v, err := s.compileOperand(pred.Operand)
		if err != nil {
			return "", err
		}
		return v + " IS NULL", nil
	case queryir.PrefixMatch:
		v, err := s.compileOperand(pred.Value)
		if err != nil {
			return "", err
		}
		prefix, err := s.compileOperand(pred.Prefix)
		if err != nil {
			return "", err
		}
		return s.c.Dialect.PathPrefix(v, prefix, pred.Suffix), nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil // vacuous truth
		}
		parts := make([]string, len(pred.Predicates))
		for i, inner := range pred.Predicates {
			sql, err := s.compilePredicate(inner)
			if err != nil {
				return "", err
			}
			parts[i] = sql
		}
		return strings.Join(parts, " AND "), nil
	case queryir.Or:
		parts := make([]string, len(pred.Predicates))
		for i, inner := range pred.Predicates {
			sql, err := s.compilePredicate(inner)
			if err != nil {
				return "", err
			}
			parts[i] = sql
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case queryir.Not:
		inner, err := s.compilePredicate(pred.Predicate)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (s *compileState) binary(left queryir.Operand, op string, right queryir.Operand) (string, error) {
	l, err := s.compileOperand(left)
	if err != nil {
		return "", err
	}
	r, err := s.compileOperand(right)
	if err != nil {
		return "", err
	}
	return l + " " + op + " " + r, nil
}

func (s *compileState) compileOperand(o queryir.Operand) (string, error) {
	switch op := o.(type) {
	case queryir.Column:
		return s.compileColumn(op), nil
	case queryir.Param:
		return s.bind(op.Name)
	case queryir.Subquery:
		sub, err := s.compileSelect(op.Query)
		if err != nil {
			return "", fmt.Errorf("compile subquery: %w", err)
		}
		return "(" + sub + ")", nil
	default:
		return "", fmt.Errorf("unsupported operand type: %T", o)
	}
}

// bind appends the named parameter's value and returns its placeholder.
// Dialects with numbered placeholders reuse the first position of a name.
func (s *compileState) bind(name string) (string, error) {
	val, ok := s.c.Params[name]
	if !ok {
		return "", fmt.Errorf("no value bound for parameter %q", name)
	}
	if s.c.Dialect.NumberedPlaceholders() {
		if pos, seen := s.positions[name]; seen {
			return s.c.Dialect.Placeholder(pos), nil
		}
	}
	s.args = append(s.args, val)
	pos := len(s.args)
	s.positions[name] = pos
	return s.c.Dialect.Placeholder(pos), nil
}
