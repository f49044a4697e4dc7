package queryir

// Query represents a complete query in the IR.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: row-producing query
//   - Count: number of distinct rows of a Select
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a boolean condition (WHERE or JOIN ... ON).
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Operand represents a value expression inside a predicate.
//
// This is a sealed interface - only types in this package implement it.
type Operand interface {
	operandNode() // Marker method - seals interface to this package
}

// Table is a table reference with its alias.
type Table struct {
	Name  string
	Alias string
}

// Projection is one selected column and its result name.
//
// Result names follow the "<alias>_<column>" convention so raw rows from
// joins never collide.
type Projection struct {
	Column Column
	As     string
}

// JoinKind selects the join type.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Join joins another table into a Select.
type Join struct {
	Kind  JoinKind
	Table Table
	On    Predicate
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY term.
type Order struct {
	Column    Column
	Direction Direction
}

// Select is a row-producing query.
//
// Semantics:
//
//	SELECT [DISTINCT] <columns> FROM <from> <joins> WHERE <where>
//	ORDER BY <order> LIMIT <limit> OFFSET <offset>
//
// Limit and Offset are ignored when zero.
type Select struct {
	Distinct bool
	Columns  []Projection
	From     Table
	Joins    []Join
	Where    Predicate // nil = no filter
	OrderBy  []Order
	Limit    int
	Offset   int
}

func (Select) queryNode() {}

// Count counts the distinct rows produced by Source.
//
// Semantics:
//
//	SELECT COUNT(*) FROM (SELECT DISTINCT <source columns> ...) counted
//
// The source's ORDER BY, LIMIT and OFFSET are dropped. Callers project the
// identity columns in Source so joins cannot inflate the count.
type Count struct {
	Source Select
}

func (Count) queryNode() {}

// Column references a column through a table alias.
type Column struct {
	Table string // alias, empty for unqualified
	Name  string
}

func (Column) operandNode() {}

// Param is a named bind parameter. Its value is supplied at compile time.
type Param struct {
	Name string
}

func (Param) operandNode() {}

// Subquery is a scalar subquery used as an operand. It must produce at
// most one row with one column.
type Subquery struct {
	Query Select
}

func (Subquery) operandNode() {}

// Equals is "left = right".
type Equals struct {
	Left  Operand
	Right Operand
}

func (Equals) predicateNode() {}

// Between is "value BETWEEN low AND high" (inclusive).
type Between struct {
	Value Operand
	Low   Operand
	High  Operand
}

func (Between) predicateNode() {}

// IsNull is "operand IS NULL".
type IsNull struct {
	Operand Operand
}

func (IsNull) predicateNode() {}

// PrefixMatch matches when Value starts with Prefix followed by Suffix,
// where Suffix is a LIKE pattern tail such as "%" or ".%".
//
// Semantics:
//
//	<value> LIKE <prefix> || '<suffix>'
//
// The concatenation is rendered by the dialect.
type PrefixMatch struct {
	Value  Operand
	Prefix Operand
	Suffix string
}

func (PrefixMatch) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. It is always rendered parenthesized.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Col is a shorthand for Column{Table: alias, Name: name}.
func Col(alias, name string) Column {
	return Column{Table: alias, Name: name}
}

// P is a shorthand for Param{Name: name}.
func P(name string) Param {
	return Param{Name: name}
}

// AllOf combines predicates with AND, dropping nils and flattening nested
// Ands. It returns nil when nothing remains and the single predicate when
// only one remains.
func AllOf(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch pred := p.(type) {
		case nil:
		case And:
			if inner := AllOf(pred.Predicates...); inner != nil {
				if and, ok := inner.(And); ok {
					flat = append(flat, and.Predicates...)
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, pred)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return And{Predicates: flat}
	}
}
