package meta

// Kind names an encoding.
type Kind string

const (
	KindClosureTable     Kind = "closure-table"
	KindNestedSet        Kind = "nested-set"
	KindMaterializedPath Kind = "materialized-path"
)

// Kinds lists every supported encoding kind.
var Kinds = []Kind{KindClosureTable, KindNestedSet, KindMaterializedPath}

// Encoding is the physical tree encoding of an entity.
//
// This is a sealed interface: only types in this package implement it.
type Encoding interface {
	Kind() Kind
	encoding()
}

// ClosureTable stores every reachable (ancestor, descendant) pair in a
// junction table, self-pairs included.
//
// Each ancestor and descendant column references a column of the entity
// table (normally a primary key column) through ReferencedColumn.
type ClosureTable struct {
	TableName         string
	AncestorColumns   []*Column
	DescendantColumns []*Column
}

func (*ClosureTable) Kind() Kind { return KindClosureTable }
func (*ClosureTable) encoding()  {}

// NestedSet stores a [Left, Right] interval per node. A node's subtree is
// every node whose Left lies inside that interval.
type NestedSet struct {
	Left  *Column
	Right *Column
}

func (*NestedSet) Kind() Kind { return KindNestedSet }
func (*NestedSet) encoding()  {}

// MaterializedPath stores the chain of ancestor identifiers in one string
// column. A node's path is a prefix of all its descendants' paths.
//
// With a non-empty Separator, paths are stored without a trailing
// separator ("1", "1.2", "1.2.3") and prefix matching appends the
// separator, so "1" never matches "10". With an empty Separator the
// stored paths are expected to carry their own trailing delimiter
// ("1.", "1.2.") and matching appends only the wildcard.
type MaterializedPath struct {
	Path      *Column
	Separator string
}

func (*MaterializedPath) Kind() Kind { return KindMaterializedPath }
func (*MaterializedPath) encoding()  {}

// LikeSuffix returns the literal appended to a path to form a LIKE
// pattern that matches strict descendants.
func (m *MaterializedPath) LikeSuffix() string {
	return m.Separator + "%"
}
