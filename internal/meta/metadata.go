package meta

import (
	"fmt"
	"strings"
)

// Column describes one database column.
//
// For foreign-key style columns (parent join columns, closure junction
// columns, relation join columns) ReferencedColumn points at the column
// the value refers to.
type Column struct {
	PropertyName     string
	DatabaseName     string
	Primary          bool
	ReferencedColumn *Column
}

// ValueOf reads the column's value off an entity.
func (c *Column) ValueOf(e *Entity) any {
	return e.Get(c.PropertyName)
}

// ParameterName returns a bind-parameter name derived from the property
// name. Dots from nested property paths become underscores.
func (c *Column) ParameterName() string {
	return strings.ReplaceAll(c.PropertyName, ".", "_")
}

// TreeRelation is the self-referential parent relation of a tree entity.
// Each join column is a column of the entity table whose ReferencedColumn
// is another column of the same table.
type TreeRelation struct {
	PropertyName string
	JoinColumns  []*Column
}

// ReferencedColumns returns the columns the parent relation points at.
func (r *TreeRelation) ReferencedColumns() []*Column {
	cols := make([]*Column, len(r.JoinColumns))
	for i, jc := range r.JoinColumns {
		cols[i] = jc.ReferencedColumn
	}
	return cols
}

// Relation is a many-to-one relation that can be eagerly loaded alongside
// tree queries.
type Relation struct {
	PropertyName string
	Target       *EntityMetadata
	JoinColumns  []*Column
}

// EntityMetadata describes a tree entity type.
type EntityMetadata struct {
	Name           string
	TableName      string
	Columns        []*Column
	ParentRelation *TreeRelation
	Relations      []*Relation
	Encoding       Encoding
}

// PrimaryColumns returns the primary key columns in declaration order.
func (m *EntityMetadata) PrimaryColumns() []*Column {
	var cols []*Column
	for _, c := range m.Columns {
		if c.Primary {
			cols = append(cols, c)
		}
	}
	return cols
}

// Column looks up a column by property name.
func (m *EntityMetadata) Column(property string) *Column {
	for _, c := range m.Columns {
		if c.PropertyName == property {
			return c
		}
	}
	return nil
}

// Relation looks up a many-to-one relation by property name.
func (m *EntityMetadata) Relation(property string) *Relation {
	for _, r := range m.Relations {
		if r.PropertyName == property {
			return r
		}
	}
	return nil
}

// IsTree reports whether the entity has a tree encoding.
func (m *EntityMetadata) IsTree() bool {
	return m.Encoding != nil
}

// IdentityOf returns the primary key values of an entity keyed by
// property name.
func (m *EntityMetadata) IdentityOf(e *Entity) map[string]any {
	pks := m.PrimaryColumns()
	id := make(map[string]any, len(pks))
	for _, c := range pks {
		id[c.PropertyName] = c.ValueOf(e)
	}
	return id
}

// KeyOf returns the identity key of an entity built from its primary key
// values. ok is false when any key value is missing.
func (m *EntityMetadata) KeyOf(e *Entity) (string, bool) {
	return KeyOfColumns(e, m.PrimaryColumns())
}

// ReferenceKeyOf returns the key the parent relation refers to: the
// values of the parent join columns' referenced columns. Child rows carry
// the same key in their parent join columns.
func (m *EntityMetadata) ReferenceKeyOf(e *Entity) (string, bool) {
	if m.ParentRelation == nil {
		return m.KeyOf(e)
	}
	return KeyOfColumns(e, m.ParentRelation.ReferencedColumns())
}

// ParentKeyOf returns the key held in an entity's parent join columns.
// ok is false for roots.
func (m *EntityMetadata) ParentKeyOf(e *Entity) (string, bool) {
	if m.ParentRelation == nil {
		return "", false
	}
	return KeyOfColumns(e, m.ParentRelation.JoinColumns)
}

// RequiredColumns returns the columns tree assembly cannot work without:
// primary key, parent join columns and their referenced columns.
func (m *EntityMetadata) RequiredColumns() []*Column {
	seen := make(map[*Column]bool)
	var cols []*Column
	add := func(c *Column) {
		if c != nil && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, c := range m.PrimaryColumns() {
		add(c)
	}
	if m.ParentRelation != nil {
		for _, jc := range m.ParentRelation.JoinColumns {
			add(jc)
			add(jc.ReferencedColumn)
		}
	}
	return cols
}

// String implements fmt.Stringer.
func (m *EntityMetadata) String() string {
	kind := "plain"
	if m.Encoding != nil {
		kind = string(m.Encoding.Kind())
	}
	return fmt.Sprintf("%s(%s, %s)", m.Name, m.TableName, kind)
}
