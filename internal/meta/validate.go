package meta

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports one problem with entity metadata.
type ValidationError struct {
	Entity  string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entity %s: %s: %s", e.Entity, e.Field, e.Message)
}

// Validate checks that metadata is internally consistent. All problems are
// reported, joined with errors.Join.
//
// A nil Encoding is valid: the entity is simply not a tree entity.
func Validate(m *EntityMetadata) error {
	if m == nil {
		return &ValidationError{Field: "metadata", Message: "metadata is nil"}
	}
	v := &validator{md: m}
	v.validate()
	return errors.Join(v.errs...)
}

type validator struct {
	md   *EntityMetadata
	errs []error
}

func (v *validator) addError(field, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{
		Entity:  v.md.Name,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) owns(c *Column) bool {
	for _, own := range v.md.Columns {
		if own == c {
			return true
		}
	}
	return false
}

func (v *validator) validate() {
	m := v.md
	if m.Name == "" {
		v.addError("name", "name is required")
	}
	if m.TableName == "" {
		v.addError("table", "table name is required")
	}

	props := make(map[string]bool)
	names := make(map[string]bool)
	for _, c := range m.Columns {
		if c.PropertyName == "" || c.DatabaseName == "" {
			v.addError("columns", "column needs both a property and a database name")
			continue
		}
		if props[c.PropertyName] {
			v.addError("columns", "duplicate property %q", c.PropertyName)
		}
		if names[c.DatabaseName] {
			v.addError("columns", "duplicate column %q", c.DatabaseName)
		}
		props[c.PropertyName] = true
		names[c.DatabaseName] = true
	}
	if len(m.PrimaryColumns()) == 0 {
		v.addError("columns", "at least one primary column is required")
	}

	v.validateParent()
	v.validateEncoding()
	v.validateRelations()
}

func (v *validator) validateParent() {
	rel := v.md.ParentRelation
	if rel == nil {
		if v.md.Encoding != nil {
			v.addError("parent", "tree entities need a parent relation")
		}
		return
	}
	if len(rel.JoinColumns) == 0 {
		v.addError("parent", "parent relation has no join columns")
	}
	for _, jc := range rel.JoinColumns {
		if !v.owns(jc) {
			v.addError("parent", "join column %q is not a column of the entity", jc.PropertyName)
		}
		if jc.ReferencedColumn == nil || !v.owns(jc.ReferencedColumn) {
			v.addError("parent", "join column %q must reference a column of the entity", jc.PropertyName)
		}
	}
}

func (v *validator) validateEncoding() {
	switch enc := v.md.Encoding.(type) {
	case nil:
	case *ClosureTable:
		if enc.TableName == "" {
			v.addError("closure", "junction table name is required")
		}
		if len(enc.AncestorColumns) == 0 || len(enc.AncestorColumns) != len(enc.DescendantColumns) {
			v.addError("closure", "ancestor and descendant columns must be non-empty and of equal length")
		}
		for _, c := range append(append([]*Column{}, enc.AncestorColumns...), enc.DescendantColumns...) {
			if c.DatabaseName == "" {
				v.addError("closure", "junction column needs a database name")
			}
			if c.ReferencedColumn == nil || !v.owns(c.ReferencedColumn) {
				v.addError("closure", "junction column %q must reference a column of the entity", c.DatabaseName)
			}
		}
	case *NestedSet:
		if enc.Left == nil || !v.owns(enc.Left) {
			v.addError("nested_set", "left column must be a column of the entity")
		}
		if enc.Right == nil || !v.owns(enc.Right) {
			v.addError("nested_set", "right column must be a column of the entity")
		}
	case *MaterializedPath:
		if enc.Path == nil || !v.owns(enc.Path) {
			v.addError("materialized_path", "path column must be a column of the entity")
		}
		if strings.ContainsAny(enc.Separator, `%_'\`) {
			v.addError("materialized_path", "separator %q must not contain LIKE wildcards, quotes or backslashes", enc.Separator)
		}
	}
}

func (v *validator) validateRelations() {
	seen := make(map[string]bool)
	for _, r := range v.md.Relations {
		if r.PropertyName == "" {
			v.addError("relations", "relation needs a property name")
			continue
		}
		if seen[r.PropertyName] {
			v.addError("relations", "duplicate relation %q", r.PropertyName)
		}
		seen[r.PropertyName] = true
		if r.Target == nil {
			v.addError("relations", "relation %q has no target", r.PropertyName)
			continue
		}
		if len(r.JoinColumns) == 0 {
			v.addError("relations", "relation %q has no join columns", r.PropertyName)
		}
		for _, jc := range r.JoinColumns {
			if !v.owns(jc) {
				v.addError("relations", "relation %q join column %q is not a column of the entity", r.PropertyName, jc.PropertyName)
			}
			if jc.ReferencedColumn == nil {
				v.addError("relations", "relation %q join column %q references nothing", r.PropertyName, jc.PropertyName)
			}
		}
	}
}
