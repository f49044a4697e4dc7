package schema

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/arbor/internal/meta"
	arborerr "github.com/roach88/arbor/pkg/errors"
)

// Registry holds compiled entity metadata by entity name.
type Registry struct {
	byName map[string]*meta.EntityMetadata
}

// Entity returns the metadata of an entity.
func (r *Registry) Entity(name string) (*meta.EntityMetadata, error) {
	md, ok := r.byName[name]
	if !ok {
		return nil, arborerr.New(arborerr.CodeSchemaEntityNotFound,
			fmt.Sprintf("unknown entity %q (known: %s)", name, strings.Join(r.Names(), ", ")),
			arborerr.FieldEntity(name))
	}
	return md, nil
}

// Names returns the entity names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Trees returns the metadata of every tree entity, sorted by name.
func (r *Registry) Trees() []*meta.EntityMetadata {
	var out []*meta.EntityMetadata
	for _, n := range r.Names() {
		if md := r.byName[n]; md.IsTree() {
			out = append(out, md)
		}
	}
	return out
}

// CompileBytes compiles CUE source holding entity definitions.
func CompileBytes(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return Compile(v)
}

// Compile parses entity definitions from a CUE value.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Compilation runs in two passes: columns of every entity first, then
// parent relations, relations and tree encodings, which may refer to
// other entities' columns.
func Compile(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{Field: "entity", Message: "no entities defined", Pos: v.Pos()}
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	type pending struct {
		md *meta.EntityMetadata
		v  cue.Value
	}
	var all []pending
	reg := &Registry{byName: make(map[string]*meta.EntityMetadata)}

	for iter.Next() {
		ev := iter.Value()
		md := &meta.EntityMetadata{Name: iter.Selector().Unquoted()}

		table, err := requiredString(md.Name, ev, "table")
		if err != nil {
			return nil, err
		}
		md.TableName = table

		if md.Columns, err = parseColumns(md.Name, ev); err != nil {
			return nil, err
		}
		reg.byName[md.Name] = md
		all = append(all, pending{md: md, v: ev})
	}

	for _, p := range all {
		if err := parseParent(p.md, p.v); err != nil {
			return nil, err
		}
		if err := parseRelations(reg, p.md, p.v); err != nil {
			return nil, err
		}
		if err := parseTree(p.md, p.v); err != nil {
			return nil, err
		}
	}

	for _, p := range all {
		if err := meta.Validate(p.md); err != nil {
			return nil, &CompileError{Entity: p.md.Name, Field: "entity", Message: err.Error(), Pos: p.v.Pos()}
		}
	}
	return reg, nil
}

func parseColumns(entity string, v cue.Value) ([]*meta.Column, error) {
	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{Entity: entity, Field: "columns", Message: "columns are required", Pos: v.Pos()}
	}
	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []*meta.Column
	for iter.Next() {
		cv := iter.Value()
		col := &meta.Column{PropertyName: iter.Selector().Unquoted()}

		name, err := requiredString(entity, cv, "name")
		if err != nil {
			return nil, err
		}
		col.DatabaseName = name

		if pv := cv.LookupPath(cue.ParsePath("primary")); pv.Exists() {
			primary, err := pv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			col.Primary = primary
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// parseParent reads the self-referential parent relation:
// parent: {<join property>: <referenced property>}.
func parseParent(md *meta.EntityMetadata, v cue.Value) error {
	pv := v.LookupPath(cue.ParsePath("parent"))
	if !pv.Exists() {
		return nil
	}
	joinCols, err := mapColumns(md, md, pv)
	if err != nil {
		return err
	}
	md.ParentRelation = &meta.TreeRelation{PropertyName: "parent", JoinColumns: joinCols}
	return nil
}

func parseRelations(reg *Registry, md *meta.EntityMetadata, v cue.Value) error {
	rv := v.LookupPath(cue.ParsePath("relations"))
	if !rv.Exists() {
		return nil
	}
	iter, err := rv.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		relVal := iter.Value()
		name := iter.Selector().Unquoted()

		targetName, err := requiredString(md.Name, relVal, "target")
		if err != nil {
			return err
		}
		target, ok := reg.byName[targetName]
		if !ok {
			return &CompileError{
				Entity:  md.Name,
				Field:   "relations." + name,
				Message: fmt.Sprintf("unknown target entity %q", targetName),
				Pos:     relVal.Pos(),
			}
		}

		cv := relVal.LookupPath(cue.ParsePath("columns"))
		if !cv.Exists() {
			return &CompileError{Entity: md.Name, Field: "relations." + name, Message: "columns are required", Pos: relVal.Pos()}
		}
		joinCols, err := mapColumns(md, target, cv)
		if err != nil {
			return err
		}
		md.Relations = append(md.Relations, &meta.Relation{PropertyName: name, Target: target, JoinColumns: joinCols})
	}
	return nil
}

// mapColumns resolves {<own property>: <target property>} pairs and links
// each own column to the target column it references.
func mapColumns(md, target *meta.EntityMetadata, v cue.Value) ([]*meta.Column, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []*meta.Column
	for iter.Next() {
		prop := iter.Selector().Unquoted()
		col := md.Column(prop)
		if col == nil {
			return nil, &CompileError{Entity: md.Name, Field: prop, Message: "unknown property", Pos: iter.Value().Pos()}
		}
		refProp, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		ref := target.Column(refProp)
		if ref == nil {
			return nil, &CompileError{
				Entity:  md.Name,
				Field:   prop,
				Message: fmt.Sprintf("%s has no property %q", target.Name, refProp),
				Pos:     iter.Value().Pos(),
			}
		}
		col.ReferencedColumn = ref
		cols = append(cols, col)
	}
	return cols, nil
}

func parseTree(md *meta.EntityMetadata, v cue.Value) error {
	tv := v.LookupPath(cue.ParsePath("tree"))
	if !tv.Exists() {
		return nil
	}
	kind, err := requiredString(md.Name, tv, "encoding")
	if err != nil {
		return err
	}

	switch meta.Kind(kind) {
	case meta.KindClosureTable:
		cv := tv.LookupPath(cue.ParsePath("closure"))
		if !cv.Exists() {
			return &CompileError{Entity: md.Name, Field: "tree.closure", Message: "closure table definition is required", Pos: tv.Pos()}
		}
		table, err := requiredString(md.Name, cv, "table")
		if err != nil {
			return err
		}
		anc, err := junctionColumns(md, cv, "ancestor")
		if err != nil {
			return err
		}
		desc, err := junctionColumns(md, cv, "descendant")
		if err != nil {
			return err
		}
		md.Encoding = &meta.ClosureTable{TableName: table, AncestorColumns: anc, DescendantColumns: desc}

	case meta.KindNestedSet:
		left, err := propertyColumn(md, tv, "left")
		if err != nil {
			return err
		}
		right, err := propertyColumn(md, tv, "right")
		if err != nil {
			return err
		}
		md.Encoding = &meta.NestedSet{Left: left, Right: right}

	case meta.KindMaterializedPath:
		path, err := propertyColumn(md, tv, "path")
		if err != nil {
			return err
		}
		enc := &meta.MaterializedPath{Path: path}
		if sv := tv.LookupPath(cue.ParsePath("separator")); sv.Exists() {
			if enc.Separator, err = sv.String(); err != nil {
				return formatCUEError(err)
			}
		}
		md.Encoding = enc

	default:
		kinds := make([]string, len(meta.Kinds))
		for i, k := range meta.Kinds {
			kinds[i] = string(k)
		}
		return &CompileError{
			Entity:  md.Name,
			Field:   "tree.encoding",
			Message: fmt.Sprintf("unknown encoding %q (want one of %s)", kind, strings.Join(kinds, ", ")),
			Pos:     tv.Pos(),
		}
	}
	return nil
}

// junctionColumns reads {<referenced property>: <junction column>} pairs.
func junctionColumns(md *meta.EntityMetadata, v cue.Value, field string) ([]*meta.Column, error) {
	jv := v.LookupPath(cue.ParsePath(field))
	if !jv.Exists() {
		return nil, &CompileError{Entity: md.Name, Field: "tree.closure." + field, Message: "is required", Pos: v.Pos()}
	}
	iter, err := jv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var cols []*meta.Column
	for iter.Next() {
		refProp := iter.Selector().Unquoted()
		ref := md.Column(refProp)
		if ref == nil {
			return nil, &CompileError{Entity: md.Name, Field: "tree.closure." + field, Message: fmt.Sprintf("unknown property %q", refProp), Pos: iter.Value().Pos()}
		}
		name, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		cols = append(cols, &meta.Column{PropertyName: name, DatabaseName: name, ReferencedColumn: ref})
	}
	return cols, nil
}

func propertyColumn(md *meta.EntityMetadata, v cue.Value, field string) (*meta.Column, error) {
	prop, err := requiredString(md.Name, v, field)
	if err != nil {
		return nil, err
	}
	col := md.Column(prop)
	if col == nil {
		return nil, &CompileError{Entity: md.Name, Field: "tree." + field, Message: fmt.Sprintf("unknown property %q", prop), Pos: v.LookupPath(cue.ParsePath(field)).Pos()}
	}
	return col, nil
}

func requiredString(entity string, v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Entity: entity, Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError reports an invalid entity definition, with its CUE
// position when known.
type CompileError struct {
	Entity  string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	field := e.Field
	if e.Entity != "" {
		field = e.Entity + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			field, e.Message)
	}
	return fmt.Sprintf("%s: %s", field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
