// Package meta describes tree entities: their tables, columns, the
// self-referential parent relation, and the physical tree encoding.
//
// The encoding is a sealed variant. Only ClosureTable, NestedSet and
// MaterializedPath implement Encoding, so consumers can switch over it
// exhaustively:
//
//	switch enc := md.Encoding.(type) {
//	case *meta.ClosureTable:
//	case *meta.NestedSet:
//	case *meta.MaterializedPath:
//	default:
//	    // not a tree entity
//	}
//
// A nil Encoding describes an entity that is not a tree entity. Metadata
// of that kind is still valid (roots can be found through the parent
// relation), but every traversal over it fails with a configuration error.
//
// Entities themselves are plain records (Entity) whose values are keyed
// by property name. Tree structure lives in explicit Parent and Children
// fields rather than in the values map.
package meta
