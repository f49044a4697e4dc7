// Package tree reads hierarchical data stored with one of three
// relational encodings: closure table, nested set or materialized path.
//
// A TreeRepository turns "ancestors or descendants of X" into an
// encoding-specific query, executes it, and for the tree variants
// reassembles the flat rows into a tree through meta.Entity's Parent and
// Children fields:
//
//	[traversal query] → [raw rows + entities] → [relation map] → [assembler]
//
// Flat finds and counts never include the reference node. Tree
// assembly fetches the reference row too, so its own parent link is
// available for ancestor chains.
//
// An entity without an encoding fails every traversal with a
// ConfigurationError. Execution errors from the database are returned
// unchanged.
package tree
