// Package queryir provides the query intermediate representation used by
// arbor's tree traversals.
//
// The IR is the boundary between query construction (which knows about
// entities, encodings and aliases) and SQL generation (which knows about
// dialects, quoting and placeholders):
//
//	[tree traversal] → [query builder] → [Query IR] → [SQL compiler] → SQL + args
//
// SUPPORTED FRAGMENT:
//
//   - Select(columns, from, joins, where, order by, limit, offset)
//   - Count(source) - counts distinct rows of a Select without hydrating them
//   - Inner and left joins with arbitrary ON predicates
//   - Predicates: Equals, Between, IsNull, PrefixMatch, And, Or, Not
//   - Operands: Column, Param (named bind parameter), Subquery (scalar)
//
// Values never appear in the IR. Every value is a named Param whose value
// is supplied to the compiler separately, so generated SQL is always
// parameterized. Identifiers (tables, aliases, columns) are kept raw here
// and quoted by the dialect during compilation.
//
// SEALED INTERFACES:
//
// Query, Predicate and Operand are sealed interfaces using the marker
// method pattern. Only types in this package implement them, which lets
// the compiler switch over them exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Between:
//	...
//	default:
//	    // unreachable for well-formed IR
//	}
//
// PrefixMatch is the one dialect-sensitive predicate: "value starts with
// prefix" is rendered as a LIKE against a concatenation, and string
// concatenation differs between SQL dialects.
package queryir
