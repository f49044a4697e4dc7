// Package schema compiles CUE entity definitions into tree metadata.
//
// Entities live under the top-level "entity" struct:
//
//	entity: Category: {
//		table: "category"
//		columns: {
//			id:       {name: "id", primary: true}
//			parentId: {name: "parent_id"}
//			ownerId:  {name: "user_id"}
//		}
//		parent: {parentId: "id"}
//		relations: owner: {target: "User", columns: {ownerId: "id"}}
//		tree: {
//			encoding: "closure-table"
//			closure: {
//				table:      "category_closure"
//				ancestor:   {id: "ancestor_id"}
//				descendant: {id: "descendant_id"}
//			}
//		}
//	}
//
// Column keys are property names; "name" is the database column. parent
// maps each parent join property to the property it references. A nested
// set names its bound properties (tree: {encoding: "nested-set", left:
// "nsleft", right: "nsright"}), a materialized path its path property and
// optional separator. Entities without a tree block compile to plain
// metadata usable as relation targets.
package schema
