// Package schema provides the schema registry for the folio document engine.
//
// A schema declares which node and mark types may appear in a document,
// which children each node type accepts, and which attributes it carries.
//
// # Node Types
//
// Node types are registered from a NodeSpec:
//
//	reg := schema.NewRegistry()
//	reg.Register(schema.NodeSpec{Name: "text", Group: "inline", Text: true})
//	reg.Register(schema.NodeSpec{Name: "paragraph", Content: "inline*", Group: "block"})
//	reg.Register(schema.NodeSpec{Name: "doc", Content: "block+"})
//
// Registration fails with a *SchemaError when the name is taken or when the
// content expression references a type or group that has not been declared.
//
// # Content Expressions
//
// Content expressions describe the allowed sequence of children:
//
//	paragraph+                  one or more paragraphs
//	cardHeader cardContent      exactly a header followed by a content node
//	heading? block*             optional heading, then any blocks
//	(paragraph | image)+        alternation
//	column{2,4}                 between two and four columns
//
// Terms name either a node type or a group. Each expression is compiled
// into a finite automaton once, at registration time. Group membership is
// resolved while matching, so a type registered later still joins the groups
// it declares.
//
// # Flags
//
// NodeType exposes typed predicates (IsAtom, IsIsolating, IsDefining,
// IsSelectable, IsTextblock) rather than requiring callers to compare names.
package schema
