// Package selection provides the selection model of the folio engine.
//
// A Selection is an immutable value. Text selections use an anchor/head
// model where Anchor is where the selection started and Head is where
// typing occurs; Anchor == Head is a cursor. Node selections select exactly
// one node: Anchor is the position before it and Head the position after.
//
// Positions in a selection belong to one document version. After every
// transaction the selection must be mapped before reuse:
//
//	sel = sel.Map(newDoc, result.Mapping)
//
// Mapping never fails. A position inside a deleted range moves to the start
// of that range, results are clamped to the document bounds, and a node
// selection whose node was removed or replaced collapses to a cursor.
package selection
