// Package model implements the immutable document tree of the folio engine.
//
// A document is a tree of typed nodes obeying a schema.Registry. Nodes are
// never modified in place: every structural change (Replace, DeleteRange,
// Wrap, SetAttr, AddMark, RemoveMark) returns a new root plus a StepMap
// describing how positions moved. Unchanged subtrees are shared between the
// old and the new tree.
//
// # Positions
//
// Positions are integer offsets into the flattened document. Entering or
// leaving a non-leaf node counts as one token; a text node counts one per
// grapheme cluster; an atomic leaf counts as one. The root's own boundary
// tokens are not addressable, so valid positions are [0, doc.ContentSize()].
//
//	doc(paragraph("Hi"), divider)
//	   0   1  2  3   4       5
//
// Positions belong to one document version. Before reusing a position
// against a newer document, map it through the Mapping of every step in
// between:
//
//	newDoc, m, err := model.Replace(doc, 1, 3, nil)
//	pos = m.Map(pos, -1)
//
// # Resolving
//
// Resolve turns a position into a ResolvedPos exposing the parent chain,
// child indices and depth-relative boundaries. NodeAt returns the innermost
// node strictly containing a position.
package model
