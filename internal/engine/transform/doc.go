// Package transform implements atomic, reversible document changes.
//
// A Step is one primitive change (insert, delete a range, replace a range,
// set a node attribute, wrap blocks, add or remove a mark). Applying a step
// yields a new document plus the StepMap describing how positions moved.
// Every step can produce its inverse from the document it applies to,
// which is what history uses for exact undo.
//
// A Transaction groups steps against one document version. Apply runs the
// steps in order and is all-or-nothing: if any step fails, or the final
// document does not validate against the schema, Apply returns a
// TransactionError and no partial result.
//
// Transactions are usually built incrementally:
//
//	tr := transform.NewTransaction(doc, version)
//	if err := tr.Insert(pos, node); err != nil {
//		return err
//	}
//	tr.SetSelection(selection.Cursor(pos + 1))
//
// The builder applies each step as it is added, so later steps can be
// computed against tr.Doc().
package transform
