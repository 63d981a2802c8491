// Package engine provides the Editor, the single owner of a folio document.
//
// An Editor holds the current document, its version counter, the current
// selection and the undo history. Every change goes through Apply, which
// validates and commits a transform.Transaction under one mutex, so no two
// transactions are ever in flight against the same document.
//
// # Basic usage
//
//	reg := preset.MustMuseumSchema()
//	ed, err := engine.Load(reg, tree, engine.WithPublisher(bus))
//	if err != nil {
//	    return err
//	}
//
//	tr := ed.NewTransaction()
//	tr.Insert(pos, node)
//	if err := ed.Apply(ctx, tr); err != nil {
//	    // rejected atomically, document unchanged
//	}
//
//	ed.Undo(ctx)
//	tree, err = ed.Save()
//
// # Versions
//
// Each committed transaction, undo and redo increments the version.
// A transaction built against an older version is rejected with a
// transform.VersionMismatchError; callers rebuild it against State().
//
// # Events
//
// After every commit the editor publishes event.TransactionApplied with
// the transaction's mapping. Subscribers holding positions remap them.
//
// # History
//
// Transactions are recorded unless their addToHistory meta is false.
// Unrecorded transactions remap the history so later undos still target
// the right content. Group related transactions with BeginUndoGroup and
// EndUndoGroup.
package engine
