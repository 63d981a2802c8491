// Package history provides undo/redo for the folio editing engine.
//
// Each committed transaction that opts into history becomes an Entry: the
// steps that were applied, the inverse steps computed from the document
// before them, and the selection before and after. The History keeps two
// stacks:
//
//	h := history.New(0) // unbounded
//	h.Push(entry)
//
//	// Undo pops the newest entry and hands it to apply; the entry apply
//	// returns goes onto the redo stack.
//	h.Undo(func(e *history.Entry) (*history.Entry, error) { ... })
//
// Pushing after an undo clears the redo stack. With a cap, the oldest
// entries are evicted first.
//
// # Unrecorded transactions
//
// Transactions that skip history (upload completions, external edits)
// still move positions. Remap maps every stored step and selection through
// their mapping so later undos target the right content.
//
// # Grouping
//
// Entries pushed between BeginGroup and EndGroup undo as one unit:
//
//	defer h.GroupScope("Paste gallery").End()
package history
