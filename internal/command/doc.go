// Package command provides the named editing commands of the document
// editor and the dispatcher that runs them.
//
// A Command is a pure function from an editor state and parameters to a
// transaction. Commands never touch the editor; the Dispatcher applies
// the transaction they describe:
//
//	d := command.NewWithDefaults()
//	tr, err := d.Execute(ctx, editor, command.DuplicateNode, nil)
//
// CanApply runs a command without applying it, for enabling UI controls.
// A command whose preconditions fail returns a *CommandError.
//
// The slash menu is a Catalog of items naming a command and its
// parameters, filtered with fuzzy matching.
package command
