package engine

import (
	"errors"

	"github.com/dshills/folio/internal/engine/history"
)

// Errors returned by editor operations.
var (
	// ErrReadOnly indicates a write was attempted on a read-only editor.
	ErrReadOnly = errors.New("engine: editor is read-only")

	// ErrInvalidSelection indicates a selection that does not resolve in
	// the document it was set on.
	ErrInvalidSelection = errors.New("engine: invalid selection")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = history.ErrNothingToRedo
)
