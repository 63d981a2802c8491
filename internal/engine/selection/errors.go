package selection

import (
	"errors"
	"fmt"
)

// ErrNotSelectable is wrapped by NotSelectableError.
var ErrNotSelectable = errors.New("selection: node not selectable")

// NotSelectableError reports a node selection on a node that cannot be
// selected, or on a position with no node after it.
type NotSelectableError struct {
	Pos  int
	Type string
}

// Error implements the error interface.
func (e *NotSelectableError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("selection: no selectable node at %d", e.Pos)
	}
	return fmt.Sprintf("selection: %s at %d is not selectable", e.Type, e.Pos)
}

// Unwrap returns ErrNotSelectable.
func (e *NotSelectableError) Unwrap() error {
	return ErrNotSelectable
}
