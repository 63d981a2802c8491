package serial

import (
	"errors"
	"fmt"
)

// Errors returned by the codecs.
var (
	// ErrUnknownType is wrapped by UnknownNodeTypeError.
	ErrUnknownType = errors.New("serial: unknown type")

	// ErrMalformed indicates input that is not a document tree.
	ErrMalformed = errors.New("serial: malformed document")
)

// UnknownNodeTypeError reports a node or mark type absent from the
// registry. Kind is "node" or "mark".
type UnknownNodeTypeError struct {
	Kind string
	Type string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("serial: unknown %s type %q", e.Kind, e.Type)
}

// Unwrap returns ErrUnknownType.
func (e *UnknownNodeTypeError) Unwrap() error { return ErrUnknownType }
