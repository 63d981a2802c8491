package schema

import (
	"errors"
	"fmt"
)

// Errors returned by schema operations.
var (
	// ErrSchema is wrapped by every SchemaError.
	ErrSchema = errors.New("schema: invalid schema")

	// ErrUnknownType indicates a node or mark type is not registered.
	ErrUnknownType = errors.New("schema: unknown type")

	// ErrInvalidAttr indicates an attribute value failed validation.
	ErrInvalidAttr = errors.New("schema: invalid attribute")

	// ErrCannotFill indicates no valid default content exists for a type.
	ErrCannotFill = errors.New("schema: cannot create default content")
)

// SchemaError reports a malformed registration. It is fatal at startup.
type SchemaError struct {
	// Type is the node or mark type being registered.
	Type string
	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: type %q: %s", e.Type, e.Reason)
}

// Unwrap returns ErrSchema.
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// AttrError reports an attribute that does not satisfy its spec.
type AttrError struct {
	Type   string
	Attr   string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *AttrError) Error() string {
	return fmt.Sprintf("schema: %s.%s: %s (value: %v)", e.Type, e.Attr, e.Reason, e.Value)
}

// Unwrap returns ErrInvalidAttr.
func (e *AttrError) Unwrap() error {
	return ErrInvalidAttr
}
