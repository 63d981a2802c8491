package model

import (
	"errors"
	"fmt"
)

// Errors returned by tree operations.
var (
	// ErrOutOfRange is wrapped by OutOfRangeError.
	ErrOutOfRange = errors.New("model: position out of range")

	// ErrInvalidContent indicates a node's children do not match its content expression.
	ErrInvalidContent = errors.New("model: invalid content")

	// ErrInvalidMark indicates a mark that is not allowed where it is applied.
	ErrInvalidMark = errors.New("model: mark not allowed")

	// ErrCrossParent indicates a flat replace whose ends lie in different parents.
	ErrCrossParent = errors.New("model: range ends in different parents")

	// ErrIsolating indicates an operation would cross an isolating node boundary.
	ErrIsolating = errors.New("model: range crosses an isolating boundary")

	// ErrNoNode indicates no node starts at the given position.
	ErrNoNode = errors.New("model: no node at position")

	// ErrEmptyText indicates an attempt to create an empty text node.
	ErrEmptyText = errors.New("model: empty text node")
)

// OutOfRangeError reports a position outside [0, Size].
type OutOfRangeError struct {
	Pos  int
	Size int
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("model: position %d out of range [0, %d]", e.Pos, e.Size)
}

// Unwrap returns ErrOutOfRange.
func (e *OutOfRangeError) Unwrap() error {
	return ErrOutOfRange
}

// ContentError reports children that do not match a content expression.
type ContentError struct {
	Type     string
	Children []string
}

// Error implements the error interface.
func (e *ContentError) Error() string {
	return fmt.Sprintf("model: invalid content for %s: %v", e.Type, e.Children)
}

// Unwrap returns ErrInvalidContent.
func (e *ContentError) Unwrap() error {
	return ErrInvalidContent
}
