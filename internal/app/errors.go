package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrDocumentNotFound means no open document has the given id.
	ErrDocumentNotFound = errors.New("app: document not found")

	// ErrDocumentAlreadyOpen means a document with the id is already open.
	ErrDocumentAlreadyOpen = errors.New("app: document already open")

	// ErrUnsavedChanges means a document was closed with edits that were
	// never saved.
	ErrUnsavedChanges = errors.New("app: document has unsaved changes")

	// ErrUploadsPending means a document was closed while uploads were
	// still running.
	ErrUploadsPending = errors.New("app: uploads still pending")

	// ErrNoUploader means uploads were requested without an upload backend.
	ErrNoUploader = errors.New("app: no upload backend configured")

	// ErrNoConfigFile means the configuration cannot be watched because it
	// was not loaded from a file.
	ErrNoConfigFile = errors.New("app: no configuration file")

	// ErrShutdown means the application is shutting down.
	ErrShutdown = errors.New("app: shut down")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("app: init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// DocumentError wraps a failure on one document.
type DocumentError struct {
	Op  string
	ID  string
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("app: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
