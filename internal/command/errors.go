package command

import (
	"errors"
	"fmt"
)

// Command errors.
var (
	// ErrCommand is matched by every CommandError.
	ErrCommand = errors.New("command: failed")

	// ErrUnknownCommand indicates no command is registered under a name.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrDuplicateCommand indicates a name is already registered.
	ErrDuplicateCommand = errors.New("command: already registered")

	// ErrInvalidCommand indicates an empty name or nil command.
	ErrInvalidCommand = errors.New("command: invalid command")
)

// CommandError reports a command that could not produce or apply its
// transaction.
type CommandError struct {
	// Command is the command name.
	Command string

	// Reason describes an unmet precondition.
	Reason string

	// Err is the underlying error, such as a transform.TransactionError.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("command %s: %s: %v", e.Command, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("command %s: %s", e.Command, e.Reason)
	default:
		return fmt.Sprintf("command %s: %v", e.Command, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error { return e.Err }

// Is matches ErrCommand.
func (e *CommandError) Is(target error) bool { return target == ErrCommand }

// failf returns a precondition failure. The dispatcher fills in the
// command name.
func failf(format string, args ...any) error {
	return &CommandError{Reason: fmt.Sprintf(format, args...)}
}
