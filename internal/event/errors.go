package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	ErrBusNotRunning        = errors.New("event: bus is not running")
	ErrBusAlreadyRunning    = errors.New("event: bus is already running")
	ErrInvalidEvent         = errors.New("event: invalid event")
	ErrInvalidTopic         = errors.New("event: invalid topic")
	ErrNilHandler           = errors.New("event: handler cannot be nil")
	ErrSubscriptionNotFound = errors.New("event: subscription not found")
	ErrHandlerPanic         = errors.New("event: handler panicked")
)

// HandlerError wraps an error returned by a sync handler.
type HandlerError struct {
	SubscriptionID string
	Topic          Topic
	Err            error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("event: handler %s on %s: %v", e.SubscriptionID, e.Topic, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PanicError records a recovered handler panic.
type PanicError struct {
	SubscriptionID string
	Topic          Topic
	Value          any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("event: handler %s on %s panicked: %v", e.SubscriptionID, e.Topic, e.Value)
}

// Is matches ErrHandlerPanic.
func (e *PanicError) Is(target error) bool { return target == ErrHandlerPanic }
