package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshills/folio/internal/engine/selection"
)

// Publisher receives editor events. *event.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Metrics records editor activity. The metrics package implements it.
type Metrics interface {
	TransactionApplied(origin string, steps int, elapsed time.Duration)
	TransactionRejected(reason string)
	DocumentSize(size int)
}

type nopMetrics struct{}

func (nopMetrics) TransactionApplied(string, int, time.Duration) {}
func (nopMetrics) TransactionRejected(string)                    {}
func (nopMetrics) DocumentSize(int)                              {}

// Option configures an Editor during creation.
type Option func(*Editor)

// WithLogger sets the editor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPublisher sets where editor events are published.
func WithPublisher(p Publisher) Option {
	return func(e *Editor) {
		e.publisher = p
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Editor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithMaxUndoEntries caps the undo history. 0 means unbounded.
func WithMaxUndoEntries(max int) Option {
	return func(e *Editor) {
		if max >= 0 {
			e.maxUndoEntries = max
		}
	}
}

// WithSelection sets the initial selection. It is validated on creation
// and replaced by a cursor at the document start if it does not resolve.
func WithSelection(sel selection.Selection) Option {
	return func(e *Editor) {
		e.sel = sel
		e.selSet = true
	}
}

// WithReadOnly creates a read-only editor.
// Apply, Undo and Redo return ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Editor) {
		e.readOnly = true
	}
}
