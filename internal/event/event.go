package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a typed event. Events are immutable once created.
type Event[T any] struct {
	Type     Topic
	Payload  T
	Metadata Metadata
}

// Metadata is attached to every event.
type Metadata struct {
	ID        string
	Timestamp time.Time

	// Source identifies the publishing component, e.g. "engine".
	Source string

	// CorrelationID links related events, such as the start and
	// completion of one upload.
	CorrelationID string
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent[T any](t Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    t,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// WithCorrelation returns a copy with the correlation id set.
func (e Event[T]) WithCorrelation(id string) Event[T] {
	e.Metadata.CorrelationID = id
	return e
}

// EventTopic implements TopicProvider.
func (e Event[T]) EventTopic() Topic { return e.Type }

// EventMetadata implements MetadataProvider.
func (e Event[T]) EventMetadata() Metadata { return e.Metadata }

// TopicProvider is implemented by anything the bus can route.
type TopicProvider interface {
	EventTopic() Topic
}

// MetadataProvider is implemented by events carrying metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}
