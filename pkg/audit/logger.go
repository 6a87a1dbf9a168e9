// Package audit records the settlement engine's domain events as
// structured JSON. Every successful state transition emits exactly one
// event; sinks are pluggable so the same stream can feed stdout and a
// durable journal.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the event.
type EventType string

const (
	EventMutation EventType = "MUTATION"
	EventSystem   EventType = "SYSTEM"
)

// Actions emitted by the settlement engine.
const (
	ActionVenueCreated            = "venue.created"
	ActionVenueFilteringSet       = "venue.filtering_set"
	ActionVenuesAllowed           = "venue.allowed"
	ActionVenuesDisallowed        = "venue.disallowed"
	ActionInstructionCreated      = "instruction.created"
	ActionInstructionAuthorized   = "instruction.authorized"
	ActionInstructionUnauthorized = "instruction.unauthorized"
	ActionInstructionRejected     = "instruction.rejected"
	ActionInstructionExecuted     = "instruction.executed"
	ActionInstructionFailed       = "instruction.failed"
	ActionReceiptClaimed          = "receipt.claimed"
	ActionReceiptUnclaimed        = "receipt.unclaimed"
)

// Event is a structured domain event record.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Resource  string                 `json:"resource"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Logger defines the interface for recording domain events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, actor, action, resource string, metadata map[string]interface{}) error
}

// NewEvent assembles an Event with a fresh ID and UTC timestamp.
func NewEvent(eventType EventType, actor, action, resource string, metadata map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// logger implements Logger, writing JSON lines to a configurable Writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogger creates a Logger writing to os.Stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &logger{writer: w}
}

func (l *logger) Record(_ context.Context, eventType EventType, actor, action, resource string, metadata map[string]interface{}) error {
	event := NewEvent(eventType, actor, action, resource, metadata)

	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = l.writer.Write(append(raw, '\n'))
	return err
}

// tee fans Record out to several sinks, failing on the first error.
type tee struct {
	sinks []Logger
}

// Tee combines loggers into one. Nil sinks are skipped.
func Tee(sinks ...Logger) Logger {
	kept := make([]Logger, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &tee{sinks: kept}
}

func (t *tee) Record(ctx context.Context, eventType EventType, actor, action, resource string, metadata map[string]interface{}) error {
	for _, s := range t.sinks {
		if err := s.Record(ctx, eventType, actor, action, resource, metadata); err != nil {
			return err
		}
	}
	return nil
}

// Discard is a Logger that drops every event. Useful in tests.
type Discard struct{}

func (Discard) Record(context.Context, EventType, string, string, string, map[string]interface{}) error {
	return nil
}
