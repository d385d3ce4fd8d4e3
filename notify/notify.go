/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Kind tags a change event.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Mode selects whether the mutating caller waits for the notifier.
type Mode int

const (
	// ModeAsync hands the event off and returns without waiting for delivery.
	ModeAsync Mode = iota
	// ModeSync blocks the caller until the notifier has accepted the event.
	ModeSync
)

func (m Mode) String() string {
	if m == ModeSync {
		return "sync"
	}
	return "async"
}

// MarshalText encodes the mode as "sync" or "async".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "sync" and "async"; the empty string means async.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "async":
		*m = ModeAsync
	case "sync":
		*m = ModeSync
	default:
		return fmt.Errorf("unknown delivery mode %q", string(text))
	}
	return nil
}

// Meta identifies the entity type and table an event belongs to.
type Meta struct {
	EntityType string
	Schema     string
	Table      string
	Mode       Mode
}

// Event is a single change notification. Insert and delete events carry
// Entities; delete images hold only identifiers. Update events carry Before,
// After and the names of the modified fields.
type Event struct {
	ID             strfmt.UUID     `json:"id"`
	Kind           Kind            `json:"kind"`
	EntityType     string          `json:"entityType"`
	Schema         string          `json:"schema,omitempty"`
	Table          string          `json:"table,omitempty"`
	Mode           Mode            `json:"mode"`
	OccurredAt     strfmt.DateTime `json:"occurredAt"`
	Entities       []any           `json:"entities,omitempty"`
	Before         []any           `json:"before,omitempty"`
	After          []any           `json:"after,omitempty"`
	ModifiedFields []string        `json:"modifiedFields,omitempty"`
}

func newEvent(kind Kind, meta Meta) *Event {
	return &Event{
		ID:         strfmt.UUID(uuid.NewString()),
		Kind:       kind,
		EntityType: meta.EntityType,
		Schema:     meta.Schema,
		Table:      meta.Table,
		Mode:       meta.Mode,
		OccurredAt: strfmt.DateTime(time.Now().UTC()),
	}
}

// NewInsertEvent builds an insert event for the stored entities.
func NewInsertEvent(meta Meta, entities []any) *Event {
	ev := newEvent(KindInsert, meta)
	ev.Entities = entities
	return ev
}

// NewDeleteEvent builds a delete event for identifier-only entity images.
func NewDeleteEvent(meta Meta, entities []any) *Event {
	ev := newEvent(KindDelete, meta)
	ev.Entities = entities
	return ev
}

// NewUpdateEvent builds an update event.
func NewUpdateEvent(meta Meta, before, after []any, modifiedFields []string) *Event {
	ev := newEvent(KindUpdate, meta)
	ev.Before = before
	ev.After = after
	ev.ModifiedFields = modifiedFields
	return ev
}

// Async reports whether the event was emitted in fire-and-forget mode.
func (e *Event) Async() bool {
	return e.Mode == ModeAsync
}

// Len returns the number of records the event describes.
func (e *Event) Len() int {
	if e.Kind == KindUpdate {
		return len(e.After)
	}
	return len(e.Entities)
}

// Subject returns "<schema>.<table>.<kind>", skipping empty parts.
func (e *Event) Subject() string {
	s := string(e.Kind)
	if e.Table != "" {
		s = e.Table + "." + s
	}
	if e.Schema != "" {
		s = e.Schema + "." + s
	}
	return s
}

// Notifier receives change events for downstream propagation. Implementations
// must be safe for concurrent use. Services deliver async events through an
// Async dispatcher, so implementations may block.
type Notifier interface {
	Notify(ctx context.Context, ev *Event) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, ev *Event) error

func (f Func) Notify(ctx context.Context, ev *Event) error {
	return f(ctx, ev)
}

// Multi fans an event out to several notifiers. Every notifier is called;
// failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev *Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
