/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"fmt"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/notify"
)

// Descriptor is the static description of an entity type: how to reach its
// identifier, which fields an update may touch, where it lives and how its
// changes are announced. It is validated once by NewService and never
// modified afterwards.
type Descriptor[I comparable, T any] struct {
	// EntityType names T in change events. Defaults to the Go type name.
	EntityType string
	Schema     string
	Table      string

	// Notify enables change events for this entity type.
	Notify bool
	// Delivery selects sync or async notification (default async).
	Delivery notify.Mode
	// FirstPage is the index of the first page, 0 or 1.
	FirstPage int
	// DedupeFields are the uniqueness fields of InsertIfAbsent when the
	// caller names none. Empty means the identifier.
	DedupeFields []string

	// GetID extracts the identifier. Required.
	GetID func(entity T) I
	// SetID assigns an identifier. Needed only to build delete events.
	SetID func(entity *T, id I) error
	// New constructs an empty entity. Defaults to the zero value of T.
	New func() T

	// Fields lists the fields merged and diffed on update.
	Fields []Field[T]

	// ParseCond translates a service-level condition into the backend's.
	// Defaults to the identity.
	ParseCond func(cond datastore.Condition) (datastore.Condition, error)
}

func (d *Descriptor[I, T]) normalize() error {
	if d.GetID == nil {
		return errors.NewConfigError("GetID", "identifier accessor is required")
	}
	if d.FirstPage != 0 && d.FirstPage != 1 {
		return errors.NewConfigError("FirstPage", fmt.Sprintf("must be 0 or 1, got %d", d.FirstPage))
	}
	if d.Delivery != notify.ModeAsync && d.Delivery != notify.ModeSync {
		return errors.NewConfigError("Delivery", fmt.Sprintf("unknown mode %d", d.Delivery))
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return errors.NewConfigError("Fields", fmt.Sprintf("field %d has no name", i))
		}
		if f.Get == nil || f.Set == nil {
			return errors.NewConfigError("Fields", fmt.Sprintf("field %q needs Get and Set", f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			return errors.NewConfigError("Fields", fmt.Sprintf("field %q declared twice", f.Name))
		}
		seen[f.Name] = struct{}{}
	}

	if d.EntityType == "" {
		var zero T
		d.EntityType = fmt.Sprintf("%T", zero)
	}
	if d.New == nil {
		d.New = func() T {
			var zero T
			return zero
		}
	}
	if d.ParseCond == nil {
		d.ParseCond = func(cond datastore.Condition) (datastore.Condition, error) {
			return cond, nil
		}
	}
	d.DedupeFields = append([]string(nil), d.DedupeFields...)
	d.Fields = append([]Field[T](nil), d.Fields...)
	return nil
}

// meta returns the event metadata of this entity type.
func (d *Descriptor[I, T]) meta() notify.Meta {
	return notify.Meta{
		EntityType: d.EntityType,
		Schema:     d.Schema,
		Table:      d.Table,
		Mode:       d.Delivery,
	}
}

// identifierImages builds one empty entity per id carrying only the
// identifier. Every failed assignment is reported with its id.
func (d *Descriptor[I, T]) identifierImages(ids []I) (map[I]T, error) {
	if d.SetID == nil {
		return nil, errors.NewNotImplementedError("SetID")
	}
	images := make(map[I]T, len(ids))
	var failed errors.IdentifierErrors
	for _, id := range ids {
		entity := d.New()
		if err := d.SetID(&entity, id); err != nil {
			failed = append(failed, &errors.IdentifierError{ID: fmt.Sprint(id), Err: err})
			continue
		}
		images[id] = entity
	}
	if len(failed) > 0 {
		return nil, failed
	}
	return images, nil
}
