/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/notify"
)

// Mutations run read, write, diff and notify strictly in that order, but the
// sequence is not transactional: a concurrent writer may change a record
// between the before-image read and the write, so before-images can be stale.

// Insert stores entity and returns the stored version.
func (s *Service[I, T]) Insert(ctx context.Context, entity T) (T, error) {
	inserted, err := s.InsertAll(ctx, []T{entity})
	if len(inserted) == 0 {
		return entity, err
	}
	return inserted[0], err
}

// InsertAll stores entities and announces the stored versions, which may
// carry backend-populated values such as generated identifiers.
func (s *Service[I, T]) InsertAll(ctx context.Context, entities []T) ([]T, error) {
	if len(entities) == 0 {
		return []T{}, nil
	}
	inserted, err := s.repo.InsertAll(ctx, entities)
	if err != nil {
		return nil, err
	}
	if s.desc.Notify && len(inserted) > 0 {
		ev := notify.NewInsertEvent(s.desc.meta(), anySlice(inserted))
		return inserted, s.emit(ctx, ev)
	}
	return inserted, nil
}

// InsertIfAbsent inserts the entities whose uniqueness key is not already
// stored and returns the backend's bulk result. uniqueFields default to the
// descriptor's DedupeFields, then to the identifier. Only entities the
// backend reports as new are announced.
func (s *Service[I, T]) InsertIfAbsent(ctx context.Context, entities []T, uniqueFields ...string) (datastore.BulkResult, error) {
	bulk, ok := s.repo.(datastore.BulkInserter[I, T])
	if !ok {
		return nil, errors.NewNotImplementedError("InsertIgnoring")
	}
	if len(entities) == 0 {
		return nil, nil
	}
	if len(uniqueFields) == 0 {
		uniqueFields = s.desc.DedupeFields
	}

	result, err := bulk.InsertIgnoring(ctx, entities, uniqueFields...)
	if err != nil {
		return nil, err
	}
	if !s.desc.Notify {
		return result, nil
	}

	inserted, err := bulk.ParseBulk(entities, result)
	if err != nil {
		return result, err
	}
	if len(inserted) == 0 {
		s.logger.Debug("insert-if-absent stored nothing new")
		return result, nil
	}
	ev := notify.NewInsertEvent(s.desc.meta(), anySlice(inserted))
	return result, s.emit(ctx, ev)
}

// UpdateByID applies the set fields of entity to the record with the same
// identifier. It returns the updated record as reported by the backend.
func (s *Service[I, T]) UpdateByID(ctx context.Context, entity T) (T, bool, error) {
	updated, err := s.UpdateByIDs(ctx, entity, []I{s.desc.GetID(entity)})
	if err != nil || len(updated) == 0 {
		var zero T
		return zero, false, err
	}
	return updated[0], true, nil
}

// UpdateByIDs applies the set fields of patch to every record in ids and
// returns the backend's result.
//
// With notifications disabled this is a single backend write. Otherwise the
// current images are read first; if none exist nothing is written.
func (s *Service[I, T]) UpdateByIDs(ctx context.Context, patch T, ids []I) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	if !s.desc.Notify {
		return s.repo.UpdateByIDs(ctx, ids, patch)
	}

	before, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(before) == 0 {
		s.logger.WithField("ids", len(ids)).Debug("update matched no stored records")
		return []T{}, nil
	}
	after := Merge(s.desc.Fields, patch, before)

	updated, err := s.repo.UpdateByIDs(ctx, ids, patch)
	if err != nil {
		return nil, err
	}

	modified := ModifiedFields(s.desc.Fields, patch, before)
	ev := notify.NewUpdateEvent(s.desc.meta(), anySlice(before), anySlice(after), modified)
	return updated, s.emit(ctx, ev)
}

// UpdateByQuery applies patch to every record matching q and returns the
// number of matches. An empty query updates nothing. Matching identifiers are
// always resolved first so the update can be announced precisely.
func (s *Service[I, T]) UpdateByQuery(ctx context.Context, patch T, q Query) (int64, error) {
	if q.IsEmpty() {
		return 0, nil
	}
	n, err := s.CountByQuery(ctx, q)
	if err != nil || n == 0 {
		return 0, err
	}
	matched, err := s.FindByQuery(ctx, Where(q.Cond))
	if err != nil || len(matched) == 0 {
		return 0, err
	}
	if _, err := s.UpdateByIDs(ctx, patch, s.ids(matched)); err != nil {
		if errors.IsNotify(err) {
			return n, err
		}
		return 0, err
	}
	return n, nil
}

// DeleteByID deletes the record with id and reports whether it existed.
func (s *Service[I, T]) DeleteByID(ctx context.Context, id I) (bool, error) {
	dropped, err := s.DeleteByIDs(ctx, []I{id})
	return len(dropped) > 0, err
}

// DeleteByIDs deletes the records in ids and returns the identifiers the
// backend removed.
//
// Delete events carry identifier-only images: an empty entity per removed id.
// The images are built before the write, so an identifier that cannot be
// assigned aborts the call without deleting anything.
func (s *Service[I, T]) DeleteByIDs(ctx context.Context, ids []I) ([]I, error) {
	if len(ids) == 0 {
		return []I{}, nil
	}
	if !s.desc.Notify {
		return s.repo.DropByIDs(ctx, ids)
	}

	images, err := s.desc.identifierImages(ids)
	if err != nil {
		return nil, err
	}
	dropped, err := s.repo.DropByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(dropped) == 0 {
		return dropped, nil
	}

	entities := make([]any, 0, len(dropped))
	for _, id := range dropped {
		if img, ok := images[id]; ok {
			entities = append(entities, img)
		}
	}
	ev := notify.NewDeleteEvent(s.desc.meta(), entities)
	return dropped, s.emit(ctx, ev)
}

// DeleteByQuery deletes every record matching q. An empty query deletes
// nothing.
//
// With notifications enabled the matches are resolved to identifiers and
// removed through DeleteByIDs; the number of removed identifiers is
// returned. With notifications disabled a single condition delete is issued
// and 0 is returned, since that path does not learn the affected count.
func (s *Service[I, T]) DeleteByQuery(ctx context.Context, q Query) (int64, error) {
	if q.IsEmpty() {
		return 0, nil
	}
	n, err := s.CountByQuery(ctx, q)
	if err != nil || n == 0 {
		return 0, err
	}

	if !s.desc.Notify {
		cond, err := s.desc.ParseCond(q.Cond)
		if err != nil {
			return 0, err
		}
		if _, err := s.repo.DropByCondition(ctx, cond); err != nil {
			return 0, err
		}
		return 0, nil
	}

	matched, err := s.FindByQuery(ctx, Where(q.Cond))
	if err != nil || len(matched) == 0 {
		return 0, err
	}
	dropped, err := s.DeleteByIDs(ctx, s.ids(matched))
	if err != nil && len(dropped) == 0 {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{"matched": n, "deleted": len(dropped)}).Debug("deleted by query")
	return int64(len(dropped)), err
}

func (s *Service[I, T]) ids(entities []T) []I {
	ids := make([]I, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, s.desc.GetID(e))
	}
	return ids
}
