/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/notify"
	"github.com/suparena/entitysync/storagemodels"
)

type options struct {
	notifier  notify.Notifier
	logger    *logrus.Logger
	asyncOpts []notify.AsyncOption
}

// Option configures a Service.
type Option func(*options)

// WithNotifier sets the notifier change events are dispatched to.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithAsyncOptions configures the dispatcher a Service starts for async
// delivery when its notifier is not already a *notify.Async.
func WithAsyncOptions(opts ...notify.AsyncOption) Option {
	return func(o *options) {
		o.asyncOpts = append(o.asyncOpts, opts...)
	}
}

// Service mediates every access to one entity type's backend and emits
// change events for mutations when its descriptor enables them. A Service
// is safe for concurrent use.
type Service[I comparable, T any] struct {
	desc     Descriptor[I, T]
	repo     datastore.Repository[I, T]
	notifier notify.Notifier
	// dispatcher is the async dispatcher started by NewService, if any.
	dispatcher *notify.Async
	logger     *logrus.Entry
}

// NewService validates desc and binds it to repo.
func NewService[I comparable, T any](repo datastore.Repository[I, T], desc Descriptor[I, T], opts ...Option) (*Service[I, T], error) {
	o := options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	if repo == nil {
		return nil, errors.NewConfigError("Repository", "no backend bound")
	}
	if err := desc.normalize(); err != nil {
		return nil, err
	}
	if desc.Notify && o.notifier == nil {
		return nil, errors.NewConfigError("Notifier", fmt.Sprintf("notifications enabled for %s without a notifier", desc.EntityType))
	}

	logger := o.logger.WithFields(logrus.Fields{
		"entity": desc.EntityType,
		"table":  desc.Table,
	})
	if desc.Notify && desc.SetID == nil {
		logger.Warn("no identifier mutator; deletes will fail while notifications are enabled")
	}

	svc := &Service[I, T]{
		desc:     desc,
		repo:     repo,
		notifier: o.notifier,
		logger:   logger,
	}
	if desc.Notify && desc.Delivery == notify.ModeAsync {
		if _, ok := o.notifier.(*notify.Async); !ok {
			asyncOpts := append([]notify.AsyncOption{notify.WithAsyncLogger(o.logger)}, o.asyncOpts...)
			svc.dispatcher = notify.NewAsync(o.notifier, asyncOpts...)
			svc.notifier = svc.dispatcher
		}
	}
	return svc, nil
}

// Close waits for queued async events to be delivered and stops the
// dispatcher started by NewService. It does nothing for services without one.
func (s *Service[I, T]) Close() {
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
}

// Descriptor returns a copy of the validated descriptor. Changing the copy
// does not affect the service.
func (s *Service[I, T]) Descriptor() Descriptor[I, T] {
	d := s.desc
	d.Fields = append([]Field[T](nil), s.desc.Fields...)
	d.DedupeFields = append([]string(nil), s.desc.DedupeFields...)
	return d
}

// Repository returns the bound backend.
func (s *Service[I, T]) Repository() datastore.Repository[I, T] {
	return s.repo
}

// GetByID returns the entity with id and whether it exists.
func (s *Service[I, T]) GetByID(ctx context.Context, id I) (T, bool, error) {
	return s.repo.FindByID(ctx, id)
}

// GetListByIDs returns the entities found for ids.
func (s *Service[I, T]) GetListByIDs(ctx context.Context, ids []I) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	return s.repo.FindByIDs(ctx, ids)
}

// FindByQuery returns every entity matching q within its window.
func (s *Service[I, T]) FindByQuery(ctx context.Context, q Query) ([]T, error) {
	if q.IsEmpty() {
		return []T{}, nil
	}
	cond, err := s.desc.ParseCond(q.Cond)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByCondition(ctx, cond, q.findOptions())
}

// FindOneByQuery returns the first entity matching q in its sort order.
func (s *Service[I, T]) FindOneByQuery(ctx context.Context, q Query) (T, bool, error) {
	var zero T
	n, err := s.CountByQuery(ctx, q)
	if err != nil || n == 0 {
		return zero, false, err
	}
	found, err := s.FindByQuery(ctx, q.Window(0, 1))
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

// FindPage returns page pageNo of size pageSize, counting pages from the
// descriptor's FirstPage. Page numbers below FirstPage select the first page.
func (s *Service[I, T]) FindPage(ctx context.Context, q Query, pageNo, pageSize int64) (storagemodels.Page[T], error) {
	return s.findPage(ctx, q, storagemodels.PageWindow(pageNo, pageSize, s.desc.FirstPage, q.Sort))
}

// FindPageRequest is FindPage driven by a caller-supplied page request.
func (s *Service[I, T]) FindPageRequest(ctx context.Context, q Query, req storagemodels.PageRequest) (storagemodels.Page[T], error) {
	if len(req.Sort) == 0 {
		req.Sort = q.Sort
	}
	return s.findPage(ctx, q, req.Window(s.desc.FirstPage))
}

func (s *Service[I, T]) findPage(ctx context.Context, q Query, window storagemodels.FindOptions) (storagemodels.Page[T], error) {
	total, err := s.CountByQuery(ctx, q)
	if err != nil {
		return storagemodels.Page[T]{}, err
	}
	if total == 0 {
		return storagemodels.EmptyPage[T](window.Offset, window.Limit), nil
	}
	content, err := s.FindByQuery(ctx, Query{Cond: q.Cond, Sort: window.Sort, Offset: window.Offset, Limit: window.Limit})
	if err != nil {
		return storagemodels.Page[T]{}, err
	}
	return storagemodels.Page[T]{
		Content: content,
		Total:   total,
		Offset:  window.Offset,
		Size:    window.Limit,
	}, nil
}

// CountByQuery counts the entities matching q. Empty queries count zero.
func (s *Service[I, T]) CountByQuery(ctx context.Context, q Query) (int64, error) {
	if q.IsEmpty() {
		return 0, nil
	}
	cond, err := s.desc.ParseCond(q.Cond)
	if err != nil {
		return 0, err
	}
	return s.repo.CountByCondition(ctx, cond)
}

// CountAll counts every stored entity. Backends without a full-table count
// return a not implemented error.
func (s *Service[I, T]) CountAll(ctx context.Context) (int64, error) {
	counter, ok := s.repo.(datastore.Counter)
	if !ok {
		return 0, errors.NewNotImplementedError("Count")
	}
	return counter.Count(ctx)
}

// emit hands ev to the notifier. Sync failures are returned to the caller;
// async failures are logged and dropped.
func (s *Service[I, T]) emit(ctx context.Context, ev *notify.Event) error {
	err := s.notifier.Notify(ctx, ev)
	if err == nil {
		return nil
	}
	if ev.Async() {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event": ev.ID,
			"kind":  ev.Kind,
		}).Warn("async change notification not accepted")
		return nil
	}
	return errors.NewNotifyError(string(ev.Kind), err)
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
