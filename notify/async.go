/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned when an async event cannot be queued.
	ErrQueueFull = errors.New("notify: async queue full")

	// ErrClosed is returned for events offered after Close.
	ErrClosed = errors.New("notify: dispatcher closed")
)

// AsyncOptions configures an Async dispatcher.
type AsyncOptions struct {
	Workers   int // Delivery goroutines (default: 1)
	QueueSize int // Buffered events (default: 256)
	Logger    *logrus.Logger
}

// AsyncOption is a functional option for configuring an Async dispatcher.
type AsyncOption func(*AsyncOptions)

// DefaultAsyncOptions returns default dispatcher options.
func DefaultAsyncOptions() AsyncOptions {
	return AsyncOptions{
		Workers:   1,
		QueueSize: 256,
		Logger:    logrus.StandardLogger(),
	}
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) AsyncOption {
	return func(o *AsyncOptions) {
		o.Workers = n
	}
}

// WithQueueSize sets the number of events buffered before ErrQueueFull.
func WithQueueSize(n int) AsyncOption {
	return func(o *AsyncOptions) {
		o.QueueSize = n
	}
}

// WithAsyncLogger sets the logger delivery failures are reported to.
func WithAsyncLogger(l *logrus.Logger) AsyncOption {
	return func(o *AsyncOptions) {
		o.Logger = l
	}
}

type queued struct {
	ctx context.Context
	ev  *Event
}

// Async decouples async events from the mutating caller. Sync events pass
// straight through to the wrapped notifier; async events are queued and
// delivered by background workers, with failures logged.
type Async struct {
	next   Notifier
	logger *logrus.Logger
	queue  chan queued
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts a dispatcher in front of next.
func NewAsync(next Notifier, opts ...AsyncOption) *Async {
	options := DefaultAsyncOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.QueueSize < 0 {
		options.QueueSize = 0
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}

	a := &Async{
		next:   next,
		logger: options.Logger,
		queue:  make(chan queued, options.QueueSize),
	}
	for i := 0; i < options.Workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

// Notify delivers sync events inline and queues async ones without blocking.
func (a *Async) Notify(ctx context.Context, ev *Event) error {
	if !ev.Async() {
		return a.next.Notify(ctx, ev)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), ev: ev}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *Async) worker() {
	defer a.wg.Done()
	for q := range a.queue {
		if err := a.next.Notify(q.ctx, q.ev); err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"event":  q.ev.ID,
				"kind":   q.ev.Kind,
				"entity": q.ev.EntityType,
			}).Warn("async change notification failed")
		}
	}
}
