/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/notify"
)

func asyncMeta() notify.Meta {
	m := meta
	m.Mode = notify.ModeAsync
	return m
}

func TestAsyncDelivery(t *testing.T) {
	rec := notify.NewRecorder()
	a := notify.NewAsync(rec, notify.WithWorkers(3), notify.WithQueueSize(100))

	for i := 0; i < 50; i++ {
		if err := a.Notify(context.Background(), notify.NewInsertEvent(asyncMeta(), nil)); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}
	a.Close()

	if got := len(rec.Events()); got != 50 {
		t.Fatalf("Expected 50 delivered events after Close, got %d", got)
	}
	if err := a.Notify(context.Background(), notify.NewInsertEvent(asyncMeta(), nil)); !errors.Is(err, notify.ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	a.Close()
}

func TestAsyncSyncPassThrough(t *testing.T) {
	rejected := errors.New("rejected")
	a := notify.NewAsync(notify.NewRecorder().WithError(rejected))
	defer a.Close()

	if err := a.Notify(context.Background(), notify.NewInsertEvent(meta, nil)); !errors.Is(err, rejected) {
		t.Fatalf("Sync events should report the notifier's error, got %v", err)
	}
}

func TestAsyncQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	blocking := notify.Func(func(ctx context.Context, ev *notify.Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	a := notify.NewAsync(blocking, notify.WithQueueSize(1))
	ctx := context.Background()

	if err := a.Notify(ctx, notify.NewInsertEvent(asyncMeta(), nil)); err != nil {
		t.Fatalf("First event: %v", err)
	}
	<-started
	if err := a.Notify(ctx, notify.NewInsertEvent(asyncMeta(), nil)); err != nil {
		t.Fatalf("Second event should be buffered: %v", err)
	}
	if err := a.Notify(ctx, notify.NewInsertEvent(asyncMeta(), nil)); !errors.Is(err, notify.ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	close(release)
	a.Close()
}

func TestAsyncFailuresLogged(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hook := &countingHook{}
	logger.AddHook(hook)

	a := notify.NewAsync(notify.NewRecorder().WithError(errors.New("down")), notify.WithAsyncLogger(logger))
	if err := a.Notify(context.Background(), notify.NewInsertEvent(asyncMeta(), nil)); err != nil {
		t.Fatalf("Async failures must not reach the caller: %v", err)
	}
	a.Close()

	if hook.count() != 1 {
		t.Fatalf("Expected one logged failure, got %d", hook.count())
	}
}

type countingHook struct {
	mu sync.Mutex
	n  int
}

func (h *countingHook) Levels() []logrus.Level { return []logrus.Level{logrus.WarnLevel} }

func (h *countingHook) Fire(*logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.n++
	return nil
}

func (h *countingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}
