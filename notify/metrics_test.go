/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/suparena/entitysync/notify"
)

const expectedCounters = `
# HELP entitysync_notify_events_total Change events handed to the notifier.
# TYPE entitysync_notify_events_total counter
entitysync_notify_events_total{kind="insert",mode="sync",table="players"} 2
entitysync_notify_events_total{kind="update",mode="sync",table="players"} 1
# HELP entitysync_notify_failures_total Change events the notifier rejected.
# TYPE entitysync_notify_failures_total counter
entitysync_notify_failures_total{kind="insert",mode="sync",table="players"} 1
# HELP entitysync_notify_records_total Records described by change events.
# TYPE entitysync_notify_records_total counter
entitysync_notify_records_total{kind="insert",mode="sync",table="players"} 4
entitysync_notify_records_total{kind="update",mode="sync",table="players"} 1
`

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := notify.NewMetrics(reg, "entitysync")
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	ctx := context.Background()
	ok := notify.Instrument(notify.NewRecorder(), m)
	ok.Notify(ctx, notify.NewInsertEvent(meta, []any{1, 2, 3}))
	ok.Notify(ctx, notify.NewUpdateEvent(meta, []any{1}, []any{1}, nil))

	bad := notify.Instrument(notify.NewRecorder().WithError(errors.New("down")), m)
	if err := bad.Notify(ctx, notify.NewInsertEvent(meta, []any{1})); err == nil {
		t.Fatal("Instrument must pass errors through")
	}

	err = testutil.GatherAndCompare(reg, strings.NewReader(expectedCounters),
		"entitysync_notify_events_total",
		"entitysync_notify_failures_total",
		"entitysync_notify_records_total",
	)
	if err != nil {
		t.Fatalf("Unexpected metrics: %v", err)
	}

	if n := testutil.CollectAndCount(reg, "entitysync_notify_duration_seconds"); n != 2 {
		t.Fatalf("Expected 2 latency series, got %d", n)
	}

	if _, err := notify.NewMetrics(reg, "entitysync"); err == nil {
		t.Fatal("Registering twice should fail")
	}
}
