/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/notify"
	"github.com/suparena/entitysync/notify/natsnotify"
)

// tail logs received events and forwards them to an optional archive.
type tail struct {
	logger  *logrus.Logger
	archive notify.Notifier
	seen    atomic.Int64
}

func (t *tail) handle(ctx context.Context, subject string, data []byte) {
	ev, err := natsnotify.Decode(data)
	if err != nil {
		t.logger.WithField("subject", subject).Warnf("Skipping malformed event: %v", err)
		return
	}
	t.seen.Add(1)

	fields := logrus.Fields{
		"id":         ev.ID,
		"entityType": ev.EntityType,
		"table":      ev.Table,
		"mode":       ev.Mode,
		"records":    ev.Len(),
	}
	if len(ev.ModifiedFields) > 0 {
		fields["modified"] = ev.ModifiedFields
	}
	t.logger.WithFields(fields).Infof("%s %s", subject, ev.Kind)

	if t.archive == nil {
		return
	}
	// Archive asynchronously regardless of the mode the event was published
	// with.
	ev.Mode = notify.ModeAsync
	if err := t.archive.Notify(ctx, ev); err != nil {
		t.logger.WithField("id", ev.ID).Warnf("Failed to archive event: %v", err)
	}
}
