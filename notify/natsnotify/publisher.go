/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package natsnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/notify"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// ConnectOptions configures Connect.
type ConnectOptions struct {
	MaxReconnect  int
	ReconnectWait time.Duration
	Name          string
}

// Connect dials url with reconnect handling that reports to logger.
func Connect(url string, opts ConnectOptions, logger *logrus.Logger) (*nats.Conn, error) {
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	natsOpts := []nats.Option{
		nats.MaxReconnects(opts.MaxReconnect),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Warn("NATS connection closed")
		}),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Infof("Connected to NATS at %s", url)
	return conn, nil
}

// Publisher publishes change events as JSON on "<prefix>.<schema>.<table>.<kind>".
// Sync events are flushed to the server before Notify returns; async events
// are only buffered in the client.
type Publisher struct {
	conn         Conn
	prefix       string
	flushTimeout time.Duration
	logger       *logrus.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithFlushTimeout bounds how long a sync event may wait for the server.
func WithFlushTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.flushTimeout = d
	}
}

// WithLogger sets the publisher's logger.
func WithLogger(l *logrus.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

// New creates a publisher on conn. prefix may be empty.
func New(conn Conn, prefix string, opts ...Option) *Publisher {
	p := &Publisher{
		conn:         conn,
		prefix:       prefix,
		flushTimeout: 5 * time.Second,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FlushTimeout returns the bound applied to sync events.
func (p *Publisher) FlushTimeout() time.Duration {
	return p.flushTimeout
}

// Subject returns the subject ev is published on.
func (p *Publisher) Subject(ev *notify.Event) string {
	if p.prefix == "" {
		return ev.Subject()
	}
	return p.prefix + "." + ev.Subject()
}

// Notify publishes ev.
func (p *Publisher) Notify(ctx context.Context, ev *notify.Event) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	subject := p.Subject(ev)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}

	if !ev.Async() {
		if err := p.conn.FlushTimeout(p.timeout(ctx)); err != nil {
			return fmt.Errorf("failed to flush NATS: %w", err)
		}
	}
	p.logger.Debugf("Published %s event for %s on %s", ev.Kind, ev.EntityType, subject)
	return nil
}

// timeout returns the flush timeout, shortened to the context deadline.
func (p *Publisher) timeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < p.flushTimeout {
			if left <= 0 {
				return time.Millisecond
			}
			return left
		}
	}
	return p.flushTimeout
}

// Encode marshals ev into the published JSON envelope.
func Encode(ev *notify.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// Decode parses a published envelope. Entity images decode as generic maps.
func Decode(data []byte) (*notify.Event, error) {
	var ev notify.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &ev, nil
}
