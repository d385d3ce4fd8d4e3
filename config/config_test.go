/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/notify"
	"github.com/suparena/entitysync/notify/natsnotify"
)

const sample = `
logging:
  level: debug
nats:
  url: nats://localhost:4222
  subject: changes
  max_reconnect: 10
  reconnect_wait: 3s
dynamodb:
  region: us-west-2
  table: entities
sql:
  dialect: sqlite
  dsn: "file::memory:"
s3:
  bucket: audit
  prefix: events
async:
  workers: 4
entities:
  Player:
    schema: league
    table: players
    notify: true
    delivery: sync
    first_page: 1
    dedupe_fields: [Name]
  Match:
    notify: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ENTITYSYNC_LOG_LEVEL", "ENTITYSYNC_NATS_URL", "ENTITYSYNC_NATS_SUBJECT",
		"ENTITYSYNC_SQL_DIALECT", "ENTITYSYNC_SQL_DSN", "ENTITYSYNC_S3_BUCKET",
		"ENTITYSYNC_S3_PREFIX", "ENTITYSYNC_ASYNC_WORKERS", "AWS_REGION",
		"AWS_DDB_TABLE", "AWS_DDB_ENDPOINT", "AWS_ACCESS_KEY", "AWS_SECRET_KEY",
	} {
		if v, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	c, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Logging.Level != "debug" || c.NATS.Subject != "changes" || c.NATS.ReconnectWait != 3*time.Second {
		t.Fatalf("Unexpected values: %+v", c)
	}
	if c.NATS.FlushTimeout != 5*time.Second {
		t.Fatalf("Expected default flush timeout, got %v", c.NATS.FlushTimeout)
	}
	if c.S3.Region != "us-west-2" {
		t.Fatalf("Expected S3 region to default to the DynamoDB region, got %q", c.S3.Region)
	}
	if c.Async.Workers != 4 || c.Async.QueueSize != notify.DefaultAsyncOptions().QueueSize {
		t.Fatalf("Unexpected async settings: %+v", c.Async)
	}

	player, ok := c.Entity("Player")
	if !ok {
		t.Fatal("Expected Player entity")
	}
	if player.Delivery != notify.ModeSync || player.FirstPage != 1 || len(player.DedupeFields) != 1 {
		t.Fatalf("Unexpected entity settings: %+v", player)
	}
	if match, _ := c.Entity("Match"); match.Delivery != notify.ModeAsync {
		t.Fatalf("Expected async delivery by default, got %v", match.Delivery)
	}

	if got := c.DynamoDB.ClientConfig(); got.Region != "us-west-2" {
		t.Fatalf("Unexpected client config: %+v", got)
	}
	if got := c.S3.AuditConfig(); got.Bucket != "audit" || got.Prefix != "events" {
		t.Fatalf("Unexpected audit config: %+v", got)
	}
	if got := c.NATS.ConnectOptions("changetail"); got.MaxReconnect != 10 || got.Name != "changetail" {
		t.Fatalf("Unexpected connect options: %+v", got)
	}
	if len(c.Async.Options()) != 2 {
		t.Fatal("Expected worker and queue options")
	}
}

func TestPublisherOptions(t *testing.T) {
	clearEnv(t)
	c, err := Parse([]byte("nats:\n  url: nats://localhost:4222\n  flush_timeout: 750ms\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	p := natsnotify.New(nil, c.NATS.Subject, c.NATS.PublisherOptions()...)
	if p.FlushTimeout() != 750*time.Millisecond {
		t.Fatalf("Expected flush timeout 750ms, got %v", p.FlushTimeout())
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		config  bool
	}{
		{"InvalidYAML", "logging: [", false},
		{"UnknownDialect", "sql:\n  dialect: oracle\n", true},
		{"DSNWithoutDialect", "sql:\n  dsn: x\n", true},
		{"FirstPage", "entities:\n  A:\n    first_page: 2\n", true},
		{"NegativeWorkers", "async:\n  workers: -1\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("Expected error")
			}
			if errors.IsConfig(err) != tt.config {
				t.Fatalf("Expected config error=%v, got %v", tt.config, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENTITYSYNC_NATS_URL", "nats://override:4222")
	t.Setenv("AWS_DDB_TABLE", "override-table")
	t.Setenv("ENTITYSYNC_ASYNC_WORKERS", "8")

	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.NATS.URL != "nats://override:4222" || c.DynamoDB.Table != "override-table" || c.Async.Workers != 8 {
		t.Fatalf("Environment did not override: %+v", c)
	}

	t.Setenv("ENTITYSYNC_ASYNC_WORKERS", "many")
	if _, err := Parse([]byte(sample)); !errors.IsConfig(err) {
		t.Fatalf("Expected config error, got %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ENTITYSYNC_TEST_LOADENV=loaded\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("ENTITYSYNC_TEST_LOADENV") })

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("ENTITYSYNC_TEST_LOADENV"); got != "loaded" {
		t.Fatalf("Expected variable from env file, got %q", got)
	}
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("Expected error for explicit missing file")
	}
}

func TestApply(t *testing.T) {
	desc := entitysync.Descriptor[string, struct{ ID string }]{Schema: "base", Table: "things"}
	Apply(&desc, EntityConfig{Table: "renamed", Notify: true, Delivery: notify.ModeSync, DedupeFields: []string{"ID"}})

	if desc.Schema != "base" || desc.Table != "renamed" {
		t.Fatalf("Unexpected location %s.%s", desc.Schema, desc.Table)
	}
	if !desc.Notify || desc.Delivery != notify.ModeSync || desc.DedupeFields[0] != "ID" {
		t.Fatalf("Unexpected descriptor: %+v", desc)
	}
}
