/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads the YAML configuration of entitysync services and
// their transports. Environment variables, optionally read from .env files,
// override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/datastore/ddb"
	"github.com/suparena/entitysync/datastore/sqlstore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/notify"
	"github.com/suparena/entitysync/notify/natsnotify"
	"github.com/suparena/entitysync/notify/s3audit"
)

type Config struct {
	Logging  LoggingConfig           `yaml:"logging"`
	NATS     NATSConfig              `yaml:"nats"`
	DynamoDB DynamoDBConfig          `yaml:"dynamodb"`
	SQL      SQLConfig               `yaml:"sql"`
	S3       S3Config                `yaml:"s3"`
	Async    AsyncConfig             `yaml:"async"`
	Entities map[string]EntityConfig `yaml:"entities"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"`
	MaxReconnect  int           `yaml:"max_reconnect"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	FlushTimeout  time.Duration `yaml:"flush_timeout"`
}

type DynamoDBConfig struct {
	Region    string `yaml:"region"`
	Table     string `yaml:"table"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type SQLConfig struct {
	Dialect string `yaml:"dialect"` // postgres, sqlite, mysql
	DSN     string `yaml:"dsn"`
}

type S3Config struct {
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

type AsyncConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// EntityConfig holds the per-entity service settings.
type EntityConfig struct {
	Schema       string      `yaml:"schema"`
	Table        string      `yaml:"table"`
	Notify       bool        `yaml:"notify"`
	Delivery     notify.Mode `yaml:"delivery"` // sync or async
	FirstPage    int         `yaml:"first_page"`
	DedupeFields []string    `yaml:"dedupe_fields"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.setDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. A missing default .env file is not an
// error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return nil
		}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"ENTITYSYNC_LOG_LEVEL":    &c.Logging.Level,
		"ENTITYSYNC_NATS_URL":     &c.NATS.URL,
		"ENTITYSYNC_NATS_SUBJECT": &c.NATS.Subject,
		"ENTITYSYNC_SQL_DIALECT":  &c.SQL.Dialect,
		"ENTITYSYNC_SQL_DSN":      &c.SQL.DSN,
		"ENTITYSYNC_S3_BUCKET":    &c.S3.Bucket,
		"ENTITYSYNC_S3_PREFIX":    &c.S3.Prefix,
		"AWS_REGION":              &c.DynamoDB.Region,
		"AWS_DDB_TABLE":           &c.DynamoDB.Table,
		"AWS_DDB_ENDPOINT":        &c.DynamoDB.Endpoint,
		"AWS_ACCESS_KEY":          &c.DynamoDB.AccessKey,
		"AWS_SECRET_KEY":          &c.DynamoDB.SecretKey,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(name); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("ENTITYSYNC_ASYNC_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewConfigError("ENTITYSYNC_ASYNC_WORKERS", fmt.Sprintf("not a number: %q", v))
		}
		c.Async.Workers = n
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "entitysync"
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = 2 * time.Second
	}
	if c.NATS.FlushTimeout == 0 {
		c.NATS.FlushTimeout = 5 * time.Second
	}
	if c.S3.Region == "" {
		c.S3.Region = c.DynamoDB.Region
	}
	defaults := notify.DefaultAsyncOptions()
	if c.Async.Workers == 0 {
		c.Async.Workers = defaults.Workers
	}
	if c.Async.QueueSize == 0 {
		c.Async.QueueSize = defaults.QueueSize
	}
}

// Validate reports the first invalid setting as a config error.
func (c *Config) Validate() error {
	if c.SQL.Dialect != "" {
		if _, err := sqlstore.DialectByName(c.SQL.Dialect); err != nil {
			return errors.NewConfigError("sql.dialect", err.Error())
		}
	}
	if c.SQL.DSN != "" && c.SQL.Dialect == "" {
		return errors.NewConfigError("sql.dialect", "required when sql.dsn is set")
	}
	if c.Async.Workers < 0 || c.Async.QueueSize < 0 {
		return errors.NewConfigError("async", "workers and queue_size must not be negative")
	}
	for name, e := range c.Entities {
		if e.FirstPage != 0 && e.FirstPage != 1 {
			return errors.NewConfigError("entities."+name+".first_page", fmt.Sprintf("must be 0 or 1, got %d", e.FirstPage))
		}
	}
	return nil
}

// Entity returns the settings of the named entity.
func (c *Config) Entity(name string) (EntityConfig, bool) {
	e, ok := c.Entities[name]
	return e, ok
}

// Apply copies the entity settings onto desc. Unset schema and table keep
// the descriptor's values.
func Apply[I comparable, T any](desc *entitysync.Descriptor[I, T], e EntityConfig) {
	if e.Schema != "" {
		desc.Schema = e.Schema
	}
	if e.Table != "" {
		desc.Table = e.Table
	}
	desc.Notify = e.Notify
	desc.Delivery = e.Delivery
	desc.FirstPage = e.FirstPage
	if len(e.DedupeFields) > 0 {
		desc.DedupeFields = append([]string(nil), e.DedupeFields...)
	}
}

// ConnectOptions returns the NATS connection settings.
func (n NATSConfig) ConnectOptions(name string) natsnotify.ConnectOptions {
	return natsnotify.ConnectOptions{
		MaxReconnect:  n.MaxReconnect,
		ReconnectWait: n.ReconnectWait,
		Name:          name,
	}
}

// PublisherOptions returns the publisher settings for events sent over NATS.
func (n NATSConfig) PublisherOptions() []natsnotify.Option {
	return []natsnotify.Option{
		natsnotify.WithFlushTimeout(n.FlushTimeout),
	}
}

// ClientConfig returns the DynamoDB client settings.
func (d DynamoDBConfig) ClientConfig() ddb.ClientConfig {
	return ddb.ClientConfig{
		Region:    d.Region,
		AccessKey: d.AccessKey,
		SecretKey: d.SecretKey,
		Endpoint:  d.Endpoint,
	}
}

// AuditConfig returns the S3 audit archive settings.
func (s S3Config) AuditConfig() s3audit.Config {
	return s3audit.Config{
		Region:    s.Region,
		Bucket:    s.Bucket,
		Prefix:    s.Prefix,
		Endpoint:  s.Endpoint,
		PathStyle: s.PathStyle,
	}
}

// Options returns the dispatcher options.
func (a AsyncConfig) Options() []notify.AsyncOption {
	return []notify.AsyncOption{
		notify.WithWorkers(a.Workers),
		notify.WithQueueSize(a.QueueSize),
	}
}
