/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/notify"
)

// PutObjectAPI is the part of *s3.Client the archiver uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds the S3 connection parameters for NewClient.
type Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Endpoint  string // optional, for S3-compatible stores such as MinIO
	PathStyle bool
}

// NewClient builds an S3 client from cfg and the default credential chain.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Archiver writes every change event as one JSON object to
// "<prefix>/<schema>/<table>/<yyyy-mm-dd>/<event id>.json".
type Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *logrus.Logger
}

// NewArchiver creates an archiver writing to bucket under prefix.
func NewArchiver(client PutObjectAPI, bucket, prefix string, logger *logrus.Logger) (*Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Archiver{client: client, bucket: bucket, prefix: prefix, logger: logger}, nil
}

// Key returns the object key of ev.
func (a *Archiver) Key(ev *notify.Event) string {
	day := time.Time(ev.OccurredAt).UTC().Format("2006-01-02")
	schema := ev.Schema
	if schema == "" {
		schema = "_"
	}
	table := ev.Table
	if table == "" {
		table = ev.EntityType
	}
	return path.Join(a.prefix, schema, table, day, ev.ID.String()+".json")
}

// Notify stores ev.
func (a *Archiver) Notify(ctx context.Context, ev *notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	key := a.Key(ev)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"kind":   string(ev.Kind),
			"entity": ev.EntityType,
		},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	a.logger.WithFields(logrus.Fields{"bucket": a.bucket, "key": key}).Debug("archived change event")
	return nil
}
