/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/registry"
	"github.com/suparena/entitysync/storagemodels"
)

var (
	_ datastore.Repository[string, struct{}]   = (*Store[string, struct{}])(nil)
	_ datastore.BulkInserter[string, struct{}] = (*Store[string, struct{}])(nil)
	_ datastore.Counter                        = (*Store[string, struct{}])(nil)
)

// Store is a single-table DynamoDB repository for entities of type T
// identified by I. Item keys are derived from the index map registered for T:
// the PK and SK templates are expanded with the identifier for key lookups
// and with the entity's own attributes on writes.
type Store[I comparable, T any] struct {
	client         API
	tableName      string
	getID          func(T) I
	indexMap       map[string]string
	keyAttrs       map[string]bool
	entityType     string
	retry          RetryOptions
	gsi            map[string]GSIConfig
	consistentRead bool
	logger         *logrus.Entry
}

type options struct {
	indexMap       map[string]string
	entityType     string
	retry          RetryOptions
	gsi            map[string]GSIConfig
	consistentRead bool
	logger         *logrus.Logger
}

// Option configures a Store.
type Option func(*options)

// WithIndexMap sets the key templates, overriding the registry.
func WithIndexMap(indexMap map[string]string) Option {
	return func(o *options) { o.indexMap = indexMap }
}

// WithEntityType sets the value stored in the EntityType attribute. It
// defaults to the Go type name of T.
func WithEntityType(entityType string) Option {
	return func(o *options) { o.entityType = entityType }
}

// WithRetry sets the retry and paging behavior of reads and batch writes.
func WithRetry(retry RetryOptions) Option {
	return func(o *options) { o.retry = retry }
}

// WithGSI registers secondary index configurations by index name.
func WithGSI(configs ...GSIConfig) Option {
	return func(o *options) {
		for _, c := range configs {
			o.gsi[c.IndexName] = c
		}
	}
}

// WithConsistentRead makes base-table reads strongly consistent.
func WithConsistentRead() Option {
	return func(o *options) { o.consistentRead = true }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a Store over tableName. getID extracts the identifier used to
// expand the key templates.
func New[I comparable, T any](client API, tableName string, getID func(T) I, opts ...Option) (*Store[I, T], error) {
	o := options{
		entityType: typeName[T](),
		retry:      DefaultRetryOptions(),
		gsi:        make(map[string]GSIConfig, len(DefaultGSIConfigs)),
		logger:     logrus.StandardLogger(),
	}
	for name, c := range DefaultGSIConfigs {
		o.gsi[name] = c
	}
	for _, opt := range opts {
		opt(&o)
	}

	if client == nil {
		return nil, errors.NewConfigError("client", "DynamoDB client is required")
	}
	if tableName == "" {
		return nil, errors.NewConfigError("tableName", "table name is required")
	}
	if getID == nil {
		return nil, errors.NewConfigError("getID", "identifier accessor is required")
	}
	if o.indexMap == nil {
		idx, ok := registry.GetIndexMap[T]()
		if !ok {
			return nil, fmt.Errorf("%w for %s", errors.ErrNoIndexMap, o.entityType)
		}
		o.indexMap = idx
	}
	if err := registry.ValidateIndexMap(o.indexMap); err != nil {
		return nil, err
	}
	if o.retry.MaxRetries < 0 {
		o.retry.MaxRetries = 0
	}

	registry.EnsureType(o.entityType, func(item map[string]types.AttributeValue) (any, error) {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return nil, err
		}
		return v, nil
	})

	return &Store[I, T]{
		client:         client,
		tableName:      tableName,
		getID:          getID,
		indexMap:       o.indexMap,
		keyAttrs:       keyAttributes(o.indexMap),
		entityType:     o.entityType,
		retry:          o.retry,
		gsi:            o.gsi,
		consistentRead: o.consistentRead,
		logger: o.logger.WithFields(logrus.Fields{
			"table":      tableName,
			"entityType": o.entityType,
		}),
	}, nil
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// TableName returns the table the store reads and writes.
func (s *Store[I, T]) TableName() string {
	return s.tableName
}

// EntityType returns the value stored in the EntityType attribute.
func (s *Store[I, T]) EntityType() string {
	return s.entityType
}

// key builds the primary key of the item identified by id.
func (s *Store[I, T]) key(id I) (map[string]types.AttributeValue, error) {
	key, err := buildKeyFromExpanded(expandStringKey(s.indexMap, fmt.Sprint(id)))
	if err != nil {
		return nil, &errors.IdentifierError{ID: fmt.Sprint(id), Err: err}
	}
	return key, nil
}

// item marshals entity and adds the expanded index attributes and the
// entity type.
func (s *Store[I, T]) item(entity T) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	expanded, err := expandMacros(s.indexMap, entity)
	if err != nil {
		return nil, err
	}
	if _, err := buildKeyFromExpanded(expanded); err != nil {
		return nil, &errors.IdentifierError{ID: fmt.Sprint(s.getID(entity)), Err: err}
	}
	for k, v := range expanded {
		if v == "" {
			continue
		}
		av[k] = &types.AttributeValueMemberS{Value: v}
	}
	av[EntityTypeAttribute] = &types.AttributeValueMemberS{Value: s.entityType}
	return av, nil
}

func (s *Store[I, T]) decode(item map[string]types.AttributeValue) (T, error) {
	var v T
	if err := attributevalue.UnmarshalMap(item, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return v, nil
}

func (s *Store[I, T]) decodeAll(items []map[string]types.AttributeValue) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := s.decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindByID retrieves the item identified by id.
func (s *Store[I, T]) FindByID(ctx context.Context, id I) (T, bool, error) {
	var zero T
	key, err := s.key(id)
	if err != nil {
		return zero, false, err
	}
	in := &sdk.GetItemInput{TableName: &s.tableName, Key: key}
	if s.consistentRead {
		in.ConsistentRead = &s.consistentRead
	}
	out, err := s.client.GetItem(ctx, in)
	if err != nil {
		return zero, false, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return zero, false, nil
	}
	v, err := s.decode(out.Item)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// FindByCondition runs params as a Query, or as a Scan when it has no key
// condition, restricted to items of the store's entity type.
//
// Ordering is only available on queries and only by the sort key of the
// queried index, so at most one sort field is accepted. The offset and limit
// are applied while paging.
func (s *Store[I, T]) FindByCondition(ctx context.Context, cond datastore.Condition, opts storagemodels.FindOptions) ([]T, error) {
	params, err := s.params(cond)
	if err != nil {
		return nil, err
	}
	if len(opts.Sort) > 1 {
		return nil, errors.NewValidationError("sort", "DynamoDB orders by a single sort key")
	}
	if len(opts.Sort) == 1 {
		if params.KeyConditionExpression == "" {
			return nil, errors.NewValidationError("sort", "ordering requires a key condition")
		}
		forward := !opts.Sort[0].Desc
		p := *params
		p.ScanIndexForward = &forward
		params = &p
	}

	var (
		items   []map[string]types.AttributeValue
		skipped int64
	)
	err = s.forEachPage(ctx, s.newPageRequest(params, false), func(p page) bool {
		for _, item := range p.items {
			if skipped < opts.Offset {
				skipped++
				continue
			}
			items = append(items, item)
			if opts.Limit > 0 && int64(len(items)) >= opts.Limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return s.decodeAll(items)
}

// CountByCondition counts the items matching params.
func (s *Store[I, T]) CountByCondition(ctx context.Context, cond datastore.Condition) (int64, error) {
	params, err := s.params(cond)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, params)
}

// Count counts every item of the store's entity type with a filtered Scan.
func (s *Store[I, T]) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, &storagemodels.QueryParams{})
}

func (s *Store[I, T]) count(ctx context.Context, params *storagemodels.QueryParams) (int64, error) {
	var total int64
	err := s.forEachPage(ctx, s.newPageRequest(params, true), func(p page) bool {
		total += int64(p.count)
		return true
	})
	return total, err
}

func (s *Store[I, T]) params(cond datastore.Condition) (*storagemodels.QueryParams, error) {
	params, ok := cond.(*storagemodels.QueryParams)
	if !ok {
		return nil, errors.NewValidationError("condition", fmt.Sprintf("expected *storagemodels.QueryParams, got %T", cond))
	}
	if params.IsEmpty() {
		return nil, errors.NewValidationError("condition", "empty condition")
	}
	return params, nil
}

// Insert stores entity, replacing any item with the same key.
func (s *Store[I, T]) Insert(ctx context.Context, entity T) (T, error) {
	item, err := s.item(entity)
	if err != nil {
		return entity, err
	}
	if _, err := s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return entity, fmt.Errorf("PutItem failed: %w", err)
	}
	return entity, nil
}

// DropByID deletes the item identified by id and reports whether it existed.
func (s *Store[I, T]) DropByID(ctx context.Context, id I) (bool, error) {
	key, err := s.key(id)
	if err != nil {
		return false, err
	}
	out, err := s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// DropByIDs deletes the items in ids and returns the identifiers that
// existed.
func (s *Store[I, T]) DropByIDs(ctx context.Context, ids []I) ([]I, error) {
	dropped := make([]I, 0, len(ids))
	for _, id := range ids {
		ok, err := s.DropByID(ctx, id)
		if err != nil {
			return dropped, err
		}
		if ok {
			dropped = append(dropped, id)
		}
	}
	return dropped, nil
}

// DropByCondition deletes every item matching params.
func (s *Store[I, T]) DropByCondition(ctx context.Context, cond datastore.Condition) (int64, error) {
	matched, err := s.FindByCondition(ctx, cond, storagemodels.FindOptions{})
	if err != nil {
		return 0, err
	}
	ids := make([]I, 0, len(matched))
	for _, e := range matched {
		ids = append(ids, s.getID(e))
	}
	dropped, err := s.DropByIDs(ctx, ids)
	return int64(len(dropped)), err
}
