/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitysync/datastore"
	eserrors "github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/registry"
)

// DynamoDB batch limits.
const (
	batchGetLimit   = 100
	batchWriteLimit = 25
)

// BulkOutcome is the result of InsertIgnoring: Inserted[i] reports whether
// the i-th candidate was written.
type BulkOutcome struct {
	Inserted []bool
}

// Count returns the number of written candidates.
func (b *BulkOutcome) Count() int {
	n := 0
	for _, ok := range b.Inserted {
		if ok {
			n++
		}
	}
	return n
}

// FindByIDs retrieves the items in ids with BatchGetItem. Results follow the
// order of ids; unknown identifiers are skipped.
func (s *Store[I, T]) FindByIDs(ctx context.Context, ids []I) ([]T, error) {
	unique := make([]I, 0, len(ids))
	seen := make(map[I]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found := make(map[I]T, len(unique))
	for start := 0; start < len(unique); start += batchGetLimit {
		end := min(start+batchGetLimit, len(unique))
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range unique[start:end] {
			key, err := s.key(id)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		items, err := s.batchGet(ctx, keys)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			v, err := s.decode(item)
			if err != nil {
				return nil, err
			}
			found[s.getID(v)] = v
		}
	}

	out := make([]T, 0, len(found))
	for _, id := range unique {
		if v, ok := found[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store[I, T]) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	request := map[string]types.KeysAndAttributes{
		s.tableName: {Keys: keys, ConsistentRead: s.consistentReadFlag()},
	}
	var items []map[string]types.AttributeValue
	for attempt := 0; ; attempt++ {
		out, err := s.client.BatchGetItem(ctx, &sdk.BatchGetItemInput{RequestItems: request})
		if err != nil {
			if !isRetryableError(err) || attempt >= s.retry.MaxRetries {
				return nil, fmt.Errorf("BatchGetItem error: %w", err)
			}
		} else {
			items = append(items, out.Responses[s.tableName]...)
			if len(out.UnprocessedKeys) == 0 {
				return items, nil
			}
			if attempt >= s.retry.MaxRetries {
				return nil, fmt.Errorf("BatchGetItem left %d keys unprocessed after %d retries",
					len(out.UnprocessedKeys[s.tableName].Keys), s.retry.MaxRetries)
			}
			request = out.UnprocessedKeys
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *Store[I, T]) consistentReadFlag() *bool {
	if !s.consistentRead {
		return nil
	}
	return &s.consistentRead
}

// InsertAll stores entities with BatchWriteItem, replacing items with the
// same key.
func (s *Store[I, T]) InsertAll(ctx context.Context, entities []T) ([]T, error) {
	writes := make([]types.WriteRequest, 0, len(entities))
	for _, e := range entities {
		item, err := s.item(e)
		if err != nil {
			return nil, err
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for start := 0; start < len(writes); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(writes))
		if err := s.batchWrite(ctx, writes[start:end]); err != nil {
			return nil, err
		}
	}
	s.logger.WithField("count", len(entities)).Debug("batch insert complete")
	return entities, nil
}

func (s *Store[I, T]) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	request := map[string][]types.WriteRequest{s.tableName: writes}
	for attempt := 0; ; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{RequestItems: request})
		if err != nil {
			if !isRetryableError(err) || attempt >= s.retry.MaxRetries {
				return fmt.Errorf("BatchWriteItem error: %w", err)
			}
		} else {
			if len(out.UnprocessedItems) == 0 {
				return nil
			}
			if attempt >= s.retry.MaxRetries {
				return fmt.Errorf("BatchWriteItem left %d items unprocessed after %d retries",
					len(out.UnprocessedItems[s.tableName]), s.retry.MaxRetries)
			}
			request = out.UnprocessedItems
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return err
		}
	}
}

// InsertIgnoring writes each entity unless an item with the same primary key
// exists. DynamoDB can only enforce uniqueness of the primary key, so
// uniqueFields must be empty.
func (s *Store[I, T]) InsertIgnoring(ctx context.Context, entities []T, uniqueFields ...string) (datastore.BulkResult, error) {
	if len(uniqueFields) > 0 {
		return nil, eserrors.NewValidationError("uniqueFields", "DynamoDB only enforces primary key uniqueness")
	}
	outcome := &BulkOutcome{Inserted: make([]bool, len(entities))}
	for i, e := range entities {
		item, err := s.item(e)
		if err != nil {
			return outcome, err
		}
		_, err = s.client.PutItem(ctx, &sdk.PutItemInput{
			TableName:                &s.tableName,
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
			ExpressionAttributeNames: map[string]string{"#pk": registry.PartitionKey},
		})
		if err != nil {
			var cfe *types.ConditionalCheckFailedException
			if errors.As(err, &cfe) {
				continue
			}
			return outcome, fmt.Errorf("PutItem failed: %w", err)
		}
		outcome.Inserted[i] = true
	}
	return outcome, nil
}

// ParseBulk returns the candidates result reports as written.
func (s *Store[I, T]) ParseBulk(candidates []T, result datastore.BulkResult) ([]T, error) {
	outcome, ok := result.(*BulkOutcome)
	if !ok {
		return nil, eserrors.NewValidationError("result", fmt.Sprintf("unexpected bulk result %T", result))
	}
	if len(outcome.Inserted) != len(candidates) {
		return nil, eserrors.NewValidationError("result",
			fmt.Sprintf("bulk result covers %d candidates, got %d", len(outcome.Inserted), len(candidates)))
	}
	inserted := make([]T, 0, outcome.Count())
	for i, ok := range outcome.Inserted {
		if ok {
			inserted = append(inserted, candidates[i])
		}
	}
	return inserted, nil
}
