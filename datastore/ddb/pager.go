/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitysync/storagemodels"
)

// RetryOptions configures retries of throttled or failed DynamoDB calls.
type RetryOptions struct {
	MaxRetries   int           // Retries after the first attempt (default: 3)
	RetryBackoff time.Duration // Linear backoff unit (default: 100ms)
	PageSize     int32         // Items per Query/Scan page; 0 lets DynamoDB decide
}

// DefaultRetryOptions returns the default retry options.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// page is one Query or Scan response.
type page struct {
	items []map[string]types.AttributeValue
	count int32
	last  map[string]types.AttributeValue
}

// pageRequest is a Query or Scan request, chosen by whether the params carry
// a key condition.
type pageRequest struct {
	query *sdk.QueryInput
	scan  *sdk.ScanInput
}

func (r pageRequest) setStart(key map[string]types.AttributeValue) {
	if r.query != nil {
		r.query.ExclusiveStartKey = key
	} else {
		r.scan.ExclusiveStartKey = key
	}
}

func (s *Store[I, T]) newPageRequest(params *storagemodels.QueryParams, countOnly bool) pageRequest {
	filter, names, values := s.scopedFilter(params)
	limit := params.Limit
	if limit == nil && s.retry.PageSize > 0 {
		limit = aws.Int32(s.retry.PageSize)
	}

	if params.KeyConditionExpression == "" {
		in := &sdk.ScanInput{
			TableName:                 &s.tableName,
			IndexName:                 params.IndexName,
			FilterExpression:          filter,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			Limit:                     limit,
			ExclusiveStartKey:         params.ExclusiveStartKey,
		}
		if countOnly {
			in.Select = types.SelectCount
		}
		return pageRequest{scan: in}
	}

	in := &sdk.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 params.IndexName,
		KeyConditionExpression:    aws.String(params.KeyConditionExpression),
		FilterExpression:          filter,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		Limit:                     limit,
		ExclusiveStartKey:         params.ExclusiveStartKey,
		ScanIndexForward:          params.ScanIndexForward,
		ConsistentRead:            s.consistentReadFor(params),
	}
	if countOnly {
		in.Select = types.SelectCount
	}
	return pageRequest{query: in}
}

// scopedFilter restricts params to items of the store's entity type.
func (s *Store[I, T]) scopedFilter(params *storagemodels.QueryParams) (*string, map[string]string, map[string]types.AttributeValue) {
	names := make(map[string]string, len(params.ExpressionAttributeNames)+1)
	for k, v := range params.ExpressionAttributeNames {
		names[k] = v
	}
	values := make(map[string]types.AttributeValue, len(params.ExpressionAttributeValues)+1)
	for k, v := range params.ExpressionAttributeValues {
		values[k] = v
	}

	names["#es_type"] = EntityTypeAttribute
	values[":es_type"] = &types.AttributeValueMemberS{Value: s.entityType}
	filter := "#es_type = :es_type"
	if params.FilterExpression != nil && *params.FilterExpression != "" {
		filter = "(" + *params.FilterExpression + ") AND " + filter
	}
	return aws.String(filter), names, values
}

func (s *Store[I, T]) consistentReadFor(params *storagemodels.QueryParams) *bool {
	if params.IndexName != nil || !s.consistentRead {
		return nil
	}
	return aws.Bool(true)
}

// forEachPage runs req page by page until fn returns false or the result is
// exhausted.
func (s *Store[I, T]) forEachPage(ctx context.Context, req pageRequest, fn func(p page) bool) error {
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := s.fetchWithRetry(ctx, req)
		if err != nil {
			return err
		}
		pages++
		if !fn(p) || len(p.last) == 0 {
			s.logger.WithField("pages", pages).Trace("paged read finished")
			return nil
		}
		req.setStart(p.last)
	}
}

// fetchWithRetry executes one page request with linear backoff on retryable
// errors.
func (s *Store[I, T]) fetchWithRetry(ctx context.Context, req pageRequest) (page, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		p, err := s.fetch(ctx, req)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return page{}, err
		}
		if attempt < s.retry.MaxRetries {
			if err := s.backoff(ctx, attempt); err != nil {
				return page{}, err
			}
		}
	}
	return page{}, fmt.Errorf("read failed after %d retries: %w", s.retry.MaxRetries, lastErr)
}

func (s *Store[I, T]) fetch(ctx context.Context, req pageRequest) (page, error) {
	if req.query != nil {
		out, err := s.client.Query(ctx, req.query)
		if err != nil {
			return page{}, err
		}
		return page{items: out.Items, count: out.Count, last: out.LastEvaluatedKey}, nil
	}
	out, err := s.client.Scan(ctx, req.scan)
	if err != nil {
		return page{}, err
	}
	return page{items: out.Items, count: out.Count, last: out.LastEvaluatedKey}, nil
}

func (s *Store[I, T]) backoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt+1) * s.retry.RetryBackoff):
		return nil
	}
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
