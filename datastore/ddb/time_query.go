/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TimeRangeQueryBuilder provides specialized methods for time-based queries
// on a GSI whose sort key is an RFC 3339 timestamp.
type TimeRangeQueryBuilder[I comparable, T any] struct {
	*IndexQueryBuilder[I, T]
	timeField string
	now       func() time.Time
}

// QueryByTimeRange creates a new time-based query builder on GSI1.
func (s *Store[I, T]) QueryByTimeRange(partitionKey string) *TimeRangeQueryBuilder[I, T] {
	return &TimeRangeQueryBuilder[I, T]{
		IndexQueryBuilder: s.QueryGSI().WithPartitionKey(partitionKey),
		timeField:         "CreatedAt",
		now:               time.Now,
	}
}

// WithTimeField names the entity attribute the sort key is derived from
// (default: CreatedAt). It is read back for time-based pagination.
func (q *TimeRangeQueryBuilder[I, T]) WithTimeField(field string) *TimeRangeQueryBuilder[I, T] {
	q.timeField = field
	return q
}

// InLastHours queries items created/updated in the last N hours
func (q *TimeRangeQueryBuilder[I, T]) InLastHours(hours int) *TimeRangeQueryBuilder[I, T] {
	return q.After(q.now().Add(-time.Duration(hours) * time.Hour))
}

// InLastDays queries items created/updated in the last N days
func (q *TimeRangeQueryBuilder[I, T]) InLastDays(days int) *TimeRangeQueryBuilder[I, T] {
	return q.After(q.now().AddDate(0, 0, -days))
}

// Between queries items between two timestamps
func (q *TimeRangeQueryBuilder[I, T]) Between(start, end time.Time) *TimeRangeQueryBuilder[I, T] {
	q.WithSortKeyBetween(start.Format(time.RFC3339), end.Format(time.RFC3339))
	return q
}

// After queries items after a specific timestamp
func (q *TimeRangeQueryBuilder[I, T]) After(timestamp time.Time) *TimeRangeQueryBuilder[I, T] {
	q.WithSortKeyGreaterThan(timestamp.Format(time.RFC3339))
	return q
}

// Before queries items before a specific timestamp
func (q *TimeRangeQueryBuilder[I, T]) Before(timestamp time.Time) *TimeRangeQueryBuilder[I, T] {
	q.WithSortKeyLessThan(timestamp.Format(time.RFC3339))
	return q
}

// Today queries items created/updated today
func (q *TimeRangeQueryBuilder[I, T]) Today() *TimeRangeQueryBuilder[I, T] {
	now := q.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return q.Between(startOfDay, startOfDay.Add(24*time.Hour))
}

// ThisWeek queries items from the current week, starting on Monday
func (q *TimeRangeQueryBuilder[I, T]) ThisWeek() *TimeRangeQueryBuilder[I, T] {
	now := q.now()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday as last day of week
	}
	startOfWeek := now.AddDate(0, 0, -weekday+1)
	startOfWeek = time.Date(startOfWeek.Year(), startOfWeek.Month(), startOfWeek.Day(), 0, 0, 0, 0, startOfWeek.Location())
	return q.After(startOfWeek)
}

// ThisMonth queries items from the current month
func (q *TimeRangeQueryBuilder[I, T]) ThisMonth() *TimeRangeQueryBuilder[I, T] {
	now := q.now()
	return q.After(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
}

// Latest returns results in descending time order (newest first)
func (q *TimeRangeQueryBuilder[I, T]) Latest() *TimeRangeQueryBuilder[I, T] {
	q.WithOrder(false)
	return q
}

// Oldest returns results in ascending time order (oldest first)
func (q *TimeRangeQueryBuilder[I, T]) Oldest() *TimeRangeQueryBuilder[I, T] {
	q.WithOrder(true)
	return q
}

// WithLimit sets the query limit
func (q *TimeRangeQueryBuilder[I, T]) WithLimit(limit int32) *TimeRangeQueryBuilder[I, T] {
	q.IndexQueryBuilder.WithLimit(limit)
	return q
}

// WithFilter adds a filter expression
func (q *TimeRangeQueryBuilder[I, T]) WithFilter(expression string, values map[string]types.AttributeValue) *TimeRangeQueryBuilder[I, T] {
	q.IndexQueryBuilder.WithFilter(expression, values)
	return q
}

// lastTimestamp reads the time field of entity.
func (q *TimeRangeQueryBuilder[I, T]) lastTimestamp(entity T) (*time.Time, error) {
	av, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, err
	}
	attr, ok := av[q.timeField].(*types.AttributeValueMemberS)
	if !ok {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, attr.Value)
	if err != nil {
		return nil, fmt.Errorf("%s is not an RFC 3339 timestamp: %w", q.timeField, err)
	}
	return &ts, nil
}

// TimeWindowIterator provides an iterator for processing time-based windows
type TimeWindowIterator[I comparable, T any] struct {
	store        *Store[I, T]
	partitionKey string
	windowSize   time.Duration
	endTime      time.Time
	current      time.Time
}

// QueryTimeWindows creates an iterator for querying in time windows
func (s *Store[I, T]) QueryTimeWindows(partitionKey string, start, end time.Time, windowSize time.Duration) *TimeWindowIterator[I, T] {
	return &TimeWindowIterator[I, T]{
		store:        s,
		partitionKey: partitionKey,
		windowSize:   windowSize,
		endTime:      end,
		current:      start,
	}
}

// Next returns the next window of results and whether more windows follow.
func (it *TimeWindowIterator[I, T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.windowSize <= 0 {
		return nil, false, fmt.Errorf("window size must be positive")
	}
	if !it.current.Before(it.endTime) {
		return nil, false, nil
	}

	windowEnd := it.current.Add(it.windowSize)
	if windowEnd.After(it.endTime) {
		windowEnd = it.endTime
	}

	results, err := it.store.QueryByTimeRange(it.partitionKey).
		Between(it.current, windowEnd).
		Oldest().
		Find(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query time window: %w", err)
	}

	it.current = windowEnd
	return results, it.current.Before(it.endTime), nil
}

// Common time-based query patterns as convenience methods

// QueryLatestItems queries the N most recent items
func (s *Store[I, T]) QueryLatestItems(ctx context.Context, partitionKey string, limit int32) ([]T, error) {
	return s.QueryByTimeRange(partitionKey).
		Latest().
		WithLimit(limit).
		Find(ctx)
}

// QueryItemsSince queries all items created/updated since a timestamp
func (s *Store[I, T]) QueryItemsSince(ctx context.Context, partitionKey string, since time.Time) ([]T, error) {
	return s.QueryByTimeRange(partitionKey).
		After(since).
		Latest().
		Find(ctx)
}

// QueryItemsInDateRange queries items within a date range
func (s *Store[I, T]) QueryItemsInDateRange(ctx context.Context, partitionKey string, start, end time.Time) ([]T, error) {
	return s.QueryByTimeRange(partitionKey).
		Between(start, end).
		Oldest().
		Find(ctx)
}

// TimeBasedPagination helps with time-based pagination
type TimeBasedPagination struct {
	PageSize      int32
	LastTimestamp *time.Time
	Direction     string // "forward" or "backward"
}

// QueryWithTimePagination returns one page and the timestamp to continue
// from, which is nil when the page is empty.
func (s *Store[I, T]) QueryWithTimePagination(ctx context.Context, partitionKey string, pagination TimeBasedPagination) ([]T, *time.Time, error) {
	builder := s.QueryByTimeRange(partitionKey).WithLimit(pagination.PageSize)
	backward := pagination.Direction == "backward"

	if pagination.LastTimestamp != nil {
		if backward {
			builder.Before(*pagination.LastTimestamp)
		} else {
			builder.After(*pagination.LastTimestamp)
		}
	}
	if backward {
		builder.Latest()
	} else {
		builder.Oldest()
	}

	results, err := builder.Find(ctx)
	if err != nil || len(results) == 0 {
		return results, nil, err
	}
	last, err := builder.lastTimestamp(results[len(results)-1])
	if err != nil {
		return nil, nil, err
	}
	return results, last, nil
}

