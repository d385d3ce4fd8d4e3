/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitysync/storagemodels"
)

// IndexQueryBuilder provides a fluent interface for building GSI queries.
//
// Key values are shaped by the index map templates of the index's key
// attributes: with "GSI1PK": "EMAIL#{Email}", WithPartitionKey("a@b.c")
// queries GSI1PK = "EMAIL#a@b.c". Values that already contain "#" are used
// verbatim.
type IndexQueryBuilder[I comparable, T any] struct {
	store       *Store[I, T]
	config      GSIConfig
	err         error
	pkValue     string
	skValue     string
	skValue2    string
	skOperator  string // "=", "begins_with", ">", "<", ">=", "<=", "BETWEEN"
	filters     []string
	filterNames map[string]string
	filterVals  map[string]types.AttributeValue
	limit       int64
	forward     *bool
}

// QueryIndex creates a query builder for the named index.
func (s *Store[I, T]) QueryIndex(indexName string) *IndexQueryBuilder[I, T] {
	q := &IndexQueryBuilder[I, T]{
		store:       s,
		filterNames: make(map[string]string),
		filterVals:  make(map[string]types.AttributeValue),
	}
	config, ok := s.gsi[indexName]
	if !ok {
		q.err = fmt.Errorf("no GSI configuration for index %q", indexName)
	}
	q.config = config
	return q
}

// QueryGSI creates a query builder for GSI1.
func (s *Store[I, T]) QueryGSI() *IndexQueryBuilder[I, T] {
	return s.QueryIndex("GSI1")
}

// WithPartitionKey sets the GSI partition key value
func (q *IndexQueryBuilder[I, T]) WithPartitionKey(value string) *IndexQueryBuilder[I, T] {
	q.pkValue = value
	return q
}

// WithSortKey sets the GSI sort key value with equals operator
func (q *IndexQueryBuilder[I, T]) WithSortKey(value string) *IndexQueryBuilder[I, T] {
	return q.sortKey("=", value)
}

// WithSortKeyPrefix sets the GSI sort key to use begins_with operator
func (q *IndexQueryBuilder[I, T]) WithSortKeyPrefix(prefix string) *IndexQueryBuilder[I, T] {
	return q.sortKey("begins_with", prefix)
}

// WithSortKeyGreaterThan sets the GSI sort key to use > operator
func (q *IndexQueryBuilder[I, T]) WithSortKeyGreaterThan(value string) *IndexQueryBuilder[I, T] {
	return q.sortKey(">", value)
}

// WithSortKeyGreaterOrEqual sets the GSI sort key to use >= operator
func (q *IndexQueryBuilder[I, T]) WithSortKeyGreaterOrEqual(value string) *IndexQueryBuilder[I, T] {
	return q.sortKey(">=", value)
}

// WithSortKeyLessThan sets the GSI sort key to use < operator
func (q *IndexQueryBuilder[I, T]) WithSortKeyLessThan(value string) *IndexQueryBuilder[I, T] {
	return q.sortKey("<", value)
}

// WithSortKeyLessOrEqual sets the GSI sort key to use <= operator
func (q *IndexQueryBuilder[I, T]) WithSortKeyLessOrEqual(value string) *IndexQueryBuilder[I, T] {
	return q.sortKey("<=", value)
}

// WithSortKeyBetween sets the GSI sort key to use BETWEEN operator
func (q *IndexQueryBuilder[I, T]) WithSortKeyBetween(start, end string) *IndexQueryBuilder[I, T] {
	q.skValue2 = end
	return q.sortKey("BETWEEN", start)
}

func (q *IndexQueryBuilder[I, T]) sortKey(op, value string) *IndexQueryBuilder[I, T] {
	q.skOperator = op
	q.skValue = value
	return q
}

// WithFilter adds a filter expression. Multiple filters are joined with AND.
func (q *IndexQueryBuilder[I, T]) WithFilter(expression string, values map[string]types.AttributeValue) *IndexQueryBuilder[I, T] {
	q.filters = append(q.filters, expression)
	for k, v := range values {
		q.filterVals[k] = v
	}
	return q
}

// WithFilterNames adds expression attribute names used by filters.
func (q *IndexQueryBuilder[I, T]) WithFilterNames(names map[string]string) *IndexQueryBuilder[I, T] {
	for k, v := range names {
		q.filterNames[k] = v
	}
	return q
}

// WithLimit caps the number of results Find returns.
func (q *IndexQueryBuilder[I, T]) WithLimit(limit int32) *IndexQueryBuilder[I, T] {
	q.limit = int64(limit)
	return q
}

// WithOrder sets the sort key traversal order.
func (q *IndexQueryBuilder[I, T]) WithOrder(ascending bool) *IndexQueryBuilder[I, T] {
	q.forward = aws.Bool(ascending)
	return q
}

// Build constructs the final query parameters
func (q *IndexQueryBuilder[I, T]) Build() (*storagemodels.QueryParams, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.pkValue == "" {
		return nil, fmt.Errorf("GSI partition key value is required")
	}
	pkTemplate, ok := q.store.indexMap[q.config.PartitionKeyName]
	if !ok {
		return nil, fmt.Errorf("%s not found in index map", q.config.PartitionKeyName)
	}

	params := &storagemodels.QueryParams{
		TableName: q.store.tableName,
		IndexName: aws.String(q.config.IndexName),
		ExpressionAttributeNames: map[string]string{
			"#gpk": q.config.PartitionKeyName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":gpk": &types.AttributeValueMemberS{Value: prefixTemplate(pkTemplate, q.pkValue)},
		},
		ScanIndexForward: q.forward,
	}
	keyConditions := []string{"#gpk = :gpk"}

	if q.skOperator != "" {
		if q.config.SortKeyName == "" {
			return nil, fmt.Errorf("index %s has no sort key", q.config.IndexName)
		}
		skTemplate := q.store.indexMap[q.config.SortKeyName]
		sortValue := func(v string) types.AttributeValue {
			if skTemplate != "" {
				v = prefixTemplate(skTemplate, v)
			}
			return &types.AttributeValueMemberS{Value: v}
		}

		params.ExpressionAttributeNames["#gsk"] = q.config.SortKeyName
		params.ExpressionAttributeValues[":gsk"] = sortValue(q.skValue)
		switch q.skOperator {
		case "begins_with":
			keyConditions = append(keyConditions, "begins_with(#gsk, :gsk)")
		case "BETWEEN":
			keyConditions = append(keyConditions, "#gsk BETWEEN :gsk AND :gsk2")
			params.ExpressionAttributeValues[":gsk2"] = sortValue(q.skValue2)
		default:
			keyConditions = append(keyConditions, "#gsk "+q.skOperator+" :gsk")
		}
	}
	params.KeyConditionExpression = strings.Join(keyConditions, " AND ")

	if len(q.filters) > 0 {
		params.FilterExpression = aws.String(strings.Join(q.filters, " AND "))
		for k, v := range q.filterNames {
			params.ExpressionAttributeNames[k] = v
		}
		for k, v := range q.filterVals {
			params.ExpressionAttributeValues[k] = v
		}
	}
	return params, nil
}

// Find runs the query and returns every result up to the limit.
func (q *IndexQueryBuilder[I, T]) Find(ctx context.Context) ([]T, error) {
	params, err := q.Build()
	if err != nil {
		return nil, err
	}
	return q.store.FindByCondition(ctx, params, storagemodels.FindOptions{Limit: q.limit})
}

// FindPage runs a single query page starting after startKey. The returned key
// is nil on the last page.
func (q *IndexQueryBuilder[I, T]) FindPage(ctx context.Context, startKey map[string]types.AttributeValue) ([]T, map[string]types.AttributeValue, error) {
	params, err := q.Build()
	if err != nil {
		return nil, nil, err
	}
	params.ExclusiveStartKey = startKey
	if q.limit > 0 {
		params.Limit = aws.Int32(int32(q.limit))
	}
	p, err := q.store.fetchWithRetry(ctx, q.store.newPageRequest(params, false))
	if err != nil {
		return nil, nil, err
	}
	results, err := q.store.decodeAll(p.items)
	if err != nil {
		return nil, nil, err
	}
	return results, p.last, nil
}

// Count returns the number of matching items.
func (q *IndexQueryBuilder[I, T]) Count(ctx context.Context) (int64, error) {
	params, err := q.Build()
	if err != nil {
		return 0, err
	}
	return q.store.count(ctx, params)
}

// Common GSI query patterns as convenience methods

// QueryByGSI1PK queries using only the GSI1 partition key
func (s *Store[I, T]) QueryByGSI1PK(ctx context.Context, pkValue string) ([]T, error) {
	return s.QueryGSI().
		WithPartitionKey(pkValue).
		Find(ctx)
}

// QueryByGSI1PKAndSKPrefix queries using GSI1 partition key and sort key prefix
func (s *Store[I, T]) QueryByGSI1PKAndSKPrefix(ctx context.Context, pkValue, skPrefix string) ([]T, error) {
	return s.QueryGSI().
		WithPartitionKey(pkValue).
		WithSortKeyPrefix(skPrefix).
		Find(ctx)
}

// QueryByGSI1PKWithFilter queries using GSI1 partition key with additional filters
func (s *Store[I, T]) QueryByGSI1PKWithFilter(ctx context.Context, pkValue string, filterExpr string, filterValues map[string]types.AttributeValue) ([]T, error) {
	return s.QueryGSI().
		WithPartitionKey(pkValue).
		WithFilter(filterExpr, filterValues).
		Find(ctx)
}
