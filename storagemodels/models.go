/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SortField orders results by a single backend field.
type SortField struct {
	Field string
	Desc  bool
}

// Asc sorts ascending by field.
func Asc(field string) SortField {
	return SortField{Field: field}
}

// Desc sorts descending by field.
func Desc(field string) SortField {
	return SortField{Field: field, Desc: true}
}

// FindOptions is the ordering and window of a condition-based find.
// A zero Limit means no upper bound.
type FindOptions struct {
	Sort   []SortField
	Offset int64
	Limit  int64
}

// Windowed reports whether the options restrict the result set.
func (o FindOptions) Windowed() bool {
	return o.Offset > 0 || o.Limit > 0
}

// QueryParams defines parameters for a DynamoDB Query operation.
// It is the condition type understood by the ddb backend.
type QueryParams struct {
	// TableName is informational; the store always queries its own table.
	TableName string
	// KeyConditionExpression is the primary condition for the query.
	// An empty expression turns the query into a filtered Scan.
	KeyConditionExpression string
	// FilterExpression is an optional filter expression.
	FilterExpression *string
	// ExpressionAttributeNames contains the names for expression placeholders.
	ExpressionAttributeNames map[string]string
	// ExpressionAttributeValues contains the values for expression placeholders.
	ExpressionAttributeValues map[string]types.AttributeValue
	// IndexName is optional if you wish to query a secondary index.
	IndexName *string
	// Limit defines an optional limit per query page.
	Limit *int32
	// ExclusiveStartKey for pagination
	ExclusiveStartKey map[string]types.AttributeValue
	// ScanIndexForward specifies the order for index traversal.
	// If true (default), traversal is in ascending order.
	// If false, traversal is in descending order.
	ScanIndexForward *bool
}

// IsEmpty reports whether the params select nothing in particular.
// Mutations refuse to run against an empty condition.
func (p *QueryParams) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.KeyConditionExpression == "" && (p.FilterExpression == nil || *p.FilterExpression == "")
}
