/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitysync/registry"
	"github.com/suparena/entitysync/storagemodels"
)

// QueryAny runs params against tableName without restricting the entity type
// and returns a single page of mixed results. Each item is decoded by the
// function registered for its EntityType attribute; items of unregistered
// types are returned as generic maps. The returned key continues the query.
func QueryAny(ctx context.Context, client API, tableName string, params *storagemodels.QueryParams) ([]any, map[string]types.AttributeValue, error) {
	if params.KeyConditionExpression == "" {
		return nil, nil, fmt.Errorf("query requires a key condition")
	}
	out, err := client.Query(ctx, &sdk.QueryInput{
		TableName:                 &tableName,
		KeyConditionExpression:    aws.String(params.KeyConditionExpression),
		ExpressionAttributeNames:  params.ExpressionAttributeNames,
		ExpressionAttributeValues: params.ExpressionAttributeValues,
		FilterExpression:          params.FilterExpression,
		IndexName:                 params.IndexName,
		Limit:                     params.Limit,
		ExclusiveStartKey:         params.ExclusiveStartKey,
		ScanIndexForward:          params.ScanIndexForward,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("query error: %w", err)
	}
	results, err := DecodeItems(out.Items)
	if err != nil {
		return nil, nil, err
	}
	return results, out.LastEvaluatedKey, nil
}

// DecodeItems decodes raw items through the type registry.
func DecodeItems(items []map[string]types.AttributeValue) ([]any, error) {
	results := make([]any, 0, len(items))
	for _, item := range items {
		var entityType string
		attr, ok := item[EntityTypeAttribute]
		if !ok {
			return nil, fmt.Errorf("missing %s attribute in item", EntityTypeAttribute)
		}
		if err := attributevalue.Unmarshal(attr, &entityType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", EntityTypeAttribute, err)
		}

		unmarshalFn, err := registry.GetUnmarshalFunc(entityType)
		if err != nil {
			var generic map[string]any
			if err := attributevalue.UnmarshalMap(item, &generic); err != nil {
				return nil, fmt.Errorf("failed to unmarshal generic item: %w", err)
			}
			results = append(results, generic)
			continue
		}

		obj, err := unmarshalFn(item)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal item for EntityType %q: %w", entityType, err)
		}
		results = append(results, obj)
	}
	return results, nil
}
