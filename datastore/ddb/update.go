/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/registry"
	"github.com/suparena/entitysync/storagemodels"
)

// patchAttributes returns the attributes patch sets. NULL attributes, key
// attributes, index attributes and the entity type are never patched.
func (s *Store[I, T]) patchAttributes(patch T) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}
	for name, v := range av {
		if _, isNull := v.(*types.AttributeValueMemberNULL); isNull {
			delete(av, name)
			continue
		}
		if _, isIndex := s.indexMap[name]; isIndex || s.keyAttrs[name] || name == EntityTypeAttribute {
			delete(av, name)
		}
	}
	return av, nil
}

// buildUpdateExpression transforms a map of attribute->value into:
//   - an "update expression" (e.g., "SET #f0 = :v0, #f1 = :v1")
//   - a corresponding map of expression attribute names
//   - a corresponding map of expression attribute values
//
// Attributes are numbered in name order so the expression is deterministic.
func buildUpdateExpression(updates map[string]types.AttributeValue) (string,
	map[string]string,
	map[string]types.AttributeValue,
	error) {

	if len(updates) == 0 {
		return "", nil, nil, errors.New("no updates provided")
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(fields))
	exprAttrNames := make(map[string]string, len(fields))
	exprAttrValues := make(map[string]types.AttributeValue, len(fields))
	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		placeholderValue := fmt.Sprintf(":v%d", i)
		setClauses = append(setClauses, placeholderName+" = "+placeholderValue)
		exprAttrNames[placeholderName] = field
		exprAttrValues[placeholderValue] = updates[field]
	}
	return "SET " + strings.Join(setClauses, ", "), exprAttrNames, exprAttrValues, nil
}

// UpdateByIDs sets the non-null attributes of patch on every existing item in
// ids and returns the updated entities. Items that do not exist are skipped
// rather than created. Index attributes derived from patched attributes are
// recomputed.
func (s *Store[I, T]) UpdateByIDs(ctx context.Context, ids []I, patch T) ([]T, error) {
	attrs, err := s.patchAttributes(patch)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return s.FindByIDs(ctx, ids)
	}

	updated := make([]T, 0, len(ids))
	for _, id := range ids {
		key, err := s.key(id)
		if err != nil {
			return updated, err
		}
		item, ok, err := s.updateItem(ctx, key, attrs)
		if err != nil {
			return updated, err
		}
		if !ok {
			continue
		}
		if item, err = s.refreshIndexes(ctx, key, item, attrs); err != nil {
			return updated, err
		}
		v, err := s.decode(item)
		if err != nil {
			return updated, err
		}
		updated = append(updated, v)
	}
	return updated, nil
}

// updateItem applies attrs to an existing item and returns its new image.
func (s *Store[I, T]) updateItem(ctx context.Context, key map[string]types.AttributeValue, attrs map[string]types.AttributeValue) (map[string]types.AttributeValue, bool, error) {
	updateExpr, names, values, err := buildUpdateExpression(attrs)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build update expression: %w", err)
	}
	names["#pk"] = registry.PartitionKey

	out, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       key,
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("UpdateItem failed: %w", err)
	}
	return out.Attributes, true, nil
}

// refreshIndexes rewrites the secondary index attributes whose templates
// reference a patched attribute.
func (s *Store[I, T]) refreshIndexes(ctx context.Context, key, item map[string]types.AttributeValue, patched map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	v, err := s.decode(item)
	if err != nil {
		return nil, err
	}
	expanded, err := expandMacros(s.indexMap, v)
	if err != nil {
		return nil, err
	}

	stale := make(map[string]types.AttributeValue)
	for name, template := range s.indexMap {
		if name == registry.PartitionKey || name == registry.SortKey || !referencesAny(template, patched) {
			continue
		}
		value := expanded[name]
		if value == "" {
			continue
		}
		if cur, ok := item[name].(*types.AttributeValueMemberS); ok && cur.Value == value {
			continue
		}
		stale[name] = &types.AttributeValueMemberS{Value: value}
	}
	if len(stale) == 0 {
		return item, nil
	}

	refreshed, ok, err := s.updateItem(ctx, key, stale)
	if err != nil || !ok {
		return item, err
	}
	return refreshed, nil
}

func referencesAny(template string, attrs map[string]types.AttributeValue) bool {
	for _, m := range macroPattern.FindAllStringSubmatch(template, -1) {
		if _, ok := attrs[m[1]]; ok {
			return true
		}
	}
	return false
}

// UpdateByCondition applies patch to every item matching params and returns
// the number of items updated.
func (s *Store[I, T]) UpdateByCondition(ctx context.Context, cond datastore.Condition, patch T) (int64, error) {
	matched, err := s.FindByCondition(ctx, cond, storagemodels.FindOptions{})
	if err != nil {
		return 0, err
	}
	ids := make([]I, 0, len(matched))
	for _, e := range matched {
		ids = append(ids, s.getID(e))
	}
	updated, err := s.UpdateByIDs(ctx, ids, patch)
	return int64(len(updated)), err
}
