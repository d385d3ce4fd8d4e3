/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitysync/registry"
)

// EntityTypeAttribute is injected into every stored item.
const EntityTypeAttribute = "EntityType"

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills every template of indexMap from the marshaled attributes
// of keysInput. Missing or non-scalar attributes expand to "".
func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		res[fieldName] = macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			return scalarString(av[strings.Trim(macro, "{}")])
		})
	}
	return res, nil
}

func scalarString(val types.AttributeValue) string {
	switch tv := val.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value
	case *types.AttributeValueMemberN:
		return tv.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value)
	default:
		return ""
	}
}

// expandStringKey replaces every macro of the index map templates with key.
func expandStringKey(indexMap map[string]string, key string) map[string]string {
	expanded := make(map[string]string, len(indexMap))
	for field, template := range indexMap {
		expanded[field] = macroPattern.ReplaceAllLiteralString(template, key)
	}
	return expanded
}

// buildKeyFromExpanded builds the primary key from expanded PK and SK values.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk := expanded[registry.PartitionKey]
	sk := expanded[registry.SortKey]
	if pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		registry.PartitionKey: &types.AttributeValueMemberS{Value: pk},
		registry.SortKey:      &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// keyAttributes returns the attribute names referenced by the PK and SK
// templates. Those attributes form the identity of an item and are never
// patched.
func keyAttributes(indexMap map[string]string) map[string]bool {
	attrs := make(map[string]bool)
	for _, key := range []string{registry.PartitionKey, registry.SortKey} {
		for _, m := range macroPattern.FindAllStringSubmatch(indexMap[key], -1) {
			attrs[m[1]] = true
		}
	}
	return attrs
}

// prefixTemplate expands template up to and including its first macro, which
// is replaced by value. Values that already carry a "#" separator are
// returned unchanged.
//
//	prefixTemplate("STATUS#{Status}#CREATED#{CreatedAt}", "active") == "STATUS#active"
func prefixTemplate(template, value string) string {
	if strings.Contains(value, "#") {
		return value
	}
	loc := macroPattern.FindStringIndex(template)
	if loc == nil {
		return value
	}
	return template[:loc[0]] + value
}
