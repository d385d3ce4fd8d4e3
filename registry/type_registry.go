/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UnmarshalFunc defines a function that takes a raw DynamoDB item and returns the unmarshaled object.
type UnmarshalFunc func(item map[string]types.AttributeValue) (any, error)

var (
	typeRegistry = make(map[string]UnmarshalFunc)
	typeMu       sync.RWMutex
)

// RegisterType registers an unmarshal function for an entity type name.
// A name can be registered only once.
func RegisterType(entityType string, fn UnmarshalFunc) error {
	typeMu.Lock()
	defer typeMu.Unlock()
	if _, exists := typeRegistry[entityType]; exists {
		return fmt.Errorf("type registry: type %q already registered", entityType)
	}
	typeRegistry[entityType] = fn
	return nil
}

// EnsureType registers fn for entityType unless a function is already registered.
func EnsureType(entityType string, fn UnmarshalFunc) {
	typeMu.Lock()
	defer typeMu.Unlock()
	if _, exists := typeRegistry[entityType]; !exists {
		typeRegistry[entityType] = fn
	}
}

// GetUnmarshalFunc returns the registered unmarshal function for the given entity type.
func GetUnmarshalFunc(entityType string) (UnmarshalFunc, error) {
	typeMu.RLock()
	defer typeMu.RUnlock()
	fn, ok := typeRegistry[entityType]
	if !ok {
		return nil, fmt.Errorf("type registry: no type registered for %q", entityType)
	}
	return fn, nil
}

// RegisteredTypes returns the registered entity type names in sorted order.
func RegisteredTypes() []string {
	typeMu.RLock()
	defer typeMu.RUnlock()
	names := make([]string, 0, len(typeRegistry))
	for name := range typeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
