/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// Primary key attributes every index map must define.
const (
	PartitionKey = "PK"
	SortKey      = "SK"
)

var (
	indexMapRegistry = make(map[reflect.Type]map[string]string)
	mu               sync.RWMutex
)

// ValidateIndexMap checks that idxMap defines non-empty PK and SK templates.
func ValidateIndexMap(idxMap map[string]string) error {
	for _, key := range []string{PartitionKey, SortKey} {
		if idxMap[key] == "" {
			return fmt.Errorf("index map: missing %s template", key)
		}
	}
	return nil
}

// RegisterIndexMap associates a Go type T with a given DynamoDB index map (PK, SK, GSI keys).
// A later registration for the same type replaces the earlier one.
func RegisterIndexMap[T any](idxMap map[string]string) error {
	if err := ValidateIndexMap(idxMap); err != nil {
		return fmt.Errorf("%w for %s", err, typeOf[T]())
	}
	copied := make(map[string]string, len(idxMap))
	for k, v := range idxMap {
		copied[k] = v
	}

	mu.Lock()
	defer mu.Unlock()
	indexMapRegistry[typeOf[T]()] = copied
	return nil
}

// MustRegisterIndexMap is RegisterIndexMap for init functions; it panics on an invalid map.
func MustRegisterIndexMap[T any](idxMap map[string]string) {
	if err := RegisterIndexMap[T](idxMap); err != nil {
		panic(err)
	}
}

// GetIndexMap retrieves the indexMap for type T, if any.
func GetIndexMap[T any]() (map[string]string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	m, ok := indexMapRegistry[typeOf[T]()]
	return m, ok
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
