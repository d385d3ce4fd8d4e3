/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps entity names (for example "Player" or "RatingRecord") to the
// services that own them. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]any),
	}
}

// Register stores svc under key. A key can be registered only once.
func Register[I comparable, T any](r *Registry, key string, svc *Service[I, T]) error {
	if svc == nil {
		return fmt.Errorf("service for key %q is nil", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[key]; exists {
		return fmt.Errorf("service with key %q already registered", key)
	}
	r.services[key] = svc
	return nil
}

// Lookup retrieves the service registered under key. It fails when the key is
// unknown or was registered for a different entity or identifier type.
func Lookup[I comparable, T any](r *Registry, key string) (*Service[I, T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw, exists := r.services[key]
	if !exists {
		return nil, fmt.Errorf("service with key %q not found", key)
	}
	svc, ok := raw.(*Service[I, T])
	if !ok {
		return nil, fmt.Errorf("service with key %q is %T, not %T", key, raw, svc)
	}
	return svc, nil
}

// Remove deletes the service registered under key.
func (r *Registry) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[key]; !exists {
		return fmt.Errorf("service with key %q not found", key)
	}
	delete(r.services, key)
	return nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
