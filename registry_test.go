/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/suparena/entitysync"
	"github.com/suparena/entitysync/datastore/mock"
	"github.com/suparena/entitysync/datastore/testmodels"
)

func TestRegistry(t *testing.T) {
	t.Run("BasicOperations", func(t *testing.T) {
		reg := entitysync.NewRegistry()
		records := newFixture(t, recordDescriptor(false)).svc

		if err := entitysync.Register(reg, "records", records); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		if err := entitysync.Register(reg, "records", records); err == nil {
			t.Fatal("Expected error for duplicate registration")
		}

		got, err := entitysync.Lookup[int64, record](reg, "records")
		if err != nil || got != records {
			t.Fatalf("Lookup failed: %v", err)
		}

		if _, err := entitysync.Lookup[int64, record](reg, "missing"); err == nil {
			t.Fatal("Expected error for unknown key")
		}

		if err := reg.Remove("records"); err != nil {
			t.Fatalf("Failed to remove: %v", err)
		}
		if err := reg.Remove("records"); err == nil {
			t.Fatal("Expected error removing twice")
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		reg := entitysync.NewRegistry()
		store := mock.New[string, testmodels.RatingSystem](testmodels.RatingSystemID)
		ratings, err := entitysync.NewService[string, testmodels.RatingSystem](store, testmodels.RatingSystemDescriptor())
		if err != nil {
			t.Fatalf("NewService failed: %v", err)
		}
		if err := entitysync.Register(reg, "ratings", ratings); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		if _, err := entitysync.Lookup[int64, record](reg, "ratings"); err == nil {
			t.Fatal("Expected error for mismatched types")
		}
	})

	t.Run("NilService", func(t *testing.T) {
		var svc *entitysync.Service[int64, record]
		if err := entitysync.Register(entitysync.NewRegistry(), "nil", svc); err == nil {
			t.Fatal("Expected error for nil service")
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		reg := entitysync.NewRegistry()
		svc := newFixture(t, recordDescriptor(false)).svc
		keys := []string{"a", "b", "c", "d", "e"}

		var wg sync.WaitGroup
		for _, k := range keys {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				if err := entitysync.Register(reg, key, svc); err != nil {
					t.Errorf("Register %s: %v", key, err)
				}
				if _, err := entitysync.Lookup[int64, record](reg, key); err != nil {
					t.Errorf("Lookup %s: %v", key, err)
				}
			}(k)
		}
		wg.Wait()

		if !reflect.DeepEqual(reg.Keys(), keys) {
			t.Fatalf("Expected sorted keys %v, got %v", keys, reg.Keys())
		}
	})
}
