/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entitysync/storagemodels"
)

// Condition is a backend-specific selection. Callers above the backend only
// ask whether it is empty; each backend type-asserts its own condition type.
type Condition interface {
	IsEmpty() bool
}

// Repository is the storage capability required for an entity type T
// identified by I.
type Repository[I comparable, T any] interface {
	// FindByID returns the entity and whether it was found.
	FindByID(ctx context.Context, id I) (T, bool, error)

	FindByIDs(ctx context.Context, ids []I) ([]T, error)

	FindByCondition(ctx context.Context, cond Condition, opts storagemodels.FindOptions) ([]T, error)

	CountByCondition(ctx context.Context, cond Condition) (int64, error)

	// Insert and InsertAll return the stored entities, including any values
	// the backend populated such as generated identifiers.
	Insert(ctx context.Context, entity T) (T, error)

	InsertAll(ctx context.Context, entities []T) ([]T, error)

	// UpdateByIDs merges the set fields of patch into every entity in ids.
	UpdateByIDs(ctx context.Context, ids []I, patch T) ([]T, error)

	UpdateByCondition(ctx context.Context, cond Condition, patch T) (int64, error)

	DropByID(ctx context.Context, id I) (bool, error)

	// DropByIDs returns the identifiers actually removed.
	DropByIDs(ctx context.Context, ids []I) ([]I, error)

	DropByCondition(ctx context.Context, cond Condition) (int64, error)
}

// BulkResult is the opaque outcome of an insert-ignoring bulk write. Only the
// backend that produced it can interpret it.
type BulkResult any

// BulkInserter is implemented by backends that can insert while skipping
// records whose uniqueness key already exists, and report which were new.
type BulkInserter[I comparable, T any] interface {
	// InsertIgnoring inserts entities, skipping duplicates of uniqueFields
	// (the identifier when none are given).
	InsertIgnoring(ctx context.Context, entities []T, uniqueFields ...string) (BulkResult, error)

	// ParseBulk returns the subsequence of candidates that result reports as
	// newly inserted.
	ParseBulk(candidates []T, result BulkResult) ([]T, error)
}

// Counter is implemented by backends that allow a full-table count.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}
