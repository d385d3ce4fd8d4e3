/*
Package datastore defines the backend contract entitysync orchestrates.

The main interface is Repository[I, T], which provides the storage primitives
for an entity type T identified by I:

	type Repository[I comparable, T any] interface {
	    FindByID(ctx context.Context, id I) (T, bool, error)
	    FindByIDs(ctx context.Context, ids []I) ([]T, error)
	    FindByCondition(ctx context.Context, cond Condition, opts storagemodels.FindOptions) ([]T, error)
	    CountByCondition(ctx context.Context, cond Condition) (int64, error)
	    Insert(ctx context.Context, entity T) (T, error)
	    InsertAll(ctx context.Context, entities []T) ([]T, error)
	    UpdateByIDs(ctx context.Context, ids []I, patch T) ([]T, error)
	    UpdateByCondition(ctx context.Context, cond Condition, patch T) (int64, error)
	    DropByID(ctx context.Context, id I) (bool, error)
	    DropByIDs(ctx context.Context, ids []I) ([]I, error)
	    DropByCondition(ctx context.Context, cond Condition) (int64, error)
	}

Optional capabilities are separate interfaces discovered by type assertion:
BulkInserter (insert-ignoring writes plus parsing of their result) and Counter
(full-table count).

Implementations:
  - ddb: DynamoDB implementation with single-table key expansion
  - sqlstore: database/sql implementation for PostgreSQL, SQLite and MySQL
  - mock: in-memory implementation with call counters for testing
*/
package datastore
