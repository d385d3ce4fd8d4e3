/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/storagemodels"
)

// Query is a backend condition plus an optional order and window.
type Query struct {
	Cond   datastore.Condition
	Sort   []storagemodels.SortField
	Offset int64
	Limit  int64
}

// Where starts a query on cond.
func Where(cond datastore.Condition) Query {
	return Query{Cond: cond}
}

// OrderBy returns a copy of q sorted by fields.
func (q Query) OrderBy(fields ...storagemodels.SortField) Query {
	q.Sort = append([]storagemodels.SortField(nil), fields...)
	return q
}

// Window returns a copy of q restricted to [offset, offset+limit).
func (q Query) Window(offset, limit int64) Query {
	q.Offset = offset
	q.Limit = limit
	return q
}

// IsEmpty reports whether q has no condition. Empty queries match nothing and
// never reach the backend.
func (q Query) IsEmpty() bool {
	return q.Cond == nil || q.Cond.IsEmpty()
}

func (q Query) findOptions() storagemodels.FindOptions {
	return storagemodels.FindOptions{Sort: q.Sort, Offset: q.Offset, Limit: q.Limit}
}
