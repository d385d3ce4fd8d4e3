/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Repository for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/storagemodels"
)

// Operation names used for call counting and error injection.
const (
	OpFindByID          = "FindByID"
	OpFindByIDs         = "FindByIDs"
	OpFindByCondition   = "FindByCondition"
	OpCountByCondition  = "CountByCondition"
	OpCount             = "Count"
	OpInsert            = "Insert"
	OpInsertAll         = "InsertAll"
	OpInsertIgnoring    = "InsertIgnoring"
	OpUpdateByIDs       = "UpdateByIDs"
	OpUpdateByCondition = "UpdateByCondition"
	OpDropByID          = "DropByID"
	OpDropByIDs         = "DropByIDs"
	OpDropByCondition   = "DropByCondition"
)

var readOps = map[string]bool{
	OpFindByID:         true,
	OpFindByIDs:        true,
	OpFindByCondition:  true,
	OpCountByCondition: true,
	OpCount:            true,
}

// Match is the condition type of the mock: a predicate over stored entities.
// A nil Match is empty.
type Match[T any] func(entity T) bool

// IsEmpty reports whether the predicate is nil.
func (m Match[T]) IsEmpty() bool {
	return m == nil
}

// All matches every stored entity.
func All[T any]() Match[T] {
	return func(T) bool { return true }
}

// BulkOutcome is the bulk result of InsertIgnoring: the candidate positions
// that were stored and those skipped as duplicates.
type BulkOutcome struct {
	Inserted []int
	Skipped  []int
}

// DataStore is an in-memory datastore.Repository[I, T] that counts every
// call and can be told to fail.
type DataStore[I comparable, T any] struct {
	mu    sync.RWMutex
	data  map[I]T
	order []I

	getID     func(T) I
	merge     func(dst *T, patch T)
	nextID    func() I
	setID     func(*T, I)
	uniqueKey func(entity T, fields []string) string
	less      func(field string, a, b T) bool
	noParse   bool

	calls map[string]int
	errs  map[string]error
}

// New creates an empty mock keyed by getID.
func New[I comparable, T any](getID func(T) I) *DataStore[I, T] {
	return &DataStore[I, T]{
		data:  make(map[I]T),
		getID: getID,
		calls: make(map[string]int),
		errs:  make(map[string]error),
	}
}

// WithMerge sets how an update patch is applied to a stored entity. Without
// it UpdateByIDs leaves stored entities unchanged.
func (m *DataStore[I, T]) WithMerge(f func(dst *T, patch T)) *DataStore[I, T] {
	m.merge = f
	return m
}

// WithIDGenerator assigns generated identifiers to inserted entities whose
// identifier is the zero value.
func (m *DataStore[I, T]) WithIDGenerator(next func() I, set func(*T, I)) *DataStore[I, T] {
	m.nextID = next
	m.setID = set
	return m
}

// WithUniqueKey sets how InsertIgnoring derives the uniqueness key of an
// entity for the given field names. The identifier is used otherwise.
func (m *DataStore[I, T]) WithUniqueKey(f func(entity T, fields []string) string) *DataStore[I, T] {
	m.uniqueKey = f
	return m
}

// WithLess enables sorting by field for FindByCondition.
func (m *DataStore[I, T]) WithLess(f func(field string, a, b T) bool) *DataStore[I, T] {
	m.less = f
	return m
}

// WithoutParseBulk makes ParseBulk report that it is not implemented.
func (m *DataStore[I, T]) WithoutParseBulk() *DataStore[I, T] {
	m.noParse = true
	return m
}

// WithError makes the named operation return err.
func (m *DataStore[I, T]) WithError(op string, err error) *DataStore[I, T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
	return m
}

// WithInsertError makes insert operations return an error
func (m *DataStore[I, T]) WithInsertError(err error) *DataStore[I, T] {
	m.WithError(OpInsert, err)
	m.WithError(OpInsertAll, err)
	return m.WithError(OpInsertIgnoring, err)
}

// WithUpdateError makes update operations return an error
func (m *DataStore[I, T]) WithUpdateError(err error) *DataStore[I, T] {
	m.WithError(OpUpdateByIDs, err)
	return m.WithError(OpUpdateByCondition, err)
}

// WithDeleteError makes drop operations return an error
func (m *DataStore[I, T]) WithDeleteError(err error) *DataStore[I, T] {
	m.WithError(OpDropByID, err)
	m.WithError(OpDropByIDs, err)
	return m.WithError(OpDropByCondition, err)
}

// call records op and returns its injected error. Callers hold m.mu.
func (m *DataStore[I, T]) call(op string) error {
	m.calls[op]++
	return m.errs[op]
}

// FindByID retrieves an entity by identifier
func (m *DataStore[I, T]) FindByID(ctx context.Context, id I) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if err := m.call(OpFindByID); err != nil {
		return zero, false, err
	}
	entity, ok := m.data[id]
	return entity, ok, nil
}

// FindByIDs retrieves the stored entities among ids, in the order of ids
func (m *DataStore[I, T]) FindByIDs(ctx context.Context, ids []I) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpFindByIDs); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	seen := make(map[I]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if entity, ok := m.data[id]; ok {
			out = append(out, entity)
		}
	}
	return out, nil
}

// FindByCondition returns the matching entities in insertion order, or sorted
// when WithLess is set
func (m *DataStore[I, T]) FindByCondition(ctx context.Context, cond datastore.Condition, opts storagemodels.FindOptions) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpFindByCondition); err != nil {
		return nil, err
	}
	match, err := asMatch[T](cond)
	if err != nil {
		return nil, err
	}
	found := m.matching(match)

	if m.less != nil && len(opts.Sort) > 0 {
		sort.SliceStable(found, func(i, j int) bool {
			for _, s := range opts.Sort {
				a, b := found[i], found[j]
				if s.Desc {
					a, b = b, a
				}
				if m.less(s.Field, a, b) {
					return true
				}
				if m.less(s.Field, b, a) {
					return false
				}
			}
			return false
		})
	}

	if opts.Offset > 0 {
		if opts.Offset >= int64(len(found)) {
			return []T{}, nil
		}
		found = found[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(found)) {
		found = found[:opts.Limit]
	}
	return found, nil
}

// CountByCondition counts the matching entities
func (m *DataStore[I, T]) CountByCondition(ctx context.Context, cond datastore.Condition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpCountByCondition); err != nil {
		return 0, err
	}
	match, err := asMatch[T](cond)
	if err != nil {
		return 0, err
	}
	return int64(len(m.matching(match))), nil
}

// Count returns the number of stored entities
func (m *DataStore[I, T]) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpCount); err != nil {
		return 0, err
	}
	return int64(len(m.data)), nil
}

// Insert stores an entity
func (m *DataStore[I, T]) Insert(ctx context.Context, entity T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpInsert); err != nil {
		var zero T
		return zero, err
	}
	return m.store(entity), nil
}

// InsertAll stores every entity
func (m *DataStore[I, T]) InsertAll(ctx context.Context, entities []T) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpInsertAll); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		out = append(out, m.store(e))
	}
	return out, nil
}

// InsertIgnoring stores the entities whose uniqueness key is not present yet
func (m *DataStore[I, T]) InsertIgnoring(ctx context.Context, entities []T, uniqueFields ...string) (datastore.BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpInsertIgnoring); err != nil {
		return nil, err
	}
	if len(uniqueFields) > 0 && m.uniqueKey == nil {
		return nil, errors.NewValidationError("uniqueFields", "set WithUniqueKey to dedupe by fields other than the identifier")
	}

	keyOf := func(e T) string {
		if len(uniqueFields) > 0 {
			return m.uniqueKey(e, uniqueFields)
		}
		return fmt.Sprint(m.getID(e))
	}
	existing := make(map[string]bool, len(m.data))
	for _, e := range m.data {
		existing[keyOf(e)] = true
	}

	outcome := &BulkOutcome{}
	for i, e := range entities {
		key := keyOf(e)
		if existing[key] {
			outcome.Skipped = append(outcome.Skipped, i)
			continue
		}
		m.store(e)
		existing[key] = true
		outcome.Inserted = append(outcome.Inserted, i)
	}
	return outcome, nil
}

// ParseBulk returns the candidates a BulkOutcome reports as inserted
func (m *DataStore[I, T]) ParseBulk(candidates []T, result datastore.BulkResult) ([]T, error) {
	if m.noParse {
		return nil, errors.NewNotImplementedError("ParseBulk")
	}
	outcome, ok := result.(*BulkOutcome)
	if !ok {
		return nil, errors.NewValidationError("result", fmt.Sprintf("unexpected bulk result %T", result))
	}
	out := make([]T, 0, len(outcome.Inserted))
	for _, i := range outcome.Inserted {
		if i < 0 || i >= len(candidates) {
			return nil, errors.NewValidationError("result", fmt.Sprintf("position %d out of range", i))
		}
		out = append(out, candidates[i])
	}
	return out, nil
}

// UpdateByIDs applies patch to every stored entity among ids
func (m *DataStore[I, T]) UpdateByIDs(ctx context.Context, ids []I, patch T) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpUpdateByIDs); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, ok := m.data[id]
		if !ok {
			continue
		}
		if m.merge != nil {
			m.merge(&entity, patch)
			m.data[id] = entity
		}
		out = append(out, entity)
	}
	return out, nil
}

// UpdateByCondition applies patch to every matching entity
func (m *DataStore[I, T]) UpdateByCondition(ctx context.Context, cond datastore.Condition, patch T) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpUpdateByCondition); err != nil {
		return 0, err
	}
	match, err := asMatch[T](cond)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range m.order {
		entity := m.data[id]
		if !match(entity) {
			continue
		}
		if m.merge != nil {
			m.merge(&entity, patch)
			m.data[id] = entity
		}
		n++
	}
	return n, nil
}

// DropByID removes an entity by identifier
func (m *DataStore[I, T]) DropByID(ctx context.Context, id I) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpDropByID); err != nil {
		return false, err
	}
	return m.remove(id), nil
}

// DropByIDs removes the stored entities among ids and returns their identifiers
func (m *DataStore[I, T]) DropByIDs(ctx context.Context, ids []I) ([]I, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpDropByIDs); err != nil {
		return nil, err
	}
	dropped := make([]I, 0, len(ids))
	for _, id := range ids {
		if m.remove(id) {
			dropped = append(dropped, id)
		}
	}
	return dropped, nil
}

// DropByCondition removes every matching entity
func (m *DataStore[I, T]) DropByCondition(ctx context.Context, cond datastore.Condition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.call(OpDropByCondition); err != nil {
		return 0, err
	}
	match, err := asMatch[T](cond)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, id := range append([]I(nil), m.order...) {
		if match(m.data[id]) && m.remove(id) {
			n++
		}
	}
	return n, nil
}

// Helper methods for testing

// SetData replaces the stored entities (for testing)
func (m *DataStore[I, T]) SetData(entities ...T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[I]T, len(entities))
	m.order = nil
	for _, e := range entities {
		m.store(e)
	}
}

// GetData returns a copy of the stored entities (for testing)
func (m *DataStore[I, T]) GetData() map[I]T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[I]T, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}
	return result
}

// Len returns the number of stored entities
func (m *DataStore[I, T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Calls returns how many times op was invoked
func (m *DataStore[I, T]) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Reads returns the number of read calls
func (m *DataStore[I, T]) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for op, c := range m.calls {
		if readOps[op] {
			n += c
		}
	}
	return n
}

// Writes returns the number of write calls
func (m *DataStore[I, T]) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for op, c := range m.calls {
		if !readOps[op] {
			n += c
		}
	}
	return n
}

// CallLog describes the recorded calls, e.g. "FindByIDs=1 UpdateByIDs=1"
func (m *DataStore[I, T]) CallLog() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	parts := make([]string, 0, len(m.calls))
	for op, c := range m.calls {
		parts = append(parts, fmt.Sprintf("%s=%d", op, c))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// ResetCalls clears the call counters
func (m *DataStore[I, T]) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

// store saves entity, assigning a generated identifier if needed. Callers hold m.mu.
func (m *DataStore[I, T]) store(entity T) T {
	var zero I
	id := m.getID(entity)
	if id == zero && m.nextID != nil && m.setID != nil {
		id = m.nextID()
		m.setID(&entity, id)
	}
	if _, exists := m.data[id]; !exists {
		m.order = append(m.order, id)
	}
	m.data[id] = entity
	return entity
}

// remove deletes id. Callers hold m.mu.
func (m *DataStore[I, T]) remove(id I) bool {
	if _, exists := m.data[id]; !exists {
		return false
	}
	delete(m.data, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// matching returns the entities accepted by match in insertion order. Callers hold m.mu.
func (m *DataStore[I, T]) matching(match Match[T]) []T {
	out := make([]T, 0)
	for _, id := range m.order {
		if entity := m.data[id]; match(entity) {
			out = append(out, entity)
		}
	}
	return out
}

func asMatch[T any](cond datastore.Condition) (Match[T], error) {
	match, ok := cond.(Match[T])
	if !ok || match == nil {
		return nil, errors.NewValidationError("cond", fmt.Sprintf("mock expects a mock.Match, got %T", cond))
	}
	return match, nil
}
