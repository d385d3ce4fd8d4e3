/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/suparena/entitysync/datastore"
	"github.com/suparena/entitysync/errors"
	"github.com/suparena/entitysync/storagemodels"
)

// Where is the condition type of the SQL store: a boolean SQL expression with
// '?' placeholders and its arguments.
type Where struct {
	Clause string
	Args   []any
}

// Cond builds a Where condition.
func Cond(clause string, args ...any) Where {
	return Where{Clause: clause, Args: args}
}

// IsEmpty reports whether the clause is blank.
func (w Where) IsEmpty() bool {
	return strings.TrimSpace(w.Clause) == ""
}

// Table maps T onto a SQL table.
type Table[I comparable, T any] struct {
	Name     string
	IDColumn string
	// ID extracts the identifier of entity.
	ID func(entity T) I
	// Columns lists every column, the identifier column included.
	Columns []string
	// Values returns the column values of entity in Columns order.
	Values func(entity T) []any
	// Scan reads one row selected in Columns order.
	Scan func(scan func(dest ...any) error) (T, error)
	// Patch returns the columns and values of the set fields of patch.
	Patch func(patch T) (columns []string, values []any)
}

func (t Table[I, T]) validate() error {
	if t.Name == "" {
		return errors.NewConfigError("Table.Name", "table name is required")
	}
	if t.IDColumn == "" {
		return errors.NewConfigError("Table.IDColumn", "identifier column is required")
	}
	if t.ID == nil || t.Values == nil || t.Scan == nil || t.Patch == nil {
		return errors.NewConfigError("Table", "ID, Values, Scan and Patch are required")
	}
	if !t.hasColumn(t.IDColumn) {
		return errors.NewConfigError("Table.Columns", fmt.Sprintf("identifier column %q not listed", t.IDColumn))
	}
	return nil
}

func (t Table[I, T]) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// BulkOutcome is the bulk result of InsertIgnoring: the affected row count
// of each candidate, in candidate order.
type BulkOutcome struct {
	Affected []int64
}

// Inserted returns how many candidates were stored.
func (o *BulkOutcome) Inserted() int {
	n := 0
	for _, a := range o.Affected {
		if a > 0 {
			n++
		}
	}
	return n
}

// Store is a database/sql Repository.
type Store[I comparable, T any] struct {
	db      *sql.DB
	dialect Dialect
	table   Table[I, T]
	logger  *logrus.Logger
}

var (
	_ datastore.Repository[string, struct{}]   = (*Store[string, struct{}])(nil)
	_ datastore.BulkInserter[string, struct{}] = (*Store[string, struct{}])(nil)
	_ datastore.Counter                        = (*Store[string, struct{}])(nil)
)

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger *logrus.Logger
}

// WithLogger sets the logger SQL statements are traced to.
func WithLogger(l *logrus.Logger) Option {
	return func(o *storeOptions) {
		o.logger = l
	}
}

// New creates a store for table on db.
func New[I comparable, T any](db *sql.DB, dialect Dialect, table Table[I, T], opts ...Option) (*Store[I, T], error) {
	if db == nil {
		return nil, errors.NewConfigError("db", "database handle is required")
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	o := storeOptions{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[I, T]{db: db, dialect: dialect, table: table, logger: o.logger}, nil
}

// DB exposes the underlying handle.
func (s *Store[I, T]) DB() *sql.DB { return s.db }

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store[I, T]) selectList() string {
	return s.dialect.quoteAll(s.table.Columns)
}

func (s *Store[I, T]) from() string {
	return s.dialect.Quote(s.table.Name)
}

func (s *Store[I, T]) idIn(ids []I) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf("%s IN (%s)", s.dialect.Quote(s.table.IDColumn), placeholders(len(ids))), args
}

func (s *Store[I, T]) query(ctx context.Context, q queryer, stmt string, args ...any) ([]T, error) {
	stmt = s.dialect.Rebind(stmt)
	s.logger.WithField("sql", stmt).Trace("query")
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table.Name, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]T, 0)
	for rows.Next() {
		entity, err := s.table.Scan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table.Name, err)
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

func (s *Store[I, T]) exec(ctx context.Context, q queryer, stmt string, args ...any) (int64, error) {
	stmt = s.dialect.Rebind(stmt)
	s.logger.WithField("sql", stmt).Trace("exec")
	res, err := q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("exec on %s: %w", s.table.Name, err)
	}
	return res.RowsAffected()
}

func (s *Store[I, T]) count(ctx context.Context, where string, args ...any) (int64, error) {
	stmt := "SELECT COUNT(*) FROM " + s.from()
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt = s.dialect.Rebind(stmt)
	var n int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table.Name, err)
	}
	return n, nil
}

func (s *Store[I, T]) where(cond datastore.Condition) (Where, error) {
	w, ok := cond.(Where)
	if !ok {
		return Where{}, errors.NewValidationError("cond", fmt.Sprintf("sql store expects sqlstore.Where, got %T", cond))
	}
	if w.IsEmpty() {
		return Where{}, errors.NewValidationError("cond", "empty condition")
	}
	return w, nil
}

func (s *Store[I, T]) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// FindByID retrieves the row with id.
func (s *Store[I, T]) FindByID(ctx context.Context, id I) (T, bool, error) {
	var zero T
	found, err := s.FindByIDs(ctx, []I{id})
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

// FindByIDs retrieves the rows among ids.
func (s *Store[I, T]) FindByIDs(ctx context.Context, ids []I) ([]T, error) {
	return s.findByIDs(ctx, s.db, ids)
}

func (s *Store[I, T]) findByIDs(ctx context.Context, q queryer, ids []I) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	in, args := s.idIn(ids)
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", s.selectList(), s.from(), in, s.dialect.Quote(s.table.IDColumn))
	return s.query(ctx, q, stmt, args...)
}

// FindByCondition returns the rows matching cond within the window of opts.
func (s *Store[I, T]) FindByCondition(ctx context.Context, cond datastore.Condition, opts storagemodels.FindOptions) ([]T, error) {
	w, err := s.where(cond)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s", s.selectList(), s.from(), w.Clause)
	if len(opts.Sort) > 0 {
		order := make([]string, 0, len(opts.Sort))
		for _, f := range opts.Sort {
			if !s.table.hasColumn(f.Field) {
				return nil, errors.NewValidationError("sort", fmt.Sprintf("unknown column %q", f.Field))
			}
			dir := "ASC"
			if f.Desc {
				dir = "DESC"
			}
			order = append(order, s.dialect.Quote(f.Field)+" "+dir)
		}
		b.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}
	b.WriteString(s.dialect.window(opts.Offset, opts.Limit))
	return s.query(ctx, s.db, b.String(), w.Args...)
}

// CountByCondition counts the rows matching cond.
func (s *Store[I, T]) CountByCondition(ctx context.Context, cond datastore.Condition) (int64, error) {
	w, err := s.where(cond)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, w.Clause, w.Args...)
}

// Count counts every row.
func (s *Store[I, T]) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, "")
}

// Insert stores entity.
func (s *Store[I, T]) Insert(ctx context.Context, entity T) (T, error) {
	stored, err := s.InsertAll(ctx, []T{entity})
	if err != nil {
		return entity, err
	}
	return stored[0], nil
}

// InsertAll stores entities in one transaction.
func (s *Store[I, T]) InsertAll(ctx context.Context, entities []T) ([]T, error) {
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.from(), s.selectList(), placeholders(len(s.table.Columns)))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entities {
			if _, err := s.exec(ctx, tx, stmt, s.table.Values(e)...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// InsertIgnoring inserts every entity whose unique columns are not taken,
// one statement per row within a transaction. uniqueFields name the conflict
// columns; MySQL ignores them and relies on its unique indexes.
func (s *Store[I, T]) InsertIgnoring(ctx context.Context, entities []T, uniqueFields ...string) (datastore.BulkResult, error) {
	for _, f := range uniqueFields {
		if !s.table.hasColumn(f) {
			return nil, errors.NewValidationError("uniqueFields", fmt.Sprintf("unknown column %q", f))
		}
	}
	stmt := s.dialect.insertIgnoring(s.table.Name, s.table.Columns, uniqueFields)
	outcome := &BulkOutcome{Affected: make([]int64, 0, len(entities))}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entities {
			n, err := s.exec(ctx, tx, stmt, s.table.Values(e)...)
			if err != nil {
				return err
			}
			outcome.Affected = append(outcome.Affected, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"table":    s.table.Name,
		"offered":  len(entities),
		"inserted": outcome.Inserted(),
	}).Debug("insert ignoring")
	return outcome, nil
}

// ParseBulk returns the candidates InsertIgnoring reported as inserted.
func (s *Store[I, T]) ParseBulk(candidates []T, result datastore.BulkResult) ([]T, error) {
	outcome, ok := result.(*BulkOutcome)
	if !ok {
		return nil, errors.NewValidationError("result", fmt.Sprintf("unexpected bulk result %T", result))
	}
	if len(outcome.Affected) != len(candidates) {
		return nil, errors.NewValidationError("result", fmt.Sprintf("%d outcomes for %d candidates", len(outcome.Affected), len(candidates)))
	}
	out := make([]T, 0, len(candidates))
	for i, c := range candidates {
		if outcome.Affected[i] > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store[I, T]) set(patch T) (string, []any, bool) {
	cols, vals := s.table.Patch(patch)
	if len(cols) == 0 {
		return "", nil, false
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = s.dialect.Quote(c) + " = ?"
	}
	return strings.Join(parts, ", "), vals, true
}

// UpdateByIDs applies the set fields of patch to the rows among ids and
// returns the updated rows.
func (s *Store[I, T]) UpdateByIDs(ctx context.Context, ids []I, patch T) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	assignments, vals, ok := s.set(patch)
	if !ok {
		return s.FindByIDs(ctx, ids)
	}
	in, idArgs := s.idIn(ids)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.from(), assignments, in)

	var updated []T
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, stmt, append(vals, idArgs...)...); err != nil {
			return err
		}
		var err error
		updated, err = s.findByIDs(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateByCondition applies patch to the matching rows and returns how many
// changed.
func (s *Store[I, T]) UpdateByCondition(ctx context.Context, cond datastore.Condition, patch T) (int64, error) {
	w, err := s.where(cond)
	if err != nil {
		return 0, err
	}
	assignments, vals, ok := s.set(patch)
	if !ok {
		return 0, nil
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.from(), assignments, w.Clause)
	return s.exec(ctx, s.db, stmt, append(vals, w.Args...)...)
}

// DropByID deletes the row with id.
func (s *Store[I, T]) DropByID(ctx context.Context, id I) (bool, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.from(), s.dialect.Quote(s.table.IDColumn))
	n, err := s.exec(ctx, s.db, stmt, id)
	return n > 0, err
}

// DropByIDs deletes the rows among ids and returns the identifiers that
// existed.
func (s *Store[I, T]) DropByIDs(ctx context.Context, ids []I) ([]I, error) {
	if len(ids) == 0 {
		return []I{}, nil
	}
	in, args := s.idIn(ids)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", s.from(), in)

	var dropped []I
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.findByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		present := make(map[I]bool, len(existing))
		for _, e := range existing {
			present[s.table.ID(e)] = true
		}
		if _, err := s.exec(ctx, tx, stmt, args...); err != nil {
			return err
		}
		dropped = make([]I, 0, len(existing))
		for _, id := range ids {
			if present[id] {
				dropped = append(dropped, id)
				delete(present, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dropped, nil
}

// DropByCondition deletes the matching rows and returns how many were removed.
func (s *Store[I, T]) DropByCondition(ctx context.Context, cond datastore.Condition) (int64, error) {
	w, err := s.where(cond)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", s.from(), w.Clause)
	return s.exec(ctx, s.db, stmt, w.Args...)
}
