/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // register mysql as a database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name   string
	Driver string

	quote       byte
	numbered    bool
	ignoreStyle ignoreStyle
	// unbounded is the LIMIT used when only an offset is requested.
	unbounded string
}

type ignoreStyle int

const (
	onConflictDoNothing ignoreStyle = iota
	insertIgnore
)

var (
	Postgres = Dialect{Name: "postgres", Driver: "pgx", quote: '"', numbered: true, ignoreStyle: onConflictDoNothing}
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", quote: '"', ignoreStyle: onConflictDoNothing, unbounded: "-1"}
	MySQL    = Dialect{Name: "mysql", Driver: "mysql", quote: '`', ignoreStyle: insertIgnore, unbounded: "18446744073709551615"}
)

// DialectByName returns the dialect called name ("postgres", "sqlite" or "mysql").
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql", "mariadb":
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
}

// Open connects to dsn with the dialect's driver and verifies the connection.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	return db, nil
}

// Quote quotes an identifier.
func (d Dialect) Quote(ident string) string {
	q := string(d.quote)
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// Rebind rewrites '?' placeholders into the dialect's form. Question marks
// inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// window renders LIMIT/OFFSET for the given find window.
func (d Dialect) window(offset, limit int64) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0 && d.unbounded != "":
		return fmt.Sprintf(" LIMIT %s OFFSET %d", d.unbounded, offset)
	case offset > 0:
		return fmt.Sprintf(" OFFSET %d", offset)
	}
	return ""
}

// insertIgnoring renders a single-row insert that skips rows violating a
// uniqueness constraint. conflict names the constraint columns where the
// dialect supports it.
func (d Dialect) insertIgnoring(table string, columns, conflict []string) string {
	cols := d.quoteAll(columns)
	marks := placeholders(len(columns))
	if d.ignoreStyle == insertIgnore {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", d.Quote(table), cols, marks)
	}
	target := ""
	if len(conflict) > 0 {
		target = " (" + d.quoteAll(conflict) + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT%s DO NOTHING", d.Quote(table), cols, marks, target)
}

func (d Dialect) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = d.Quote(id)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
