// Package sqldb implements sink.Sink over database/sql. Each SQL dialect
// supplies quoting, type mapping and placeholder syntax.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink"
)

// Dialect describes the SQL differences between database/sql backends.
type Dialect struct {
	Name string

	// Quote returns a quoted identifier.
	Quote func(name string) string

	// ColumnType maps a destination type to the dialect's column type.
	ColumnType func(t schema.Type) string

	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder func(n int) string

	// MaxParams is the bind parameter limit per statement.
	MaxParams int

	// CreateTable wraps column definitions into an idempotent CREATE
	// statement. Nil uses CREATE TABLE IF NOT EXISTS.
	CreateTable func(table, defs string) string

	// IsDuplicateTable reports errors from a lost CREATE TABLE race.
	IsDuplicateTable func(err error) bool

	// Bind adjusts a value after sink.Bind. Nil leaves values unchanged.
	Bind func(t schema.Type, v any) any
}

// QuestionMark is the "?" placeholder style.
func QuestionMark(int) string { return "?" }

// DB is a database/sql sink.
type DB struct {
	db        *sql.DB
	d         Dialect
	chunkRows int
}

// New wraps an open *sql.DB.
func New(db *sql.DB, d Dialect, chunkRows int) *DB {
	if chunkRows <= 0 {
		chunkRows = sink.DefaultChunkRows
	}
	return &DB{db: db, d: d, chunkRows: chunkRows}
}

// Open opens driverName with dsn, applies pool limits and pings.
func Open(ctx context.Context, driverName, dsn string, d Dialect, cfg sink.Config) (*DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	return New(db, d, cfg.ChunkRows), nil
}

// SQL exposes the underlying handle.
func (s *DB) SQL() *sql.DB { return s.db }

func (s *DB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *DB) Close() { _ = s.db.Close() }

func (s *DB) EnsureTable(ctx context.Context, table string, cols []schema.Column) error {
	q, err := s.CreateTableSQL(table, cols)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		if s.d.IsDuplicateTable != nil && s.d.IsDuplicateTable(err) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *DB) InsertRows(ctx context.Context, table string, cols []schema.Column, rows []schema.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cols) == 0 {
		return 0, sink.ErrNoColumns
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	per := sink.RowsPerStatement(len(cols), s.d.MaxParams, s.chunkRows)

	var total int64
	for start := 0; start < len(rows); start += per {
		part := rows[start:min(start+per, len(rows))]

		res, err := tx.ExecContext(ctx, s.InsertSQL(table, cols, len(part)), s.args(cols, part)...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(part))
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (s *DB) args(cols []schema.Column, rows []schema.Row) []any {
	args := sink.Args(cols, rows)
	if s.d.Bind == nil {
		return args
	}
	for i := range args {
		args[i] = s.d.Bind(cols[i%len(cols)].Type, args[i])
	}
	return args
}

// CreateTableSQL renders the idempotent CREATE statement for table.
func (s *DB) CreateTableSQL(table string, cols []schema.Column) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("create table %s: %w", table, sink.ErrNoColumns)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = s.d.Quote(c.Name) + " " + s.d.ColumnType(c.Type)
	}
	joined := strings.Join(defs, ", ")

	if s.d.CreateTable != nil {
		return s.d.CreateTable(table, joined), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.d.Quote(table), joined), nil
}

// InsertSQL renders a multi-row INSERT for nrows rows.
func (s *DB) InsertSQL(table string, cols []schema.Column, nrows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.d.Quote(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.d.Quote(c.Name))
	}
	b.WriteString(") VALUES ")

	p := 1
	for r := 0; r < nrows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for i := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.d.Placeholder(p))
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}
