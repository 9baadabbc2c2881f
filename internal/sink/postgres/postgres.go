// Package postgres is the PostgreSQL sink, built on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink"
)

// Kind is the registered sink kind.
const Kind = "postgres"

// maxParams is the PostgreSQL wire protocol limit on bind parameters.
const maxParams = 65535

// SQLSTATEs raised when two sessions race on CREATE TABLE IF NOT EXISTS.
const (
	duplicateTable  = "42P07"
	uniqueViolation = "23505"
)

func init() {
	sink.Register(Kind, Open)
}

// Sink writes to PostgreSQL.
type Sink struct {
	pool      *pgxpool.Pool
	chunkRows int
}

// Open parses the DSN, applies pool settings and verifies connectivity.
func Open(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database",
		"kind", Kind,
		"name", poolConfig.ConnConfig.Database,
		"max_conns", poolConfig.MaxConns,
	)

	return New(pool, cfg.ChunkRows), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, chunkRows int) *Sink {
	if chunkRows <= 0 {
		chunkRows = sink.DefaultChunkRows
	}
	return &Sink{pool: pool, chunkRows: chunkRows}
}

func (s *Sink) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Sink) Close() { s.pool.Close() }

// EnsureTable issues CREATE TABLE IF NOT EXISTS. Concurrent first uploads
// of the same table can still collide inside the catalog; those errors
// mean the table now exists and are treated as success.
func (s *Sink) EnsureTable(ctx context.Context, table string, cols []schema.Column) error {
	q, err := createTableSQL(table, cols)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, q)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == duplicateTable || pgErr.Code == uniqueViolation) {
		return nil
	}
	return fmt.Errorf("create table %s: %w", table, err)
}

// InsertRows writes all rows in one transaction using multi-row INSERTs.
func (s *Sink) InsertRows(ctx context.Context, table string, cols []schema.Column, rows []schema.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cols) == 0 {
		return 0, sink.ErrNoColumns
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	per := sink.RowsPerStatement(len(cols), maxParams, s.chunkRows)

	var total int64
	for start := 0; start < len(rows); start += per {
		part := rows[start:min(start+per, len(rows))]

		tag, err := tx.Exec(ctx, insertSQL(table, cols, len(part)), sink.Args(cols, part)...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		total += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func createTableSQL(table string, cols []schema.Column) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("create table %s: %w", table, sink.ErrNoColumns)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + string(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{table}.Sanitize(), strings.Join(defs, ", ")), nil
}

func insertSQL(table string, cols []schema.Column, nrows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier{table}.Sanitize())
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c.Name}.Sanitize())
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
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(p))
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}
