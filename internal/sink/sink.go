// Package sink writes validated rows into a destination database table,
// creating the table on first use.
//
// Backends register themselves by kind from an init function; import the
// backend package for its side effect and call Open with the matching kind:
//
//	import _ "github.com/JonMunkholm/sheetload/internal/sink/postgres"
//
//	s, err := sink.Open(ctx, sink.Config{Kind: "postgres", DSN: dsn})
package sink

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

// DefaultChunkRows is the default number of rows per INSERT statement.
const DefaultChunkRows = 1000

// Sink is a destination database.
type Sink interface {
	// EnsureTable creates table with the given columns if it does not exist.
	// An existing table is never altered.
	EnsureTable(ctx context.Context, table string, cols []schema.Column) error

	// InsertRows appends rows to table in a single transaction and returns
	// the number of rows written.
	InsertRows(ctx context.Context, table string, cols []schema.Column, rows []schema.Row) (int64, error)

	Ping(ctx context.Context) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// ChunkRows caps rows per INSERT statement; backends lower it further
	// to stay within their bind parameter limit.
	ChunkRows int
}

// Factory opens a backend.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// ErrNoColumns is returned when a table would have no columns.
var ErrNoColumns = errors.New("no columns")

// Register makes a backend available under kind. It panics on an empty
// kind, a nil factory or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("sink: Register called with empty kind")
	}
	if f == nil {
		panic("sink: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("sink: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Open constructs the backend registered under cfg.Kind.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, errors.New("sink: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported sink kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	if cfg.ChunkRows <= 0 {
		cfg.ChunkRows = DefaultChunkRows
	}
	return f(ctx, cfg)
}

// Bind converts a normalized value into a driver argument for a column of
// type t. NaN and nil become NULL; values in text-like columns that are not
// strings are rendered as text.
func Bind(t schema.Type, v any) any {
	if v == nil || schema.IsNaN(v) {
		return nil
	}
	switch t {
	case schema.TypeText, schema.TypeTimestamp, schema.TypeUUID:
		if _, ok := v.(string); !ok {
			return schema.Stringify(v)
		}
	}
	return v
}

// RowsPerStatement returns how many rows fit into one INSERT given the
// backend's bind parameter limit and the configured chunk size.
func RowsPerStatement(numCols, maxParams, chunkRows int) int {
	if numCols <= 0 {
		return 1
	}
	n := maxParams / numCols
	if chunkRows > 0 && chunkRows < n {
		n = chunkRows
	}
	return max(n, 1)
}

// Args flattens rows into positional arguments in column order.
func Args(cols []schema.Column, rows []schema.Row) []any {
	args := make([]any, 0, len(rows)*len(cols))
	for _, r := range rows {
		for _, c := range cols {
			args = append(args, Bind(c.Type, r[c.Name]))
		}
	}
	return args
}
