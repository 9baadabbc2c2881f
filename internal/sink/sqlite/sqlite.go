// Package sqlite is the SQLite sink, using the pure Go modernc driver.
// It suits local runs and tests without a database server.
package sqlite

import (
	"context"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink"
	"github.com/JonMunkholm/sheetload/internal/sink/sqldb"
)

// Kind is the registered sink kind.
const Kind = "sqlite"

func init() {
	sink.Register(Kind, Open)
}

// Dialect is the SQLite dialect. SQLite has no native timestamp or uuid
// type; both are stored as TEXT.
var Dialect = sqldb.Dialect{
	Name:        Kind,
	Quote:       quote,
	ColumnType:  columnType,
	Placeholder: sqldb.QuestionMark,
	MaxParams:   32766,
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnType(t schema.Type) string {
	switch t {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeFloat, schema.TypeDoublePrecision:
		return "REAL"
	case schema.TypeDecimal, schema.TypeNumeric:
		return "NUMERIC"
	case schema.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// Open opens the database file named by cfg.DSN. Writers are serialized
// through a single connection, which SQLite requires for transactions from
// concurrent requests.
func Open(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	cfg.MaxConns = 1
	cfg.MinConns = 1
	return sqldb.Open(ctx, "sqlite", cfg.DSN, Dialect, cfg)
}
