// Package mysql is the MySQL and MariaDB sink.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink"
	"github.com/JonMunkholm/sheetload/internal/sink/sqldb"
)

// Kind is the registered sink kind.
const Kind = "mysql"

// errTableExists is ER_TABLE_EXISTS_ERROR.
const errTableExists = 1050

func init() {
	sink.Register(Kind, Open)
}

// Dialect is the MySQL dialect.
var Dialect = sqldb.Dialect{
	Name:             Kind,
	Quote:            quote,
	ColumnType:       columnType,
	Placeholder:      sqldb.QuestionMark,
	MaxParams:        65535,
	IsDuplicateTable: isDuplicateTable,
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func columnType(t schema.Type) string {
	switch t {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDoublePrecision:
		return "DOUBLE"
	case schema.TypeDecimal, schema.TypeNumeric:
		return "DECIMAL(38,10)"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeTimestamp:
		return "DATETIME"
	case schema.TypeUUID:
		return "CHAR(36)"
	default:
		return "TEXT"
	}
}

func isDuplicateTable(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errTableExists
}

// Open validates the DSN and connects. Multi-statement mode stays off.
func Open(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.MultiStatements = false
	mc.ParseTime = true

	return sqldb.Open(ctx, "mysql", mc.FormatDSN(), Dialect, cfg)
}
