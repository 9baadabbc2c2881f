// Package mssql is the Microsoft SQL Server sink.
package mssql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink"
	"github.com/JonMunkholm/sheetload/internal/sink/sqldb"
)

// Kind is the registered sink kind.
const Kind = "sqlserver"

// errObjectExists is raised when a concurrent CREATE TABLE won the race.
const errObjectExists = 2714

func init() {
	sink.Register(Kind, Open)
}

// Dialect is the SQL Server dialect. The parameter limit is 2100; a margin
// is kept below it.
var Dialect = sqldb.Dialect{
	Name:             Kind,
	Quote:            quote,
	ColumnType:       columnType,
	Placeholder:      func(n int) string { return "@p" + strconv.Itoa(n) },
	MaxParams:        2000,
	CreateTable:      createTable,
	IsDuplicateTable: isDuplicateTable,
	Bind:             bind,
}

func quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func columnType(t schema.Type) string {
	switch t {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeFloat, schema.TypeDoublePrecision:
		return "FLOAT"
	case schema.TypeDecimal, schema.TypeNumeric:
		return "DECIMAL(38,10)"
	case schema.TypeBoolean:
		return "BIT"
	case schema.TypeTimestamp:
		return "DATETIME2"
	case schema.TypeUUID:
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(MAX)"
	}
}

func createTable(table, defs string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(quote(table), "'", "''"), quote(table), defs)
}

func isDuplicateTable(err error) bool {
	var me mssqldb.Error
	return errors.As(err, &me) && me.Number == errObjectExists
}

// bind sends uuid strings as UNIQUEIDENTIFIER values so the driver does
// not have to convert NVARCHAR on the server.
func bind(t schema.Type, v any) any {
	if t != schema.TypeUUID {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	var id mssqldb.UniqueIdentifier
	if err := id.Scan(s); err != nil {
		return v
	}
	return id
}

// Open connects with the "sqlserver" driver registered by go-mssqldb.
func Open(ctx context.Context, cfg sink.Config) (sink.Sink, error) {
	return sqldb.Open(ctx, "sqlserver", cfg.DSN, Dialect, cfg)
}
