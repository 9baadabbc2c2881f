package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink"
	"github.com/JonMunkholm/sheetload/internal/sink/sqldb"
)

var cols = []schema.Column{
	{Original: "Name", Name: "name", Type: schema.TypeText},
	{Original: "Age", Name: "age", Type: schema.TypeInteger},
	{Original: "Owner ID", Name: "owner_id", Type: schema.TypeUUID},
}

func TestCreateTableSQL(t *testing.T) {
	db := sqldb.New(nil, Dialect, 0)

	got, err := db.CreateTableSQL("people", cols)
	if err != nil {
		t.Fatal(err)
	}
	want := "CREATE TABLE IF NOT EXISTS `people` (`name` TEXT, `age` BIGINT, `owner_id` CHAR(36))"
	if got != want {
		t.Errorf("CreateTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestInsertSQL(t *testing.T) {
	db := sqldb.New(nil, Dialect, 0)

	got := db.InsertSQL("people", cols[:2], 2)
	want := "INSERT INTO `people` (`name`, `age`) VALUES (?, ?), (?, ?)"
	if got != want {
		t.Errorf("InsertSQL = %q, want %q", got, want)
	}
}

func TestQuote(t *testing.T) {
	if got := quote("we`ird"); got != "`we``ird`" {
		t.Errorf("quote = %q", got)
	}
}

func TestIsDuplicateTable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"table exists", &mysql.MySQLError{Number: errTableExists}, true},
		{"wrapped", fmt.Errorf("create: %w", &mysql.MySQLError{Number: errTableExists}), true},
		{"other mysql error", &mysql.MySQLError{Number: 1064}, false},
		{"plain error", errors.New("table exists"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateTable(tt.err); got != tt.want {
				t.Errorf("isDuplicateTable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := sink.Open(context.Background(), sink.Config{Kind: Kind, DSN: "no-slash-here"})
	if err == nil || !strings.Contains(err.Error(), "parse mysql dsn") {
		t.Fatalf("err = %v, want dsn parse error", err)
	}
}
