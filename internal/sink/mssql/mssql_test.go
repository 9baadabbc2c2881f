package mssql

import (
	"errors"
	"fmt"
	"testing"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sink/sqldb"
)

var cols = []schema.Column{
	{Original: "Name", Name: "name", Type: schema.TypeText},
	{Original: "Active", Name: "active", Type: schema.TypeBoolean},
	{Original: "Owner ID", Name: "owner_id", Type: schema.TypeUUID},
}

func TestCreateTableSQL(t *testing.T) {
	db := sqldb.New(nil, Dialect, 0)

	got, err := db.CreateTableSQL("people", cols)
	if err != nil {
		t.Fatal(err)
	}
	want := "IF OBJECT_ID(N'[people]', N'U') IS NULL BEGIN CREATE TABLE [people] " +
		"([name] NVARCHAR(MAX), [active] BIT, [owner_id] UNIQUEIDENTIFIER); END;"
	if got != want {
		t.Errorf("CreateTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestInsertSQL_NumberedPlaceholders(t *testing.T) {
	db := sqldb.New(nil, Dialect, 0)

	got := db.InsertSQL("people", cols[:2], 2)
	want := "INSERT INTO [people] ([name], [active]) VALUES (@p1, @p2), (@p3, @p4)"
	if got != want {
		t.Errorf("InsertSQL = %q, want %q", got, want)
	}
}

func TestBind(t *testing.T) {
	id := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

	if _, ok := bind(schema.TypeUUID, id).(mssqldb.UniqueIdentifier); !ok {
		t.Errorf("uuid column not bound as UniqueIdentifier")
	}
	if got := bind(schema.TypeUUID, "short"); got != "short" {
		t.Errorf("unparsable uuid = %v, want passthrough", got)
	}
	if got := bind(schema.TypeText, id); got != id {
		t.Errorf("text column = %v, want passthrough", got)
	}
	if got := bind(schema.TypeUUID, nil); got != nil {
		t.Errorf("nil = %v, want nil", got)
	}
}

func TestIsDuplicateTable(t *testing.T) {
	if !isDuplicateTable(fmt.Errorf("create: %w", mssqldb.Error{Number: errObjectExists})) {
		t.Error("object exists error not recognized")
	}
	if isDuplicateTable(mssqldb.Error{Number: 208}) {
		t.Error("invalid object name treated as duplicate")
	}
	if isDuplicateTable(errors.New("boom")) {
		t.Error("plain error treated as duplicate")
	}
}

func TestQuote(t *testing.T) {
	if got := quote("a]b"); got != "[a]]b]" {
		t.Errorf("quote = %q", got)
	}
}
