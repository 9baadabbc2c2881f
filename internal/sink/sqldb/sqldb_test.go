package sqldb

import (
	"strconv"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

var testDialect = Dialect{
	Name:        "test",
	Quote:       func(s string) string { return "<" + s + ">" },
	ColumnType:  func(t schema.Type) string { return strings.ToLower(string(t)) },
	Placeholder: func(n int) string { return ":" + strconv.Itoa(n) },
	MaxParams:   10,
	Bind: func(t schema.Type, v any) any {
		if t == schema.TypeBoolean && v != nil {
			if v.(bool) {
				return 1
			}
			return 0
		}
		return v
	},
}

var cols = []schema.Column{
	{Name: "name", Type: schema.TypeText},
	{Name: "ok", Type: schema.TypeBoolean},
}

func TestCreateTableSQL(t *testing.T) {
	db := New(nil, testDialect, 0)
	got, err := db.CreateTableSQL("t", cols)
	if err != nil {
		t.Fatal(err)
	}
	want := "CREATE TABLE IF NOT EXISTS <t> (<name> text, <ok> boolean)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	d := testDialect
	d.CreateTable = func(table, defs string) string { return "MAKE " + table + " [" + defs + "]" }
	got, _ = New(nil, d, 0).CreateTableSQL("t", cols)
	if got != "MAKE t [<name> text, <ok> boolean]" {
		t.Errorf("custom create = %q", got)
	}
}

func TestInsertSQL(t *testing.T) {
	db := New(nil, testDialect, 0)
	got := db.InsertSQL("t", cols, 2)
	want := "INSERT INTO <t> (<name>, <ok>) VALUES (:1, :2), (:3, :4)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestArgsApplyDialectBind(t *testing.T) {
	db := New(nil, testDialect, 0)
	got := db.args(cols, []schema.Row{{"name": "a", "ok": true}, {"name": float64(1), "ok": nil}})
	want := []any{"a", 1, "1", nil}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %#v, want %#v", i, got[i], want[i])
		}
	}
}
