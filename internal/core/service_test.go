package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/session"
)

// memSink records tables and rows instead of writing to a database.
type memSink struct {
	mu        sync.Mutex
	tables    map[string][]schema.Column
	rows      map[string][]schema.Row
	insertErr error
	block     chan struct{} // when set, InsertRows waits for it to close
}

func newMemSink() *memSink {
	return &memSink{
		tables: make(map[string][]schema.Column),
		rows:   make(map[string][]schema.Row),
	}
}

func (m *memSink) EnsureTable(_ context.Context, table string, cols []schema.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		m.tables[table] = cols
	}
	return nil
}

func (m *memSink) InsertRows(_ context.Context, table string, _ []schema.Column, rows []schema.Row) (int64, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.rows[table] = append(m.rows[table], rows...)
	return int64(len(rows)), nil
}

func (m *memSink) Ping(context.Context) error { return nil }
func (m *memSink) Close()                     {}

func (m *memSink) inserted(table string) []schema.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[table]
}

func newTestService(t *testing.T, snk *memSink, ttl time.Duration) (*Service, *session.Store) {
	t.Helper()
	store := session.NewStore(session.NewMemoryBackend(), ttl)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(snk, store, nil, ServiceConfig{MaxConcurrent: 2, MaxWait: time.Second}), store
}

const peopleCSV = "Name,Age,Created At,Owner ID\n" +
	"Alice,30,44197,3f2504e0-4f89-11d3-9a0c-0305e82c3301\n" +
	"Bob,41,44197.5,not-a-uuid\n" +
	"Carol,,,NULL\n"

func TestService_ValidateThenInsert(t *testing.T) {
	snk := newMemSink()
	svc, _ := newTestService(t, snk, 0)
	ctx := context.Background()

	sum, err := svc.Validate(ctx, "People List.csv", strings.NewReader(peopleCSV))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if sum.Table != "people_list" {
		t.Errorf("Table = %q, want people_list", sum.Table)
	}
	if sum.Total != 3 || sum.Valid != 2 || sum.Invalid != 1 || sum.AllValid {
		t.Errorf("counts = total %d valid %d invalid %d allValid %v", sum.Total, sum.Valid, sum.Invalid, sum.AllValid)
	}
	if sum.ColumnMap["Created At"] != "created_at" || sum.ColumnMap["Owner ID"] != "owner_id" {
		t.Errorf("ColumnMap = %v", sum.ColumnMap)
	}
	if sum.SessionID == "" {
		t.Fatal("SessionID is empty")
	}

	bad := sum.InvalidRecords[0]
	if bad.Row != 3 {
		t.Errorf("invalid row = %d, want 3", bad.Row)
	}
	if bad.Error != "Invalid UUID: not-a-uuid" {
		t.Errorf("invalid error = %q", bad.Error)
	}
	if bad.Data["Name"] != "Bob" {
		t.Errorf("invalid data = %v, want the raw record", bad.Data)
	}

	if _, ok := snk.tables["people_list"]; !ok {
		t.Fatal("Validate did not create the table")
	}
	if got := snk.inserted("people_list"); len(got) != 0 {
		t.Fatalf("Validate inserted %d rows", len(got))
	}

	res, err := svc.Insert(ctx, sum.SessionID)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res.Table != "people_list" || res.Inserted != 2 {
		t.Errorf("Insert = %+v", res)
	}

	rows := snk.inserted("people_list")
	if len(rows) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(rows))
	}
	alice := rows[0]
	if alice["name"] != "Alice" || alice["age"] != int64(30) || alice["created_at"] != "2021-01-01 00:00:00" {
		t.Errorf("alice = %v", alice)
	}
	carol := rows[1]
	if carol["age"] != nil || carol["created_at"] != nil || carol["owner_id"] != nil {
		t.Errorf("empty and NULL cells should be nil: %v", carol)
	}

	// consumed sessions are gone
	if _, err := svc.Insert(ctx, sum.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("second Insert = %v, want ErrNotFound", err)
	}
}

func TestService_OutOfRangeFloatsSurviveFileSessions(t *testing.T) {
	backend, err := session.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	store := session.NewStore(backend, 0)
	t.Cleanup(func() { _ = store.Close() })

	snk := newMemSink()
	svc := NewService(snk, store, nil, ServiceConfig{})
	ctx := context.Background()

	csv := "Name,Price\nAlice,10\nBob,1e400\nCarol,Infinity\nDave,-Infinity\n"
	sum, err := svc.Validate(ctx, "listings.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sum.Total != 4 || sum.Valid != 4 || !sum.AllValid {
		t.Fatalf("counts = total %d valid %d allValid %v", sum.Total, sum.Valid, sum.AllValid)
	}

	res, err := svc.Insert(ctx, sum.SessionID)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res.Inserted != 4 {
		t.Errorf("Inserted = %d, want 4", res.Inserted)
	}

	rows := snk.inserted("listings")
	if len(rows) != 4 {
		t.Fatalf("inserted %d rows, want 4", len(rows))
	}
	if rows[0]["price"] != 10.0 {
		t.Errorf("alice price = %#v, want 10", rows[0]["price"])
	}
	for _, r := range rows[1:] {
		if r["price"] != nil {
			t.Errorf("%v price = %#v, want nil", r["name"], r["price"])
		}
	}
}

func TestService_ValidateWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sh := f.GetSheetName(0)
	for ref, v := range map[string]any{
		"A1": "Name", "B1": "Age", "C1": "Created At",
		"A2": "Alice", "B2": "30", "C2": 44197,
	} {
		if err := f.SetCellValue(sh, ref, v); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	snk := newMemSink()
	svc, _ := newTestService(t, snk, 0)

	sum, err := svc.Validate(context.Background(), "people.xlsx", buf)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !sum.AllValid || sum.Valid != 1 || len(sum.InvalidRecords) != 0 {
		t.Fatalf("summary = %+v", sum)
	}

	if _, err := svc.Insert(context.Background(), sum.SessionID); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	row := snk.inserted("people")[0]
	want := schema.Row{"name": "Alice", "age": int64(30), "created_at": "2021-01-01 00:00:00"}
	for k, v := range want {
		if row[k] != v {
			t.Errorf("row[%q] = %#v, want %#v", k, row[k], v)
		}
	}
}

func TestService_ValidateErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		body     string
		wantErr  error
		wantStep string
	}{
		{"header only", "people.csv", "Name,Age\n", ErrEmptySheet, StageDecode},
		{"empty file", "people.csv", "", ErrEmptySheet, StageDecode},
		{"unsupported format", "people.pdf", "x", nil, StageDecode},
		{"no table name", ".csv", "a\n1\n", ErrNoTableName, StageDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, newMemSink(), 0)

			_, err := svc.Validate(context.Background(), tt.file, strings.NewReader(tt.body))
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if !IsStage(err, tt.wantStep) {
				t.Errorf("err = %v, want stage %q", err, tt.wantStep)
			}
		})
	}
}

func TestService_InsertErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id", func(t *testing.T) {
		svc, _ := newTestService(t, newMemSink(), 0)
		if _, err := svc.Insert(ctx, ""); !errors.Is(err, ErrMissingSessionID) {
			t.Errorf("err = %v, want ErrMissingSessionID", err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		svc, _ := newTestService(t, newMemSink(), 0)
		if _, err := svc.Insert(ctx, "3f2504e0-4f89-11d3-9a0c-0305e82c3301"); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty batch deletes session", func(t *testing.T) {
		svc, store := newTestService(t, newMemSink(), 0)
		sum, err := svc.Validate(ctx, "ids.csv", strings.NewReader("Owner ID\nnope\n"))
		if err != nil {
			t.Fatal(err)
		}
		if sum.Valid != 0 || sum.Invalid != 1 {
			t.Fatalf("summary = %+v", sum)
		}
		if _, err := svc.Insert(ctx, sum.SessionID); !errors.Is(err, ErrEmptyBatch) {
			t.Errorf("err = %v, want ErrEmptyBatch", err)
		}
		if _, err := store.Get(ctx, sum.SessionID); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("session after empty batch: %v, want ErrNotFound", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		svc, _ := newTestService(t, newMemSink(), time.Millisecond)
		sum, err := svc.Validate(ctx, "people.csv", strings.NewReader(peopleCSV))
		if err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)

		if _, err := svc.Insert(ctx, sum.SessionID); !errors.Is(err, session.ErrExpired) {
			t.Errorf("err = %v, want ErrExpired", err)
		}
		if _, err := svc.Insert(ctx, sum.SessionID); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("read after expiry = %v, want ErrNotFound", err)
		}
	})

	t.Run("failed insert keeps session", func(t *testing.T) {
		snk := newMemSink()
		svc, _ := newTestService(t, snk, 0)
		sum, err := svc.Validate(ctx, "people.csv", strings.NewReader(peopleCSV))
		if err != nil {
			t.Fatal(err)
		}

		snk.insertErr = errors.New("ERROR: duplicate key value violates unique constraint")
		_, err = svc.Insert(ctx, sum.SessionID)
		if !IsStage(err, StageInsert) {
			t.Fatalf("err = %v, want insert stage error", err)
		}
		if MapError(err).Code != "DB001" {
			t.Errorf("MapError code = %q, want DB001", MapError(err).Code)
		}

		snk.insertErr = nil
		res, err := svc.Insert(ctx, sum.SessionID)
		if err != nil {
			t.Fatalf("retry Insert: %v", err)
		}
		if res.Inserted != 2 {
			t.Errorf("retry inserted %d, want 2", res.Inserted)
		}
	})
}

func TestService_ConcurrentInsertOfSameSession(t *testing.T) {
	snk := newMemSink()
	svc, _ := newTestService(t, snk, 0)
	ctx := context.Background()

	sum, err := svc.Validate(ctx, "people.csv", strings.NewReader(peopleCSV))
	if err != nil {
		t.Fatal(err)
	}

	snk.block = make(chan struct{})
	first := make(chan error, 1)
	go func() {
		_, err := svc.Insert(ctx, sum.SessionID)
		first <- err
	}()

	// wait until the first insert holds the claim
	deadline := time.Now().Add(time.Second)
	for {
		svc.mu.Lock()
		_, claimed := svc.inflight[sum.SessionID]
		svc.mu.Unlock()
		if claimed || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := svc.Insert(ctx, sum.SessionID); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("concurrent Insert = %v, want ErrSessionBusy", err)
	}

	close(snk.block)
	if err := <-first; err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if got := len(snk.inserted("people")); got != 2 {
		t.Errorf("inserted %d rows, want 2", got)
	}
}

func TestService_Upload(t *testing.T) {
	snk := newMemSink()
	backend := session.NewMemoryBackend()
	svc := NewService(snk, session.NewStore(backend, 0), nil, ServiceConfig{})

	res, err := svc.Upload(context.Background(), "people.csv", strings.NewReader(peopleCSV))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Table != "people" || res.Inserted != 2 || res.Failed != 1 {
		t.Errorf("Upload = %+v", res)
	}
	if len(res.InvalidRecords) != 1 || res.InvalidRecords[0].Row != 3 {
		t.Errorf("InvalidRecords = %+v", res.InvalidRecords)
	}
	if got := len(snk.inserted("people")); got != 2 {
		t.Errorf("inserted %d rows, want 2", got)
	}
	if n := backend.Len(); n != 0 {
		t.Errorf("Upload staged %d sessions", n)
	}
}

func TestService_UploadAllInvalidInsertsNothing(t *testing.T) {
	snk := newMemSink()
	snk.insertErr = errors.New("must not be called")
	svc, _ := newTestService(t, snk, 0)

	res, err := svc.Upload(context.Background(), "ids.csv", strings.NewReader("Owner ID\nx\ny\n"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Inserted != 0 || res.Failed != 2 {
		t.Errorf("Upload = %+v", res)
	}
}

func TestService_StrictNumeric(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(), 0)
	svc := NewService(newMemSink(), store, nil, ServiceConfig{StrictNumeric: true})

	sum, err := svc.Validate(context.Background(), "ages.csv", strings.NewReader("Name,Age\nA,12\nB,twelve\n"))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Valid != 1 || sum.Invalid != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := sum.InvalidRecords[0].Error; got != "Invalid INTEGER: twelve" {
		t.Errorf("error = %q", got)
	}
}

func TestService_ExportInvalid(t *testing.T) {
	svc, _ := newTestService(t, newMemSink(), 0)

	var buf bytes.Buffer
	err := svc.ExportInvalid(&buf, []string{"Name", "Owner ID"}, []InvalidRecord{
		{Row: 3, Data: map[string]any{"Name": "Bob", "Owner ID": "x"}, Error: "Invalid UUID: x"},
	})
	if err != nil {
		t.Fatalf("ExportInvalid: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "3" || rows[1][3] != "Invalid UUID: x" {
		t.Errorf("rows = %v", rows)
	}
}

func TestService_ColumnTypes(t *testing.T) {
	svc, _ := newTestService(t, newMemSink(), 0)
	entries := svc.ColumnTypes()
	if len(entries) == 0 {
		t.Fatal("no column types")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Name > entries[i].Name {
			t.Fatalf("entries not sorted at %d", i)
		}
	}
}
