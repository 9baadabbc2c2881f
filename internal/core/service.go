package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetload/internal/logging"
	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/session"
	"github.com/JonMunkholm/sheetload/internal/sheet"
	"github.com/JonMunkholm/sheetload/internal/sink"
)

// Service runs the ingestion pipeline against one destination database.
type Service struct {
	sink    sink.Sink
	store   *session.Store
	types   *schema.TypeRegistry
	norm    schema.Normalizer
	limiter *IngestLimiter
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{} // session ids with a running Insert
}

// NewService creates a Service. A nil registry uses DefaultTypeRegistry.
func NewService(snk sink.Sink, store *session.Store, types *schema.TypeRegistry, cfg ServiceConfig) *Service {
	if types == nil {
		types = schema.DefaultTypeRegistry()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Service{
		sink:     snk,
		store:    store,
		types:    types,
		norm:     schema.Normalizer{StrictNumeric: cfg.StrictNumeric},
		limiter:  NewIngestLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:  timeout,
		inflight: make(map[string]struct{}),
	}
}

// prepared is a decoded, validated sheet whose table exists.
type prepared struct {
	table   string
	headers []string
	cols    []schema.Column
	total   int
	valid   []schema.Row
	invalid []InvalidRecord
}

// prepare decodes the upload, ensures the destination table and partitions
// the records.
func (s *Service) prepare(ctx context.Context, fileName string, r io.Reader) (*prepared, error) {
	table := sheet.TableName(fileName)
	if table == "" {
		return nil, &StageError{Stage: StageDecode, Err: ErrNoTableName}
	}

	sh, err := sheet.Decode(fileName, r)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Table: table, Err: err}
	}
	if len(sh.Records) == 0 {
		return nil, &StageError{Stage: StageDecode, Table: table, Err: ErrEmptySheet}
	}

	cols := schema.DescribeColumns(sh.Headers, s.types)

	if err := s.sink.EnsureTable(ctx, table, cols); err != nil {
		return nil, &StageError{Stage: StageCreateTable, Table: table, Err: err}
	}

	valid, invalid := NewRowValidator(cols, s.norm).Partition(sh.Records)

	logging.FromContext(ctx).Info("sheet validated",
		"table", table,
		"file", fileName,
		"records", len(sh.Records),
		"valid", len(valid),
		"invalid", len(invalid),
	)

	return &prepared{
		table:   table,
		headers: sh.Headers,
		cols:    cols,
		total:   len(sh.Records),
		valid:   valid,
		invalid: invalid,
	}, nil
}

// Validate decodes and validates an upload and stages its valid rows as a
// session for a later Insert. Invalid rows are reported, never fatal.
func (s *Service) Validate(ctx context.Context, fileName string, r io.Reader) (*ValidationSummary, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.prepare(ctx, fileName, r)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		Table:   p.table,
		Columns: p.cols,
		Rows:    p.valid,
	}
	id, err := s.store.Put(ctx, sess)
	if err != nil {
		return nil, &StageError{Stage: StageStage, Table: p.table, Err: err}
	}

	logging.WithFields(ctx, "table", p.table, "session_id", id).Info("session created", "rows", len(p.valid))

	return &ValidationSummary{
		Table:          p.table,
		ColumnMap:      schema.ColumnMap(p.cols),
		Columns:        p.cols,
		Headers:        p.headers,
		SessionID:      id,
		ExpiresAt:      sess.CreatedAt.Add(s.store.TTL()),
		Total:          p.total,
		Valid:          len(p.valid),
		Invalid:        len(p.invalid),
		AllValid:       len(p.invalid) == 0,
		InvalidRecords: nonNil(p.invalid),
	}, nil
}

// Insert writes a staged session into its table and deletes the session.
// A failed insert leaves the session in place so the caller can retry.
func (s *Service) Insert(ctx context.Context, sessionID string) (*InsertResult, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	if !s.claim(sessionID) {
		return nil, ErrSessionBusy
	}
	defer s.unclaim(sessionID)

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := logging.WithFields(ctx, "session_id", sessionID)

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			log.Info("session expired")
		}
		return nil, err
	}

	if len(sess.Rows) == 0 {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			log.Warn("failed to delete empty session", "error", err)
		}
		return nil, ErrEmptyBatch
	}

	n, err := s.sink.InsertRows(ctx, sess.Table, sess.Columns, sess.Rows)
	if err != nil {
		log.Error("insert failed", "table", sess.Table, "rows", len(sess.Rows), "error", err)
		return nil, &StageError{Stage: StageInsert, Table: sess.Table, Err: err}
	}

	// The rows are committed; a leftover session only risks a duplicate
	// insert until it expires.
	if err := s.store.Delete(ctx, sessionID); err != nil {
		log.Warn("failed to delete consumed session", "error", err)
	}

	log.Info("session inserted", "table", sess.Table, "inserted", n)

	return &InsertResult{Table: sess.Table, Inserted: n}, nil
}

// Upload validates an upload and inserts its valid rows immediately,
// without staging a session.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (*UploadResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.prepare(ctx, fileName, r)
	if err != nil {
		return nil, err
	}

	var inserted int64
	if len(p.valid) > 0 {
		inserted, err = s.sink.InsertRows(ctx, p.table, p.cols, p.valid)
		if err != nil {
			return nil, &StageError{Stage: StageInsert, Table: p.table, Err: err}
		}
	}

	logging.FromContext(ctx).Info("upload inserted",
		"table", p.table,
		"inserted", inserted,
		"failed", len(p.invalid),
	)

	return &UploadResult{
		Table:          p.table,
		ColumnMap:      schema.ColumnMap(p.cols),
		Headers:        p.headers,
		Inserted:       inserted,
		Failed:         len(p.invalid),
		InvalidRecords: nonNil(p.invalid),
	}, nil
}

// ExportInvalid writes rejected records as an xlsx workbook with columns
// Row, headers..., Error.
func (s *Service) ExportInvalid(w io.Writer, headers []string, records []InvalidRecord) error {
	rows := make([]sheet.ErrorRow, len(records))
	for i, r := range records {
		rows[i] = sheet.ErrorRow{Row: r.Row, Data: r.Data, Error: r.Error}
	}
	if err := sheet.WriteErrorWorkbook(w, headers, rows); err != nil {
		return fmt.Errorf("export invalid records: %w", err)
	}
	return nil
}

// ColumnTypes returns the registry entries sorted by column name.
func (s *Service) ColumnTypes() []schema.Entry {
	return s.types.Entries()
}

// Ping checks the destination database.
func (s *Service) Ping(ctx context.Context) error {
	return s.sink.Ping(ctx)
}

// LimiterStatus reports ingest slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForIngests blocks until running operations finish or ctx ends.
func (s *Service) WaitForIngests(ctx context.Context) error {
	active := s.limiter.ActiveCount()
	if active > 0 {
		slog.Info("waiting for active ingests", "count", active)
	}
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Service) unclaim(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

func nonNil(recs []InvalidRecord) []InvalidRecord {
	if recs == nil {
		return []InvalidRecord{}
	}
	return recs
}
