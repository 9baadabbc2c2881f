package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySheet is returned when a spreadsheet has a header but no data rows.
	ErrEmptySheet = errors.New("sheet has no data rows")

	// ErrNoTableName is returned when the file name sanitizes to nothing.
	ErrNoTableName = errors.New("cannot derive a table name from the file name")

	// ErrMissingSessionID is returned by Insert when no session id is given.
	ErrMissingSessionID = errors.New("session id is required")

	// ErrEmptyBatch is returned by Insert when the session holds no rows.
	ErrEmptyBatch = errors.New("session has no valid rows to insert")

	// ErrSessionBusy is returned when another Insert is running for the
	// same session.
	ErrSessionBusy = errors.New("session is already being inserted")
)

// Pipeline stages reported by StageError.
const (
	StageDecode      = "decode"
	StageCreateTable = "create table"
	StageStage       = "stage session"
	StageInsert      = "insert"
)

// StageError records which pipeline stage failed for a table.
type StageError struct {
	Stage string
	Table string
	Err   error
}

func (e *StageError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Table, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsStage reports whether err is a StageError for stage.
func IsStage(err error, stage string) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
