// Package core orchestrates spreadsheet ingestion: decode, validate, stage
// and insert. It has no HTTP dependencies and can be driven by any frontend.
package core

import (
	"time"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

// ValidationSummary is the result of validating an uploaded sheet and
// staging its valid rows.
type ValidationSummary struct {
	Table          string            `json:"table"`
	ColumnMap      map[string]string `json:"columnMap"`
	Columns        []schema.Column   `json:"columns"`
	Headers        []string          `json:"headers"`
	SessionID      string            `json:"sessionId"`
	ExpiresAt      time.Time         `json:"expiresAt"`
	Total          int               `json:"total"`
	Valid          int               `json:"valid"`
	Invalid        int               `json:"invalid"`
	AllValid       bool              `json:"allValid"`
	InvalidRecords []InvalidRecord   `json:"invalidRecords"`
}

// InsertResult is the result of inserting a staged session.
type InsertResult struct {
	Table    string `json:"table"`
	Inserted int64  `json:"inserted"`
}

// UploadResult is the result of validating and inserting in one call.
type UploadResult struct {
	Table          string            `json:"table"`
	ColumnMap      map[string]string `json:"columnMap"`
	Headers        []string          `json:"headers"`
	Inserted       int64             `json:"inserted"`
	Failed         int               `json:"failed"`
	InvalidRecords []InvalidRecord   `json:"invalidRecords"`
}

// ServiceConfig tunes a Service. Zero values select defaults.
type ServiceConfig struct {
	// MaxConcurrent bounds parallel validate, insert and upload calls.
	MaxConcurrent int
	// MaxWait is how long a call waits for a free slot.
	MaxWait time.Duration
	// Timeout caps a single operation, including the database work.
	Timeout time.Duration
	// StrictNumeric rejects rows with unparsable numeric cells instead of
	// storing NULL.
	StrictNumeric bool
}

// DefaultTimeout is the per-operation limit when ServiceConfig.Timeout is zero.
const DefaultTimeout = 5 * time.Minute
