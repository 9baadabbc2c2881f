package core

// validation.go normalizes decoded records against their column types.
//
// A record is valid when every column normalizes. The first failing column,
// in header order, decides the error reported for the record; the record is
// otherwise kept exactly as decoded so it can be exported for correction.

import (
	"github.com/JonMunkholm/sheetload/internal/schema"
	"github.com/JonMunkholm/sheetload/internal/sheet"
)

// InvalidRecord is a record that failed normalization.
type InvalidRecord struct {
	Row   int            `json:"row"`   // 1-based line in the source file
	Data  map[string]any `json:"data"`  // raw values keyed by original header
	Error string         `json:"error"` // first normalization error
}

// RowValidator converts records into destination rows.
type RowValidator struct {
	cols []schema.Column
	norm schema.Normalizer
}

// NewRowValidator creates a validator for the given columns.
func NewRowValidator(cols []schema.Column, norm schema.Normalizer) *RowValidator {
	return &RowValidator{cols: cols, norm: norm}
}

// Validate returns the normalized row keyed by sanitized column name, or
// the rejection for rec. Exactly one of the results is non-nil.
func (v *RowValidator) Validate(rec sheet.Record) (schema.Row, *InvalidRecord) {
	row := make(schema.Row, len(v.cols))

	for _, c := range v.cols {
		val, err := v.norm.Normalize(rec.Values[c.Original], c.Type)
		if err != nil {
			return nil, &InvalidRecord{
				Row:   rec.Line,
				Data:  rec.Values,
				Error: err.Error(),
			}
		}
		row[c.Name] = val
	}

	return row, nil
}

// Partition validates every record, keeping source order in both results.
func (v *RowValidator) Partition(recs []sheet.Record) ([]schema.Row, []InvalidRecord) {
	valid := make([]schema.Row, 0, len(recs))
	var invalid []InvalidRecord

	for _, rec := range recs {
		row, bad := v.Validate(rec)
		if bad != nil {
			invalid = append(invalid, *bad)
			continue
		}
		valid = append(valid, row)
	}

	return valid, invalid
}
