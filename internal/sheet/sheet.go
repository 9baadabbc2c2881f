// Package sheet decodes uploaded spreadsheets (xlsx and csv) into header
// keyed records, and writes invalid records back out as a workbook.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// emptyHeader names header cells that have no text.
const emptyHeader = "__EMPTY"

// Record is one data row of a sheet.
type Record struct {
	// Line is the 1-based row position in the source file; the header row
	// is usually line 1, so the first data row is line 2.
	Line int
	// Values maps each header to the raw cell value: string, float64,
	// bool, or nil for an empty cell.
	Values map[string]any
}

// Sheet is a decoded sheet: ordered headers plus data records.
type Sheet struct {
	Name    string
	Headers []string
	Records []Record
}

// Decode reads the first sheet of an uploaded file. The format is chosen
// from the file name extension.
func Decode(fileName string, r io.Reader) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return decodeWorkbook(r)
	case ".csv":
		return decodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}

// TableName derives the destination table name from an uploaded file name.
func TableName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	return schema.SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// line is one decoded source row and its 1-based line number.
type line struct {
	num   int
	cells []any
}

// grid is a decoded cell matrix in source order.
type grid []line

// build turns a cell grid into a Sheet: the first non-blank row becomes the
// header row and blank rows after it are skipped.
func (g grid) build(name string) *Sheet {
	s := &Sheet{Name: name}

	header := -1
	width := 0
	for i, l := range g {
		if isBlank(l.cells) {
			continue
		}
		if header < 0 {
			header = i
		}
		width = max(width, len(l.cells))
	}
	if header < 0 {
		return s
	}

	s.Headers = headerNames(g[header].cells, width)

	for _, l := range g[header+1:] {
		row := l.cells
		if isBlank(row) {
			continue
		}
		values := make(map[string]any, len(s.Headers))
		for c, h := range s.Headers {
			var v any
			if c < len(row) {
				v = row[c]
			}
			values[h] = v
		}
		s.Records = append(s.Records, Record{Line: l.num, Values: values})
	}

	return s
}

// headerNames derives unique header keys. Cells without text become
// __EMPTY, __EMPTY_1, ... and repeated headers get _1, _2, ... suffixes.
func headerNames(row []any, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)

	for i := range names {
		h := ""
		if i < len(row) {
			h = strings.TrimSpace(schema.Stringify(row[i]))
		}
		if h == "" {
			h = emptyHeader
		}

		name := h
		for seen[name] > 0 {
			name = h + "_" + strconv.Itoa(seen[h])
			seen[h]++
		}
		seen[name]++
		names[i] = name
	}

	return names
}

func isBlank(row []any) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}
