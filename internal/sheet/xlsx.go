package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

func decodeWorkbook(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %q: %w", name, err)
	}

	g := make(grid, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			cells[c] = typedCell(f, name, c+1, i+1, raw)
		}
		g[i] = line{num: i + 1, cells: cells}
	}

	return g.build(name), nil
}

// typedCell restores the cell's native type from its raw text: numbers
// (including date serials) become float64 and booleans become bool.
func typedCell(f *excelize.File, sheet string, col, row int, raw string) any {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return raw
	}

	switch typ {
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return b
		}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}
