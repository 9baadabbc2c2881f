package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrorSheetName is the sheet name of the invalid records workbook.
const ErrorSheetName = "Invalid Records"

// ErrorRow is one rejected record as shown in the invalid records workbook.
type ErrorRow struct {
	Row   int
	Data  map[string]any
	Error string
}

// WriteErrorWorkbook writes an xlsx workbook with columns
// Row, <headers...>, Error and one line per rejected record.
func WriteErrorWorkbook(w io.Writer, headers []string, rows []ErrorRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ErrorSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(ErrorSheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	head := make([]any, 0, len(headers)+2)
	head = append(head, "Row")
	for _, h := range headers {
		head = append(head, h)
	}
	head = append(head, "Error")
	if err := sw.SetRow("A1", head, excelize.RowOpts{StyleID: bold}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		line := make([]any, 0, len(head))
		line = append(line, r.Row)
		for _, h := range headers {
			v := r.Data[h]
			if v == nil {
				v = ""
			}
			line = append(line, v)
		}
		line = append(line, r.Error)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, line); err != nil {
			return fmt.Errorf("write row %d: %w", r.Row, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
