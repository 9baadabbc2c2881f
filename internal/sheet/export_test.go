package sheet

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteErrorWorkbook(t *testing.T) {
	headers := []string{"Name", "property_id"}
	rows := []ErrorRow{
		{Row: 2, Data: map[string]any{"Name": "Alice", "property_id": "bad"}, Error: "Invalid UUID: bad"},
		{Row: 5, Data: map[string]any{"Name": nil, "property_id": float64(7)}, Error: "Invalid UUID: 7"},
	}

	var buf bytes.Buffer
	if err := WriteErrorWorkbook(&buf, headers, rows); err != nil {
		t.Fatalf("WriteErrorWorkbook error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader error = %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(ErrorSheetName)
	if err != nil {
		t.Fatalf("GetRows error = %v", err)
	}

	want := [][]string{
		{"Row", "Name", "property_id", "Error"},
		{"2", "Alice", "bad", "Invalid UUID: bad"},
		{"5", "", "7", "Invalid UUID: 7"},
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		for j := range want[i] {
			if j >= len(got[i]) || got[i][j] != want[i][j] {
				t.Errorf("cell[%d][%d] = %v, want %q", i, j, got[i], want[i][j])
			}
		}
	}
}
