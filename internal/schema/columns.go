package schema

import (
	"regexp"
	"strconv"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeName lower-cases s and replaces every character outside
// [a-z0-9_] with an underscore. It is used for both table and column names.
func SanitizeName(s string) string {
	return unsafeNameChars.ReplaceAllString(strings.ToLower(s), "_")
}

// Row is one normalized record keyed by sanitized column name. A valid Row
// holds a key for every column of its sheet.
type Row map[string]any

// Column describes one spreadsheet column and its destination column.
type Column struct {
	Original string `json:"original"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
}

// DescribeColumns derives destination columns from sheet headers in order.
//
// Distinct headers that sanitize to the same name would otherwise merge into
// one column, so later occurrences get a numeric suffix: "Unit Price" and
// "unit-price" become unit_price and unit_price_2.
func DescribeColumns(headers []string, reg *TypeRegistry) []Column {
	cols := make([]Column, 0, len(headers))
	used := make(map[string]bool, len(headers))

	for _, h := range headers {
		base := SanitizeName(h)
		if base == "" {
			base = "column"
		}
		name := base
		for n := 2; used[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[name] = true

		cols = append(cols, Column{
			Original: h,
			Name:     name,
			Type:     reg.TypeOf(name),
		})
	}

	return cols
}

// ColumnMap returns the original header to sanitized name mapping.
func ColumnMap(cols []Column) map[string]string {
	m := make(map[string]string, len(cols))
	for _, c := range cols {
		m[c.Original] = c.Name
	}
	return m
}
