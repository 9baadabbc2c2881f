package schema

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Name", "name"},
		{"Created At", "created_at"},
		{"price ($)", "price____"},
		{"zip-code", "zip_code"},
		{"already_clean_9", "already_clean_9"},
		{"__EMPTY", "__empty"},
		{"Café", "caf_"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDescribeColumns(t *testing.T) {
	reg := NewTypeRegistry(map[string]Type{
		"age":        TypeInteger,
		"created_at": TypeTimestamp,
	})

	cols := DescribeColumns([]string{"Name", "Age", "Created At"}, reg)

	want := []Column{
		{Original: "Name", Name: "name", Type: TypeText},
		{Original: "Age", Name: "age", Type: TypeInteger},
		{Original: "Created At", Name: "created_at", Type: TypeTimestamp},
	}
	if len(cols) != len(want) {
		t.Fatalf("len = %d, want %d", len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("cols[%d] = %+v, want %+v", i, cols[i], want[i])
		}
	}
}

func TestDescribeColumns_Collisions(t *testing.T) {
	cols := DescribeColumns([]string{"Unit Price", "unit-price", "UNIT PRICE", "unit_price_2"}, nil)

	want := []string{"unit_price", "unit_price_2", "unit_price_3", "unit_price_2_2"}
	for i := range want {
		if cols[i].Name != want[i] {
			t.Errorf("name[%d] = %q, want %q", i, cols[i].Name, want[i])
		}
	}

	m := ColumnMap(cols)
	if m["unit-price"] != "unit_price_2" {
		t.Errorf("ColumnMap[unit-price] = %q, want unit_price_2", m["unit-price"])
	}
}
