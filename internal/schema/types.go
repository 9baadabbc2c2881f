// Package schema maps spreadsheet columns to destination column types and
// normalizes raw cell values into typed, nullable values.
package schema

import (
	"fmt"
	"strings"
)

// Type is a destination column type. The string value is the SQL type name
// used when the destination table is created.
type Type string

const (
	TypeText            Type = "TEXT"
	TypeInteger         Type = "INTEGER"
	TypeFloat           Type = "FLOAT"
	TypeDoublePrecision Type = "DOUBLE PRECISION"
	TypeDecimal         Type = "DECIMAL"
	TypeNumeric         Type = "NUMERIC"
	TypeBoolean         Type = "BOOLEAN"
	TypeTimestamp       Type = "TIMESTAMP"
	TypeUUID            Type = "UUID"
)

// typeAliases maps accepted spellings (upper-cased, single-spaced) to types.
var typeAliases = map[string]Type{
	"TEXT":             TypeText,
	"STRING":           TypeText,
	"VARCHAR":          TypeText,
	"INTEGER":          TypeInteger,
	"INT":              TypeInteger,
	"BIGINT":           TypeInteger,
	"FLOAT":            TypeFloat,
	"REAL":             TypeFloat,
	"DOUBLE PRECISION": TypeDoublePrecision,
	"DOUBLE":           TypeDoublePrecision,
	"DECIMAL":          TypeDecimal,
	"NUMERIC":          TypeNumeric,
	"BOOLEAN":          TypeBoolean,
	"BOOL":             TypeBoolean,
	"TIMESTAMP":        TypeTimestamp,
	"DATETIME":         TypeTimestamp,
	"UUID":             TypeUUID,
}

// ParseType resolves a type name, accepting common aliases such as INT,
// BOOL or DATETIME. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	key := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// IsFloat reports whether t belongs to the floating-point family.
func (t Type) IsFloat() bool {
	switch t {
	case TypeFloat, TypeDoublePrecision, TypeDecimal, TypeNumeric:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }
