package schema

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// defaultColumnTypes is the built-in lookup table for property listing
// sheets. Columns not listed here are stored as TEXT.
var defaultColumnTypes = map[string]Type{
	"property_id":    TypeUUID,
	"owner_id":       TypeUUID,
	"agent_id":       TypeUUID,
	"name":           TypeText,
	"address":        TypeText,
	"city":           TypeText,
	"state":          TypeText,
	"zip_code":       TypeText,
	"age":            TypeInteger,
	"bedrooms":       TypeInteger,
	"bathrooms":      TypeInteger,
	"floors":         TypeInteger,
	"year_built":     TypeInteger,
	"square_feet":    TypeInteger,
	"parking_spaces": TypeInteger,
	"price":          TypeNumeric,
	"rent":           TypeNumeric,
	"deposit":        TypeNumeric,
	"area":           TypeDoublePrecision,
	"lot_size":       TypeDoublePrecision,
	"latitude":       TypeDoublePrecision,
	"longitude":      TypeDoublePrecision,
	"rating":         TypeFloat,
	"tax_rate":       TypeDecimal,
	"is_available":   TypeBoolean,
	"is_furnished":   TypeBoolean,
	"has_parking":    TypeBoolean,
	"pets_allowed":   TypeBoolean,
	"created_at":     TypeTimestamp,
	"updated_at":     TypeTimestamp,
	"listed_at":      TypeTimestamp,
	"sold_at":        TypeTimestamp,
	"available_from": TypeTimestamp,
}

// TypeRegistry resolves sanitized column names to destination types.
// It is read-only after construction and safe for concurrent use.
type TypeRegistry struct {
	types map[string]Type
}

// NewTypeRegistry builds a registry from an explicit name to type map.
// Names are sanitized so lookups match derived column names.
func NewTypeRegistry(types map[string]Type) *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]Type, len(types))}
	for name, t := range types {
		r.types[SanitizeName(name)] = t
	}
	return r
}

// DefaultTypeRegistry returns the built-in property listing registry.
func DefaultTypeRegistry() *TypeRegistry {
	return NewTypeRegistry(defaultColumnTypes)
}

// TypeOf returns the type registered for a sanitized column name, or TEXT.
func (r *TypeRegistry) TypeOf(name string) Type {
	if r == nil {
		return TypeText
	}
	if t, ok := r.types[name]; ok {
		return t
	}
	return TypeText
}

// Len returns the number of registered columns.
func (r *TypeRegistry) Len() int { return len(r.types) }

// Entry is one registered column.
type Entry struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Entries returns all registered columns sorted by name.
func (r *TypeRegistry) Entries() []Entry {
	names := slices.Sorted(maps.Keys(r.types))
	out := make([]Entry, 0, len(names))
	for _, n := range names {
		out = append(out, Entry{Name: n, Type: r.types[n]})
	}
	return out
}

// registryFile is the on-disk layout of a column types file:
//
//	columns:
//	  price: NUMERIC
//	  listed_at: TIMESTAMP
type registryFile struct {
	Columns map[string]string `yaml:"columns"`
}

// LoadTypeRegistry reads a YAML column types file and overlays it on the
// built-in defaults. An empty path returns the defaults unchanged.
func LoadTypeRegistry(path string) (*TypeRegistry, error) {
	types := maps.Clone(defaultColumnTypes)
	if path == "" {
		return NewTypeRegistry(types), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column types file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse column types file %s: %w", path, err)
	}

	for name, raw := range file.Columns {
		t, err := ParseType(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q in %s: %w", name, path, err)
		}
		types[SanitizeName(name)] = t
	}

	return NewTypeRegistry(types), nil
}
