package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the output format of normalized TIMESTAMP values.
const TimestampLayout = "2006-01-02 15:04:05"

// Date serial bounds: 0001-01-01 and 9999-12-31. unixEpochSerial is 1970-01-01.
const (
	minDateSerial   = -693593
	maxDateSerial   = 2958465
	unixEpochSerial = 25569
)

var (
	uuidPattern = regexp.MustCompile(
		`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

	// leading numeric prefixes, after leading whitespace is trimmed
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
)

// NotANumber is stored for numeric cells whose text does not parse as a
// number. It encodes as JSON null and is written to the database as NULL.
type NotANumber struct{}

// NaN is the single NotANumber value.
var NaN = NotANumber{}

func (NotANumber) String() string { return "NaN" }

// MarshalJSON implements json.Marshaler.
func (NotANumber) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// IsNaN reports whether v is the NotANumber sentinel.
func IsNaN(v any) bool {
	_, ok := v.(NotANumber)
	return ok
}

// InvalidValueError reports a cell value that cannot be coerced to its
// column type.
type InvalidValueError struct {
	Type  Type
	Value any
	msg   string
}

func (e *InvalidValueError) Error() string { return e.msg }

func invalidValue(t Type, v any) *InvalidValueError {
	return &InvalidValueError{Type: t, Value: v, msg: fmt.Sprintf("Invalid %s: %s", t, Stringify(v))}
}

// Normalizer converts raw cell values into typed values.
type Normalizer struct {
	// StrictNumeric makes unparsable INTEGER and FLOAT-family cells an
	// InvalidValueError instead of the NaN sentinel.
	StrictNumeric bool
}

// IsNull reports whether a raw cell value normalizes to null for every type.
func IsNull(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == "NULL"
	}
	return false
}

// Normalize converts one raw cell value to the given column type.
//
// Raw values are what the sheet decoder produces: string, float64, bool or
// nil. Only UUID columns, and numeric columns in strict mode, return an error.
func (n Normalizer) Normalize(raw any, t Type) (any, error) {
	if IsNull(raw) {
		return nil, nil
	}

	switch {
	case t == TypeTimestamp:
		if serial, ok := serialValue(raw); ok {
			return SerialToTimestamp(serial), nil
		}
		return raw, nil

	case t == TypeBoolean:
		switch strings.TrimSpace(strings.ToLower(Stringify(raw))) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, nil

	case t == TypeInteger:
		if n.StrictNumeric {
			return strictInt(raw)
		}
		return parseIntPrefix(raw), nil

	case t.IsFloat():
		if n.StrictNumeric {
			return strictFloat(raw, t)
		}
		return parseFloatPrefix(raw), nil

	case t == TypeUUID:
		s := Stringify(raw)
		if !uuidPattern.MatchString(s) {
			return nil, &InvalidValueError{Type: t, Value: raw, msg: "Invalid UUID: " + s}
		}
		return s, nil
	}

	return raw, nil
}

// SerialToTimestamp converts a spreadsheet date serial (days since
// 1899-12-30, fraction = time of day) to TimestampLayout on the UTC calendar.
// The time of day is rounded to the nearest second. Serials outside years
// 1 through 9999 are clamped to that range.
func SerialToTimestamp(serial float64) string {
	switch {
	case serial < minDateSerial:
		serial = minDateSerial
	case serial >= maxDateSerial+1:
		serial = maxDateSerial + 86399.0/86400
	}
	whole := math.Floor(serial)
	day := time.Unix(int64(whole-unixEpochSerial)*86400, 0).UTC()

	secs := int(math.Round(86400 * (serial - whole)))

	return time.Date(day.Year(), day.Month(), day.Day(),
		secs/3600, (secs%3600)/60, secs%60, 0, time.UTC).Format(TimestampLayout)
}

// serialValue extracts a finite date serial from a numeric cell or a
// decimal string. Serials beyond the representable calendar are rejected.
func serialValue(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if !floatPrefix.MatchString(s) || floatPrefix.FindString(s) != s {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || f < minDateSerial || f >= maxDateSerial+1 {
		return 0, false
	}
	return f, true
}

// parseIntPrefix reads the leading base-10 integer of the value, ignoring
// any trailing text. Values without a leading integer yield NaN.
func parseIntPrefix(raw any) any {
	switch v := raw.(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) || math.Abs(v) >= math.MaxInt64 {
			return NaN
		}
		return int64(math.Trunc(v))
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		m := intPrefix.FindString(strings.TrimSpace(v))
		if m == "" {
			return NaN
		}
		i, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return NaN
		}
		return i
	}
	return NaN
}

// parseFloatPrefix reads the leading decimal literal of the value, ignoring
// any trailing text. Values without one, and values that are not finite,
// yield NaN.
func parseFloatPrefix(raw any) any {
	switch v := raw.(type) {
	case float64:
		return finiteOrNaN(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		m := floatPrefix.FindString(strings.TrimSpace(v))
		if m == "" {
			return NaN
		}
		// ParseFloat saturates out of range literals to ±Inf
		f, _ := strconv.ParseFloat(m, 64)
		return finiteOrNaN(f)
	}
	return NaN
}

// finiteOrNaN keeps ±Inf and IEEE NaN out of normalized rows; they have no
// JSON encoding and no portable column representation.
func finiteOrNaN(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return NaN
	}
	return f
}

func strictInt(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) >= math.MaxInt64 {
			return nil, invalidValue(TypeInteger, raw)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, invalidValue(TypeInteger, raw)
		}
		return i, nil
	}
	return nil, invalidValue(TypeInteger, raw)
}

func strictFloat(raw any, t Type) (any, error) {
	switch v := raw.(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, invalidValue(t, raw)
		}
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if floatPrefix.FindString(s) != s || strings.HasSuffix(s, "Infinity") {
			return nil, invalidValue(t, raw)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalidValue(t, raw)
		}
		return f, nil
	}
	return nil, invalidValue(t, raw)
}

// Stringify renders a raw cell value the way it appears in a sheet:
// integral floats without a decimal point, booleans as true/false.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
