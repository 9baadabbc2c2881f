package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/sheetload/internal/schema"
)

// encode serializes a session for the file and redis backends.
func encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

// decode restores a session and the Go types of its row values: INTEGER
// columns come back as int64 and other numbers as float64.
func decode(data []byte) (*Session, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var s Session
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	for _, row := range s.Rows {
		for _, c := range s.Columns {
			n, ok := row[c.Name].(json.Number)
			if !ok {
				continue
			}
			row[c.Name] = restoreNumber(n, c.Type)
		}
	}

	return &s, nil
}

func restoreNumber(n json.Number, t schema.Type) any {
	if t == schema.TypeInteger {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
