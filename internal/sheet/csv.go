package sheet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

func decodeCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(newTextReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var g grid
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		cells := make([]any, len(rec))
		for i, v := range rec {
			if v != "" {
				cells[i] = v
			}
		}
		// csv.Reader skips empty lines, so take the line from the reader
		num, _ := cr.FieldPos(0)
		g = append(g, line{num: num, cells: cells})
	}

	return g.build("csv"), nil
}

// textReader drops a leading UTF-8 byte order mark and replaces invalid
// UTF-8 bytes with '?', so exports from Windows tools decode cleanly.
type textReader struct {
	br *bufio.Reader
}

func newTextReader(r io.Reader) *textReader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(byteOrderMark)); err == nil && string(prefix) == string(byteOrderMark) {
		_, _ = br.Discard(len(byteOrderMark))
	}
	return &textReader{br: br}
}

// Read implements io.Reader.
func (t *textReader) Read(p []byte) (int, error) {
	n := 0
	for n+utf8.UTFMax <= len(p) {
		r, size, err := t.br.ReadRune()
		if err != nil {
			if n > 0 && errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}
		n += utf8.EncodeRune(p[n:], r)
	}
	if n == 0 && len(p) > 0 {
		// buffer too small for a full rune; fall back to a single byte
		b, err := t.br.ReadByte()
		if err != nil {
			return 0, err
		}
		p[0] = b
		return 1, nil
	}
	return n, nil
}
