// Package sheet decodes uploaded CSV spreadsheets into a grid of strings.
package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FormatError is returned for input that cannot be read as a spreadsheet.
type FormatError struct {
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("unreadable spreadsheet at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("unreadable spreadsheet: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

var errEmpty = errors.New("no rows")

var encodings = map[string]encoding.Encoding{
	"":             unicode.UTF8,
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"windows-1250": charmap.Windows1250,
	"cp1250":       charmap.Windows1250,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-2":   charmap.ISO8859_2,
	"latin2":       charmap.ISO8859_2,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"shift_jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
}

// Encodings lists the encoding names Decode accepts.
func Encodings() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Decode reads CSV from r and returns every record. The first record is the
// header. enc names the input's character encoding; empty means UTF-8. A
// UTF-8 byte order mark is dropped. The delimiter is a comma unless the header
// line has more semicolons than commas.
func Decode(r io.Reader, enc string) ([][]string, error) {
	e, ok := encodings[strings.ToLower(strings.TrimSpace(enc))]
	if !ok {
		return nil, &FormatError{Err: fmt.Errorf("unsupported encoding %q", enc)}
	}

	br := bufio.NewReader(transform.NewReader(r, e.NewDecoder()))
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	comma, err := sniffDelimiter(br)
	if err != nil {
		return nil, &FormatError{Err: err}
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1

	var grid [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &FormatError{Line: pe.Line, Err: pe.Err}
			}
			return nil, &FormatError{Err: err}
		}
		grid = append(grid, rec)
	}

	if len(grid) == 0 {
		return nil, &FormatError{Err: errEmpty}
	}
	return grid, nil
}

func sniffDelimiter(br *bufio.Reader) (rune, error) {
	// Peek as far as the first newline, bounded by the buffer size.
	var line []byte
	for n := 64; ; n *= 2 {
		b, err := br.Peek(n)
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line = b[:i]
			break
		}
		if err != nil {
			if err == io.EOF || errors.Is(err, bufio.ErrBufferFull) {
				line = b
				break
			}
			return 0, err
		}
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';', nil
	}
	return ',', nil
}
