package datasets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names the character encoding of a CSV file.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	CP1252 Encoding = "cp1252"
)

// ParseEncoding accepts the usual spellings of the supported encodings.
func ParseEncoding(raw string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "cp1252", "windows-1252", "windows1252":
		return CP1252, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", raw)
	}
}

// Row is one data row keyed by header. Line is the 1-based line in the file.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed value of column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// Table is a parsed CSV file with a header row.
type Table struct {
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the header contains column.
func (t *Table) HasColumn(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// Require fails with a MissingColumnError for the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return &MissingColumnError{Column: c}
		}
	}
	return nil
}

// ReadTable parses CSV from r, decoding it from enc first. Every row must have
// as many fields as the header.
func ReadTable(r io.Reader, enc Encoding) (*Table, error) {
	if enc == CP1252 {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table")
		}
		return nil, err
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = strings.TrimSpace(h)
	}

	table := &Table{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &RowError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			values[h] = record[i]
		}
		table.Rows = append(table.Rows, Row{Line: line, Values: values})
	}
	return table, nil
}
