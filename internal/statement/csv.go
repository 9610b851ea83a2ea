package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// ParseCSV parses a semicolon separated, ISO-8859-1 encoded statement.
func ParseCSV(data []byte) (*Statement, error) {
	r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data)))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("reading csv: %w", err)}
	}
	return scan(rows)
}
