package statement

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses a statement saved as an Excel workbook. Only the first
// sheet is read.
func ParseXLSX(data []byte) (*Statement, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("opening workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &Error{Err: errors.New("no sheets found in workbook")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("reading sheet: %w", err)}
	}
	return scan(rows)
}
