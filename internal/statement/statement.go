// Package statement turns bank statement exports into transaction candidates.
//
// Two flavors are understood: the bank's semicolon separated CSV export
// (ISO-8859-1 encoded) and the same layout saved as an XLSX workbook. Both go
// through one row scanner, so marker handling is identical.
package statement

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the day-first date format used in statement rows.
const DateLayout = "02.01.2006"

// Marker values found in the first column of a statement.
const (
	markerIBAN        = "IBAN"
	markerAccountName = "Kontoname"
	markerBalance     = "Saldo"
	markerPayload     = "Buchung"
)

var (
	ErrMissingIBAN   = errors.New("statement has no IBAN row")
	ErrMissingMarker = errors.New("statement has no booking header row")
	ErrShortRow      = errors.New("payload row has too few columns")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Error reports a malformed statement. Row is 1-based; 0 means the problem
// concerns the file as a whole.
type Error struct {
	Row int
	Err error
}

func (e *Error) Error() string {
	if e.Row == 0 {
		return "malformed statement: " + e.Err.Error()
	}
	return fmt.Sprintf("malformed statement: row %d: %v", e.Row, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Row is one transaction candidate read from a statement.
type Row struct {
	BookingDate     time.Time
	ValueDate       time.Time
	Creditor        string
	TransactionType string
	Purpose         string
	Amount          decimal.Decimal
	Currency        string
}

// Statement is the parsed content of one file.
type Statement struct {
	IBAN        string
	AccountName string
	Rows        []Row
}

// Parser reads a statement from raw file bytes.
type Parser interface {
	Parse(data []byte) (*Statement, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(data []byte) (*Statement, error)

func (f ParserFunc) Parse(data []byte) (*Statement, error) {
	return f(data)
}

// Flavor names a statement file format.
type Flavor string

const (
	FlavorCSV  Flavor = "csv"
	FlavorXLSX Flavor = "xlsx"
)

var parsers = map[Flavor]Parser{
	FlavorCSV:  ParserFunc(ParseCSV),
	FlavorXLSX: ParserFunc(ParseXLSX),
}

var zipMagic = []byte("PK\x03\x04")

// Detect picks the flavor of data by its leading bytes. XLSX workbooks are
// ZIP archives; everything else is treated as CSV.
func Detect(data []byte) Flavor {
	if bytes.HasPrefix(data, zipMagic) {
		return FlavorXLSX
	}
	return FlavorCSV
}

// ParserFor returns the parser registered for flavor.
func ParserFor(flavor Flavor) (Parser, error) {
	p, ok := parsers[flavor]
	if !ok {
		return nil, fmt.Errorf("unknown statement flavor: %s", flavor)
	}
	return p, nil
}

// Parse detects the flavor of data and parses it.
func Parse(data []byte) (*Statement, error) {
	p, err := ParserFor(Detect(data))
	if err != nil {
		return nil, err
	}
	return p.Parse(data)
}

// scan runs the marker state machine over already split rows.
func scan(rows [][]string) (*Statement, error) {
	st := &Statement{}
	inPayload := false
	hasBalance := false

	for i, row := range rows {
		n := i + 1
		if isBlank(row) {
			continue
		}

		if !inPayload {
			switch strings.TrimSpace(row[0]) {
			case markerIBAN:
				if len(row) > 1 {
					st.IBAN = strings.ReplaceAll(strings.TrimSpace(row[1]), " ", "")
				}
			case markerAccountName:
				if len(row) > 1 {
					st.AccountName = strings.TrimSpace(row[1])
				}
			case markerBalance:
				hasBalance = true
			case markerPayload:
				inPayload = true
			}
			continue
		}

		r, err := parseRow(row, hasBalance)
		if err != nil {
			return nil, &Error{Row: n, Err: err}
		}
		st.Rows = append(st.Rows, r)
	}

	if !inPayload {
		return nil, &Error{Err: ErrMissingMarker}
	}
	if st.IBAN == "" {
		return nil, &Error{Err: ErrMissingIBAN}
	}
	return st, nil
}

// parseRow reads one payload row. With a balance column present the amount
// and currency move from columns 5/6 to 7/8.
func parseRow(row []string, hasBalance bool) (Row, error) {
	amountCol, currencyCol := 5, 6
	if hasBalance {
		amountCol, currencyCol = 7, 8
	}
	if len(row) <= currencyCol {
		return Row{}, fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(row), currencyCol+1)
	}

	booking, err := parseDate(row[0])
	if err != nil {
		return Row{}, err
	}
	value, err := parseDate(row[1])
	if err != nil {
		return Row{}, err
	}
	amount, err := ParseAmount(row[amountCol])
	if err != nil {
		return Row{}, err
	}

	return Row{
		BookingDate:     booking,
		ValueDate:       value,
		Creditor:        strings.TrimSpace(row[2]),
		TransactionType: strings.TrimSpace(row[3]),
		Purpose:         strings.TrimSpace(row[4]),
		Amount:          amount,
		Currency:        strings.TrimSpace(row[currencyCol]),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseAmount reads a German formatted amount ("-1.234,56") into a decimal.
// More than two fraction digits means the cell is not a bank amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	d, err := decimal.NewFromString(clean)
	if err != nil || d.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	return d, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
