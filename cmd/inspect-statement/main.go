package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"finbook/internal/statement"
)

type Params struct {
	Output string `descr:"Output format" alts:"table,json" strict:"true" default:"table"`
	File   string `descr:"Path to a CSV or XLSX statement export" positional:"true"`
}

func main() {
	boa.NewCmdT[Params]("inspect-statement").
		WithShort("Show what an import would read from a bank statement").
		WithLong("Parses a bank statement export without touching the database and prints the account and every transaction row it contains.").
		WithRunFunc(func(params *Params) {
			data, err := os.ReadFile(params.File)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
				os.Exit(1)
			}

			st, err := statement.Parse(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing file: %v\n", err)
				os.Exit(1)
			}

			if params.Output == "json" {
				err = printJSON(os.Stdout, st)
			} else {
				printTable(os.Stdout, st)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

type jsonRow struct {
	BookingDate     string `json:"booking_date"`
	ValueDate       string `json:"value_date"`
	Creditor        string `json:"creditor"`
	TransactionType string `json:"transaction_type"`
	Purpose         string `json:"purpose"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

type jsonStatement struct {
	IBAN        string    `json:"iban"`
	AccountName string    `json:"account_name"`
	Rows        []jsonRow `json:"rows"`
}

func printJSON(w io.Writer, st *statement.Statement) error {
	out := jsonStatement{IBAN: st.IBAN, AccountName: st.AccountName, Rows: make([]jsonRow, 0, len(st.Rows))}
	for _, r := range st.Rows {
		out.Rows = append(out.Rows, jsonRow{
			BookingDate:     r.BookingDate.Format("2006-01-02"),
			ValueDate:       r.ValueDate.Format("2006-01-02"),
			Creditor:        r.Creditor,
			TransactionType: r.TransactionType,
			Purpose:         r.Purpose,
			Amount:          r.Amount.StringFixed(2),
			Currency:        r.Currency,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printTable(w io.Writer, st *statement.Statement) {
	fmt.Fprintf(w, "Account: %s", st.IBAN)
	if st.AccountName != "" {
		fmt.Fprintf(w, " (%s)", st.AccountName)
	}
	fmt.Fprintf(w, "\nRows: %d\n\n", len(st.Rows))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Booked", "Value", "Creditor", "Type", "Purpose", "Amount"})

	total := decimal.Zero
	for _, r := range st.Rows {
		amount := r.Amount.StringFixed(2) + " " + r.Currency
		if r.Amount.IsNegative() {
			amount = text.FgRed.Sprint(amount)
		}
		t.AppendRow(table.Row{
			r.BookingDate.Format("2006-01-02"),
			r.ValueDate.Format("2006-01-02"),
			truncate(r.Creditor, 30),
			r.TransactionType,
			truncate(r.Purpose, 40),
			amount,
		})
		total = total.Add(r.Amount)
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", "", text.Bold.Sprint("Total"), text.Bold.Sprint(total.StringFixed(2))})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	t.Render()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-2]) + ".."
}
