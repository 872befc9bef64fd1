// Package loader reads a delimited Tebi revenue export into typed
// transaction rows. All field parsing happens here, once; downstream
// code never looks values up by column name again.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ibeo-nl/tebi-books/journal"
)

// Canonical column names of a Tebi export.
const (
	colDate       = "Date"
	colAccount    = "Account"
	colMapped     = "Account Mapped"
	colAmount     = "Amount"
	colTaxAmount  = "Tax Amount"
	colTaxCode    = "Tax Code Mapped"
	colTaxPercent = "Tax Percentage"
)

// RequiredColumns is the full Tebi schema; absent ones are reported,
// not fatal.
var RequiredColumns = []string{
	colDate, colAccount, colMapped, colAmount,
	colTaxAmount, colTaxCode, colTaxPercent,
}

// headerAliases maps the Dutch bookkeeping-macro export headers onto
// the canonical names.
var headerAliases = map[string]string{
	"Datum":        colDate,
	"Omschrijving": colAccount,
	"Grtboekrek.":  colMapped,
	"Bedrag":       colAmount,
	"Btwcode":      colTaxCode,
}

// colDebitCredit marks macro exports that carry unsigned amounts plus
// a side indicator.
const colDebitCredit = "DebitCredit"

// defaultVATRates supplies percentages for exports that have a VAT
// code column but no percentage column.
var defaultVATRates = map[string]decimal.Decimal{
	"VH": decimal.NewFromInt(21),
	"VL": decimal.NewFromInt(9),
}

// Options controls reading. Tebi exports are semicolon-delimited by
// default; autodetection is deliberately not attempted.
type Options struct {
	Delimiter rune
}

// Result is the parsed dataset plus the required columns the file was
// missing, for the caller to surface before a final run.
type Result struct {
	Rows           []journal.TransactionRow
	MissingColumns []string
}

// Read parses a delimited export. Unparsable dates and amounts become
// missing fields on the row — exclusion decisions belong to the
// journal builder, not the loader.
func Read(r io.Reader, opts Options) (Result, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ';'
	}

	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("loader: read delimited input: %w", err)
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("loader: input has no header row")
	}

	index := headerIndex(records[0])

	var res Result
	for _, name := range RequiredColumns {
		if _, ok := index[name]; !ok {
			res.MissingColumns = append(res.MissingColumns, name)
		}
	}
	_, hasPercentColumn := index[colTaxPercent]

	for _, record := range records[1:] {
		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := journal.TransactionRow{
			SourceAccount: field(colAccount),
			LedgerCode:    field(colMapped),
			VATCode:       field(colTaxCode),
		}
		if d, ok := journal.ParseDate(field(colDate)); ok {
			row.Date = d
		}
		if amt, ok := journal.ToDecimal(field(colAmount)); ok {
			// Macro exports carry unsigned amounts plus a side
			// column; everything but debit is an outflow.
			if side := field(colDebitCredit); side != "" && !strings.EqualFold(side, "debit") {
				amt = amt.Abs().Neg()
			}
			row.Amount = &amt
		}
		if vat, ok := journal.ToDecimal(field(colTaxAmount)); ok {
			row.VATAmount = &vat
		}
		if hasPercentColumn {
			if rate, ok := journal.ToDecimal(field(colTaxPercent)); ok {
				row.VATRate = &rate
			}
		} else if rate, ok := defaultVATRates[strings.ToUpper(row.VATCode)]; ok {
			row.VATRate = &rate
		}

		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if canonical, ok := headerAliases[name]; ok {
			name = canonical
		}
		if _, taken := index[name]; !taken {
			index[name] = i
		}
	}
	return index
}
