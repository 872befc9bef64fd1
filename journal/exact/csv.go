// Package exact serializes journal entries into the semicolon-delimited
// ledger-import format used by Exact.
package exact

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/ibeo-nl/tebi-books/journal"
)

// Column schema of the import file. One data row per journal line.
var columns = []string{
	"Dagboek",
	"Boekjaar",
	"Periode",
	"Boekstuknummer",
	"Valuta",
	"Datum",
	"Grootboekrekening",
	"Omschrijving",
	"Bedrag",
	"BTW-code",
	"BTW-bedrag",
	"Kostenplaats",
}

const (
	dateLayout = "02-01-2006"

	// One import document per day; the sequence suffix is fixed
	// because a run never emits two documents for the same date.
	documentSuffix = "01"
)

// Marshal renders entries as UTF-8 semicolon-delimited text: a header
// row followed by one row per line. Amounts are signed, debit positive
// and credit negative. Output is deterministic for identical input.
func Marshal(entries []journal.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("exact: write header: %w", err)
	}

	for _, entry := range entries {
		fiscalYear := strconv.Itoa(entry.Date.Year())
		period := strconv.Itoa(int(entry.Date.Month()))
		document := DocumentNumber(entry)

		for _, l := range entry.Lines {
			amount := l.NetValue
			if l.Polarity == journal.Credit {
				amount = amount.Neg()
			}
			vatAmount := ""
			if l.VATValue != nil {
				vatAmount = l.VATValue.StringFixed(2)
			}

			record := []string{
				entry.JournalCode,
				fiscalYear,
				period,
				document,
				entry.Currency,
				entry.Date.Format(dateLayout),
				l.LedgerCode,
				l.Description,
				amount.StringFixed(2),
				l.VATCode,
				vatAmount,
				l.CostCenter,
			}
			if err := w.Write(record); err != nil {
				return nil, fmt.Errorf("exact: write line: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("exact: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// DocumentNumber derives the import document number from the entry
// date: two-digit year, month, day and the fixed sequence suffix.
func DocumentNumber(entry journal.Entry) string {
	return entry.Date.Format("060102") + documentSuffix
}
