package twinfield

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ibeo-nl/tebi-books/journal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleEntry() journal.Entry {
	return journal.Entry{
		Date:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Office:      "DEMO1",
		JournalCode: "TEBI",
		Currency:    "EUR",
		Lines: []journal.Line{
			{
				LedgerCode:  "8000",
				Polarity:    journal.Credit,
				NetValue:    decimal.RequireFromString("100.00"),
				VATCode:     "VH",
				VATValue:    dec("21.00"),
				Description: "Omzet hoog",
			},
			{
				LedgerCode:  "1300",
				Polarity:    journal.Debit,
				NetValue:    decimal.RequireFromString("100.00"),
				Description: "Pin",
			},
		},
	}
}

func TestMarshal_Golden(t *testing.T) {
	got, err := Marshal([]journal.Entry{sampleEntry()}, "concept")
	assert.NoError(t, err)

	expected := `<?xml version="1.0" encoding="UTF-8"?>
<transactions>
  <transaction destiny="concept" autobalancevat="true" raisewarning="false">
    <header>
      <office>DEMO1</office>
      <code>TEBI</code>
      <date>20240601</date>
      <currency>EUR</currency>
    </header>
    <lines>
      <line type="detail">
        <dim1>8000</dim1>
        <debitcredit>credit</debitcredit>
        <value>100.00</value>
        <vatcode>VH</vatcode>
        <vatvalue>21.00</vatvalue>
        <description>Omzet hoog</description>
      </line>
      <line type="detail">
        <dim1>1300</dim1>
        <debitcredit>debit</debitcredit>
        <value>100.00</value>
        <description>Pin</description>
      </line>
    </lines>
  </transaction>
</transactions>`

	assert.Equal(t, expected, string(got))
}

func TestMarshal_OmitsAbsentOptionalElements(t *testing.T) {
	out, err := Marshal([]journal.Entry{sampleEntry()}, "concept")
	assert.NoError(t, err)

	s := string(out)
	assert.NotContains(t, s, "<dim2>")
	assert.NotContains(t, s, "<dim2></dim2>")
	// The second line has no VAT; exactly one vatcode element overall.
	assert.Equal(t, 1, strings.Count(s, "<vatcode>"))
	assert.Equal(t, 1, strings.Count(s, "<vatvalue>"))
}

func TestMarshal_CostCenterAsDim2(t *testing.T) {
	entry := sampleEntry()
	for i := range entry.Lines {
		entry.Lines[i].CostCenter = "100"
	}

	out, err := Marshal([]journal.Entry{entry}, "concept")
	assert.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), "<dim2>100</dim2>"))
}

func TestMarshal_DestinyAttribute(t *testing.T) {
	out, err := Marshal([]journal.Entry{sampleEntry()}, "temporary")
	assert.NoError(t, err)
	assert.Contains(t, string(out), `destiny="temporary"`)

	out, err = Marshal([]journal.Entry{sampleEntry()}, "")
	assert.NoError(t, err)
	assert.Contains(t, string(out), `destiny="concept"`)
}

func TestMarshal_Deterministic(t *testing.T) {
	entries := []journal.Entry{sampleEntry()}

	first, err := Marshal(entries, "concept")
	assert.NoError(t, err)
	second, err := Marshal(entries, "concept")
	assert.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "output must be byte-identical across runs")
}

func TestMarshal_EmptyEntries(t *testing.T) {
	out, err := Marshal(nil, "concept")
	assert.NoError(t, err)
	assert.Contains(t, string(out), "<transactions>")
}
