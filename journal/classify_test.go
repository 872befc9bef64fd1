package journal

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestClassify_GrossWithExplicitVAT(t *testing.T) {
	row := TransactionRow{
		Date:          mustDate("2024-06-01"),
		SourceAccount: "Omzet keuken hoog",
		LedgerCode:    "8000",
		Amount:        dec("121.00"),
		VATCode:       "VH",
		VATAmount:     dec("21.00"),
	}

	line, excl := Classify(row, Config{})

	assert.Equal(t, ExclusionNone, excl)
	assert.Equal(t, Credit, line.Polarity)
	assert.Equal(t, "100.00", line.NetValue.StringFixed(2))
	assert.Equal(t, "VH", line.VATCode)
	if assert.NotNil(t, line.VATValue) {
		assert.Equal(t, "21.00", line.VATValue.StringFixed(2))
	}
}

func TestClassify_NetWithRateFallback(t *testing.T) {
	row := TransactionRow{
		LedgerCode: "8010",
		Amount:     dec("100.00"),
		VATCode:    "VL",
		VATRate:    dec("9"),
	}

	line, excl := Classify(row, Config{})

	assert.Equal(t, ExclusionNone, excl)
	assert.Equal(t, "100.00", line.NetValue.StringFixed(2))
	if assert.NotNil(t, line.VATValue) {
		assert.Equal(t, "9.00", line.VATValue.StringFixed(2))
	}
}

func TestClassify_ExplicitVATWinsOverRate(t *testing.T) {
	// When both are present and disagree, the explicit amount is
	// authoritative and the rate is ignored.
	row := TransactionRow{
		LedgerCode: "8000",
		Amount:     dec("121.00"),
		VATCode:    "VH",
		VATAmount:  dec("21.00"),
		VATRate:    dec("9"),
	}

	line, _ := Classify(row, Config{})

	assert.Equal(t, "100.00", line.NetValue.StringFixed(2))
	assert.Equal(t, "21.00", line.VATValue.StringFixed(2))
}

func TestClassify_NoVATCode(t *testing.T) {
	row := TransactionRow{
		LedgerCode: "1300",
		Amount:     dec("-40.00"),
	}

	line, excl := Classify(row, Config{})

	assert.Equal(t, ExclusionNone, excl)
	assert.Equal(t, Debit, line.Polarity)
	assert.Equal(t, "40.00", line.NetValue.StringFixed(2))
	assert.Empty(t, line.VATCode)
	assert.Nil(t, line.VATValue)
}

func TestClassify_VATCodeWithoutAmountOrRate(t *testing.T) {
	row := TransactionRow{
		LedgerCode: "8000",
		Amount:     dec("50.00"),
		VATCode:    "VH",
	}

	line, _ := Classify(row, Config{})

	assert.Equal(t, "VH", line.VATCode)
	assert.Nil(t, line.VATValue)
	assert.Equal(t, "50.00", line.NetValue.StringFixed(2))
}

func TestClassify_NegativeNetClampsToZero(t *testing.T) {
	// Malformed input: VAT larger than the gross amount.
	row := TransactionRow{
		LedgerCode: "8000",
		Amount:     dec("10.00"),
		VATCode:    "VH",
		VATAmount:  dec("21.00"),
	}

	line, _ := Classify(row, Config{})

	assert.True(t, line.NetValue.IsZero(), "net must clamp to zero, got %s", line.NetValue)
}

func TestClassify_PolarityFromSignedAmount(t *testing.T) {
	// Polarity is decided before any absolute-value transform, also
	// on VAT rows.
	row := TransactionRow{
		LedgerCode: "1600",
		Amount:     dec("-121.00"),
		VATCode:    "VH",
		VATAmount:  dec("-21.00"),
	}

	line, _ := Classify(row, Config{})

	assert.Equal(t, Debit, line.Polarity)
	assert.Equal(t, "100.00", line.NetValue.StringFixed(2))
	assert.Equal(t, "21.00", line.VATValue.StringFixed(2))
}

func TestClassify_Exclusions(t *testing.T) {
	tests := []struct {
		name string
		row  TransactionRow
		want Exclusion
	}{
		{"unmapped", TransactionRow{SourceAccount: "Fooien", Amount: dec("5.00")}, ExcludedUnmapped},
		{"blank mapping", TransactionRow{LedgerCode: "   ", Amount: dec("5.00")}, ExcludedUnmapped},
		{"missing amount", TransactionRow{LedgerCode: "8000"}, ExcludedNoAmount},
		{"zero amount", TransactionRow{LedgerCode: "8000", Amount: dec("0")}, ExcludedZeroAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, excl := Classify(tt.row, Config{})
			assert.Equal(t, tt.want, excl)
		})
	}
}

func TestClassify_DescriptionTruncation(t *testing.T) {
	long := strings.Repeat("Omzet ", 20) // 120 chars
	row := TransactionRow{SourceAccount: long, LedgerCode: "8000", Amount: dec("1.00")}

	xmlLine, _ := Classify(row, Config{Target: FormatTwinfield})
	assert.Len(t, []rune(xmlLine.Description), 40)

	csvLine, _ := Classify(row, Config{Target: FormatExact})
	assert.Len(t, []rune(csvLine.Description), 60)
}

func TestClassify_GLCodeSanitized(t *testing.T) {
	row := TransactionRow{LedgerCode: "4040.0", Amount: dec("12.00")}
	line, _ := Classify(row, Config{})
	assert.Equal(t, "4040", line.LedgerCode)
}

func TestClassify_CostCenterAttached(t *testing.T) {
	row := TransactionRow{LedgerCode: "8000", Amount: dec("12.00")}
	line, _ := Classify(row, Config{CostCenter: " 100 "})
	assert.Equal(t, "100", line.CostCenter)
}
