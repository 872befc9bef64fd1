package journal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Description limits per target; truncation is silent.
const (
	descLimitTwinfield = 40
	descLimitExact     = 60
)

var hundred = decimal.NewFromInt(100)

// Classify resolves one row into a journal line, or reports why it is
// excluded. Exclusions are expected for unmapped and zero rows and are
// not errors.
//
// Net and VAT are derived from one of three input shapes:
//  1. VAT code with an explicit VAT amount: the row amount is gross;
//     net = |amount| - |vat|, clamped at zero for malformed input.
//  2. VAT code with a known rate but no amount: the row amount is net;
//     vat = |amount| * rate / 100.
//  3. No VAT code: net = |amount|, no VAT carried.
//
// When both a VAT amount and a rate are present, the explicit amount
// wins; the rate exists only for exports that never carry one.
func Classify(row TransactionRow, cfg Config) (Line, Exclusion) {
	cfg = cfg.withDefaults()

	gl := SanitizeGL(row.LedgerCode)
	if gl == "" {
		return Line{}, ExcludedUnmapped
	}
	if row.Amount == nil {
		return Line{}, ExcludedNoAmount
	}
	amount := *row.Amount
	if amount.IsZero() {
		return Line{}, ExcludedZeroAmount
	}

	// Polarity comes from the original signed amount: positive is
	// revenue (credit), negative is a payment or receivable (debit).
	polarity := Credit
	if amount.IsNegative() {
		polarity = Debit
	}
	abs := amount.Abs()

	line := Line{
		LedgerCode: gl,
		CostCenter: strings.TrimSpace(cfg.CostCenter),
		Polarity:   polarity,
	}

	vatCode := strings.TrimSpace(row.VATCode)
	switch {
	case vatCode != "" && row.VATAmount != nil:
		vat := round2(row.VATAmount.Abs())
		net := round2(abs.Sub(row.VATAmount.Abs()))
		if net.IsNegative() {
			net = decimal.Zero
		}
		line.NetValue = net
		line.VATCode = vatCode
		line.VATValue = &vat
	case vatCode != "" && row.VATRate != nil:
		vat := round2(abs.Mul(*row.VATRate).Div(hundred))
		line.NetValue = round2(abs)
		line.VATCode = vatCode
		line.VATValue = &vat
	default:
		line.NetValue = round2(abs)
		// A VAT code without amount or rate is carried as-is; the
		// destination system resolves the treatment.
		line.VATCode = vatCode
	}

	limit := descLimitTwinfield
	if cfg.Target == FormatExact {
		limit = descLimitExact
	}
	line.Description = truncate(strings.TrimSpace(row.SourceAccount), limit)

	return line, ExclusionNone
}
