package journal

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BalancingDescription is the fixed text on the synthetic line that
// absorbs sub-tolerance rounding differences.
const BalancingDescription = "rounding differences"

// Build groups rows by calendar date and produces one journal entry
// per day, each balanced within the configured tolerance.
//
// Rows without a usable date, without a GL mapping, or with a zero or
// missing amount are silently excluded and counted in the result. A
// day whose debit/credit mismatch stays within RoundTolerance gets one
// balancing line on the differences ledger; a larger mismatch is
// emitted as-is and the date recorded in OutOfTolerance — blocking a
// materially wrong journal is the caller's call, not the engine's.
//
// The build is a pure function: same rows and config, same result.
func Build(rows []TransactionRow, cfg Config) (BuildResult, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return BuildResult{}, err
	}

	var res BuildResult
	unmapped := map[string]struct{}{}

	// Partition by day, keeping insertion order within each group.
	groups := map[time.Time][]TransactionRow{}
	var days []time.Time
	for _, row := range rows {
		if row.Date.IsZero() {
			res.DroppedNoDate++
			continue
		}
		day := DateOnly(row.Date)
		if _, seen := groups[day]; !seen {
			days = append(days, day)
		}
		groups[day] = append(groups[day], row)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		entry := Entry{
			Date:        day,
			Office:      cfg.Office,
			JournalCode: cfg.JournalCode,
			Currency:    cfg.Currency,
		}
		totalDebits := decimal.Zero
		totalCredits := decimal.Zero

		for _, row := range groups[day] {
			line, excl := Classify(row, cfg)
			switch excl {
			case ExcludedUnmapped:
				res.DroppedUnmapped++
				unmapped[row.SourceAccount] = struct{}{}
				continue
			case ExcludedNoAmount:
				res.DroppedNoAmount++
				continue
			case ExcludedZeroAmount:
				res.DroppedNoAmount++
				continue
			}
			entry.Lines = append(entry.Lines, line)
			if line.Polarity == Debit {
				totalDebits = totalDebits.Add(line.NetValue)
			} else {
				totalCredits = totalCredits.Add(line.NetValue)
			}
		}

		if len(entry.Lines) == 0 {
			continue
		}

		imbalance := totalDebits.Sub(totalCredits)
		switch {
		case imbalance.IsZero():
			// already balanced
		case imbalance.Abs().LessThanOrEqual(cfg.RoundTolerance):
			entry.Lines = append(entry.Lines, balancingLine(imbalance, cfg))
		default:
			res.OutOfTolerance = append(res.OutOfTolerance, day)
		}

		res.Entries = append(res.Entries, entry)
	}

	for account := range unmapped {
		res.UnmappedAccounts = append(res.UnmappedAccounts, account)
	}
	sort.Strings(res.UnmappedAccounts)

	return res, nil
}

// balancingLine zeroes a sub-tolerance imbalance: more debits than
// credits calls for a credit line, and vice versa.
func balancingLine(imbalance decimal.Decimal, cfg Config) Line {
	polarity := Credit
	if imbalance.IsNegative() {
		polarity = Debit
	}
	return Line{
		LedgerCode:  SanitizeGL(cfg.DifferencesLedger),
		CostCenter:  strings.TrimSpace(cfg.CostCenter),
		Polarity:    polarity,
		NetValue:    imbalance.Abs(),
		Description: BalancingDescription,
	}
}
