package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Format selects the target bookkeeping system.
type Format string

const (
	FormatTwinfield Format = "twinfield"
	FormatExact     Format = "exact"
)

// Polarity is the debit/credit side of a journal line.
type Polarity string

const (
	Debit  Polarity = "debit"
	Credit Polarity = "credit"
)

// TransactionRow is one record of a Tebi daily revenue export, populated
// once by the loader. Optional numeric fields are nil when the source
// value was absent or unparsable.
type TransactionRow struct {
	Date          time.Time // zero when missing or unparsable
	SourceAccount string
	LedgerCode    string // mapped GL account, empty until mapped
	Amount        *decimal.Decimal
	VATCode       string
	VATAmount     *decimal.Decimal
	VATRate       *decimal.Decimal // percentage, used only when VATAmount is nil
}

// Line is a single debit or credit posting within a day's entry.
type Line struct {
	LedgerCode  string
	CostCenter  string // empty when the administration has no cost center
	Polarity    Polarity
	NetValue    decimal.Decimal // non-negative, 2 decimals
	VATCode     string
	VATValue    *decimal.Decimal // set only alongside VATCode
	Description string
}

// Entry is one calendar day's journal entry.
type Entry struct {
	Date        time.Time
	Office      string
	JournalCode string
	Currency    string
	Lines       []Line
}

// Config carries the run-constant header attributes and policy knobs.
type Config struct {
	Office            string
	JournalCode       string
	Currency          string // ISO 4217, defaults to EUR
	DifferencesLedger string // GL absorbing sub-tolerance imbalances
	CostCenter        string
	RoundTolerance    decimal.Decimal // defaults to 0.05
	Target            Format          // defaults to FormatTwinfield
	Destiny           string          // twinfield posting mode, defaults to "concept"
}

// ConfigError reports a missing required configuration field. It fails
// the whole build; nothing is partially emitted.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("journal: missing required config field %q", e.Field)
}

// Exclusion says why a row produced no journal line. Exclusions are
// data-quality signals, not errors.
type Exclusion int

const (
	ExclusionNone Exclusion = iota
	ExcludedUnmapped
	ExcludedNoAmount
	ExcludedZeroAmount
)

// BuildResult is the outcome of one build invocation. Exclusion counts
// and the unmapped-account list let the caller decide whether the
// output is fit for a final run.
type BuildResult struct {
	Entries []Entry

	DroppedNoDate    int
	DroppedUnmapped  int
	DroppedNoAmount  int
	UnmappedAccounts []string // distinct source accounts lacking a GL code

	// Dates whose imbalance exceeded the tolerance and were emitted
	// uncorrected. Non-empty means a mapping or data error upstream.
	OutOfTolerance []time.Time
}

func (f Format) valid() bool {
	return f == FormatTwinfield || f == FormatExact
}

// withDefaults fills in the documented defaults without mutating the
// caller's copy.
func (c Config) withDefaults() Config {
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	if c.Target == "" {
		c.Target = FormatTwinfield
	}
	if c.Destiny == "" {
		c.Destiny = "concept"
	}
	if c.RoundTolerance.IsZero() {
		c.RoundTolerance = decimal.New(5, -2)
	}
	return c
}

func (c Config) validate() error {
	if c.Office == "" {
		return &ConfigError{Field: "office"}
	}
	if c.JournalCode == "" {
		return &ConfigError{Field: "journal code"}
	}
	if SanitizeGL(c.DifferencesLedger) == "" {
		return &ConfigError{Field: "differences ledger"}
	}
	if !c.Target.valid() {
		return &ConfigError{Field: "target format"}
	}
	return nil
}
