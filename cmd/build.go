package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ibeo-nl/tebi-books/integrations/postgres"
	"github.com/ibeo-nl/tebi-books/journal"
	"github.com/ibeo-nl/tebi-books/journal/exact"
	"github.com/ibeo-nl/tebi-books/journal/twinfield"
	"github.com/ibeo-nl/tebi-books/loader"
	"github.com/ibeo-nl/tebi-books/mapping"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a journal file from a Tebi export",
	Long: `Reads a Tebi revenue export (delimited text), groups it into one
balanced journal entry per day and writes the Twinfield XML or Exact
import file.

Account mappings come from the config file (mappings:) and, when
--db-url or DATABASE_URL is set, from the shared mapping store.
Unmapped source accounts abort the run unless --allow-unmapped is
given, so no revenue line is dropped silently.`,
	Run: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("file", "f", "", "Tebi export file to convert")
	buildCmd.Flags().StringP("output", "o", "", "Output path (default: derived from office and date range)")
	buildCmd.Flags().String("office", "", "Administration/office code")
	buildCmd.Flags().String("journal-code", "TEBI", "Journal/daybook code")
	buildCmd.Flags().String("diff-ledger", "9899", "Differences ledger absorbing rounding imbalances")
	buildCmd.Flags().String("currency", "EUR", "ISO 4217 currency code")
	buildCmd.Flags().String("cost-center", "", "Cost center (KPL) code, if the administration uses one")
	buildCmd.Flags().String("tolerance", "0.05", "Maximum imbalance corrected with a rounding line")
	buildCmd.Flags().String("format", "twinfield", "Target format: twinfield or exact")
	buildCmd.Flags().String("destiny", "concept", "Twinfield posting mode (concept or final)")
	buildCmd.Flags().String("delimiter", ";", "Input field delimiter")
	buildCmd.Flags().Bool("allow-unmapped", false, "Build even when source accounts lack a GL mapping")
	buildCmd.Flags().String("db-url", "", "PostgreSQL URL of the mapping store (or DATABASE_URL)")

	viper.BindPFlag("input", buildCmd.Flags().Lookup("file"))
	viper.BindPFlag("output", buildCmd.Flags().Lookup("output"))
	viper.BindPFlag("office", buildCmd.Flags().Lookup("office"))
	viper.BindPFlag("journal_code", buildCmd.Flags().Lookup("journal-code"))
	viper.BindPFlag("differences_ledger", buildCmd.Flags().Lookup("diff-ledger"))
	viper.BindPFlag("currency", buildCmd.Flags().Lookup("currency"))
	viper.BindPFlag("cost_center", buildCmd.Flags().Lookup("cost-center"))
	viper.BindPFlag("tolerance", buildCmd.Flags().Lookup("tolerance"))
	viper.BindPFlag("format", buildCmd.Flags().Lookup("format"))
	viper.BindPFlag("destiny", buildCmd.Flags().Lookup("destiny"))
	viper.BindPFlag("delimiter", buildCmd.Flags().Lookup("delimiter"))
	viper.BindPFlag("allow_unmapped", buildCmd.Flags().Lookup("allow-unmapped"))
	viper.BindPFlag("db_url", buildCmd.Flags().Lookup("db-url"))
}

func runBuild(cmd *cobra.Command, args []string) {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ltime | log.Lmsgprefix)

	input := viper.GetString("input")
	if input == "" {
		fmt.Fprintln(os.Stderr, "error: --file/-f is required")
		os.Exit(1)
	}

	cfg := journal.Config{
		Office:            viper.GetString("office"),
		JournalCode:       viper.GetString("journal_code"),
		Currency:          viper.GetString("currency"),
		DifferencesLedger: viper.GetString("differences_ledger"),
		CostCenter:        viper.GetString("cost_center"),
		Target:            journal.Format(viper.GetString("format")),
		Destiny:           viper.GetString("destiny"),
	}
	if raw := viper.GetString("tolerance"); raw != "" {
		tol, err := decimal.NewFromString(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid tolerance %q\n", raw)
			os.Exit(1)
		}
		cfg.RoundTolerance = tol
	}

	f, err := os.Open(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var delim rune
	if d := viper.GetString("delimiter"); d != "" {
		delim = []rune(d)[0]
	}
	parsed, err := loader.Read(f, loader.Options{Delimiter: delim})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(parsed.MissingColumns) > 0 {
		log.Printf("input is missing columns: %s", strings.Join(parsed.MissingColumns, ", "))
	}

	store := mapping.NewFrom(viper.GetStringMapString("mappings"))
	mergeStoredMappings(store, cfg.Office)
	rows := store.Apply(parsed.Rows)

	if unmapped := mapping.Missing(rows); len(unmapped) > 0 {
		if !viper.GetBool("allow_unmapped") {
			fmt.Fprintf(os.Stderr, "error: %d source accounts have no GL mapping:\n", len(unmapped))
			for _, account := range unmapped {
				fmt.Fprintf(os.Stderr, "  %s\n", account)
			}
			fmt.Fprintln(os.Stderr, "add them under 'mappings:' in the config, or pass --allow-unmapped")
			os.Exit(1)
		}
		log.Printf("proceeding with %d unmapped accounts (rows excluded)", len(unmapped))
	}

	result, err := journal.Build(rows, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var body []byte
	ext := "xml"
	switch cfg.Target {
	case journal.FormatExact:
		body, err = exact.Marshal(result.Entries)
		ext = "csv"
	default:
		body, err = twinfield.Marshal(result.Entries, cfg.Destiny)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	output := viper.GetString("output")
	if output == "" {
		output = defaultOutputName(cfg, result.Entries, ext)
	}
	if err := os.WriteFile(output, body, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (%d entries)\n", output, len(result.Entries))
	printSummary(result)
}

// mergeStoredMappings layers the persistent mapping store under the
// config-file mappings. Absence of a database URL just means the store
// is not in use.
func mergeStoredMappings(store *mapping.Store, office string) {
	dbURL := viper.GetString("db_url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" || office == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, dbURL)
	if err != nil {
		log.Printf("mapping store unavailable: %v", err)
		return
	}
	defer db.Close()

	stored, err := db.LoadMappings(ctx, office)
	if err != nil {
		log.Printf("could not load stored mappings: %v", err)
		return
	}
	for account, gl := range stored {
		if _, ok := store.Get(account); !ok {
			store.Set(account, gl)
		}
	}
	log.Printf("loaded %d stored mappings for office %s", len(stored), office)
}

func printSummary(result journal.BuildResult) {
	if result.DroppedNoDate > 0 {
		fmt.Printf("  dropped %d rows without a usable date\n", result.DroppedNoDate)
	}
	if result.DroppedNoAmount > 0 {
		fmt.Printf("  dropped %d rows with a zero or missing amount\n", result.DroppedNoAmount)
	}
	if result.DroppedUnmapped > 0 {
		fmt.Printf("  dropped %d rows on unmapped accounts: %s\n",
			result.DroppedUnmapped, strings.Join(result.UnmappedAccounts, ", "))
	}
	for _, day := range result.OutOfTolerance {
		fmt.Printf("  WARNING: %s is unbalanced beyond tolerance; fix mappings or data and rerun\n",
			day.Format("2006-01-02"))
	}
}

func defaultOutputName(cfg journal.Config, entries []journal.Entry, ext string) string {
	start, end := "unknown", "unknown"
	if len(entries) > 0 {
		start = entries[0].Date.Format("2006-01-02")
		end = entries[len(entries)-1].Date.Format("2006-01-02")
	}
	office := cfg.Office
	if office == "" {
		office = "unknown"
	}
	return fmt.Sprintf("Tebi import %s %s - %s.%s", office, start, end, ext)
}
