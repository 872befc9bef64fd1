// Package api provides the HTTP upload endpoint that turns a Tebi
// export into an importable journal file. It is a thin I/O adapter
// around the journal engine; transformation state never outlives a
// request.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibeo-nl/tebi-books/journal"
	"github.com/ibeo-nl/tebi-books/journal/exact"
	"github.com/ibeo-nl/tebi-books/journal/twinfield"
	"github.com/ibeo-nl/tebi-books/loader"
	"github.com/ibeo-nl/tebi-books/mapping"
)

// Config holds the API server configuration.
type Config struct {
	Port      string
	LogPrefix string
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		Port:      ":8080",
		LogPrefix: "API: ",
	}
}

// Server represents the HTTP API server.
type Server struct {
	config Config
	mux    *http.ServeMux
}

// New creates a new API server with the given configuration.
func New(cfg Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/build", s.handleBuild)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	log.Printf("%sStarting server on %s", s.config.LogPrefix, s.config.Port)
	return http.ListenAndServe(s.config.Port, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// BuildOptions holds the per-request form fields.
type BuildOptions struct {
	Config    journal.Config
	Delimiter rune
	Mappings  map[string]string
	Force     bool // emit even when unmapped accounts remain
}

// handleBuild accepts a multipart Tebi export plus form configuration
// and responds with the journal file bytes. Unmapped source accounts
// block emission with a 422 unless force=true, so a caller cannot
// silently lose rows on a final run.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	log.Printf("%sReceived request from %s", s.config.LogPrefix, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Printf("%sError parsing multipart form: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not parse multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		log.Printf("%sError getting file from form: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not get uploaded file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	opts, err := s.parseBuildOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parsed, err := loader.Read(file, loader.Options{Delimiter: opts.Delimiter})
	if err != nil {
		log.Printf("%sError reading upload: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not read uploaded file: "+err.Error(), http.StatusBadRequest)
		return
	}

	rows := mapping.NewFrom(opts.Mappings).Apply(parsed.Rows)

	if missing := mapping.Missing(rows); len(missing) > 0 && !opts.Force {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"unmapped_accounts": missing,
			"missing_columns":   parsed.MissingColumns,
		})
		return
	}

	result, err := journal.Build(rows, opts.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body []byte
	contentType := "application/xml"
	switch opts.Config.Target {
	case journal.FormatExact:
		body, err = exact.Marshal(result.Entries)
		contentType = "text/csv; charset=utf-8"
	default:
		body, err = twinfield.Marshal(result.Entries, opts.Config.Destiny)
	}
	if err != nil {
		log.Printf("%sError emitting journal: %v", s.config.LogPrefix, err)
		http.Error(w, "Could not build journal file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if len(result.OutOfTolerance) > 0 {
		w.Header().Set("X-Out-Of-Tolerance-Dates", joinDates(result.OutOfTolerance))
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", buildFilename(opts.Config, result.Entries)))
	w.Write(body)
}

func (s *Server) parseBuildOptions(r *http.Request) (BuildOptions, error) {
	opts := BuildOptions{
		Config: journal.Config{
			Office:            r.FormValue("office"),
			JournalCode:       r.FormValue("journal_code"),
			Currency:          r.FormValue("currency"),
			DifferencesLedger: r.FormValue("diff_ledger"),
			CostCenter:        r.FormValue("cost_center"),
			Target:            journal.Format(r.FormValue("format")),
			Destiny:           r.FormValue("destiny"),
		},
		Force: r.FormValue("force") == "true",
	}

	if raw := r.FormValue("tolerance"); raw != "" {
		tol, err := decimal.NewFromString(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid tolerance %q", raw)
		}
		opts.Config.RoundTolerance = tol
	}
	if raw := r.FormValue("delimiter"); raw != "" {
		opts.Delimiter = []rune(raw)[0]
	}
	if raw := r.FormValue("mappings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts.Mappings); err != nil {
			return opts, fmt.Errorf("invalid mappings JSON: %v", err)
		}
	}
	return opts, nil
}

// buildFilename names the download after the administration and the
// date range it covers, matching the convention bookkeepers file
// these imports under.
func buildFilename(cfg journal.Config, entries []journal.Entry) string {
	start, end := "unknown", "unknown"
	if len(entries) > 0 {
		start = entries[0].Date.Format("2006-01-02")
		end = entries[len(entries)-1].Date.Format("2006-01-02")
	}
	ext := "xml"
	if cfg.Target == journal.FormatExact {
		ext = "csv"
	}
	office := cfg.Office
	if office == "" {
		office = "unknown"
	}
	return fmt.Sprintf("Tebi import %s %s - %s.%s", office, start, end, ext)
}

func joinDates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format("2006-01-02")
	}
	return strings.Join(parts, ",")
}
