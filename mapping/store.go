// Package mapping maintains the source-account → GL-code mapping a
// caller builds up before a final journal run. The journal engine
// never invents mappings; unmapped rows are simply excluded, so the
// caller uses this store to detect and close the gaps.
package mapping

import (
	"sort"
	"strings"

	"github.com/ibeo-nl/tebi-books/journal"
)

// Store is a session-scoped mapping table. It is not safe for
// concurrent use; each session or request owns its own store.
type Store struct {
	codes map[string]string
}

func New() *Store {
	return &Store{codes: map[string]string{}}
}

// NewFrom seeds a store, e.g. from a config file or the persistent
// mapping table.
func NewFrom(codes map[string]string) *Store {
	s := New()
	for account, gl := range codes {
		s.Set(account, gl)
	}
	return s
}

// Set records a mapping. Blank accounts or codes are ignored.
func (s *Store) Set(account, gl string) {
	account = strings.TrimSpace(account)
	gl = journal.SanitizeGL(gl)
	if account == "" || gl == "" {
		return
	}
	s.codes[account] = gl
}

func (s *Store) Get(account string) (string, bool) {
	gl, ok := s.codes[strings.TrimSpace(account)]
	return gl, ok
}

// Apply fills in the ledger code of rows that lack one, leaving
// already-mapped rows untouched. The input slice is not modified.
func (s *Store) Apply(rows []journal.TransactionRow) []journal.TransactionRow {
	out := make([]journal.TransactionRow, len(rows))
	copy(out, rows)
	for i := range out {
		if journal.SanitizeGL(out[i].LedgerCode) != "" {
			continue
		}
		if gl, ok := s.Get(out[i].SourceAccount); ok {
			out[i].LedgerCode = gl
		}
	}
	return out
}

// Snapshot returns a copy of the mappings, for persisting.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.codes))
	for account, gl := range s.codes {
		out[account] = gl
	}
	return out
}

// Missing lists the distinct source accounts that still lack a GL
// code, sorted for stable display.
func Missing(rows []journal.TransactionRow) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		if journal.SanitizeGL(row.LedgerCode) != "" {
			continue
		}
		account := strings.TrimSpace(row.SourceAccount)
		if account == "" {
			continue
		}
		seen[account] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for account := range seen {
		out = append(out, account)
	}
	sort.Strings(out)
	return out
}
