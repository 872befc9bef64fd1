package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ibeo-nl/tebi-books/journal"
)

const ddl = `
-- Account mappings, keyed per administration so one database serves
-- every office.
CREATE TABLE IF NOT EXISTS account_mappings (
    office VARCHAR(50) NOT NULL,
    source_account TEXT NOT NULL,
    ledger_code VARCHAR(50) NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),

    PRIMARY KEY (office, source_account)
);
`

// EnsureSchema creates the mapping table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// UpsertMapping stores or refreshes one source-account → GL mapping.
func (db *DB) UpsertMapping(ctx context.Context, office, account, gl string) error {
	office = strings.TrimSpace(office)
	account = strings.TrimSpace(account)
	gl = journal.SanitizeGL(gl)
	if office == "" || account == "" || gl == "" {
		return fmt.Errorf("office, account and ledger code are all required")
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO account_mappings (office, source_account, ledger_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (office, source_account)
		DO UPDATE SET ledger_code = EXCLUDED.ledger_code, updated_at = NOW()
	`, office, account, gl)
	if err != nil {
		return fmt.Errorf("failed to upsert mapping: %w", err)
	}
	return nil
}

// LoadMappings returns every mapping stored for an office.
func (db *DB) LoadMappings(ctx context.Context, office string) (map[string]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT source_account, ledger_code
		FROM account_mappings
		WHERE office = $1
		ORDER BY source_account
	`, strings.TrimSpace(office))
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var account, gl string
		if err := rows.Scan(&account, &gl); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		out[account] = gl
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}
	return out, nil
}
