package db

import (
	"context"
	"fmt"
)

// FixLegacyTimeFormats rewrites cache timestamps stored in PocketBase's
// space-separated layout ("2006-01-02 15:04:05.000Z") to the "T" layout.
// Expiry queries compare timestamps as text, so every row must use one layout.
func (db *DB) FixLegacyTimeFormats() error {
	queries := []string{
		`UPDATE cop_analysis_cache
		 SET expires_at = REPLACE(expires_at, ' ', 'T')
		 WHERE expires_at LIKE '____-__-__ %'`,

		`UPDATE cop_analysis_cache
		 SET created_at = REPLACE(created_at, ' ', 'T')
		 WHERE created_at LIKE '____-__-__ %'`,

		`UPDATE cop_analysis_cache
		 SET last_accessed = REPLACE(last_accessed, ' ', 'T')
		 WHERE last_accessed LIKE '____-__-__ %'`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to fix legacy time formats: %w", err)
		}
	}

	return nil
}
