package datastore

import (
	"context"
	"fmt"
)

// The DDL sticks to types both Postgres and SQLite accept.
const createSlideSourcesTable = `
	CREATE TABLE IF NOT EXISTS slide_sources (
		id              BIGINT PRIMARY KEY,
		name            TEXT NOT NULL,
		module_name     TEXT NOT NULL,
		arguments       TEXT NOT NULL DEFAULT '',
		enabled         BOOLEAN NOT NULL DEFAULT TRUE,
		last_checked_at TIMESTAMP NULL,
		created_at      TIMESTAMP NOT NULL
	)
`

const createSlideSourcesModuleIndex = `
	CREATE INDEX IF NOT EXISTS idx_slide_sources_module ON slide_sources (module_name, id)
`

// EnsureSchema creates the slide_sources table when it does not exist yet.
func (r *SourceRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createSlideSourcesTable, createSlideSourcesModuleIndex} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
