package db

import (
	"context"
	"fmt"
)

// EnsureSchema creates the pgvector extension, the docs table and its indexes
// if they do not exist yet. Safe to run on every startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS docs (
			id TEXT PRIMARY KEY,
			text TEXT,
			vector vector(1536),
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		// created_at speeds up the time-window fallback scope
		`CREATE INDEX IF NOT EXISTS idx_docs_created_at ON docs (created_at DESC)`,
		// uploadedAt speeds up active-batch resolution and scope filtering
		`CREATE INDEX IF NOT EXISTS idx_docs_uploaded_at ON docs ((metadata->>'uploadedAt'))`,
	}

	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
