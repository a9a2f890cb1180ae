package pg

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snippets (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		user_display_name TEXT NOT NULL DEFAULT '',
		title             TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		code_snippets     JSONB NOT NULL DEFAULT '[]',
		tags              TEXT[] NOT NULL DEFAULT '{}',
		public            BOOLEAN NOT NULL DEFAULT false,
		source_url        TEXT NOT NULL DEFAULT '',
		copied_from_id    TEXT NOT NULL DEFAULT '',
		like_count        INTEGER NOT NULL DEFAULT 0,
		owner_visit_count INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_accessed_at  TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_user_created ON snippets (user_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_public_created ON snippets (created_at DESC) WHERE public;`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_tags ON snippets USING GIN (tags);`,
	`CREATE TABLE IF NOT EXISTS user_data (
		user_id    TEXT PRIMARY KEY,
		doc        JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

// Migrate creates the tables the gateway reads and writes.
func (g *Gateway) Migrate(ctx context.Context) error {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	for i, stmt := range schema {
		if _, err := g.base.Q().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pg: migration %d: %w", i, err)
		}
	}
	return nil
}
