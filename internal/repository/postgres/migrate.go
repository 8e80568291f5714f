package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema for the current table prefix if it does
// not exist yet. Statements are idempotent so the server can run this
// on every boot.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return fmt.Errorf("create uuid extension: %w", err)
	}

	createProjects := `
		CREATE TABLE IF NOT EXISTS ` + tables.Projects + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			vision TEXT NOT NULL DEFAULT '',
			template_id TEXT NOT NULL DEFAULT '',
			current_step INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, name)
		)
	`
	if _, err := pool.Exec(ctx, createProjects); err != nil {
		return fmt.Errorf("create projects table: %w", err)
	}

	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			project_id UUID NOT NULL REFERENCES ` + tables.Projects + `(id) ON DELETE CASCADE,
			node_id TEXT NOT NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			user_input TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			versions JSONB NOT NULL DEFAULT '[]',
			current_version INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(project_id, node_id)
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	createWaitStates := `
		CREATE TABLE IF NOT EXISTS ` + tables.WaitStates + ` (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES ` + tables.Projects + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			record JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(project_id, name)
		)
	`
	if _, err := pool.Exec(ctx, createWaitStates); err != nil {
		return fmt.Errorf("create wait_states table: %w", err)
	}

	createWaitTables := `
		CREATE TABLE IF NOT EXISTS ` + tables.WaitTables + ` (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES ` + tables.Projects + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			record JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(project_id, name)
		)
	`
	if _, err := pool.Exec(ctx, createWaitTables); err != nil {
		return fmt.Errorf("create wait_tables table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_project_id ON ` + tables.Documents + `(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `wait_states_project_id ON ` + tables.WaitStates + `(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `wait_tables_project_id ON ` + tables.WaitTables + `(project_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
