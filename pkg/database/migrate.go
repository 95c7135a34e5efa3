package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is written in the subset of SQL shared by PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS emergency_cases (
		case_unique_id TEXT PRIMARY KEY,
		rescuer_name TEXT,
		rescuer_rank TEXT,
		trainer TEXT,
		date TEXT,
		case_code TEXT,
		case_details TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emergency_cases_created_at ON emergency_cases (created_at)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login TIMESTAMP NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		resource_id TEXT NULL,
		new_values TEXT NULL,
		ip_address TEXT,
		user_agent TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the tables the service needs when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
