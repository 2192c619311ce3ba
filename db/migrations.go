// Package db embeds the goose migrations for every SQL dialect.
package db

import "embed"

// Migrations holds the SQL migration files.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var Migrations embed.FS

// Migration directories inside Migrations.
const (
	PostgresDir = "migrations/postgres"
	SQLiteDir   = "migrations/sqlite"
)
