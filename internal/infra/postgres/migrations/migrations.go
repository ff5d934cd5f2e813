package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for quiz sessions and results, applied by the
// migrate command and on server start when Postgres is configured.
var Migrations = migrate.NewMigrations()
