package claimmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the claim module's schema history.
var Migrations = migrate.NewMigrations()
