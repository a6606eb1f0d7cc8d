package warningmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the warning module's schema history.
var Migrations = migrate.NewMigrations()
