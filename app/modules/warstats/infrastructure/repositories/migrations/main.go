package warstatsmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the war stats module's schema history.
var Migrations = migrate.NewMigrations()
