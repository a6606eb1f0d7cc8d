package adminmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the admin module's schema history.
var Migrations = migrate.NewMigrations()
