package warrolemigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the war role module's schema history.
var Migrations = migrate.NewMigrations()
