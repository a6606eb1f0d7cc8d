package donationmigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the donation module's schema history.
var Migrations = migrate.NewMigrations()
