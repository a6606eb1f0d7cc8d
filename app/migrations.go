package app

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	adminmigrations "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories/migrations"
	claimmigrations "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories/migrations"
	donationmigrations "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories/migrations"
	warningmigrations "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories/migrations"
	warrolemigrations "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories/migrations"
	warstatsmigrations "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories/migrations"
)

// ModuleMigrations lists each module's migrations in apply order.
var ModuleMigrations = []struct {
	Name       string
	Migrations *migrate.Migrations
}{
	{"claim", claimmigrations.Migrations},
	{"donation", donationmigrations.Migrations},
	{"warrole", warrolemigrations.Migrations},
	{"warstats", warstatsmigrations.Migrations},
	{"warning", warningmigrations.Migrations},
	{"admin", adminmigrations.Migrations},
}

// NamedMigrator is a module's migrator.
type NamedMigrator struct {
	Name     string
	Migrator *migrate.Migrator
}

// Migrators builds one migrator per module. Each tracks its history in its
// own table so modules migrate and roll back independently.
func Migrators(db *bun.DB) []NamedMigrator {
	out := make([]NamedMigrator, 0, len(ModuleMigrations))
	for _, m := range ModuleMigrations {
		out = append(out, NamedMigrator{
			Name: m.Name,
			Migrator: migrate.NewMigrator(db, m.Migrations,
				migrate.WithTableName("bun_migrations_"+m.Name),
				migrate.WithLocksTableName("bun_migration_locks_"+m.Name),
				migrate.WithMarkAppliedOnSuccess(true),
			),
		})
	}
	return out
}
