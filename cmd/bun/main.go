package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"

	"github.com/aussie-warriors/awbot/app"
	claimservice "github.com/aussie-warriors/awbot/app/modules/claim/application"
	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/db/bundb"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/scheduler"
	"github.com/aussie-warriors/awbot/internal/settings"
)

type env struct {
	cfg   *config.Config
	store *settings.Store
	obs   observability.Observability
}

func (e *env) dsn() string {
	if e.cfg.Postgres.DSN != "" {
		return e.cfg.Postgres.DSN
	}
	return e.store.Snapshot().Postgres
}

func (e *env) open(ctx context.Context) (*bun.DB, error) {
	return bundb.Open(ctx, e.dsn())
}

func main() {
	e := &env{}

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "awbot database tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, err := settings.Open(cfg.SettingsPath)
			if err != nil {
				return err
			}
			e.cfg, e.store = cfg, store
			e.obs = observability.New(config.ToObsOptions(cfg))
			return nil
		},
		Commands: []*cli.Command{
			newMigrateCommand(e),
			newRiverCommand(e),
			newClaimsCommand(e),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withMigrators opens the database and runs fn over every module migrator.
func withMigrators(e *env, fn func(c *cli.Context, migrators []app.NamedMigrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := e.open(c.Context)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(c, app.Migrators(db))
	}
}

func findMigrator(migrators []app.NamedMigrator, name string) (app.NamedMigrator, error) {
	for _, m := range migrators {
		if m.Name == name {
			return m, nil
		}
	}
	return app.NamedMigrator{}, fmt.Errorf("invalid module name: %s", name)
}

func newMigrateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrators(e, func(c *cli.Context, migrators []app.NamedMigrator) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.Name)
						if err := m.Migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", m.Name, err)
						}
					}
					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: withMigrators(e, func(c *cli.Context, migrators []app.NamedMigrator) error {
					for _, m := range migrators {
						if err := m.Migrator.Lock(c.Context); err != nil {
							return err
						}
						group, err := m.Migrator.Migrate(c.Context)
						m.Migrator.Unlock(c.Context) //nolint:errcheck
						if err != nil {
							return fmt.Errorf("migrate %s: %w", m.Name, err)
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.Name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.Name, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of every module, newest module first",
				Action: withMigrators(e, func(c *cli.Context, migrators []app.NamedMigrator) error {
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						group, err := m.Migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("rollback %s: %w", m.Name, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.Name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.Name, group)
						}
					}
					return nil
				}),
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action: withMigrators(e, func(c *cli.Context, migrators []app.NamedMigrator) error {
					m, err := findMigrator(migrators, c.Args().First())
					if err != nil {
						return err
					}
					name := strings.Join(c.Args().Tail(), "_")
					files, err := m.Migrator.CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", m.Name, mf.Name, mf.Path)
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrators(e, func(c *cli.Context, migrators []app.NamedMigrator) error {
					for _, m := range migrators {
						ms, err := m.Migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.Name)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				}),
			},
		},
	}
}

func newRiverCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "river",
		Usage: "job queue schema",
		Subcommands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create or upgrade the river tables",
				Action: func(c *cli.Context) error {
					pool, err := scheduler.NewPool(c.Context, e.dsn())
					if err != nil {
						return err
					}
					defer pool.Close()
					return scheduler.Migrate(c.Context, pool, e.obs.Logger)
				},
			},
		},
	}
}

func newClaimsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "claims",
		Usage: "bulk claim maintenance",
		Subcommands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "import claims from an XLSX sheet of discord id and player tag rows",
				ArgsUsage: "<file.xlsx>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return fmt.Errorf("missing sheet path")
					}
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					rows, err := claimservice.ParseImportSheet(data)
					if err != nil {
						return err
					}

					db, err := e.open(c.Context)
					if err != nil {
						return err
					}
					defer db.Close()

					api := clashapi.NewClient(e.cfg.Clash.BaseURL, e.store, e.cfg.Clash.RequestsPerSecond,
						clashapi.WithLogger(e.obs.Logger))
					svc := claimservice.NewClaimService(claimdb.NewRepository(db), api, e.cfg.Clans.Tracked, nil,
						e.obs.Logger, e.obs.Metrics, e.obs.Tracer, db)

					res, err := svc.Import(c.Context, rows)
					if err != nil {
						return err
					}
					fmt.Printf("Imported %d claims\n", res.Inserted)
					for _, s := range res.Skipped {
						fmt.Printf("  skipped: %s\n", s)
					}
					return nil
				},
			},
		},
	}
}
