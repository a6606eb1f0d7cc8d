package warrolemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating last_war and war_roster_state tables...")
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS last_war (
				tag TEXT PRIMARY KEY,
				userid BIGINT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS war_roster_state (
				clan_tag TEXT PRIMARY KEY,
				version BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`); err != nil {
			return fmt.Errorf("failed to create war roster tables: %w", err)
		}
		fmt.Println("war roster tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping last_war and war_roster_state tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS war_roster_state; DROP TABLE IF EXISTS last_war;`); err != nil {
			return fmt.Errorf("failed to drop war roster tables: %w", err)
		}
		return nil
	})
}
