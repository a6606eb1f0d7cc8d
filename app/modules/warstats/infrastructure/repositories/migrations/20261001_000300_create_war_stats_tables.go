package warstatsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating war_stats and recorded_wars tables...")
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS war_stats (
					id BIGSERIAL PRIMARY KEY,
					war_no INTEGER NOT NULL,
					name TEXT NOT NULL,
					tag TEXT NOT NULL,
					th INTEGER NOT NULL,
					hitrate TEXT NOT NULL DEFAULT '0/0',
					defenserate TEXT NOT NULL DEFAULT '0/0'
				);
				CREATE INDEX IF NOT EXISTS idx_war_stats_tag ON war_stats (tag);
				CREATE INDEX IF NOT EXISTS idx_war_stats_war_no ON war_stats (war_no);
			`); err != nil {
				return fmt.Errorf("failed to create war_stats table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS recorded_wars (
					war_key TEXT PRIMARY KEY,
					clan_tag TEXT NOT NULL,
					opponent TEXT NOT NULL,
					end_time TIMESTAMPTZ NOT NULL,
					recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
				);
			`); err != nil {
				return fmt.Errorf("failed to create recorded_wars table: %w", err)
			}
			fmt.Println("war_stats and recorded_wars tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping war_stats and recorded_wars tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS recorded_wars; DROP TABLE IF EXISTS war_stats;`); err != nil {
			return fmt.Errorf("failed to drop war stats tables: %w", err)
		}
		return nil
	})
}
