package donationmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating season and averages tables...")
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS season (
					id BIGSERIAL PRIMARY KEY,
					toggle BOOLEAN NOT NULL DEFAULT FALSE,
					donationsbytoday DOUBLE PRECISION NOT NULL DEFAULT 0,
					start_date INTEGER NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_season_toggle ON season (toggle) WHERE toggle;
			`); err != nil {
				return fmt.Errorf("failed to create season table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS averages (
					id BIGSERIAL PRIMARY KEY,
					userid BIGINT NOT NULL,
					average NUMERIC,
					warning BOOLEAN NOT NULL DEFAULT FALSE
				);
				CREATE INDEX IF NOT EXISTS idx_averages_userid ON averages (userid);
			`); err != nil {
				return fmt.Errorf("failed to create averages table: %w", err)
			}
			fmt.Println("season and averages tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping season and averages tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS averages; DROP TABLE IF EXISTS season;`); err != nil {
			return fmt.Errorf("failed to drop season tables: %w", err)
		}
		return nil
	})
}
