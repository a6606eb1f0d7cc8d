package warningmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating warnings table...")
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS warnings (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				reason TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				expires_at TIMESTAMPTZ NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE
			);
			CREATE INDEX IF NOT EXISTS idx_warnings_user_active ON warnings (user_id) WHERE active;
			CREATE INDEX IF NOT EXISTS idx_warnings_expires_active ON warnings (expires_at) WHERE active;
		`); err != nil {
			return fmt.Errorf("failed to create warnings table: %w", err)
		}
		fmt.Println("warnings table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping warnings table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS warnings;`); err != nil {
			return fmt.Errorf("failed to drop warnings table: %w", err)
		}
		return nil
	})
}
