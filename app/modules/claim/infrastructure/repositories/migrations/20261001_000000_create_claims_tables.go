package claimmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating claims and tag_to_id tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS claims (
					userid BIGINT NOT NULL,
					ign TEXT NOT NULL,
					tag TEXT PRIMARY KEY,
					starting_donations INTEGER NOT NULL DEFAULT 0,
					current_donations INTEGER NOT NULL DEFAULT 0,
					difference NUMERIC NOT NULL DEFAULT 0,
					clan TEXT,
					exempt BOOLEAN NOT NULL DEFAULT FALSE
				);
				CREATE INDEX IF NOT EXISTS idx_claims_userid ON claims(userid);
				CREATE INDEX IF NOT EXISTS idx_claims_ign_lower ON claims(LOWER(ign));
			`); err != nil {
				return fmt.Errorf("failed to create claims table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tag_to_id (
					id BIGINT NOT NULL,
					tag TEXT PRIMARY KEY
				);
				CREATE INDEX IF NOT EXISTS idx_tag_to_id_id ON tag_to_id(id);
			`); err != nil {
				return fmt.Errorf("failed to create tag_to_id table: %w", err)
			}

			fmt.Println("claims tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping claims and tag_to_id tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS tag_to_id; DROP TABLE IF EXISTS claims;`); err != nil {
			return fmt.Errorf("failed to drop claims tables: %w", err)
		}
		return nil
	})
}
