package adminmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating commands and tasks tables...")
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS commands (
				id BIGSERIAL PRIMARY KEY,
				correlation_id TEXT NOT NULL,
				guild_id TEXT,
				channel_id TEXT,
				author_id BIGINT NOT NULL,
				used TIMESTAMPTZ NOT NULL,
				prefix TEXT,
				command TEXT NOT NULL,
				failed BOOLEAN NOT NULL DEFAULT FALSE
			);
			CREATE INDEX IF NOT EXISTS idx_commands_command ON commands (command);

			CREATE TABLE IF NOT EXISTS tasks (
				id BIGSERIAL PRIMARY KEY,
				task_name TEXT NOT NULL,
				used TIMESTAMPTZ NOT NULL,
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				error TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_tasks_task_name ON tasks (task_name);
		`); err != nil {
			return fmt.Errorf("failed to create usage tables: %w", err)
		}
		fmt.Println("commands and tasks tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping commands and tasks tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS tasks; DROP TABLE IF EXISTS commands;`); err != nil {
			return fmt.Errorf("failed to drop usage tables: %w", err)
		}
		return nil
	})
}
