//go:build integration

package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/uptrace/bun"
)

// Known application tables.
var appTables = []string{
	"claims", "tag_to_id", "season", "averages", "last_war", "war_roster_state",
	"war_stats", "recorded_wars", "warnings", "commands", "tasks",
}

// TruncateTables truncates the specified tables.
func TruncateTables(ctx context.Context, db bun.IDB, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}

	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = fmt.Sprintf(`"%s"`, table)
	}
	query := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE"

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables %v: %w", tables, err)
	}
	return nil
}

// CleanupDatabase truncates every application table and clears river jobs.
func CleanupDatabase(ctx context.Context, db bun.IDB) error {
	if err := TruncateTables(ctx, db, appTables...); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		if !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("failed to cleanup river jobs: %w", err)
		}
		log.Println("river_job table missing, skipping")
	}
	return nil
}
