// Package adminservice records command and task usage and exposes the
// owner-level maintenance operations.
package adminservice

import (
	"context"

	admindb "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
)

// Settings reads and flips the runtime toggles.
type Settings interface {
	Flag(key string) (bool, error)
	SetFlag(key string, value bool) error
}

// Service defines the admin operations.
type Service interface {
	discord.CommandLogger

	CommandStats(ctx context.Context, limit int) (*CommandStats, error)
	TaskStats(ctx context.Context) ([]admindb.TaskCount, error)

	// StartTask records the start of a periodic task run and returns its id.
	StartTask(ctx context.Context, name string) (int64, error)
	// FinishTask records the outcome of a run started by StartTask.
	FinishTask(ctx context.Context, id int64, runErr error) error

	RefreshToken(ctx context.Context) error
	Setting(ctx context.Context, key string) (bool, error)
	SetSetting(ctx context.Context, key string, value bool) error
}

// CommandStats is the usage summary shown by commandstats.
type CommandStats struct {
	Total int
	Top   []admindb.CommandCount
}
