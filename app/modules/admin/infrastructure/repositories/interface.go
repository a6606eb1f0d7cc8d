package admindb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository stores command usage and task runs.
type Repository interface {
	InsertCommand(ctx context.Context, db bun.IDB, entry *CommandLog) error
	// TopCommands returns the most used commands, most used first.
	TopCommands(ctx context.Context, db bun.IDB, limit int) ([]CommandCount, error)
	CountCommands(ctx context.Context, db bun.IDB) (int, error)

	StartTask(ctx context.Context, db bun.IDB, task *TaskLog) error
	FinishTask(ctx context.Context, db bun.IDB, id int64, errText string) error
	TaskCounts(ctx context.Context, db bun.IDB) ([]TaskCount, error)
}
