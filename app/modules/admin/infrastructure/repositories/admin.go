package admindb

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a task run does not exist.
var ErrNotFound = errors.New("task run not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new admin repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) InsertCommand(ctx context.Context, db bun.IDB, entry *CommandLog) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(entry).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to log command %s: %w", entry.Command, err)
	}
	return nil
}

func (r *Impl) TopCommands(ctx context.Context, db bun.IDB, limit int) ([]CommandCount, error) {
	db = r.resolveDB(db)
	var counts []CommandCount
	err := db.NewSelect().
		Model((*CommandLog)(nil)).
		Column("command").
		ColumnExpr("count(*) AS uses").
		Group("command").
		OrderExpr("uses DESC, command ASC").
		Limit(limit).
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to count commands: %w", err)
	}
	return counts, nil
}

func (r *Impl) CountCommands(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().Model((*CommandLog)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count command log: %w", err)
	}
	return n, nil
}

func (r *Impl) StartTask(ctx context.Context, db bun.IDB, task *TaskLog) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(task).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to log task %s: %w", task.TaskName, err)
	}
	return nil
}

// FinishTask marks a run completed, or failed when errText is not empty.
func (r *Impl) FinishTask(ctx context.Context, db bun.IDB, id int64, errText string) error {
	db = r.resolveDB(db)
	q := db.NewUpdate().Model((*TaskLog)(nil)).Where("id = ?", id)
	if errText == "" {
		q = q.Set("completed = TRUE")
	} else {
		q = q.Set("error = ?", errText)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish task run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) TaskCounts(ctx context.Context, db bun.IDB) ([]TaskCount, error) {
	db = r.resolveDB(db)
	var counts []TaskCount
	err := db.NewSelect().
		Model((*TaskLog)(nil)).
		Column("task_name").
		ColumnExpr("count(*) AS runs").
		ColumnExpr("count(*) FILTER (WHERE completed) AS completed").
		ColumnExpr("count(*) FILTER (WHERE error IS NOT NULL) AS failed").
		Group("task_name").
		Order("task_name ASC").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to count task runs: %w", err)
	}
	return counts, nil
}
