package admindb

import (
	"time"

	"github.com/uptrace/bun"
)

// CommandLog is one command invocation.
type CommandLog struct {
	bun.BaseModel `bun:"table:commands,alias:c"`

	ID            int64     `bun:"id,pk,autoincrement"`
	CorrelationID string    `bun:"correlation_id,notnull"`
	GuildID       string    `bun:"guild_id"`
	ChannelID     string    `bun:"channel_id"`
	AuthorID      int64     `bun:"author_id,notnull"`
	Used          time.Time `bun:"used,notnull"`
	Prefix        string    `bun:"prefix"`
	Command       string    `bun:"command,notnull"`
	Failed        bool      `bun:"failed,notnull"`
}

// TaskLog is one periodic task run. Error is empty until the run fails.
type TaskLog struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TaskName  string    `bun:"task_name,notnull"`
	Used      time.Time `bun:"used,notnull"`
	Completed bool      `bun:"completed,notnull"`
	Error     string    `bun:"error,nullzero"`
}

// CommandCount is a usage tally for one command.
type CommandCount struct {
	Command string `bun:"command"`
	Uses    int    `bun:"uses"`
}

// TaskCount summarises the runs of one task.
type TaskCount struct {
	TaskName  string `bun:"task_name"`
	Runs      int    `bun:"runs"`
	Completed int    `bun:"completed"`
	Failed    int    `bun:"failed"`
}
