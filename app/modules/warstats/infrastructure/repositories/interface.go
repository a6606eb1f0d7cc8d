package warstatsdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for the rolling war statistics window.
type Repository interface {
	IsRecorded(ctx context.Context, db bun.IDB, warKey string) (bool, error)
	// RecordWar returns ErrAlreadyRecorded when the key exists.
	RecordWar(ctx context.Context, db bun.IDB, war *RecordedWar) error
	// ShiftWindow ages every row by one war, evicts rows past WindowSize and
	// inserts rows as war 1.
	ShiftWindow(ctx context.Context, db bun.IDB, rows []WarStat) error

	ListAll(ctx context.Context, db bun.IDB) ([]WarStat, error)
	ListByTag(ctx context.Context, db bun.IDB, tag string) ([]WarStat, error)
	FindTagsByName(ctx context.Context, db bun.IDB, name string) ([]string, error)
	RenameTag(ctx context.Context, db bun.IDB, tag, name string) (int, error)
}
