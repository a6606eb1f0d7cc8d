package warstatsdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
)

// ErrAlreadyRecorded is returned when an ended war was stored before.
var ErrAlreadyRecorded = errors.New("war already recorded")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new war stats repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) IsRecorded(ctx context.Context, db bun.IDB, warKey string) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().Model((*RecordedWar)(nil)).Where("war_key = ?", warKey).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check recorded war: %w", err)
	}
	return exists, nil
}

func (r *Impl) RecordWar(ctx context.Context, db bun.IDB, war *RecordedWar) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(war).Exec(ctx); err != nil {
		if claimdb.IsUniqueViolation(err) {
			return ErrAlreadyRecorded
		}
		return fmt.Errorf("failed to record war %s: %w", war.WarKey, err)
	}
	return nil
}

func (r *Impl) ShiftWindow(ctx context.Context, db bun.IDB, rows []WarStat) error {
	db = r.resolveDB(db)
	if _, err := db.NewUpdate().Model((*WarStat)(nil)).Set("war_no = war_no + 1").Where("TRUE").Exec(ctx); err != nil {
		return fmt.Errorf("failed to age war stats: %w", err)
	}
	if _, err := db.NewDelete().Model((*WarStat)(nil)).Where("war_no > ?", WindowSize).Exec(ctx); err != nil {
		return fmt.Errorf("failed to evict war stats: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].WarNo = 1
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert war stats: %w", err)
	}
	return nil
}

func (r *Impl) ListAll(ctx context.Context, db bun.IDB) ([]WarStat, error) {
	db = r.resolveDB(db)
	var rows []WarStat
	if err := db.NewSelect().Model(&rows).Order("war_no", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list war stats: %w", err)
	}
	return rows, nil
}

func (r *Impl) ListByTag(ctx context.Context, db bun.IDB, tag string) ([]WarStat, error) {
	db = r.resolveDB(db)
	var rows []WarStat
	if err := db.NewSelect().Model(&rows).Where("tag = ?", tag).Order("war_no DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list war stats for %s: %w", tag, err)
	}
	return rows, nil
}

func (r *Impl) FindTagsByName(ctx context.Context, db bun.IDB, name string) ([]string, error) {
	db = r.resolveDB(db)
	var tags []string
	err := db.NewSelect().Model((*WarStat)(nil)).
		ColumnExpr("DISTINCT tag").
		Where("lower(name) = lower(?)", name).
		Order("tag").
		Scan(ctx, &tags)
	if err != nil {
		return nil, fmt.Errorf("failed to find war stats by name: %w", err)
	}
	return tags, nil
}

func (r *Impl) RenameTag(ctx context.Context, db bun.IDB, tag, name string) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model((*WarStat)(nil)).Set("name = ?", name).Where("tag = ?", tag).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to rename %s in war stats: %w", tag, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
