package warroledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrRosterConflict is returned when a compare-and-swap loses.
	ErrRosterConflict = errors.New("war roster changed concurrently")
	// ErrNotFound is returned when a tag is not on the roster.
	ErrNotFound = errors.New("tag not on war roster")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new war roster repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) LoadRoster(ctx context.Context, db bun.IDB, clanTag string) (Roster, error) {
	db = r.resolveDB(db)

	var out Roster
	if err := db.NewSelect().Model(&out.Entries).Order("tag").Scan(ctx); err != nil {
		return Roster{}, fmt.Errorf("failed to load last_war: %w", err)
	}

	state := new(RosterState)
	err := db.NewSelect().Model(state).Where("clan_tag = ?", clanTag).Scan(ctx)
	switch {
	case err == nil:
		out.Version = state.Version
	case !errors.Is(err, sql.ErrNoRows):
		return Roster{}, fmt.Errorf("failed to load roster version: %w", err)
	}
	return out, nil
}

func (r *Impl) ReplaceRoster(ctx context.Context, db bun.IDB, clanTag string, expected int64, entries []LastWar) (int64, error) {
	db = r.resolveDB(db)

	version, err := r.bump(ctx, db, clanTag, &expected)
	if err != nil {
		return 0, err
	}
	if _, err := db.NewDelete().Model((*LastWar)(nil)).Where("TRUE").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear last_war: %w", err)
	}
	if len(entries) > 0 {
		if _, err := db.NewInsert().Model(&entries).Exec(ctx); err != nil {
			return 0, fmt.Errorf("failed to insert last_war: %w", err)
		}
	}
	return version, nil
}

func (r *Impl) AddEntry(ctx context.Context, db bun.IDB, clanTag string, entry LastWar) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(&entry).
		On("CONFLICT (tag) DO UPDATE").
		Set("userid = EXCLUDED.userid").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add last_war entry: %w", err)
	}
	_, err = r.bump(ctx, db, clanTag, nil)
	return err
}

func (r *Impl) RemoveEntry(ctx context.Context, db bun.IDB, clanTag, tag string) (*LastWar, error) {
	db = r.resolveDB(db)
	removed := new(LastWar)
	err := db.NewDelete().Model(removed).Where("tag = ?", tag).Returning("*").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to remove last_war entry: %w", err)
	}
	if _, err := r.bump(ctx, db, clanTag, nil); err != nil {
		return nil, err
	}
	return removed, nil
}

// bump increments the clan's version. With expected set, it only succeeds
// when the stored version matches.
func (r *Impl) bump(ctx context.Context, db bun.IDB, clanTag string, expected *int64) (int64, error) {
	_, err := db.NewInsert().
		Model(&RosterState{ClanTag: clanTag, UpdatedAt: time.Now().UTC()}).
		On("CONFLICT (clan_tag) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to seed roster state: %w", err)
	}

	q := db.NewUpdate().
		Model((*RosterState)(nil)).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("clan_tag = ?", clanTag).
		Returning("version")
	if expected != nil {
		q = q.Where("version = ?", *expected)
	}

	var version int64
	if err := q.Scan(ctx, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRosterConflict
		}
		return 0, fmt.Errorf("failed to bump roster version: %w", err)
	}
	return version, nil
}
