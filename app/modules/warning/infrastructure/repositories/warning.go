package warningdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a warning id does not exist.
var ErrNotFound = errors.New("warning not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new warning repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Insert(ctx context.Context, db bun.IDB, w *Warning) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(w).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert warning: %w", err)
	}
	return nil
}

func (r *Impl) Get(ctx context.Context, db bun.IDB, id int64) (*Warning, error) {
	db = r.resolveDB(db)
	w := new(Warning)
	if err := db.NewSelect().Model(w).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get warning %d: %w", id, err)
	}
	return w, nil
}

func (r *Impl) Deactivate(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model((*Warning)(nil)).Set("active = FALSE").Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to deactivate warning %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) DeactivateUser(ctx context.Context, db bun.IDB, userID int64) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model((*Warning)(nil)).
		Set("active = FALSE").
		Where("user_id = ?", userID).
		Where("active").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear warnings for %d: %w", userID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Impl) ListActive(ctx context.Context, db bun.IDB, userID int64) ([]Warning, error) {
	db = r.resolveDB(db)
	var out []Warning
	q := db.NewSelect().Model(&out).Where("active")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Order("expires_at", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list active warnings: %w", err)
	}
	return out, nil
}

func (r *Impl) ListDue(ctx context.Context, db bun.IDB, now time.Time) ([]Warning, error) {
	db = r.resolveDB(db)
	var out []Warning
	err := db.NewSelect().Model(&out).
		Where("active").
		Where("expires_at <= ?", now).
		Order("expires_at", "id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list due warnings: %w", err)
	}
	return out, nil
}
