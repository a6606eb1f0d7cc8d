package claimdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when no claim exists for a tag.
	ErrNotFound = errors.New("claim not found")
	// ErrAlreadyClaimed is returned when a tag is already claimed.
	ErrAlreadyClaimed = errors.New("tag already claimed")
)

// sqlStateError is satisfied by pgdriver.Error.
type sqlStateError interface {
	Field(k byte) string
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr sqlStateError
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new claim repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Insert writes both rows. Callers wanting atomicity pass a transaction.
func (r *Impl) Insert(ctx context.Context, db bun.IDB, claim *Claim) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(&TagOwner{ID: claim.UserID, Tag: claim.Tag}).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("failed to insert tag_to_id: %w", err)
	}
	if _, err := db.NewInsert().Model(claim).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

func (r *Impl) Delete(ctx context.Context, db bun.IDB, tag string) (*Claim, error) {
	db = r.resolveDB(db)
	claim := new(Claim)
	err := db.NewDelete().
		Model(claim).
		Where("tag = ?", tag).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete claim: %w", err)
	}
	if _, err := db.NewDelete().Model((*TagOwner)(nil)).Where("tag = ?", tag).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to delete tag_to_id: %w", err)
	}
	return claim, nil
}

func (r *Impl) GetByTag(ctx context.Context, db bun.IDB, tag string) (*Claim, error) {
	db = r.resolveDB(db)
	claim := new(Claim)
	err := db.NewSelect().Model(claim).Where("tag = ?", tag).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get claim by tag: %w", err)
	}
	return claim, nil
}

func (r *Impl) FindByIGN(ctx context.Context, db bun.IDB, ign string) ([]Claim, error) {
	db = r.resolveDB(db)
	var claims []Claim
	err := db.NewSelect().Model(&claims).Where("LOWER(ign) = LOWER(?)", ign).Order("tag").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find claims by ign: %w", err)
	}
	return claims, nil
}

func (r *Impl) ListByUser(ctx context.Context, db bun.IDB, userID int64) ([]Claim, error) {
	db = r.resolveDB(db)
	var claims []Claim
	err := db.NewSelect().Model(&claims).Where("userid = ?", userID).Order("ign").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims for user: %w", err)
	}
	return claims, nil
}

func (r *Impl) ListAll(ctx context.Context, db bun.IDB) ([]Claim, error) {
	db = r.resolveDB(db)
	var claims []Claim
	if err := db.NewSelect().Model(&claims).Order("userid", "ign").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

func (r *Impl) ListExempt(ctx context.Context, db bun.IDB) ([]Claim, error) {
	db = r.resolveDB(db)
	var claims []Claim
	if err := db.NewSelect().Model(&claims).Where("exempt").Order("ign").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list exempt claims: %w", err)
	}
	return claims, nil
}

func (r *Impl) ResolveTags(ctx context.Context, db bun.IDB, tags []string) (map[string]int64, error) {
	out := make(map[string]int64, len(tags))
	if len(tags) == 0 {
		return out, nil
	}
	db = r.resolveDB(db)
	var owners []TagOwner
	err := db.NewSelect().Model(&owners).Where("tag IN (?)", bun.In(tags)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}
	for _, o := range owners {
		out[o.Tag] = o.ID
	}
	return out, nil
}

func (r *Impl) UpdateIGN(ctx context.Context, db bun.IDB, tag, ign string) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model((*Claim)(nil)).Set("ign = ?", ign).Where("tag = ?", tag).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update ign: %w", err)
	}
	return requireRow(res)
}

func (r *Impl) SetExempt(ctx context.Context, db bun.IDB, tag string, exempt bool) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model((*Claim)(nil)).Set("exempt = ?", exempt).Where("tag = ?", tag).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set exempt: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
