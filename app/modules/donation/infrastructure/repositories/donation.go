package donationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
)

var (
	// ErrNoActiveSeason is returned when no season has been started.
	ErrNoActiveSeason = errors.New("no active donation season")
	// ErrNotFound is returned when a user has no average.
	ErrNotFound = errors.New("average not found")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new donation repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) ActiveSeason(ctx context.Context, db bun.IDB) (*Season, error) {
	db = r.resolveDB(db)
	season := new(Season)
	err := db.NewSelect().Model(season).Where("toggle").Order("id DESC").Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSeason
		}
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	return season, nil
}

func (r *Impl) StartSeason(ctx context.Context, db bun.IDB, startDay int) (*Season, error) {
	db = r.resolveDB(db)
	if _, err := db.NewUpdate().Model((*Season)(nil)).Set("toggle = FALSE").Where("toggle").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to close previous season: %w", err)
	}
	season := &Season{Toggle: true, StartDate: startDay}
	if _, err := db.NewInsert().Model(season).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to insert season: %w", err)
	}
	return season, nil
}

func (r *Impl) SetDonationsByToday(ctx context.Context, db bun.IDB, quota float64) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().Model((*Season)(nil)).Set("donationsbytoday = ?", quota).Where("toggle").Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update donations by today: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoActiveSeason
	}
	return nil
}

func (r *Impl) ListClaims(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error) {
	db = r.resolveDB(db)
	var claims []claimdb.Claim
	if err := db.NewSelect().Model(&claims).Order("userid", "ign").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}

func (r *Impl) ListClaimsByUser(ctx context.Context, db bun.IDB, userID int64) ([]claimdb.Claim, error) {
	db = r.resolveDB(db)
	var claims []claimdb.Claim
	if err := db.NewSelect().Model(&claims).Where("userid = ?", userID).Order("ign").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list claims for user: %w", err)
	}
	return claims, nil
}

func (r *Impl) ListClaimsByClan(ctx context.Context, db bun.IDB, clan string) ([]claimdb.Claim, error) {
	db = r.resolveDB(db)
	var claims []claimdb.Claim
	if err := db.NewSelect().Model(&claims).Where("clan = ?", clan).Order("userid", "ign").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list claims for clan: %w", err)
	}
	return claims, nil
}

func (r *Impl) UpdateDonations(ctx context.Context, db bun.IDB, tag string, current int, clan string) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().Model((*claimdb.Claim)(nil)).
		Set("current_donations = ?", current).
		Set("difference = ? - starting_donations", current).
		Set("clan = ?", clan).
		Where("tag = ?", tag).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update donations for %s: %w", tag, err)
	}
	return nil
}

func (r *Impl) Rebaseline(ctx context.Context, db bun.IDB, tag string, value int) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().Model((*claimdb.Claim)(nil)).
		Set("starting_donations = ?", value).
		Set("current_donations = ?", value).
		Set("difference = 0").
		Where("tag = ?", tag).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebaseline %s: %w", tag, err)
	}
	return nil
}

func (r *Impl) ReplaceAverages(ctx context.Context, db bun.IDB, rows []Average) error {
	db = r.resolveDB(db)
	if _, err := db.NewTruncateTable().Model((*Average)(nil)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to truncate averages: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert averages: %w", err)
	}
	return nil
}

func (r *Impl) GetAverage(ctx context.Context, db bun.IDB, userID int64) (*Average, error) {
	db = r.resolveDB(db)
	avg := new(Average)
	if err := db.NewSelect().Model(avg).Where("userid = ?", userID).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get average: %w", err)
	}
	return avg, nil
}

func (r *Impl) ListFlagged(ctx context.Context, db bun.IDB) ([]Average, error) {
	db = r.resolveDB(db)
	var rows []Average
	if err := db.NewSelect().Model(&rows).Where("warning").Order("average").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list flagged averages: %w", err)
	}
	return rows, nil
}
