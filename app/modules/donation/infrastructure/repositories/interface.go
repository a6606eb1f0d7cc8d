package donationdb

import (
	"context"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
)

// Repository defines the contract for season, averages and claim donation
// columns.
//
// Error semantics:
//   - ErrNoActiveSeason: no season row has its toggle set
//   - ErrNotFound: no average row for the user
type Repository interface {
	ActiveSeason(ctx context.Context, db bun.IDB) (*Season, error)
	// StartSeason switches every season off and inserts a new active one.
	StartSeason(ctx context.Context, db bun.IDB, startDay int) (*Season, error)
	SetDonationsByToday(ctx context.Context, db bun.IDB, quota float64) error

	ListClaims(ctx context.Context, db bun.IDB) ([]claimdb.Claim, error)
	ListClaimsByUser(ctx context.Context, db bun.IDB, userID int64) ([]claimdb.Claim, error)
	ListClaimsByClan(ctx context.Context, db bun.IDB, clan string) ([]claimdb.Claim, error)
	// UpdateDonations stores the latest lifetime total and clan for a tag
	// and recomputes difference.
	UpdateDonations(ctx context.Context, db bun.IDB, tag string, current int, clan string) error
	// Rebaseline sets starting and current donations to value and zeroes
	// difference.
	Rebaseline(ctx context.Context, db bun.IDB, tag string, value int) error

	// ReplaceAverages truncates averages and inserts rows.
	ReplaceAverages(ctx context.Context, db bun.IDB, rows []Average) error
	GetAverage(ctx context.Context, db bun.IDB, userID int64) (*Average, error)
	ListFlagged(ctx context.Context, db bun.IDB) ([]Average, error)
}
