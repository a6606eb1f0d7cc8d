package donationservice

import (
	"context"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
)

// Service tracks seasonal donations and the averages derived from them.
type Service interface {
	// RefreshDonations pulls every claim's lifetime donations, updates the
	// quota and rebuilds the averages.
	RefreshDonations(ctx context.Context) (*RefreshResult, error)
	// RefreshUser pulls donations for one user's claims only.
	RefreshUser(ctx context.Context, userID int64) (*RefreshResult, error)
	// UpdateRequired recomputes the quota for today and stores it.
	UpdateRequired(ctx context.Context) (float64, error)
	RebuildAverages(ctx context.Context) ([]donationdb.Average, error)
	NewSeason(ctx context.Context) (*SeasonResult, error)

	UserDonations(ctx context.Context, userID int64) ([]claimdb.Claim, error)
	ClanDonations(ctx context.Context, clan string) (*ClanDonations, error)
	UserAverage(ctx context.Context, userID int64) (*donationdb.Average, error)
	Flagged(ctx context.Context) ([]donationdb.Average, error)
	// Required returns the stored quota of the active season.
	Required(ctx context.Context) (float64, error)

	// SendPings posts the flagged list to the donations channel and returns
	// how many users were pinged.
	SendPings(ctx context.Context) (int, error)
	DonationChart(ctx context.Context, userID int64) ([]byte, error)
}

// RefreshResult reports a donation refresh.
type RefreshResult struct {
	Updated int
	// Failed lists tags whose player lookup failed.
	Failed  []string
	Quota   float64
	Flagged int
}

// SeasonResult reports a season reset.
type SeasonResult struct {
	Season      *donationdb.Season
	Rebaselined int
	Failed      []string
}

// UserDonations groups one user's accounts.
type UserDonations struct {
	UserID int64
	Claims []claimdb.Claim
}

// ClanDonations is a clan's claims grouped by owner.
type ClanDonations struct {
	Clan  string
	Quota float64
	Users []UserDonations
}
