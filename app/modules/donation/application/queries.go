package donationservice

import (
	"context"
	"fmt"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/results"
)

type (
	refreshOutcome  = results.OperationResult[*RefreshResult, error]
	seasonOutcome   = results.OperationResult[*SeasonResult, error]
	quotaOutcome    = results.OperationResult[float64, error]
	averagesOutcome = results.OperationResult[[]donationdb.Average, error]
	claimsOutcome   = results.OperationResult[[]claimdb.Claim, error]
)

// UserDonations lists a user's accounts with their seasonal donations.
func (s *DonationService) UserDonations(ctx context.Context, userID int64) ([]claimdb.Claim, error) {
	return unwrap(withTelemetry(s, ctx, "UserDonations", func(ctx context.Context) (claimsOutcome, error) {
		claims, err := s.repo.ListClaimsByUser(ctx, nil, userID)
		if err == nil && len(claims) == 0 {
			err = ErrNoClaims
		}
		return classify(claims, err)
	}))
}

// ClanDonations groups a tracked clan's claims by owner, in owner id order.
func (s *DonationService) ClanDonations(ctx context.Context, clan string) (*ClanDonations, error) {
	return unwrap(withTelemetry(s, ctx, "ClanDonations", func(ctx context.Context) (results.OperationResult[*ClanDonations, error], error) {
		if !s.isTracked(clan) {
			return classify[*ClanDonations](nil, fmt.Errorf("%w: %s", ErrUnknownClan, clan))
		}
		season, err := s.repo.ActiveSeason(ctx, nil)
		if err != nil {
			return classify[*ClanDonations](nil, err)
		}
		claims, err := s.repo.ListClaimsByClan(ctx, nil, clan)
		if err != nil {
			return classify[*ClanDonations](nil, err)
		}

		out := &ClanDonations{Clan: clan, Quota: season.DonationsByToday}
		for _, c := range claims {
			if n := len(out.Users); n > 0 && out.Users[n-1].UserID == c.UserID {
				out.Users[n-1].Claims = append(out.Users[n-1].Claims, c)
				continue
			}
			out.Users = append(out.Users, UserDonations{UserID: c.UserID, Claims: []claimdb.Claim{c}})
		}
		return classify(out, nil)
	}))
}

// UserAverage returns a user's stored average.
func (s *DonationService) UserAverage(ctx context.Context, userID int64) (*donationdb.Average, error) {
	return unwrap(withTelemetry(s, ctx, "UserAverage", func(ctx context.Context) (results.OperationResult[*donationdb.Average, error], error) {
		return classify(s.repo.GetAverage(ctx, nil, userID))
	}))
}

// Flagged lists users below the quota, lowest average first.
func (s *DonationService) Flagged(ctx context.Context) ([]donationdb.Average, error) {
	return unwrap(withTelemetry(s, ctx, "Flagged", func(ctx context.Context) (averagesOutcome, error) {
		return classify(s.repo.ListFlagged(ctx, nil))
	}))
}

// Required returns the stored quota.
func (s *DonationService) Required(ctx context.Context) (float64, error) {
	return unwrap(withTelemetry(s, ctx, "Required", func(ctx context.Context) (quotaOutcome, error) {
		season, err := s.repo.ActiveSeason(ctx, nil)
		if err != nil {
			return classify[float64](0, err)
		}
		return classify(season.DonationsByToday, nil)
	}))
}

func (s *DonationService) isTracked(clan string) bool {
	for _, c := range s.tracked {
		if c == clan {
			return true
		}
	}
	return false
}
