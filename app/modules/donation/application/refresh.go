package donationservice

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// RefreshDonations updates every claim and rebuilds the averages.
func (s *DonationService) RefreshDonations(ctx context.Context) (*RefreshResult, error) {
	return unwrap(withTelemetry(s, ctx, "RefreshDonations", func(ctx context.Context) (refreshOutcome, error) {
		claims, err := s.repo.ListClaims(ctx, nil)
		if err != nil {
			return refreshOutcome{}, err
		}
		return classify(s.refresh(ctx, claims))
	}))
}

// RefreshUser updates one user's claims, then the quota and averages.
func (s *DonationService) RefreshUser(ctx context.Context, userID int64) (*RefreshResult, error) {
	return unwrap(withTelemetry(s, ctx, "RefreshUser", func(ctx context.Context) (refreshOutcome, error) {
		claims, err := s.repo.ListClaimsByUser(ctx, nil, userID)
		if err != nil {
			return refreshOutcome{}, err
		}
		if len(claims) == 0 {
			return classify[*RefreshResult](nil, ErrNoClaims)
		}
		return classify(s.refresh(ctx, claims))
	}))
}

func (s *DonationService) refresh(ctx context.Context, claims []claimdb.Claim) (*RefreshResult, error) {
	season, err := s.repo.ActiveSeason(ctx, nil)
	if err != nil {
		return nil, err
	}

	res := &RefreshResult{Quota: Quota(season.StartDate, s.now())}
	var lastErr error
	for _, c := range claims {
		player, err := s.api.GetPlayer(ctx, c.Tag)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping donation refresh for player",
				attr.PlayerTag(c.Tag), attr.Error(err))
			res.Failed = append(res.Failed, c.Tag)
			lastErr = err
			continue
		}
		if err := s.repo.UpdateDonations(ctx, nil, c.Tag, player.LifetimeDonations(), player.ClanName()); err != nil {
			return nil, err
		}
		res.Updated++
	}
	if res.Updated == 0 && lastErr != nil {
		return nil, fmt.Errorf("every player lookup failed: %w", lastErr)
	}

	if err := s.repo.SetDonationsByToday(ctx, nil, res.Quota); err != nil {
		return nil, err
	}
	averages, err := s.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range averages {
		if a.Warning {
			res.Flagged++
		}
	}
	return res, nil
}

// UpdateRequired recomputes today's quota.
func (s *DonationService) UpdateRequired(ctx context.Context) (float64, error) {
	return unwrap(withTelemetry(s, ctx, "UpdateRequired", func(ctx context.Context) (quotaOutcome, error) {
		season, err := s.repo.ActiveSeason(ctx, nil)
		if err != nil {
			return classify[float64](0, err)
		}
		quota := Quota(season.StartDate, s.now())
		return classify(quota, s.repo.SetDonationsByToday(ctx, nil, quota))
	}))
}

// RebuildAverages recomputes the averages table from the claims.
func (s *DonationService) RebuildAverages(ctx context.Context) ([]donationdb.Average, error) {
	return unwrap(withTelemetry(s, ctx, "RebuildAverages", func(ctx context.Context) (averagesOutcome, error) {
		return classify(s.rebuild(ctx))
	}))
}

// rebuild truncates and refills averages in one transaction.
func (s *DonationService) rebuild(ctx context.Context) ([]donationdb.Average, error) {
	return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) ([]donationdb.Average, error) {
		season, err := s.repo.ActiveSeason(ctx, db)
		if err != nil {
			return nil, err
		}
		claims, err := s.repo.ListClaims(ctx, db)
		if err != nil {
			return nil, err
		}
		averages := ComputeAverages(claims, s.tracked, season.DonationsByToday)
		if err := s.repo.ReplaceAverages(ctx, db, averages); err != nil {
			return nil, err
		}
		return averages, nil
	})
}

// NewSeason starts a season today and re-baselines every claim. A claim
// whose player lookup fails is re-baselined to its last known total.
func (s *DonationService) NewSeason(ctx context.Context) (*SeasonResult, error) {
	return unwrap(withTelemetry(s, ctx, "NewSeason", func(ctx context.Context) (seasonOutcome, error) {
		season, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*donationdb.Season, error) {
			return s.repo.StartSeason(ctx, db, s.now().YearDay())
		})
		if err != nil {
			return seasonOutcome{}, err
		}

		claims, err := s.repo.ListClaims(ctx, nil)
		if err != nil {
			return seasonOutcome{}, err
		}
		res := &SeasonResult{Season: season}
		for _, c := range claims {
			value := c.CurrentDonations
			player, err := s.api.GetPlayer(ctx, c.Tag)
			if err != nil {
				s.logger.WarnContext(ctx, "Re-baselining from last known donations",
					attr.PlayerTag(c.Tag), attr.Error(err))
				res.Failed = append(res.Failed, c.Tag)
			} else {
				value = player.LifetimeDonations()
			}
			if err := s.repo.Rebaseline(ctx, nil, c.Tag, value); err != nil {
				return seasonOutcome{}, err
			}
			res.Rebaselined++
		}

		if _, err := s.rebuild(ctx); err != nil {
			return seasonOutcome{}, err
		}
		return classify(res, nil)
	}))
}
