package claimservice

import (
	"context"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
)

// SetExempt marks a claim as exempt from donation averages.
func (s *ClaimService) SetExempt(ctx context.Context, query string, exempt bool) (*claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "SetExempt", query, func(ctx context.Context) (claimResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (claimResult, error) {
			claim, err := s.lookup(ctx, db, query)
			if err != nil {
				return classify[*claimdb.Claim](nil, err)
			}
			if err := s.repo.SetExempt(ctx, db, claim.Tag, exempt); err != nil {
				return classify[*claimdb.Claim](nil, err)
			}
			claim.Exempt = exempt
			return classify(claim, nil)
		})
	})
	return unwrap(result, err)
}

// ListExempt lists exempt claims.
func (s *ClaimService) ListExempt(ctx context.Context) ([]claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "ListExempt", "all", func(ctx context.Context) (claimsResult, error) {
		return classify(s.repo.ListExempt(ctx, nil))
	})
	return unwrap(result, err)
}
