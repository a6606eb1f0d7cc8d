package claimservice

import (
	"context"
	"errors"
	"fmt"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

// RefreshIGN re-reads one claimed account's name from the API.
func (s *ClaimService) RefreshIGN(ctx context.Context, tag string) (*RenameResult, error) {
	tag = clashapi.NormalizeTag(tag)
	type renameResult = results.OperationResult[*RenameResult, error]
	result, err := withTelemetry(s, ctx, "RefreshIGN", tag, func(ctx context.Context) (renameResult, error) {
		claim, err := s.repo.GetByTag(ctx, nil, tag)
		if err != nil {
			return classify[*RenameResult](nil, err)
		}
		return classify(s.rename(ctx, claim))
	})
	return unwrap(result, err)
}

// RefreshAllIGNs refreshes every claim. One account failing does not stop
// the rest.
func (s *ClaimService) RefreshAllIGNs(ctx context.Context) (*BulkRenameResult, error) {
	type bulkResult = results.OperationResult[*BulkRenameResult, error]
	result, err := withTelemetry(s, ctx, "RefreshAllIGNs", "all", func(ctx context.Context) (bulkResult, error) {
		claims, err := s.repo.ListAll(ctx, nil)
		if err != nil {
			return bulkResult{}, err
		}
		out := &BulkRenameResult{}
		for i := range claims {
			if ctx.Err() != nil {
				return bulkResult{}, ctx.Err()
			}
			r, err := s.rename(ctx, &claims[i])
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to refresh name",
					attr.PlayerTag(claims[i].Tag),
					attr.Error(err),
				)
				out.Failed = append(out.Failed, claims[i].Tag)
				continue
			}
			if r.OldName != r.NewName {
				out.Renamed = append(out.Renamed, *r)
			}
		}
		return results.SuccessResult[*BulkRenameResult, error](out), nil
	})
	return unwrap(result, err)
}

func (s *ClaimService) rename(ctx context.Context, claim *claimdb.Claim) (*RenameResult, error) {
	player, err := s.api.GetPlayer(ctx, claim.Tag)
	if err != nil {
		if errors.Is(err, clashapi.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, claim.Tag)
		}
		return nil, err
	}
	out := &RenameResult{Tag: claim.Tag, OldName: claim.IGN, NewName: player.Name}
	if player.Name == claim.IGN {
		return out, nil
	}
	if err := s.repo.UpdateIGN(ctx, nil, claim.Tag, player.Name); err != nil {
		return nil, err
	}
	if s.names != nil {
		if err := s.names.RenamePlayer(ctx, claim.Tag, player.Name); err != nil {
			return nil, fmt.Errorf("failed to rename %s in war stats: %w", claim.Tag, err)
		}
	}
	return out, nil
}
