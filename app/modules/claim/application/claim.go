package claimservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/results"
)

// ClaimedError reports who already owns a tag.
type ClaimedError struct {
	Tag     string
	OwnerID int64
}

func (e *ClaimedError) Error() string {
	return fmt.Sprintf("%s is already claimed", e.Tag)
}

func (e *ClaimedError) Is(target error) bool { return target == ErrAlreadyClaimed }

type claimResult = results.OperationResult[*claimdb.Claim, error]

// Claim links the account named by query to userID.
func (s *ClaimService) Claim(ctx context.Context, userID int64, query string) (*claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "Claim", query, func(ctx context.Context) (claimResult, error) {
		player, err := s.findPlayer(ctx, query)
		if err != nil {
			return classify[*claimdb.Claim](nil, err)
		}
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (claimResult, error) {
			return classify(s.claimLogic(ctx, db, userID, player))
		})
	})
	return unwrap(result, err)
}

func (s *ClaimService) claimLogic(ctx context.Context, db bun.IDB, userID int64, player *clashapi.Player) (*claimdb.Claim, error) {
	existing, err := s.repo.GetByTag(ctx, db, player.Tag)
	switch {
	case err == nil:
		return nil, &ClaimedError{Tag: player.Tag, OwnerID: existing.UserID}
	case !errors.Is(err, claimdb.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing claim: %w", err)
	}

	donations := player.LifetimeDonations()
	claim := &claimdb.Claim{
		UserID:            userID,
		IGN:               player.Name,
		Tag:               player.Tag,
		StartingDonations: donations,
		CurrentDonations:  donations,
		Clan:              player.ClanName(),
	}
	if err := s.repo.Insert(ctx, db, claim); err != nil {
		// A concurrent claim won the race. The failed statement aborts the
		// transaction so nothing is written.
		if errors.Is(err, claimdb.ErrAlreadyClaimed) || claimdb.IsUniqueViolation(err) {
			return nil, &ClaimedError{Tag: player.Tag}
		}
		return nil, fmt.Errorf("failed to insert claim: %w", err)
	}
	return claim, nil
}

// findPlayer resolves a tag or in-game name to a player. Names are searched
// in the tracked clans' member lists.
func (s *ClaimService) findPlayer(ctx context.Context, query string) (*clashapi.Player, error) {
	query = strings.TrimSpace(query)
	tag := ""
	if clashapi.LooksLikeTag(query) {
		tag = clashapi.NormalizeTag(query)
	} else {
		var matches []string
		for _, clan := range s.clans {
			members, err := s.api.GetClanMembers(ctx, clan.Tag)
			if err != nil {
				return nil, fmt.Errorf("failed to list members of %s: %w", clan.Name, err)
			}
			for _, m := range members {
				if strings.EqualFold(m.Name, query) {
					matches = append(matches, m.Tag)
				}
			}
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, query)
		case 1:
			tag = matches[0]
		default:
			return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguousName, query, strings.Join(matches, ", "))
		}
	}

	player, err := s.api.GetPlayer(ctx, tag)
	if err != nil {
		if errors.Is(err, clashapi.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, tag)
		}
		return nil, fmt.Errorf("failed to fetch player %s: %w", tag, err)
	}
	return player, nil
}

// Unclaim removes the claim named by query.
func (s *ClaimService) Unclaim(ctx context.Context, query string) (*claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "Unclaim", query, func(ctx context.Context) (claimResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (claimResult, error) {
			claim, err := s.lookup(ctx, db, query)
			if err != nil {
				return classify[*claimdb.Claim](nil, err)
			}
			return classify(s.repo.Delete(ctx, db, claim.Tag))
		})
	})
	return unwrap(result, err)
}

// Lookup finds the claim named by a tag or claimed in-game name.
func (s *ClaimService) Lookup(ctx context.Context, query string) (*claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "Lookup", query, func(ctx context.Context) (claimResult, error) {
		return classify(s.lookup(ctx, nil, query))
	})
	return unwrap(result, err)
}

func (s *ClaimService) lookup(ctx context.Context, db bun.IDB, query string) (*claimdb.Claim, error) {
	query = strings.TrimSpace(query)
	if clashapi.LooksLikeTag(query) {
		tag := clashapi.NormalizeTag(query)
		claim, err := s.repo.GetByTag(ctx, db, tag)
		if errors.Is(err, claimdb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, tag)
		}
		return claim, err
	}

	claims, err := s.repo.FindByIGN(ctx, db, query)
	if err != nil {
		return nil, err
	}
	switch len(claims) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	case 1:
		return &claims[0], nil
	}
	tags := make([]string, 0, len(claims))
	for _, c := range claims {
		tags = append(tags, c.Tag)
	}
	return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguousName, query, strings.Join(tags, ", "))
}

type claimsResult = results.OperationResult[[]claimdb.Claim, error]

// UserClaims lists the claims owned by userID.
func (s *ClaimService) UserClaims(ctx context.Context, userID int64) ([]claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "UserClaims", fmt.Sprint(userID), func(ctx context.Context) (claimsResult, error) {
		return classify(s.repo.ListByUser(ctx, nil, userID))
	})
	return unwrap(result, err)
}

// AllClaims lists every claim.
func (s *ClaimService) AllClaims(ctx context.Context) ([]claimdb.Claim, error) {
	result, err := withTelemetry(s, ctx, "AllClaims", "all", func(ctx context.Context) (claimsResult, error) {
		return classify(s.repo.ListAll(ctx, nil))
	})
	return unwrap(result, err)
}

// Resolve maps claimed tags to their owners.
func (s *ClaimService) Resolve(ctx context.Context, tags []string) (map[string]int64, error) {
	type resolved = results.OperationResult[map[string]int64, error]
	result, err := withTelemetry(s, ctx, "Resolve", fmt.Sprintf("%d tags", len(tags)), func(ctx context.Context) (resolved, error) {
		return classify(s.repo.ResolveTags(ctx, nil, tags))
	})
	return unwrap(result, err)
}
