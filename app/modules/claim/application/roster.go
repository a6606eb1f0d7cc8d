package claimservice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/results"
)

// ClanRoster splits a tracked clan's current members into claimed and
// unclaimed accounts.
func (s *ClaimService) ClanRoster(ctx context.Context, clan config.Clan) (*ClanRoster, error) {
	type rosterResult = results.OperationResult[*ClanRoster, error]
	result, err := withTelemetry(s, ctx, "ClanRoster", clan.Tag, func(ctx context.Context) (rosterResult, error) {
		members, err := s.api.GetClanMembers(ctx, clan.Tag)
		if err != nil {
			return rosterResult{}, fmt.Errorf("failed to list members of %s: %w", clan.Name, err)
		}
		tags := make([]string, 0, len(members))
		for _, m := range members {
			tags = append(tags, m.Tag)
		}
		owners, err := s.repo.ResolveTags(ctx, nil, tags)
		if err != nil {
			return rosterResult{}, err
		}

		out := &ClanRoster{Clan: clan}
		for _, m := range members {
			if id, ok := owners[m.Tag]; ok {
				out.Claimed = append(out.Claimed, RosterEntry{Member: m, UserID: id})
			} else {
				out.Unclaimed = append(out.Unclaimed, m)
			}
		}
		sort.Slice(out.Claimed, func(i, j int) bool {
			return strings.ToLower(out.Claimed[i].Member.Name) < strings.ToLower(out.Claimed[j].Member.Name)
		})
		sort.Slice(out.Unclaimed, func(i, j int) bool {
			return strings.ToLower(out.Unclaimed[i].Name) < strings.ToLower(out.Unclaimed[j].Name)
		})
		return results.SuccessResult[*ClanRoster, error](out), nil
	})
	return unwrap(result, err)
}
