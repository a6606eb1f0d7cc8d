package warroleservice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/uptrace/bun"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/results"
)

type manualResult = results.OperationResult[*ManualChange, error]

const manualReason = "war roster edited by a moderator"

// Add puts a current war member on the roster and grants the role to the
// member's owner.
func (s *WarRoleService) Add(ctx context.Context, query string) (*ManualChange, error) {
	result, err := withTelemetry(s, ctx, "Add", func(ctx context.Context) (manualResult, error) {
		war, err := s.api.GetCurrentWar(ctx, s.clanTag)
		if err != nil {
			return manualResult{}, fmt.Errorf("failed to fetch current war: %w", err)
		}
		member, err := findWarMember(war, query)
		if err != nil {
			return classify[*ManualChange](nil, err)
		}

		owners, err := s.claims.Resolve(ctx, []string{member.Tag})
		if err != nil {
			return manualResult{}, fmt.Errorf("failed to resolve claim: %w", err)
		}
		userID, ok := owners[member.Tag]
		if !ok {
			return classify[*ManualChange](nil, fmt.Errorf("%w: %s", ErrUnclaimed, member.Tag))
		}

		entry := warroledb.LastWar{Tag: member.Tag, UserID: userID}
		if _, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			return results.OperationResult[struct{}, error]{}, s.repo.AddEntry(ctx, db, s.clanTag, entry)
		}); err != nil {
			return manualResult{}, err
		}

		if err := s.roles.GrantRole(ctx, userID, s.roleID, manualReason); err != nil {
			return manualResult{}, fmt.Errorf("failed to grant war role: %w", err)
		}
		return results.SuccessResult[*ManualChange, error](&ManualChange{Entry: entry, Name: member.Name}), nil
	})
	return unwrap(result, err)
}

// Remove takes a tag off the roster. The role is revoked unless the owner
// has another account on the roster.
func (s *WarRoleService) Remove(ctx context.Context, query string) (*ManualChange, error) {
	result, err := withTelemetry(s, ctx, "Remove", func(ctx context.Context) (manualResult, error) {
		tag, name := clashapi.NormalizeTag(query), ""
		if !clashapi.LooksLikeTag(query) {
			war, err := s.api.GetCurrentWar(ctx, s.clanTag)
			if err != nil {
				return manualResult{}, fmt.Errorf("failed to fetch current war: %w", err)
			}
			member, err := findWarMember(war, query)
			if err != nil {
				return classify[*ManualChange](nil, err)
			}
			tag, name = member.Tag, member.Name
		}

		var kept bool
		removed, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*warroledb.LastWar, error], error) {
			entry, err := s.repo.RemoveEntry(ctx, db, s.clanTag, tag)
			if errors.Is(err, warroledb.ErrNotFound) {
				return results.FailureResult[*warroledb.LastWar, error](fmt.Errorf("%w: %s", ErrNotOnRoster, tag)), nil
			}
			if err != nil {
				return results.OperationResult[*warroledb.LastWar, error]{}, err
			}
			roster, err := s.repo.LoadRoster(ctx, db, s.clanTag)
			if err != nil {
				return results.OperationResult[*warroledb.LastWar, error]{}, err
			}
			kept = slices.ContainsFunc(roster.Entries, func(e warroledb.LastWar) bool {
				return e.UserID == entry.UserID
			})
			return results.SuccessResult[*warroledb.LastWar, error](entry), nil
		})
		if err != nil {
			return manualResult{}, err
		}
		if removed.IsFailure() {
			return results.FailureResult[*ManualChange, error](*removed.Failure), nil
		}

		entry := *removed.Success
		if !kept {
			if err := s.roles.RevokeRole(ctx, entry.UserID, s.roleID, manualReason); err != nil {
				return manualResult{}, fmt.Errorf("failed to revoke war role: %w", err)
			}
		}
		return results.SuccessResult[*ManualChange, error](&ManualChange{Entry: *entry, Name: name, RoleKept: kept}), nil
	})
	return unwrap(result, err)
}

// Show lists the roster next to the role's current holders.
func (s *WarRoleService) Show(ctx context.Context) (*RosterView, error) {
	result, err := withTelemetry(s, ctx, "Show", func(ctx context.Context) (results.OperationResult[*RosterView, error], error) {
		roster, err := s.repo.LoadRoster(ctx, nil, s.clanTag)
		if err != nil {
			return results.OperationResult[*RosterView, error]{}, err
		}
		holders, err := s.roles.RoleMembers(ctx, s.roleID)
		if err != nil {
			return results.OperationResult[*RosterView, error]{}, fmt.Errorf("failed to list role holders: %w", err)
		}

		view := &RosterView{Entries: roster.Entries, Holders: holders}
		onRoster := map[int64]struct{}{}
		for _, e := range roster.Entries {
			onRoster[e.UserID] = struct{}{}
		}
		holding := map[int64]struct{}{}
		for _, h := range holders {
			holding[h] = struct{}{}
			if _, ok := onRoster[h]; !ok {
				view.NotOnRoster = append(view.NotOnRoster, h)
			}
		}
		for u := range onRoster {
			if _, ok := holding[u]; !ok {
				view.MissingRole = append(view.MissingRole, u)
			}
		}
		slices.Sort(view.MissingRole)
		slices.Sort(view.NotOnRoster)
		return results.SuccessResult[*RosterView, error](view), nil
	})
	return unwrap(result, err)
}

// findWarMember matches a tag exactly or a name case-insensitively.
func findWarMember(war *clashapi.War, query string) (*clashapi.WarMember, error) {
	if war == nil || war.State == clashapi.WarStateNotInWar {
		return nil, fmt.Errorf("%w: clan is not in war", ErrNotInWar)
	}
	query = strings.TrimSpace(query)
	if clashapi.LooksLikeTag(query) {
		tag := clashapi.NormalizeTag(query)
		for i := range war.Clan.Members {
			if war.Clan.Members[i].Tag == tag {
				return &war.Clan.Members[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotInWar, tag)
	}

	var found *clashapi.WarMember
	for i := range war.Clan.Members {
		if strings.EqualFold(war.Clan.Members[i].Name, query) {
			if found != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousName, query)
			}
			found = &war.Clan.Members[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInWar, query)
	}
	return found, nil
}

func classify[S any](v S, err error) (results.OperationResult[S, error], error) {
	if err == nil {
		return results.SuccessResult[S, error](v), nil
	}
	if isFailure(err) {
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, err
}
