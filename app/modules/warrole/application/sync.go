package warroleservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
	"github.com/aussie-warriors/awbot/internal/results"
)

type syncResult = results.OperationResult[*Result, error]

const auditReason = "war roster reconciliation"

// Reconcile fetches the current war and brings the role in line with it.
// API errors abort the run before anything is touched. Role errors are
// collected in the result.
func (s *WarRoleService) Reconcile(ctx context.Context) (*Result, error) {
	result, err := withTelemetry(s, ctx, "Reconcile", func(ctx context.Context) (syncResult, error) {
		war, err := s.api.GetCurrentWar(ctx, s.clanTag)
		if err != nil {
			return syncResult{}, fmt.Errorf("failed to fetch current war: %w", err)
		}
		roster, err := s.repo.LoadRoster(ctx, nil, s.clanTag)
		if err != nil {
			return syncResult{}, err
		}
		prev := make([]RoleChange, 0, len(roster.Entries))
		for _, e := range roster.Entries {
			prev = append(prev, RoleChange{Tag: e.Tag, UserID: e.UserID})
		}
		res, err := s.apply(ctx, war, prev, roster.Version, nil)
		if err != nil {
			return syncResult{}, err
		}
		return results.SuccessResult[*Result, error](res), nil
	})
	return unwrap(result, err)
}

// Init grants the role to everyone in the current war as if the previous
// roster were empty, then revokes it from holders who are not in the war.
func (s *WarRoleService) Init(ctx context.Context) (*Result, error) {
	result, err := withTelemetry(s, ctx, "Init", func(ctx context.Context) (syncResult, error) {
		war, err := s.api.GetCurrentWar(ctx, s.clanTag)
		if err != nil {
			return syncResult{}, fmt.Errorf("failed to fetch current war: %w", err)
		}
		roster, err := s.repo.LoadRoster(ctx, nil, s.clanTag)
		if err != nil {
			return syncResult{}, err
		}
		holders, err := s.roles.RoleMembers(ctx, s.roleID)
		if err != nil {
			return syncResult{}, fmt.Errorf("failed to list role holders: %w", err)
		}
		res, err := s.apply(ctx, war, nil, roster.Version, holders)
		if err != nil {
			return syncResult{}, err
		}
		return results.SuccessResult[*Result, error](res), nil
	})
	return unwrap(result, err)
}

// apply resolves claims, mutates roles and persists the roster. stale
// holders are revoked when they are not owners of a current war account.
func (s *WarRoleService) apply(ctx context.Context, war *clashapi.War, prev []RoleChange, version int64, stale []int64) (*Result, error) {
	current := war.MemberTags()
	names := make(map[string]string, len(current))
	for _, m := range war.Clan.Members {
		names[m.Tag] = m.Name
	}

	lookup := make([]string, 0, len(current)+len(prev))
	lookup = append(lookup, current...)
	for _, p := range prev {
		lookup = append(lookup, p.Tag)
	}
	owners, err := s.claims.Resolve(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve claims: %w", err)
	}

	plan := BuildPlan(prev, current, owners)
	if len(stale) > 0 {
		plan.Revokes = append(plan.Revokes, staleRevokes(plan, stale)...)
	}

	res := &Result{
		WarState:  war.State,
		Unclaimed: plan.Unclaimed,
		Retained:  named(plan.Retained, names),
		Names:     names,
		Version:   version,
	}

	for _, c := range named(plan.Revokes, names) {
		if err := s.roles.RevokeRole(ctx, c.UserID, s.roleID, auditReason); err != nil {
			s.logger.WarnContext(ctx, "Failed to revoke war role",
				attr.UserID(c.UserID), attr.PlayerTag(c.Tag), attr.Error(err))
			res.FailedRevokes = append(res.FailedRevokes, RoleFailure{RoleChange: c, Err: err.Error()})
			continue
		}
		res.Removed = append(res.Removed, c)
	}
	for _, c := range named(plan.Grants, names) {
		if err := s.roles.GrantRole(ctx, c.UserID, s.roleID, auditReason); err != nil {
			s.logger.WarnContext(ctx, "Failed to grant war role",
				attr.UserID(c.UserID), attr.PlayerTag(c.Tag), attr.Error(err))
			res.FailedGrants = append(res.FailedGrants, RoleFailure{RoleChange: c, Err: err.Error()})
			continue
		}
		res.Added = append(res.Added, c)
	}

	if !plan.Complete {
		s.logger.InfoContext(ctx, "Roster has unclaimed accounts, keeping previous roster",
			attr.Int("unclaimed", len(plan.Unclaimed)))
		return res, nil
	}

	entries := make([]warroledb.LastWar, 0, len(plan.Next))
	for _, c := range plan.Next {
		entries = append(entries, warroledb.LastWar{Tag: c.Tag, UserID: c.UserID})
	}
	persisted, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		v, err := s.repo.ReplaceRoster(ctx, db, s.clanTag, version, entries)
		if errors.Is(err, warroledb.ErrRosterConflict) {
			return results.FailureResult[int64, error](err), nil
		}
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](v), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist roster: %w", err)
	}
	if persisted.IsFailure() {
		s.logger.WarnContext(ctx, "Roster changed while reconciling, next run will retry",
			attr.Int64("expected_version", version))
		res.Conflict = true
		return res, nil
	}
	res.Persisted = true
	res.Version = *persisted.Success
	return res, nil
}

// staleRevokes lists holders who own no account in the current war and are
// not already being revoked.
func staleRevokes(plan Plan, holders []int64) []RoleChange {
	keep := map[int64]struct{}{}
	for _, c := range plan.Next {
		keep[c.UserID] = struct{}{}
	}
	for _, c := range plan.Grants {
		keep[c.UserID] = struct{}{}
	}
	for _, c := range plan.Revokes {
		keep[c.UserID] = struct{}{}
	}
	var out []RoleChange
	for _, u := range holders {
		if _, ok := keep[u]; ok {
			continue
		}
		keep[u] = struct{}{}
		out = append(out, RoleChange{UserID: u})
	}
	return out
}

func named(changes []RoleChange, names map[string]string) []RoleChange {
	out := make([]RoleChange, 0, len(changes))
	for _, c := range changes {
		c.Name = names[c.Tag]
		out = append(out, c)
	}
	return out
}
