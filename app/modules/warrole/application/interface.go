package warroleservice

import (
	"context"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
)

// Service keeps the war role in step with the home clan's war roster.
type Service interface {
	// Reconcile diffs the current war against the persisted roster and
	// grants or revokes the role accordingly.
	Reconcile(ctx context.Context) (*Result, error)
	// Init grants the role to everyone in the current war and revokes it
	// from every other holder.
	Init(ctx context.Context) (*Result, error)

	Add(ctx context.Context, query string) (*ManualChange, error)
	Remove(ctx context.Context, query string) (*ManualChange, error)
	Show(ctx context.Context) (*RosterView, error)
}

// ClaimResolver maps claimed tags to Discord users.
type ClaimResolver interface {
	Resolve(ctx context.Context, tags []string) (map[string]int64, error)
}

// RoleManager mutates the war role in the guild.
type RoleManager interface {
	GrantRole(ctx context.Context, userID int64, roleID, reason string) error
	RevokeRole(ctx context.Context, userID int64, roleID, reason string) error
	RoleMembers(ctx context.Context, roleID string) ([]int64, error)
}

// RoleChange is one role mutation.
type RoleChange struct {
	Tag    string
	Name   string
	UserID int64
}

// RoleFailure is a role mutation that the guild rejected.
type RoleFailure struct {
	RoleChange
	Err string
}

// Result is the outcome of one reconciliation.
type Result struct {
	WarState string
	// Unclaimed lists roster tags with no claim, sorted.
	Unclaimed     []string
	Added         []RoleChange
	Removed       []RoleChange
	FailedGrants  []RoleFailure
	FailedRevokes []RoleFailure
	// Retained are users whose tag left the war but who still hold another
	// account in it.
	Retained  []RoleChange
	Persisted bool
	// Conflict is set when the roster changed while reconciling.
	Conflict bool
	Version  int64
	// Names maps war tags to in-game names.
	Names map[string]string
}

// OK reports full success.
func (r *Result) OK() bool {
	return len(r.Unclaimed) == 0 && len(r.FailedGrants) == 0 && len(r.FailedRevokes) == 0
}

// Changed reports whether any role was touched.
func (r *Result) Changed() bool {
	return len(r.Added)+len(r.Removed)+len(r.FailedGrants)+len(r.FailedRevokes) > 0
}

// ManualChange reports a moderator add or remove.
type ManualChange struct {
	Entry warroledb.LastWar
	Name  string
	// RoleKept is set on removal when the user still has another account on
	// the roster.
	RoleKept bool
}

// RosterView compares the persisted roster with the role's holders.
type RosterView struct {
	Entries []warroledb.LastWar
	Holders []int64
	// MissingRole are roster users without the role.
	MissingRole []int64
	// NotOnRoster are role holders absent from the roster.
	NotOnRoster []int64
}
