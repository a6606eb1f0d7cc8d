package warroleservice

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/clashapi/clashapitest"
	"github.com/aussie-warriors/awbot/internal/observability"
)

const homeTag = "#2PQ8"

func war(tags ...string) *clashapi.War {
	w := &clashapi.War{State: clashapi.WarStateInWar, Clan: clashapi.WarClan{Tag: homeTag}}
	for _, t := range tags {
		w.Clan.Members = append(w.Clan.Members, clashapi.WarMember{Tag: t, Name: "name" + t[1:]})
	}
	return w
}

func newService(api clashapi.API, repo warroledb.Repository, claims ClaimResolver, roles RoleManager) *WarRoleService {
	obs := observability.NewNoop()
	return NewWarRoleService(repo, api, claims, roles, homeTag, "role", obs.Logger, obs.Metrics, obs.Tracer, nil)
}

func TestReconcile_Rotation(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = war("#B", "#C", "#D")
	repo := NewFakeRosterRepo(
		warroledb.LastWar{Tag: "#A", UserID: 1},
		warroledb.LastWar{Tag: "#B", UserID: 2},
		warroledb.LastWar{Tag: "#C", UserID: 3},
	)
	claims := fakeClaims{"#A": 1, "#B": 2, "#C": 3, "#D": 4}
	roles := newFakeRoles(1, 2, 3)

	res, err := newService(api, repo, claims, roles).Reconcile(context.Background())
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.True(t, res.Persisted)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, []RoleChange{{Tag: "#A", UserID: 1}}, res.Removed)
	assert.Equal(t, []RoleChange{{Tag: "#D", Name: "nameD", UserID: 4}}, res.Added)
	assert.Equal(t, []string{"#B", "#C", "#D"}, repo.Tags())
	assert.Equal(t, []string{"revoke", "grant"}, roles.calls)

	holders, _ := roles.RoleMembers(context.Background(), "role")
	assert.Equal(t, []int64{2, 3, 4}, holders)
}

func TestReconcile_Idempotent(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = war("#A", "#B")
	repo := NewFakeRosterRepo()
	roles := newFakeRoles()
	svc := newService(api, repo, fakeClaims{"#A": 1, "#B": 2}, roles)

	_, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	roles.calls = nil

	res, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Empty(t, roles.calls)
	assert.Equal(t, []string{"#A", "#B"}, repo.Tags())
}

func TestReconcile_UnclaimedKeepsPreviousRoster(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = war("#A", "#Z")
	repo := NewFakeRosterRepo(warroledb.LastWar{Tag: "#B", UserID: 2})
	roles := newFakeRoles(2)

	res, err := newService(api, repo, fakeClaims{"#A": 1, "#B": 2}, roles).Reconcile(context.Background())
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.False(t, res.Persisted)
	assert.Equal(t, []string{"#Z"}, res.Unclaimed)
	assert.Equal(t, []string{"#B"}, repo.Tags(), "roster must not change while accounts are unclaimed")
	assert.NotContains(t, repo.trace, "ReplaceRoster")
	// Role changes for claimed accounts still go through.
	assert.Len(t, res.Added, 1)
	assert.Len(t, res.Removed, 1)
}

func TestReconcile_GrantFailureIsolated(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = war("#A", "#B", "#C")
	repo := NewFakeRosterRepo()
	roles := newFakeRoles()
	roles.failGrant[2] = true

	res, err := newService(api, repo, fakeClaims{"#A": 1, "#B": 2, "#C": 3}, roles).Reconcile(context.Background())
	require.NoError(t, err)

	assert.False(t, res.OK())
	require.Len(t, res.FailedGrants, 1)
	assert.Equal(t, int64(2), res.FailedGrants[0].UserID)
	assert.Contains(t, res.FailedGrants[0].Err, "Missing Permissions")
	assert.Len(t, res.Added, 2)
	assert.Equal(t, []string{"grant", "grant", "grant"}, roles.calls)
	assert.True(t, res.Persisted)
}

func TestReconcile_NotInWarEmptiesRoster(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	repo := NewFakeRosterRepo(warroledb.LastWar{Tag: "#A", UserID: 1})
	roles := newFakeRoles(1)

	res, err := newService(api, repo, fakeClaims{"#A": 1}, roles).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, clashapi.WarStateNotInWar, res.WarState)
	assert.Len(t, res.Removed, 1)
	assert.Empty(t, repo.Tags())
}

func TestReconcile_APIErrorTouchesNothing(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.GetCurrentWarFunc = func(context.Context, string) (*clashapi.War, error) {
		return nil, &clashapi.APIError{StatusCode: 503, Reason: "inMaintenance"}
	}
	repo := NewFakeRosterRepo(warroledb.LastWar{Tag: "#A", UserID: 1})
	roles := newFakeRoles(1)

	_, err := newService(api, repo, fakeClaims{"#A": 1}, roles).Reconcile(context.Background())
	require.Error(t, err)

	var apiErr *clashapi.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Empty(t, roles.calls)
	assert.Empty(t, repo.trace)
}

func TestReconcile_Conflict(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = war("#A")
	repo := NewFakeRosterRepo()
	repo.ReplaceRosterFunc = func(context.Context, bun.IDB, string, int64, []warroledb.LastWar) (int64, error) {
		return 0, warroledb.ErrRosterConflict
	}

	res, err := newService(api, repo, fakeClaims{"#A": 1}, newFakeRoles()).Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Conflict)
	assert.False(t, res.Persisted)
}

func TestInit(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = war("#A", "#B")
	repo := NewFakeRosterRepo()
	roles := newFakeRoles(1, 9)

	res, err := newService(api, repo, fakeClaims{"#A": 1, "#B": 2}, roles).Init(context.Background())
	require.NoError(t, err)

	want := []RoleChange{{UserID: 9}}
	if diff := cmp.Diff(want, res.Removed, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Removed mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, res.Added, 2)
	holders, _ := roles.RoleMembers(context.Background(), "role")
	assert.Equal(t, []int64{1, 2}, holders)
	assert.Equal(t, []string{"#A", "#B"}, repo.Tags())
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		claims  fakeClaims
		wantErr error
		wantTag string
	}{
		{name: "by tag", query: "#p2y", claims: fakeClaims{"#P2Y": 1}, wantTag: "#P2Y"},
		{name: "by name", query: "NAMEP2Y", claims: fakeClaims{"#P2Y": 1}, wantTag: "#P2Y"},
		{name: "not in war", query: "#G9C", claims: fakeClaims{"#G9C": 1}, wantErr: ErrNotInWar},
		{name: "unclaimed", query: "#P2Y", claims: fakeClaims{}, wantErr: ErrUnclaimed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := clashapitest.NewFakeAPI()
			api.Wars[homeTag] = war("#P2Y", "#Q8L")
			repo := NewFakeRosterRepo()
			roles := newFakeRoles()

			got, err := newService(api, repo, tt.claims, roles).Add(context.Background(), tt.query)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, roles.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, got.Entry.Tag)
			assert.Equal(t, []string{tt.wantTag}, repo.Tags())
			assert.Equal(t, []string{"grant"}, roles.calls)
		})
	}
}

func TestRemove(t *testing.T) {
	t.Run("revokes last account", func(t *testing.T) {
		repo := NewFakeRosterRepo(warroledb.LastWar{Tag: "#P2Y", UserID: 1})
		roles := newFakeRoles(1)
		got, err := newService(clashapitest.NewFakeAPI(), repo, fakeClaims{}, roles).Remove(context.Background(), "#P2Y")
		require.NoError(t, err)
		assert.False(t, got.RoleKept)
		assert.Equal(t, []string{"revoke"}, roles.calls)
	})

	t.Run("keeps role for second account", func(t *testing.T) {
		repo := NewFakeRosterRepo(
			warroledb.LastWar{Tag: "#P2Y", UserID: 1},
			warroledb.LastWar{Tag: "#Q8L", UserID: 1},
		)
		roles := newFakeRoles(1)
		got, err := newService(clashapitest.NewFakeAPI(), repo, fakeClaims{}, roles).Remove(context.Background(), "#P2Y")
		require.NoError(t, err)
		assert.True(t, got.RoleKept)
		assert.Empty(t, roles.calls)
		assert.Equal(t, []string{"#Q8L"}, repo.Tags())
	})

	t.Run("not on roster", func(t *testing.T) {
		_, err := newService(clashapitest.NewFakeAPI(), NewFakeRosterRepo(), fakeClaims{}, newFakeRoles()).Remove(context.Background(), "#P2Y")
		assert.ErrorIs(t, err, ErrNotOnRoster)
	})
}

func TestShow(t *testing.T) {
	repo := NewFakeRosterRepo(
		warroledb.LastWar{Tag: "#A", UserID: 1},
		warroledb.LastWar{Tag: "#B", UserID: 2},
	)
	roles := newFakeRoles(2, 3)

	view, err := newService(clashapitest.NewFakeAPI(), repo, fakeClaims{}, roles).Show(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, view.MissingRole)
	assert.Equal(t, []int64{3}, view.NotOnRoster)
}

func TestReportNotice(t *testing.T) {
	res := &Result{
		Unclaimed:    []string{"#Z"},
		Names:        map[string]string{"#Z": "Zed"},
		Added:        []RoleChange{{Tag: "#D", Name: "Dee", UserID: 4}},
		FailedGrants: []RoleFailure{{RoleChange: RoleChange{Tag: "#E", UserID: 5}, Err: "forbidden"}},
	}
	n := ReportNotice(res)

	names := make([]string, 0, len(n.Fields))
	for _, f := range n.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Role given", "Members not claimed", "Failed to give role", "Roster not saved"}, names)
	assert.Equal(t, "Zed (#Z)", n.Fields[1].Value)
	assert.Equal(t, "<@5> #E: forbidden", n.Fields[2].Value)
}
