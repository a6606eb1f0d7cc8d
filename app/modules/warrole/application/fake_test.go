package warroleservice

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/uptrace/bun"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
)

// ------------------------
// Fake Roster Repo
// ------------------------

// FakeRosterRepo keeps the roster in memory with the same version rules as
// the database implementation.
type FakeRosterRepo struct {
	trace   []string
	entries map[string]int64
	version int64

	ReplaceRosterFunc func(ctx context.Context, db bun.IDB, clanTag string, expected int64, entries []warroledb.LastWar) (int64, error)
}

func NewFakeRosterRepo(entries ...warroledb.LastWar) *FakeRosterRepo {
	f := &FakeRosterRepo{trace: []string{}, entries: map[string]int64{}}
	for _, e := range entries {
		f.entries[e.Tag] = e.UserID
	}
	return f
}

func (f *FakeRosterRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRosterRepo) Tags() []string {
	out := make([]string, 0, len(f.entries))
	for t := range f.entries {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (f *FakeRosterRepo) LoadRoster(ctx context.Context, db bun.IDB, clanTag string) (warroledb.Roster, error) {
	f.record("LoadRoster")
	r := warroledb.Roster{Version: f.version}
	for _, t := range f.Tags() {
		r.Entries = append(r.Entries, warroledb.LastWar{Tag: t, UserID: f.entries[t]})
	}
	return r, nil
}

func (f *FakeRosterRepo) ReplaceRoster(ctx context.Context, db bun.IDB, clanTag string, expected int64, entries []warroledb.LastWar) (int64, error) {
	f.record("ReplaceRoster")
	if f.ReplaceRosterFunc != nil {
		return f.ReplaceRosterFunc(ctx, db, clanTag, expected, entries)
	}
	if expected != f.version {
		return 0, warroledb.ErrRosterConflict
	}
	f.entries = map[string]int64{}
	for _, e := range entries {
		f.entries[e.Tag] = e.UserID
	}
	f.version++
	return f.version, nil
}

func (f *FakeRosterRepo) AddEntry(ctx context.Context, db bun.IDB, clanTag string, entry warroledb.LastWar) error {
	f.record("AddEntry")
	f.entries[entry.Tag] = entry.UserID
	f.version++
	return nil
}

func (f *FakeRosterRepo) RemoveEntry(ctx context.Context, db bun.IDB, clanTag, tag string) (*warroledb.LastWar, error) {
	f.record("RemoveEntry")
	u, ok := f.entries[tag]
	if !ok {
		return nil, warroledb.ErrNotFound
	}
	delete(f.entries, tag)
	f.version++
	return &warroledb.LastWar{Tag: tag, UserID: u}, nil
}

// ------------------------
// Fake Claims
// ------------------------

type fakeClaims map[string]int64

func (f fakeClaims) Resolve(_ context.Context, tags []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, t := range tags {
		if u, ok := f[t]; ok {
			out[t] = u
		}
	}
	return out, nil
}

// ------------------------
// Fake Roles
// ------------------------

type fakeRoles struct {
	mu      sync.Mutex
	holders map[int64]bool
	calls   []string
	// failGrant and failRevoke reject the listed users.
	failGrant  map[int64]bool
	failRevoke map[int64]bool
}

var errForbidden = errors.New("403 Forbidden: Missing Permissions")

func newFakeRoles(holders ...int64) *fakeRoles {
	r := &fakeRoles{holders: map[int64]bool{}, failGrant: map[int64]bool{}, failRevoke: map[int64]bool{}}
	for _, h := range holders {
		r.holders[h] = true
	}
	return r
}

func (r *fakeRoles) GrantRole(_ context.Context, userID int64, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "grant")
	if r.failGrant[userID] {
		return errForbidden
	}
	r.holders[userID] = true
	return nil
}

func (r *fakeRoles) RevokeRole(_ context.Context, userID int64, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "revoke")
	if r.failRevoke[userID] {
		return errForbidden
	}
	delete(r.holders, userID)
	return nil
}

func (r *fakeRoles) RoleMembers(context.Context, string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.holders))
	for u := range r.holders {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
