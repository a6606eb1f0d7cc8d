// Package clashapitest provides an in-memory clashapi.API for tests.
package clashapitest

import (
	"context"
	"strings"
	"sync"

	"github.com/aussie-warriors/awbot/internal/clashapi"
)

// FakeAPI serves canned data. The Func fields override the maps when set.
type FakeAPI struct {
	mu    sync.Mutex
	trace []string

	Clans   map[string]*clashapi.Clan
	Members map[string][]clashapi.ClanMember
	Wars    map[string]*clashapi.War
	Players map[string]*clashapi.Player

	GetClanFunc        func(ctx context.Context, tag string) (*clashapi.Clan, error)
	GetClanMembersFunc func(ctx context.Context, tag string) ([]clashapi.ClanMember, error)
	GetCurrentWarFunc  func(ctx context.Context, clanTag string) (*clashapi.War, error)
	GetPlayerFunc      func(ctx context.Context, tag string) (*clashapi.Player, error)
	SearchClansFunc    func(ctx context.Context, name string, limit int) ([]clashapi.Clan, error)
}

// NewFakeAPI returns an empty fake.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Clans:   map[string]*clashapi.Clan{},
		Members: map[string][]clashapi.ClanMember{},
		Wars:    map[string]*clashapi.War{},
		Players: map[string]*clashapi.Player{},
	}
}

var _ clashapi.API = (*FakeAPI)(nil)

func (f *FakeAPI) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the calls made so far.
func (f *FakeAPI) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// AddPlayer registers a player with the given lifetime donations.
func (f *FakeAPI) AddPlayer(tag, name, clan string, donations int) *clashapi.Player {
	p := &clashapi.Player{
		Tag:  tag,
		Name: name,
		Achievements: []clashapi.Achievement{
			{Name: clashapi.DonationAchievement, Value: donations},
		},
	}
	if clan != "" {
		p.Clan = &clashapi.PlayerClan{Name: clan}
	}
	f.Players[tag] = p
	return p
}

func (f *FakeAPI) GetClan(ctx context.Context, tag string) (*clashapi.Clan, error) {
	f.record("GetClan " + tag)
	if f.GetClanFunc != nil {
		return f.GetClanFunc(ctx, tag)
	}
	if c, ok := f.Clans[tag]; ok {
		return c, nil
	}
	return nil, notFound()
}

func (f *FakeAPI) GetClanMembers(ctx context.Context, tag string) ([]clashapi.ClanMember, error) {
	f.record("GetClanMembers " + tag)
	if f.GetClanMembersFunc != nil {
		return f.GetClanMembersFunc(ctx, tag)
	}
	return f.Members[tag], nil
}

func (f *FakeAPI) GetCurrentWar(ctx context.Context, clanTag string) (*clashapi.War, error) {
	f.record("GetCurrentWar " + clanTag)
	if f.GetCurrentWarFunc != nil {
		return f.GetCurrentWarFunc(ctx, clanTag)
	}
	if w, ok := f.Wars[clanTag]; ok {
		return w, nil
	}
	return &clashapi.War{State: clashapi.WarStateNotInWar}, nil
}

func (f *FakeAPI) GetPlayer(ctx context.Context, tag string) (*clashapi.Player, error) {
	f.record("GetPlayer " + tag)
	if f.GetPlayerFunc != nil {
		return f.GetPlayerFunc(ctx, tag)
	}
	if p, ok := f.Players[tag]; ok {
		return p, nil
	}
	return nil, notFound()
}

func (f *FakeAPI) SearchClans(ctx context.Context, name string, limit int) ([]clashapi.Clan, error) {
	f.record("SearchClans " + name)
	if f.SearchClansFunc != nil {
		return f.SearchClansFunc(ctx, name, limit)
	}
	var out []clashapi.Clan
	for _, c := range f.Clans {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, *c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func notFound() error {
	return &clashapi.APIError{StatusCode: 404, Reason: "notFound"}
}
