package donationcommands

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	donationservice "github.com/aussie-warriors/awbot/app/modules/donation/application"
	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/discord"
)

type fakeService struct {
	donationservice.Service
	clan    *donationservice.ClanDonations
	average *donationdb.Average
	flagged []donationdb.Average
	err     error
}

func (f *fakeService) ClanDonations(_ context.Context, clan string) (*donationservice.ClanDonations, error) {
	return f.clan, f.err
}

func (f *fakeService) UserAverage(context.Context, int64) (*donationdb.Average, error) {
	return f.average, f.err
}

func (f *fakeService) Flagged(context.Context) ([]donationdb.Average, error) {
	return f.flagged, f.err
}

type fakeFlags map[string]bool

func (f fakeFlags) Enabled(key string) bool { return f[key] }

func (f fakeFlags) SetFlag(key string, value bool) error {
	f[key] = value
	return nil
}

var clans = config.ClansConfig{Tracked: []config.Clan{
	{Tag: "#2PQ8", Name: "Aussie Warriors", Alias: "aw"},
	{Tag: "#9LQG", Name: "Aussies 4 War", Alias: "a4w"},
}}

func TestCommands_ClanShortcuts(t *testing.T) {
	h := NewHandlers(&fakeService{}, clans, fakeFlags{})
	names := map[string]bool{}
	for _, c := range h.Commands() {
		names[c.Name] = true
	}
	assert.True(t, names["awdon"])
	assert.True(t, names["a4wdon"])
}

func TestClanDonations(t *testing.T) {
	svc := &fakeService{clan: &donationservice.ClanDonations{
		Clan:  "Aussie Warriors",
		Quota: 133.3,
		Users: []donationservice.UserDonations{{
			UserID: 7,
			Claims: []claimdb.Claim{{IGN: "Alpha", Tag: "#A1", Difference: 150}, {IGN: "Beta", Tag: "#B1", Difference: 20.5}},
		}},
	}}
	h := NewHandlers(svc, clans, fakeFlags{})

	resp, err := h.ClanDonations(context.Background(), &discord.Request{Args: []string{"aw"}})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Embeds)
	desc := resp.Embeds[0].Description
	assert.Contains(t, desc, "Donations required by today: **133.3**")
	assert.Contains(t, desc, "<@7>\nAlpha (#A1): `150 don`\nBeta (#B1): `20.5 don`")

	_, err = h.ClanDonations(context.Background(), &discord.Request{Args: []string{"nope"}})
	var ue *discord.UserError
	assert.ErrorAs(t, err, &ue)
}

func TestAverage(t *testing.T) {
	t.Run("flagged list without mention", func(t *testing.T) {
		svc := &fakeService{flagged: []donationdb.Average{{UserID: 3, Average: 12, Warning: true}}}
		resp, err := NewHandlers(svc, clans, fakeFlags{}).Average(context.Background(), &discord.Request{AuthorID: 1})
		require.NoError(t, err)
		assert.Contains(t, resp.Embeds[0].Description, "<@3>: `12 donations`")
	})

	t.Run("missing average is a user error", func(t *testing.T) {
		svc := &fakeService{err: fmt.Errorf("UserAverage: %w", donationservice.ErrNoAverage)}
		_, err := NewHandlers(svc, clans, fakeFlags{}).Average(context.Background(), &discord.Request{AuthorID: 1, Mentions: []int64{2}})
		var ue *discord.UserError
		require.ErrorAs(t, err, &ue)
		assert.Contains(t, ue.Msg, "<@2>")
	})
}

func TestPingStatus(t *testing.T) {
	flags := fakeFlags{}
	h := NewHandlers(&fakeService{}, clans, flags)

	resp, err := h.PingStatus(context.Background(), &discord.Request{})
	require.NoError(t, err)
	assert.Contains(t, resp.Embeds[0].Description, "disabled")

	resp, err = h.PingStatus(context.Background(), &discord.Request{Args: []string{"on"}})
	require.NoError(t, err)
	assert.Equal(t, "✅", resp.React)
	assert.True(t, flags["sendPings"])

	_, err = h.PingStatus(context.Background(), &discord.Request{Args: []string{"maybe"}})
	var ue *discord.UserError
	assert.ErrorAs(t, err, &ue)
}
