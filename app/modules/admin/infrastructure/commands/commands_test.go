package admincommands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminservice "github.com/aussie-warriors/awbot/app/modules/admin/application"
	admindb "github.com/aussie-warriors/awbot/app/modules/admin/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/settings"
)

type fakeService struct {
	adminservice.Service
	stats *adminservice.CommandStats
	flags map[string]bool
}

func (f *fakeService) CommandStats(context.Context, int) (*adminservice.CommandStats, error) {
	return f.stats, nil
}

func (f *fakeService) TaskStats(context.Context) ([]admindb.TaskCount, error) {
	return []admindb.TaskCount{{TaskName: "war_role", Runs: 3, Completed: 2, Failed: 1}}, nil
}

func (f *fakeService) Setting(_ context.Context, key string) (bool, error) {
	v, ok := f.flags[key]
	if !ok {
		return false, adminservice.ErrUnknownSetting
	}
	return v, nil
}

func (f *fakeService) SetSetting(_ context.Context, key string, value bool) error {
	if _, ok := f.flags[key]; !ok {
		return adminservice.ErrUnknownSetting
	}
	f.flags[key] = value
	return nil
}

type fakeGateway struct {
	latency time.Duration
	started time.Time
}

func (g fakeGateway) Latency() time.Duration { return g.latency }
func (g fakeGateway) StartedAt() time.Time   { return g.started }

type commandList []discord.Command

func (c commandList) Commands() []discord.Command { return c }

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newHandlers(svc *fakeService, cmds commandList) *Handlers {
	h := NewHandlers(svc, fakeGateway{latency: 87 * time.Millisecond, started: now.Add(-(50*time.Hour + 7*time.Minute))}, cmds)
	h.now = func() time.Time { return now }
	return h
}

func TestPingAndUptime(t *testing.T) {
	h := newHandlers(&fakeService{}, nil)
	resp, err := h.Ping(context.Background(), &discord.Request{})
	require.NoError(t, err)
	assert.Equal(t, "Pong! 87ms", resp.Content)

	resp, err = h.Uptime(context.Background(), &discord.Request{})
	require.NoError(t, err)
	assert.Equal(t, "Uptime: 2 days, 2 hours, 7 minutes", resp.Content)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0 hours, 5 minutes", FormatUptime(5*time.Minute+30*time.Second))
	assert.Equal(t, "1 days, 0 hours, 0 minutes", FormatUptime(24*time.Hour))
}

func TestStats(t *testing.T) {
	h := newHandlers(&fakeService{stats: &adminservice.CommandStats{
		Total: 9,
		Top:   []admindb.CommandCount{{Command: "don", Uses: 6}, {Command: "claim", Uses: 3}},
	}}, nil)

	resp, err := h.CommandStats(context.Background(), &discord.Request{})
	require.NoError(t, err)
	require.Len(t, resp.Embeds, 1)
	assert.Equal(t, "1. `don`: 6\n2. `claim`: 3", resp.Embeds[0].Description)
	assert.Equal(t, "Total commands used: 9", resp.Embeds[0].Footer.Text)

	resp, err = h.TaskStats(context.Background(), &discord.Request{})
	require.NoError(t, err)
	assert.Equal(t, "`war_role`: 3 runs, 2 completed, 1 failed", resp.Embeds[0].Description)
}

func TestSetting(t *testing.T) {
	svc := &fakeService{flags: map[string]bool{settings.KeyUpdateStats: true, settings.KeySendPings: false, settings.KeyWarRoles: false}}
	h := newHandlers(svc, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "list", want: "`updateStats`: enabled\n`sendPings`: disabled\n`warRoles`: disabled"},
		{name: "read", args: []string{"updateStats"}, want: "`updateStats` is enabled."},
		{name: "write", args: []string{"warRoles", "on"}, want: "`warRoles` is now enabled."},
		{name: "bad value", args: []string{"warRoles", "maybe"}, wantErr: "Usage: `?setting warRoles <true|false>`"},
		{name: "unknown key", args: []string{"colour"}, wantErr: "Unknown setting `colour`. Known settings: updateStats, sendPings, warRoles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.Setting(ctx, &discord.Request{Args: tt.args, Prefix: "?"})
			if tt.wantErr != "" {
				var ue *discord.UserError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, tt.wantErr, ue.Msg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Content)
		})
	}
	assert.True(t, svc.flags[settings.KeyWarRoles])
}

func TestHelp(t *testing.T) {
	cmds := commandList{
		{Name: "don", Group: "donations", Usage: "don [@user]", Help: "Show donations."},
		{Name: "warn add", Group: "moderation", Usage: "warn add @user [reason]", Help: "Warn a member.", Permission: discord.PermManageServer},
		{Name: "warn show", Aliases: []string{"warns"}, Group: "moderation", Usage: "warn show [@user]", Help: "List warnings.", Permission: discord.PermManageServer},
		{Name: "ping", Usage: "ping", Help: "Latency."},
	}
	h := newHandlers(&fakeService{}, cmds)
	ctx := context.Background()

	resp, err := h.Help(ctx, &discord.Request{Prefix: "?"})
	require.NoError(t, err)
	e := resp.Embeds[0]
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "donations", e.Fields[0].Name)
	assert.Equal(t, "general", e.Fields[1].Name)
	assert.Equal(t, "`warn add`, `warn show`", e.Fields[2].Value)

	resp, err = h.Help(ctx, &discord.Request{Args: []string{"Warns"}, Prefix: "?"})
	require.NoError(t, err)
	assert.Equal(t, "?warn show [@user]", resp.Embeds[0].Title)
	assert.Equal(t, "Manage Server", resp.Embeds[0].Fields[0].Value)

	resp, err = h.Help(ctx, &discord.Request{Args: []string{"warn", "add"}, Prefix: "?"})
	require.NoError(t, err)
	assert.Equal(t, "Warn a member.", resp.Embeds[0].Description)

	_, err = h.Help(ctx, &discord.Request{Args: []string{"eval"}})
	var ue *discord.UserError
	require.ErrorAs(t, err, &ue)
}
