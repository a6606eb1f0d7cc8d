package warstatscommands

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	warstatsservice "github.com/aussie-warriors/awbot/app/modules/warstats/application"
	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/discord"
	"github.com/aussie-warriors/awbot/internal/settings"
)

type fakeService struct {
	warstatsservice.Service
	stats    *warstatsservice.PlayerStats
	err      error
	chart    []byte
	chartErr error
	dump     []byte
	query    string
}

func (f *fakeService) PlayerStats(_ context.Context, query string) (*warstatsservice.PlayerStats, error) {
	f.query = query
	return f.stats, f.err
}

func (f *fakeService) HitRateChart(context.Context, *warstatsservice.PlayerStats) ([]byte, error) {
	return f.chart, f.chartErr
}

func (f *fakeService) Dump(context.Context) ([]byte, error) {
	return f.dump, f.err
}

type fakeFlags map[string]bool

func (f fakeFlags) Enabled(key string) bool { return f[key] }

func (f fakeFlags) SetFlag(key string, value bool) error {
	f[key] = value
	return nil
}

func alpha() *warstatsservice.PlayerStats {
	return &warstatsservice.PlayerStats{
		Tag:         "#P2Y",
		Name:        "Alpha",
		TH:          12,
		Wars:        make([]warstatsdb.WarStat, 3),
		HitRate:     warstatsdb.Fraction{Num: 3, Den: 4},
		DefenseRate: warstatsdb.Fraction{Num: 0, Den: 0},
	}
}

func TestPlayerStats(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		svc       *fakeService
		wantFiles int
		wantUser  string
	}{
		{
			name:      "embed with chart",
			args:      []string{"Alpha"},
			svc:       &fakeService{stats: alpha(), chart: []byte("\x89PNG")},
			wantFiles: 1,
		},
		{
			name:      "chart failure still answers",
			args:      []string{"Alpha"},
			svc:       &fakeService{stats: alpha(), chartErr: errors.New("render")},
			wantFiles: 0,
		},
		{
			name:     "no stats",
			args:     []string{"Big", "Tim"},
			svc:      &fakeService{err: warstatsservice.ErrNoStats},
			wantUser: "No war stats recorded for Big Tim.",
		},
		{
			name:     "ambiguous",
			args:     []string{"Alpha"},
			svc:      &fakeService{err: warstatsservice.ErrAmbiguousName},
			wantUser: "More than one player is named Alpha. Use their tag instead.",
		},
		{
			name:     "missing argument",
			svc:      &fakeService{},
			wantUser: "Usage: `?warstats <tag|ign>`",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(tt.svc, fakeFlags{})
			resp, err := h.PlayerStats(context.Background(), &discord.Request{Args: tt.args, Prefix: "?"})
			if tt.wantUser != "" {
				var ue *discord.UserError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, tt.wantUser, ue.Msg)
				return
			}
			require.NoError(t, err)
			require.Len(t, resp.Embeds, 1)
			embed := resp.Embeds[0]
			assert.Equal(t, "Alpha (#P2Y)", embed.Title)
			assert.Equal(t, "3/4 (75.0%)", embed.Fields[2].Value)
			assert.Equal(t, "0/0 (0.0%)", embed.Fields[3].Value)
			assert.Len(t, resp.Files, tt.wantFiles)
			if tt.wantFiles > 0 {
				assert.Equal(t, "attachment://warstats.png", embed.Image.URL)
			}
		})
	}
}

func TestDump(t *testing.T) {
	h := NewHandlers(&fakeService{dump: []byte("xlsx")}, fakeFlags{})
	resp, err := h.Dump(context.Background(), &discord.Request{})
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "war_stats.xlsx", resp.Files[0].Name)
	body, err := io.ReadAll(resp.Files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(body))
}

func TestToggle(t *testing.T) {
	flags := fakeFlags{}
	h := NewHandlers(&fakeService{}, flags)

	resp, err := h.Toggle(context.Background(), &discord.Request{Args: []string{"on"}})
	require.NoError(t, err)
	assert.Equal(t, "✅", resp.React)
	assert.True(t, flags[settings.KeyUpdateStats])

	resp, err = h.Toggle(context.Background(), &discord.Request{})
	require.NoError(t, err)
	assert.Equal(t, "War stats collection is enabled", resp.Embeds[0].Description)

	_, err = h.Toggle(context.Background(), &discord.Request{Args: []string{"maybe"}})
	var ue *discord.UserError
	assert.ErrorAs(t, err, &ue)
}
