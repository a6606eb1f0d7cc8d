package warstatsservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/clashapi/clashapitest"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/settings"
)

const homeTag = "#2PQ8"

var pngMagic = []byte("\x89PNG")

func newTestService(repo *FakeWarStatsRepo, api clashapi.API, toggles Toggles) *WarStatsService {
	obs := observability.NewNoop()
	s := NewWarStatsService(repo, api, homeTag, toggles, obs.Logger, obs.Metrics, obs.Tracer, nil)
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return s
}

func enabled() fakeToggles {
	return fakeToggles{settings.KeyUpdateStats: true}
}

func attack(attacker, defender string, stars int) clashapi.Attack {
	return clashapi.Attack{AttackerTag: attacker, DefenderTag: defender, Stars: stars}
}

// sampleWar has two home members at TH12 and TH11 facing a TH12 and a TH10.
func sampleWar() *clashapi.War {
	return &clashapi.War{
		State:                clashapi.WarStateEnded,
		TeamSize:             2,
		PreparationStartTime: clashapi.Timestamp{Time: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		EndTime:              clashapi.Timestamp{Time: time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)},
		Clan: clashapi.WarClan{
			Tag:  homeTag,
			Name: "Aussie Warriors",
			Members: []clashapi.WarMember{
				{Tag: "#Q8L", Name: "Bravo", TownhallLevel: 11, MapPosition: 2, Attacks: []clashapi.Attack{
					attack("#Q8L", "#G9C", 2),
					attack("#Q8L", "#UVJ", 3),
				}},
				{Tag: "#P2Y", Name: "Alpha", TownhallLevel: 12, MapPosition: 1, Attacks: []clashapi.Attack{
					attack("#P2Y", "#G9C", 3),
					attack("#P2Y", "#UVJ", 3),
				}},
			},
		},
		Opponent: clashapi.WarClan{
			Tag:  "#CUV9",
			Name: "Rivals",
			Members: []clashapi.WarMember{
				{Tag: "#G9C", Name: "Big", TownhallLevel: 12, MapPosition: 1, Attacks: []clashapi.Attack{
					attack("#G9C", "#P2Y", 2),
					attack("#G9C", "#Q8L", 3),
				}},
				{Tag: "#UVJ", Name: "Small", TownhallLevel: 10, MapPosition: 2, Attacks: []clashapi.Attack{
					attack("#UVJ", "#P2Y", 3),
					attack("#UVJ", "#Q8L", 1),
				}},
			},
		},
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		war  *clashapi.War
		want []warstatsdb.WarStat
	}{
		{
			name: "townhall gates which attacks count",
			war:  sampleWar(),
			want: []warstatsdb.WarStat{
				{WarNo: 1, Name: "Alpha", Tag: "#P2Y", TH: 12, HitRate: warstatsdb.Fraction{Num: 1, Den: 1}, DefenseRate: warstatsdb.Fraction{Num: 1, Den: 1}},
				{WarNo: 1, Name: "Bravo", Tag: "#Q8L", TH: 11, HitRate: warstatsdb.Fraction{Num: 0, Den: 1}},
			},
		},
		{
			name: "higher townhall attacker is not a defense",
			war: &clashapi.War{
				State: clashapi.WarStateEnded,
				Clan: clashapi.WarClan{Members: []clashapi.WarMember{
					{Tag: "#P2Y", Name: "Alpha", TownhallLevel: 10, MapPosition: 1},
				}},
				Opponent: clashapi.WarClan{Members: []clashapi.WarMember{
					{Tag: "#G9C", Name: "Big", TownhallLevel: 12, MapPosition: 1, Attacks: []clashapi.Attack{
						attack("#G9C", "#P2Y", 3),
					}},
					{Tag: "#UVJ", Name: "Even", TownhallLevel: 10, MapPosition: 2, Attacks: []clashapi.Attack{
						attack("#UVJ", "#P2Y", 2),
					}},
				}},
			},
			want: []warstatsdb.WarStat{
				{WarNo: 1, Name: "Alpha", Tag: "#P2Y", TH: 10, DefenseRate: warstatsdb.Fraction{Num: 1, Den: 1}},
			},
		},
		{
			name: "members without attacks get empty fractions",
			war: &clashapi.War{
				State: clashapi.WarStateEnded,
				Clan: clashapi.WarClan{Members: []clashapi.WarMember{
					{Tag: "#P2Y", Name: "Alpha", TownhallLevel: 9, MapPosition: 1},
				}},
			},
			want: []warstatsdb.WarStat{
				{WarNo: 1, Name: "Alpha", Tag: "#P2Y", TH: 9},
			},
		},
		{
			name: "nil war",
			war:  nil,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.war)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregate_DoesNotReorderInput(t *testing.T) {
	war := sampleWar()
	Aggregate(war)
	assert.Equal(t, "#Q8L", war.Clan.Members[0].Tag)
}

func TestCollect(t *testing.T) {
	tests := []struct {
		name        string
		toggles     fakeToggles
		setup       func(api *clashapitest.FakeAPI, repo *FakeWarStatsRepo)
		wantSkipped string
		wantRows    int
		wantErr     bool
	}{
		{
			name:        "disabled does not call the API",
			toggles:     fakeToggles{},
			setup:       func(api *clashapitest.FakeAPI, repo *FakeWarStatsRepo) { api.Wars[homeTag] = sampleWar() },
			wantSkipped: SkipDisabled,
		},
		{
			name:    "war in progress is skipped",
			toggles: enabled(),
			setup: func(api *clashapitest.FakeAPI, repo *FakeWarStatsRepo) {
				war := sampleWar()
				war.State = clashapi.WarStateInWar
				api.Wars[homeTag] = war
			},
			wantSkipped: SkipNotEnded,
		},
		{
			name:        "ended war is recorded",
			toggles:     enabled(),
			setup:       func(api *clashapitest.FakeAPI, repo *FakeWarStatsRepo) { api.Wars[homeTag] = sampleWar() },
			wantRows:    2,
			wantSkipped: "",
		},
		{
			name:    "recorded war is skipped",
			toggles: enabled(),
			setup: func(api *clashapitest.FakeAPI, repo *FakeWarStatsRepo) {
				war := sampleWar()
				api.Wars[homeTag] = war
				repo.recorded[war.Key()] = warstatsdb.RecordedWar{WarKey: war.Key()}
			},
			wantSkipped: SkipRecorded,
		},
		{
			name:    "API error",
			toggles: enabled(),
			setup: func(api *clashapitest.FakeAPI, repo *FakeWarStatsRepo) {
				api.GetCurrentWarFunc = func(ctx context.Context, clanTag string) (*clashapi.War, error) {
					return nil, errors.New("maintenance")
				}
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := clashapitest.NewFakeAPI()
			repo := NewFakeWarStatsRepo()
			tt.setup(api, repo)
			s := newTestService(repo, api, tt.toggles)

			res, err := s.Collect(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				assert.NotContains(t, repo.Trace(), "ShiftWindow")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSkipped, res.Skipped)
			assert.Equal(t, tt.wantRows, res.Rows)
			assert.Len(t, repo.rows, tt.wantRows)
			if tt.wantSkipped == SkipDisabled {
				assert.Empty(t, api.Trace())
			}
		})
	}
}

func TestCollect_TwicePerWarStoresOnce(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = sampleWar()
	repo := NewFakeWarStatsRepo()
	s := newTestService(repo, api, enabled())

	first, err := s.Collect(context.Background())
	require.NoError(t, err)
	second, err := s.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first.Rows)
	assert.Equal(t, SkipRecorded, second.Skipped)
	assert.Len(t, repo.rows, 2)
	assert.Equal(t, []int{1}, repo.warNumbers())
}

func TestCollect_WindowEvictsOldestWar(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	repo := NewFakeWarStatsRepo()
	s := newTestService(repo, api, enabled())

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= warstatsdb.WindowSize+1; i++ {
		api.Wars[homeTag] = &clashapi.War{
			State:                clashapi.WarStateEnded,
			PreparationStartTime: clashapi.Timestamp{Time: start.AddDate(0, 0, 2*i)},
			Clan: clashapi.WarClan{Tag: homeTag, Members: []clashapi.WarMember{
				{Tag: "#P2Y", Name: fmt.Sprintf("war-%d", i), TownhallLevel: 12, MapPosition: 1},
			}},
			Opponent: clashapi.WarClan{Tag: "#CUV9", Name: "Rivals"},
		}
		res, err := s.Collect(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, res.Rows, "war %d", i)
	}

	nums := repo.warNumbers()
	require.Len(t, nums, warstatsdb.WindowSize)
	assert.Equal(t, 1, nums[0])
	assert.Equal(t, warstatsdb.WindowSize, nums[len(nums)-1])
	for _, r := range repo.rows {
		assert.NotEqual(t, "war-1", r.Name)
		if r.WarNo == 1 {
			assert.Equal(t, "war-21", r.Name)
		}
	}
}

func TestCollect_WindowFailureIsReturned(t *testing.T) {
	api := clashapitest.NewFakeAPI()
	api.Wars[homeTag] = sampleWar()
	repo := NewFakeWarStatsRepo()
	repo.ShiftWindowFunc = func(ctx context.Context, _ bun.IDB, rows []warstatsdb.WarStat) error {
		return errors.New("connection reset")
	}
	s := newTestService(repo, api, enabled())

	_, err := s.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Collect")
}

func seeded(t *testing.T) (*WarStatsService, *FakeWarStatsRepo) {
	t.Helper()
	api := clashapitest.NewFakeAPI()
	repo := NewFakeWarStatsRepo()
	require.NoError(t, repo.ShiftWindow(context.Background(), nil, Aggregate(sampleWar())))
	second := Aggregate(sampleWar())
	second[0].HitRate = warstatsdb.Fraction{Num: 1, Den: 2}
	require.NoError(t, repo.ShiftWindow(context.Background(), nil, second))
	return newTestService(repo, api, enabled()), repo
}

func TestPlayerStats(t *testing.T) {
	s, repo := seeded(t)

	t.Run("by tag", func(t *testing.T) {
		stats, err := s.PlayerStats(context.Background(), "#p2y")
		require.NoError(t, err)
		assert.Equal(t, "#P2Y", stats.Tag)
		assert.Equal(t, "Alpha", stats.Name)
		assert.Equal(t, warstatsdb.Fraction{Num: 2, Den: 3}, stats.HitRate)
		assert.Equal(t, warstatsdb.Fraction{Num: 2, Den: 2}, stats.DefenseRate)
		require.Len(t, stats.Wars, 2)
		assert.Equal(t, 2, stats.Wars[0].WarNo)
	})

	t.Run("by name", func(t *testing.T) {
		stats, err := s.PlayerStats(context.Background(), "bravo")
		require.NoError(t, err)
		assert.Equal(t, "#Q8L", stats.Tag)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := s.PlayerStats(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrNoStats)
	})

	t.Run("ambiguous name", func(t *testing.T) {
		_, err := repo.RenameTag(context.Background(), nil, "#Q8L", "Alpha")
		require.NoError(t, err)
		_, err = s.PlayerStats(context.Background(), "Alpha")
		assert.ErrorIs(t, err, ErrAmbiguousName)
	})
}

func TestRenamePlayer(t *testing.T) {
	s, repo := seeded(t)

	require.NoError(t, s.RenamePlayer(context.Background(), "p2y", "Alpha Prime"))
	for _, r := range repo.rows {
		if r.Tag == "#P2Y" {
			assert.Equal(t, "Alpha Prime", r.Name)
		}
	}
	assert.NoError(t, s.RenamePlayer(context.Background(), "#UVJ", "Ghost"))
}

func TestDump(t *testing.T) {
	s, _ := seeded(t)

	data, err := s.Dump(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Wars", "Totals"}, f.GetSheetList())

	wars, err := f.GetRows("Wars")
	require.NoError(t, err)
	require.Len(t, wars, 5)
	assert.Equal(t, "War", wars[0][0])
	assert.Equal(t, []string{"1", "Alpha", "#P2Y", "12", "1/2", "50"}, wars[1][:6])

	totals, err := f.GetRows("Totals")
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, []string{"Alpha", "#P2Y", "12", "2", "2/3", "66.7"}, totals[1][:6])
	assert.Equal(t, []string{"Bravo", "#Q8L", "11", "2", "0/2", "0"}, totals[2][:6])
}

func TestHitRateChart(t *testing.T) {
	s, _ := seeded(t)

	stats, err := s.PlayerStats(context.Background(), "#P2Y")
	require.NoError(t, err)
	png, err := s.HitRateChart(context.Background(), stats)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	t.Run("single war renders", func(t *testing.T) {
		png, err := RenderHitRateChart(Summarize(Aggregate(sampleWar())[:1]))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngMagic))
	})

	t.Run("no wars", func(t *testing.T) {
		_, err := s.HitRateChart(context.Background(), &PlayerStats{})
		assert.ErrorIs(t, err, ErrNoStats)
	})
}
