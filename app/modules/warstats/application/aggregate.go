package warstatsservice

import (
	"sort"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/internal/clashapi"
)

// Aggregate computes one row per home member, ordered by map position.
//
// An attack counts toward the hit rate when the defender's townhall is at
// least the attacker's; it succeeds with 3 stars. An incoming attack counts
// toward the defense rate only when the attacker's townhall equals the
// member's; it is defended when it did not get 3 stars.
func Aggregate(war *clashapi.War) []warstatsdb.WarStat {
	if war == nil || len(war.Clan.Members) == 0 {
		return nil
	}

	th := make(map[string]int, len(war.Clan.Members)+len(war.Opponent.Members))
	for _, m := range war.Opponent.Members {
		th[m.Tag] = m.TownhallLevel
	}
	for _, m := range war.Clan.Members {
		th[m.Tag] = m.TownhallLevel
	}

	incoming := make(map[string][]clashapi.Attack)
	for _, m := range war.Opponent.Members {
		for _, a := range m.Attacks {
			incoming[a.DefenderTag] = append(incoming[a.DefenderTag], a)
		}
	}

	members := make([]clashapi.WarMember, len(war.Clan.Members))
	copy(members, war.Clan.Members)
	sort.SliceStable(members, func(i, j int) bool { return members[i].MapPosition < members[j].MapPosition })

	rows := make([]warstatsdb.WarStat, 0, len(members))
	for _, m := range members {
		var hit, def warstatsdb.Fraction
		for _, a := range m.Attacks {
			if th[a.DefenderTag] < m.TownhallLevel {
				continue
			}
			hit.Den++
			if a.Stars == 3 {
				hit.Num++
			}
		}
		for _, a := range incoming[m.Tag] {
			if th[a.AttackerTag] != m.TownhallLevel {
				continue
			}
			def.Den++
			if a.Stars != 3 {
				def.Num++
			}
		}
		rows = append(rows, warstatsdb.WarStat{
			WarNo:       1,
			Name:        m.Name,
			Tag:         m.Tag,
			TH:          m.TownhallLevel,
			HitRate:     hit,
			DefenseRate: def,
		})
	}
	return rows
}
