package warroledb

import (
	"time"

	"github.com/uptrace/bun"
)

// LastWar is one (tag, user) pair that held the war role after the last
// reconciliation.
type LastWar struct {
	bun.BaseModel `bun:"table:last_war,alias:lw"`

	Tag    string `bun:"tag,pk"`
	UserID int64  `bun:"userid,notnull"`
}

// RosterState stamps the last_war contents with a version per clan.
type RosterState struct {
	bun.BaseModel `bun:"table:war_roster_state,alias:rs"`

	ClanTag   string    `bun:"clan_tag,pk"`
	Version   int64     `bun:"version,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Roster is the persisted roster with the version it was read at.
type Roster struct {
	Entries []LastWar
	Version int64
}

// Tags returns the roster's tags.
func (r Roster) Tags() []string {
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Tag)
	}
	return out
}
