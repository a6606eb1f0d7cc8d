package clashapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// War states reported by the current war endpoint.
const (
	WarStateNotInWar    = "notInWar"
	WarStatePreparation = "preparation"
	WarStateInWar       = "inWar"
	WarStateEnded       = "warEnded"
)

// DonationAchievement tracks lifetime troop donations.
const DonationAchievement = "Friend in Need"

const timestampLayout = "20060102T150405.000Z"

// Timestamp decodes the API's compact UTC time format.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(timestampLayout, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(timestampLayout))
}

// ClanMember is an entry in a clan's member list.
type ClanMember struct {
	Tag               string `json:"tag"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	TownHallLevel     int    `json:"townHallLevel"`
	ExpLevel          int    `json:"expLevel"`
	Donations         int    `json:"donations"`
	DonationsReceived int    `json:"donationsReceived"`
}

// Clan is the clan profile.
type Clan struct {
	Tag            string       `json:"tag"`
	Name           string       `json:"name"`
	ClanLevel      int          `json:"clanLevel"`
	Members        int          `json:"members"`
	WarWins        int          `json:"warWins"`
	WarTies        int          `json:"warTies"`
	WarLosses      int          `json:"warLosses"`
	WarWinStreak   int          `json:"warWinStreak"`
	IsWarLogPublic bool         `json:"isWarLogPublic"`
	MemberList     []ClanMember `json:"memberList"`
}

// Attack is a single war attack.
type Attack struct {
	AttackerTag           string  `json:"attackerTag"`
	DefenderTag           string  `json:"defenderTag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Order                 int     `json:"order"`
}

// WarMember is a roster entry on one side of a war.
type WarMember struct {
	Tag             string   `json:"tag"`
	Name            string   `json:"name"`
	TownhallLevel   int      `json:"townhallLevel"`
	MapPosition     int      `json:"mapPosition"`
	Attacks         []Attack `json:"attacks"`
	OpponentAttacks int      `json:"opponentAttacks"`
}

// WarClan is one side of a war.
type WarClan struct {
	Tag                   string      `json:"tag"`
	Name                  string      `json:"name"`
	ClanLevel             int         `json:"clanLevel"`
	Attacks               int         `json:"attacks"`
	Stars                 int         `json:"stars"`
	DestructionPercentage float64     `json:"destructionPercentage"`
	Members               []WarMember `json:"members"`
}

// War is the current (or most recent) war of a clan.
type War struct {
	State                string    `json:"state"`
	TeamSize             int       `json:"teamSize"`
	AttacksPerMember     int       `json:"attacksPerMember"`
	PreparationStartTime Timestamp `json:"preparationStartTime"`
	StartTime            Timestamp `json:"startTime"`
	EndTime              Timestamp `json:"endTime"`
	Clan                 WarClan   `json:"clan"`
	Opponent             WarClan   `json:"opponent"`
}

// MemberTags returns the home side's roster tags.
func (w *War) MemberTags() []string {
	if w == nil || w.State == WarStateNotInWar {
		return nil
	}
	tags := make([]string, 0, len(w.Clan.Members))
	for _, m := range w.Clan.Members {
		tags = append(tags, m.Tag)
	}
	return tags
}

// Key identifies a war across polls.
func (w *War) Key() string {
	return fmt.Sprintf("%s:%s:%s", w.Clan.Tag, w.Opponent.Tag, w.PreparationStartTime.UTC().Format(timestampLayout))
}

// AttacksPerSide is the number of attacks available to one side.
func (w *War) AttacksPerSide() int {
	per := w.AttacksPerMember
	if per == 0 {
		per = 2
	}
	return w.TeamSize * per
}

// Achievement is a player achievement.
type Achievement struct {
	Name    string `json:"name"`
	Stars   int    `json:"stars"`
	Value   int    `json:"value"`
	Target  int    `json:"target"`
	Info    string `json:"info"`
	Village string `json:"village"`
}

// PlayerClan is the clan summary embedded in a player profile.
type PlayerClan struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// Player is a player profile.
type Player struct {
	Tag               string        `json:"tag"`
	Name              string        `json:"name"`
	TownHallLevel     int           `json:"townHallLevel"`
	ExpLevel          int           `json:"expLevel"`
	Trophies          int           `json:"trophies"`
	Donations         int           `json:"donations"`
	DonationsReceived int           `json:"donationsReceived"`
	Clan              *PlayerClan   `json:"clan"`
	Achievements      []Achievement `json:"achievements"`
}

// AchievementValue returns the value of the named achievement, or 0.
func (p *Player) AchievementValue(name string) int {
	for _, a := range p.Achievements {
		if a.Name == name {
			return a.Value
		}
	}
	return 0
}

// LifetimeDonations reads the "Friend in Need" achievement.
func (p *Player) LifetimeDonations() int {
	return p.AchievementValue(DonationAchievement)
}

// ClanName returns the player's clan name, or "" when clanless.
func (p *Player) ClanName() string {
	if p.Clan == nil {
		return ""
	}
	return p.Clan.Name
}

// NormalizeTag upper-cases a tag, swaps the letter O for zero and ensures
// the leading '#'.
func NormalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	tag = strings.TrimPrefix(tag, "#")
	tag = strings.ReplaceAll(tag, "O", "0")
	if tag == "" {
		return ""
	}
	return "#" + tag
}

// LooksLikeTag reports whether s is plausibly a tag rather than a name.
func LooksLikeTag(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") || len(s) < 4 {
		return false
	}
	for _, r := range strings.ToUpper(s[1:]) {
		if !strings.ContainsRune("0289PYLQGRJCUVO", r) {
			return false
		}
	}
	return true
}
