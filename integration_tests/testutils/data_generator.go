//go:build integration

package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
)

const tagAlphabet = "0289PYLQGRJCUV"

// TestDataGenerator creates realistic rows for integration tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a generator with an optional seed.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// Seed returns the seed so failures can be replayed.
func (g *TestDataGenerator) Seed() int64 {
	return g.seed
}

// PlayerTag returns a tag built from the game's tag alphabet.
func (g *TestDataGenerator) PlayerTag() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = tagAlphabet[g.faker.Number(0, len(tagAlphabet)-1)]
	}
	return "#" + string(b)
}

// UserID returns a snowflake-sized Discord id.
func (g *TestDataGenerator) UserID() int64 {
	return int64(g.faker.Number(100000000000000000, 999999999999999999))
}

// IGN returns a plausible in-game name.
func (g *TestDataGenerator) IGN() string {
	return g.faker.Username()
}

// Claim builds an unsaved claim for userID.
func (g *TestDataGenerator) Claim(userID int64) *claimdb.Claim {
	start := g.faker.Number(0, 50000)
	return &claimdb.Claim{
		UserID:            userID,
		IGN:               g.IGN(),
		Tag:               g.PlayerTag(),
		StartingDonations: start,
		CurrentDonations:  start,
		Clan:              g.faker.Company(),
	}
}

// Warning builds an unsaved active warning created at now.
func (g *TestDataGenerator) Warning(userID int64, now time.Time, ttl time.Duration) *warningdb.Warning {
	return &warningdb.Warning{
		UserID:    userID,
		Reason:    g.faker.Sentence(6),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Active:    true,
	}
}

// WarStat builds a window row for tag.
func (g *TestDataGenerator) WarStat(tag, name string) warstatsdb.WarStat {
	attacks := g.faker.Number(0, 2)
	return warstatsdb.WarStat{
		Name:        name,
		Tag:         tag,
		TH:          g.faker.Number(9, 16),
		HitRate:     warstatsdb.Fraction{Num: g.faker.Number(0, attacks), Den: attacks},
		DefenseRate: warstatsdb.Fraction{Num: 0, Den: g.faker.Number(0, 3)},
	}
}
