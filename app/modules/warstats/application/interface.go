package warstatsservice

import (
	"context"

	warstatsdb "github.com/aussie-warriors/awbot/app/modules/warstats/infrastructure/repositories"
)

// Service records and reports war statistics.
type Service interface {
	// Collect stores the home clan's current war once it has ended.
	Collect(ctx context.Context) (*CollectResult, error)
	// PlayerStats sums a player's rows over the window. query is a tag or
	// an in-game name.
	PlayerStats(ctx context.Context, query string) (*PlayerStats, error)
	// HitRateChart renders the player's hit rate per war as PNG.
	HitRateChart(ctx context.Context, stats *PlayerStats) ([]byte, error)
	// Dump exports every row as an xlsx workbook.
	Dump(ctx context.Context) ([]byte, error)
	// RenamePlayer rewrites the stored name for tag.
	RenamePlayer(ctx context.Context, tag, name string) error
}

// Toggles reads runtime switches.
type Toggles interface {
	Enabled(key string) bool
}

// Skip reasons reported by Collect.
const (
	SkipDisabled = "stats collection is disabled"
	SkipNotEnded = "war has not ended"
	SkipRecorded = "war already recorded"
)

// CollectResult reports one collection run.
type CollectResult struct {
	State    string
	WarKey   string
	Opponent string
	Rows     int
	// Skipped is empty when rows were written.
	Skipped string
}

// PlayerStats is a player's record over the window, oldest war first.
type PlayerStats struct {
	Tag         string
	Name        string
	TH          int
	Wars        []warstatsdb.WarStat
	HitRate     warstatsdb.Fraction
	DefenseRate warstatsdb.Fraction
}
