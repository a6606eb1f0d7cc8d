package warroledb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for war roster persistence.
//
// Error semantics:
//   - ErrRosterConflict: the roster changed since it was read
//   - ErrNotFound: RemoveEntry found no row for the tag
type Repository interface {
	// LoadRoster reads last_war and its version. A clan with no state row
	// has version 0.
	LoadRoster(ctx context.Context, db bun.IDB, clanTag string) (Roster, error)

	// ReplaceRoster swaps last_war for entries if the version still equals
	// expected, and returns the new version.
	ReplaceRoster(ctx context.Context, db bun.IDB, clanTag string, expected int64, entries []LastWar) (int64, error)

	// AddEntry upserts one pair and bumps the version.
	AddEntry(ctx context.Context, db bun.IDB, clanTag string, entry LastWar) error

	// RemoveEntry deletes one tag, bumps the version and returns the removed pair.
	RemoveEntry(ctx context.Context, db bun.IDB, clanTag, tag string) (*LastWar, error)
}
