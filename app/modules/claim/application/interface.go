package claimservice

import (
	"context"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
	"github.com/aussie-warriors/awbot/config"
	"github.com/aussie-warriors/awbot/internal/clashapi"
)

// Service manages claims.
type Service interface {
	// Claim links the account named by query (tag or in-game name) to userID.
	Claim(ctx context.Context, userID int64, query string) (*claimdb.Claim, error)
	// Unclaim removes the claim named by query (tag or claimed name).
	Unclaim(ctx context.Context, query string) (*claimdb.Claim, error)
	// Lookup finds the claim named by query.
	Lookup(ctx context.Context, query string) (*claimdb.Claim, error)

	UserClaims(ctx context.Context, userID int64) ([]claimdb.Claim, error)
	AllClaims(ctx context.Context) ([]claimdb.Claim, error)

	RefreshIGN(ctx context.Context, tag string) (*RenameResult, error)
	RefreshAllIGNs(ctx context.Context) (*BulkRenameResult, error)

	SetExempt(ctx context.Context, query string, exempt bool) (*claimdb.Claim, error)
	ListExempt(ctx context.Context) ([]claimdb.Claim, error)

	ClanRoster(ctx context.Context, clan config.Clan) (*ClanRoster, error)

	// Resolve maps claimed tags to their owners.
	Resolve(ctx context.Context, tags []string) (map[string]int64, error)

	Import(ctx context.Context, rows []ImportRow) (*ImportResult, error)
}

// NameSyncer propagates an in-game name change to other tables.
type NameSyncer interface {
	RenamePlayer(ctx context.Context, tag, name string) error
}

// RenameResult reports one IGN refresh.
type RenameResult struct {
	Tag     string
	OldName string
	NewName string
}

// BulkRenameResult reports an IGN refresh over every claim.
type BulkRenameResult struct {
	Renamed []RenameResult
	Failed  []string
}

// RosterEntry is a clan member with its claim owner.
type RosterEntry struct {
	Member clashapi.ClanMember
	UserID int64
}

// ClanRoster splits a clan's members by claim state.
type ClanRoster struct {
	Clan      config.Clan
	Claimed   []RosterEntry
	Unclaimed []clashapi.ClanMember
}

// ImportRow is one row of a claims spreadsheet.
type ImportRow struct {
	UserID int64
	IGN    string
	Tag    string
}

// ImportResult reports a bulk import.
type ImportResult struct {
	Inserted int
	Skipped  []string
}
