package claimdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for claim persistence.
//
// Error semantics:
//   - ErrNotFound: no claim exists for the tag
//   - ErrAlreadyClaimed: the tag is already claimed by someone
type Repository interface {
	// Insert writes the claim and its tag_to_id row.
	Insert(ctx context.Context, db bun.IDB, claim *Claim) error

	// Delete removes the claim and its tag_to_id row, returning the removed claim.
	Delete(ctx context.Context, db bun.IDB, tag string) (*Claim, error)

	GetByTag(ctx context.Context, db bun.IDB, tag string) (*Claim, error)

	// FindByIGN matches names case-insensitively.
	FindByIGN(ctx context.Context, db bun.IDB, ign string) ([]Claim, error)

	ListByUser(ctx context.Context, db bun.IDB, userID int64) ([]Claim, error)
	ListAll(ctx context.Context, db bun.IDB) ([]Claim, error)
	ListExempt(ctx context.Context, db bun.IDB) ([]Claim, error)

	// ResolveTags maps each claimed tag in tags to its owner. Unclaimed tags
	// are absent from the result.
	ResolveTags(ctx context.Context, db bun.IDB, tags []string) (map[string]int64, error)

	UpdateIGN(ctx context.Context, db bun.IDB, tag, ign string) error
	SetExempt(ctx context.Context, db bun.IDB, tag string, exempt bool) error
}
