package warningdb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository defines the contract for warning persistence.
//
// Error semantics:
//   - ErrNotFound: no warning has the id
type Repository interface {
	Insert(ctx context.Context, db bun.IDB, w *Warning) error
	Get(ctx context.Context, db bun.IDB, id int64) (*Warning, error)
	Deactivate(ctx context.Context, db bun.IDB, id int64) error
	// DeactivateUser returns how many active warnings were closed.
	DeactivateUser(ctx context.Context, db bun.IDB, userID int64) (int, error)
	// ListActive lists active warnings for userID, or for everyone when
	// userID is 0, soonest expiry first.
	ListActive(ctx context.Context, db bun.IDB, userID int64) ([]Warning, error)
	// ListDue lists active warnings whose expiry is at or before now.
	ListDue(ctx context.Context, db bun.IDB, now time.Time) ([]Warning, error)
}
