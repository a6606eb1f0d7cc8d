package warningdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Warning is a moderator warning. Inactive rows are kept for history.
type Warning struct {
	bun.BaseModel `bun:"table:warnings,alias:w"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64     `bun:"user_id,notnull" json:"user_id"`
	Reason    string    `bun:"reason,notnull" json:"reason"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	Active    bool      `bun:"active,notnull" json:"active"`
}
