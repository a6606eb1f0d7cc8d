package warningservice

import (
	"context"

	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
)

// Service manages moderator warnings.
type Service interface {
	// Warn records a warning, DMs the user and notifies leaders.
	Warn(ctx context.Context, req WarnRequest) (*WarnResult, error)
	Remove(ctx context.Context, id int64) (*warningdb.Warning, error)
	// Clear deactivates every active warning of userID.
	Clear(ctx context.Context, userID int64) (int, error)
	// Active lists active warnings of userID, or of everyone when 0.
	Active(ctx context.Context, userID int64) ([]warningdb.Warning, error)
	// ExpireDue deactivates due warnings and announces each removal.
	ExpireDue(ctx context.Context) ([]warningdb.Warning, error)
}

// DirectMessenger sends a private message to a user.
type DirectMessenger interface {
	DirectMessage(ctx context.Context, userID int64, content string) error
}

// WarnRequest is a moderator's warning.
type WarnRequest struct {
	UserID        int64
	ModeratorID   int64
	ModeratorName string
	Reason        string
	// Expires is free text such as "in 3 days"; empty means DefaultExpiry.
	Expires string
}

// WarnResult is the stored warning plus delivery status.
type WarnResult struct {
	Warning *warningdb.Warning
	// DMFailed is set when the user could not be messaged.
	DMFailed bool
}
