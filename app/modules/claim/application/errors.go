package claimservice

import (
	"errors"

	claimdb "github.com/aussie-warriors/awbot/app/modules/claim/infrastructure/repositories"
)

var (
	// ErrPlayerNotFound means no tracked clan member matched a name.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrAmbiguousName means a name matched more than one account.
	ErrAmbiguousName = errors.New("name matches more than one account")

	ErrAlreadyClaimed = claimdb.ErrAlreadyClaimed
	ErrNotFound       = claimdb.ErrNotFound
)

// isFailure reports whether err is a business failure the caller should
// show to the user rather than an infrastructure error.
func isFailure(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrAmbiguousName) ||
		errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, ErrNotFound)
}
