package warningservice

import (
	"errors"

	warningdb "github.com/aussie-warriors/awbot/app/modules/warning/infrastructure/repositories"
)

var (
	ErrNotFound = warningdb.ErrNotFound
	// ErrInvalidExpiry means the expiry text did not parse to a future time.
	ErrInvalidExpiry = errors.New("invalid expiry")
)

func isFailure(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidExpiry)
}
