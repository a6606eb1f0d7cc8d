package donationservice

import (
	"errors"

	donationdb "github.com/aussie-warriors/awbot/app/modules/donation/infrastructure/repositories"
)

var (
	ErrNoActiveSeason = donationdb.ErrNoActiveSeason
	ErrNoAverage      = donationdb.ErrNotFound
	// ErrNoClaims means the user has no claimed accounts.
	ErrNoClaims = errors.New("no claimed accounts")
	// ErrUnknownClan means the clan is not tracked.
	ErrUnknownClan = errors.New("clan is not tracked")
)

func isFailure(err error) bool {
	return errors.Is(err, ErrNoActiveSeason) ||
		errors.Is(err, ErrNoAverage) ||
		errors.Is(err, ErrNoClaims) ||
		errors.Is(err, ErrUnknownClan)
}
