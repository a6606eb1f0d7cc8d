package warroleservice

import (
	"errors"

	warroledb "github.com/aussie-warriors/awbot/app/modules/warrole/infrastructure/repositories"
)

var (
	// ErrNotInWar means a manual change named a player outside the current war.
	ErrNotInWar = errors.New("player is not in the current war")
	// ErrUnclaimed means the account has no claim.
	ErrUnclaimed = errors.New("account is not claimed")
	// ErrAmbiguousName means a name matched more than one war member.
	ErrAmbiguousName = errors.New("name matches more than one war member")

	ErrNotOnRoster = warroledb.ErrNotFound
)

func isFailure(err error) bool {
	return errors.Is(err, ErrNotInWar) ||
		errors.Is(err, ErrUnclaimed) ||
		errors.Is(err, ErrAmbiguousName) ||
		errors.Is(err, ErrNotOnRoster)
}
