package adminservice

import (
	"errors"

	"github.com/aussie-warriors/awbot/internal/settings"
)

var (
	ErrUnknownSetting = settings.ErrUnknownKey
	// ErrNoRefresher means the developer portal login is not configured.
	ErrNoRefresher = errors.New("key refresh is not configured")
)

func isFailure(err error) bool {
	return errors.Is(err, ErrUnknownSetting) || errors.Is(err, ErrNoRefresher)
}
