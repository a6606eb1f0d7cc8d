package warstatsservice

import "errors"

var (
	// ErrNoStats means the player has no rows in the window.
	ErrNoStats = errors.New("no war stats recorded for player")
	// ErrAmbiguousName means several tags share the queried name.
	ErrAmbiguousName = errors.New("name matches more than one player")
)

func isFailure(err error) bool {
	return errors.Is(err, ErrNoStats) || errors.Is(err, ErrAmbiguousName)
}
