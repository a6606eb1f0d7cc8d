package warningservice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DefaultExpiry applies when a warning names no expiry.
const DefaultExpiry = 7 * 24 * time.Hour

var (
	parser = newParser()
	// "3d", "2w" and "12h" are common shorthand that when does not read.
	shorthand = regexp.MustCompile(`^(\d+)\s*([hdw])$`)
	units     = map[string]time.Duration{"h": time.Hour, "d": 24 * time.Hour, "w": 7 * 24 * time.Hour}
)

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseExpiry turns free text into an absolute expiry after now.
func ParseExpiry(text string, now time.Time) (time.Time, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return now.Add(DefaultExpiry), nil
	}

	if m := shorthand.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, text)
		}
		return now.Add(time.Duration(n) * units[m[2]]), nil
	}

	r, err := parser.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidExpiry, text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, text)
	}
	if !r.Time.After(now) {
		return time.Time{}, fmt.Errorf("%w: %q is not in the future", ErrInvalidExpiry, text)
	}
	return r.Time, nil
}

// FormatReason builds the stored reason text.
func FormatReason(moderator, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Sprintf("Warned by %s (no reason)", moderator)
	}
	return fmt.Sprintf("Warned by %s Reason: %s", moderator, reason)
}
