package clashapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned for a 404 from the API.
var ErrNotFound = errors.New("clash api: not found")

// APIError is a non-2xx response from the game API.
type APIError struct {
	StatusCode int    `json:"-"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("clash api: %d %s: %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("clash api: %d %s", e.StatusCode, e.Reason)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsAccessDenied reports a rejected token or a key bound to another IP.
func (e *APIError) IsAccessDenied() bool {
	return e.StatusCode == http.StatusForbidden && strings.HasPrefix(e.Reason, "accessDenied")
}

// IsMaintenance reports the API's maintenance window.
func (e *APIError) IsMaintenance() bool {
	return e.StatusCode == http.StatusServiceUnavailable || e.Reason == "inMaintenance"
}

// IsThrottled reports a rate-limit rejection.
func (e *APIError) IsThrottled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAccessDenied unwraps err and reports whether it is an access denial.
func IsAccessDenied(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsAccessDenied()
}

// Describe renders an API error for an operator message.
func Describe(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch {
	case apiErr.IsMaintenance():
		return "The game API is in maintenance."
	case apiErr.IsThrottled():
		return "The game API rate limit was hit."
	case apiErr.IsAccessDenied():
		return "The game API rejected the token (" + apiErr.Reason + ")."
	}
	return apiErr.Error()
}
