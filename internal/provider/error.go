package provider

import (
	"errors"
	"fmt"
)

const maxErrorBody = 512

// Error is a typed generation failure carrying the upstream status and a
// truncated response body for diagnostics. Providers return it for every
// non-2xx or malformed response, so callers can tell a failed call apart
// from a genuinely empty reply.
type Error struct {
	Provider string
	Status   int // 0 when the failure happened before an HTTP status existed
	Body     string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Body)
}

func newError(name string, status int, body []byte) *Error {
	return &Error{Provider: name, Status: status, Body: truncate(string(body))}
}

// asError converts any transport-phase failure into a typed *Error tagged
// with the provider name, preserving status and body when already present.
func asError(name string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			pe.Provider = name
		}
		return pe
	}
	return &Error{Provider: name, Body: truncate(err.Error())}
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
