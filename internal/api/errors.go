package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Common backend errors.
var (
	// ErrAuthRequired is returned before any network call when a protected
	// operation is attempted without a credential.
	ErrAuthRequired = errors.New("authentication required; run 'libctl login'")
	// ErrUnauthorized is returned when the server rejects the credential.
	ErrUnauthorized = errors.New("unauthorized; the session is missing or expired")
	// ErrForbidden is returned when the credential lacks permission.
	ErrForbidden = errors.New("forbidden; this action needs an admin account")
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a resource already exists.
	ErrConflict = errors.New("conflict")
	// ErrNetwork is returned when the request could not complete.
	ErrNetwork = errors.New("network failure")
	// ErrTimeout is returned when the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// Error is a server rejection without a dedicated sentinel, typically a
// validation or business-rule failure such as an unavailable book.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request (%d)", e.StatusCode)
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err means the user must log in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrAuthRequired)
}

// IsRejected reports whether the server answered with an error status.
func IsRejected(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict)
}

// checkStatus returns a typed error for non-2xx responses.
func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
}

// errorMessage pulls a human-readable message out of an error body. The
// backend answers with {"error": ...}, {"detail": ...} or field errors.
func errorMessage(body []byte) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, k := range []string{"error", "detail", "message"} {
		if s, ok := fields[k].(string); ok && s != "" {
			return s
		}
	}
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case []interface{}:
			msgs := make([]string, 0, len(val))
			for _, m := range val {
				msgs = append(msgs, fmt.Sprint(m))
			}
			parts = append(parts, k+": "+strings.Join(msgs, " "))
		default:
			parts = append(parts, fmt.Sprintf("%s: %v", k, val))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
