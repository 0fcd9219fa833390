package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	// ErrUnauthorized is matched by 401 responses and by calls made without a token
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is matched by 404 responses
	ErrNotFound = errors.New("not found")
	// ErrBadRequest is matched by 400 responses
	ErrBadRequest = errors.New("bad request")

	errNoToken = fmt.Errorf("%w: no session token", ErrUnauthorized)
)

// APIError is a non-2xx response from the store
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is maps status codes to the package sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// UserMessage returns a message suitable for showing at the point of a user action
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "You are not logged in. Run `login` first."
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.As(err, &apiErr):
		return http.StatusText(apiErr.StatusCode)
	default:
		return err.Error()
	}
}

const maxDetailLength = 200

// parseDetail extracts a message from an error body. The store answers with
// {"detail": ...}, {"error": ...}, a field error map or a bare string.
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload map[string]interface{}
	if err := sonic.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "error"} {
			if v, ok := payload[key].(string); ok && v != "" {
				return v
			}
		}
		fields := make([]string, 0, len(payload))
		for key, v := range payload {
			fields = append(fields, fmt.Sprintf("%s: %v", key, flatten(v)))
		}
		if len(fields) > 0 {
			sort.Strings(fields)
			return strings.Join(fields, "; ")
		}
	}

	var s string
	if err := sonic.Unmarshal(body, &s); err == nil {
		return s
	}

	if len(trimmed) > maxDetailLength {
		trimmed = trimmed[:maxDetailLength] + "..."
	}
	return trimmed
}

func flatten(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
