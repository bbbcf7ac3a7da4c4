package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Category classifies a failed backend call.
type Category int

const (
	CategoryNone Category = iota
	CategoryNetwork
	CategoryValidation
	CategoryNotFound
	CategoryConflict
	CategoryServer
)

func (c Category) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryValidation:
		return "validation"
	case CategoryNotFound:
		return "not_found"
	case CategoryConflict:
		return "conflict"
	case CategoryServer:
		return "server"
	default:
		return "none"
	}
}

// Sentinels for errors.Is checks against *Error values.
var (
	ErrNetwork    = errors.New("backend unreachable")
	ErrValidation = errors.New("request rejected by backend")
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record conflicts with existing data")
	ErrServer     = errors.New("backend failure")
)

// Error is returned for every failed backend call. Status is 0 for network
// failures.
type Error struct {
	Category Category
	Status   int
	Message  string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel belonging to the error's category.
func (e *Error) Is(target error) bool {
	return target != nil && target == sentinel(e.Category)
}

func sentinel(c Category) error {
	switch c {
	case CategoryNetwork:
		return ErrNetwork
	case CategoryValidation:
		return ErrValidation
	case CategoryNotFound:
		return ErrNotFound
	case CategoryConflict:
		return ErrConflict
	case CategoryServer:
		return ErrServer
	}
	return nil
}

// Classify maps an HTTP status to a category. Success statuses map to
// CategoryNone.
func Classify(status int) Category {
	switch {
	case status < 400:
		return CategoryNone
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusConflict:
		return CategoryConflict
	case status >= 500:
		return CategoryServer
	default:
		return CategoryValidation
	}
}

// CategoryOf extracts the category of err, or CategoryNone when err is not a
// backend error.
func CategoryOf(err error) Category {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return CategoryNone
}

// Message returns the text shown to users for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

const maxMessageLen = 500

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// messageFromBody extracts a human-readable message from an error response.
// The backend answers with JSON objects carrying "message" or "error", or
// with a plain sentence.
func messageFromBody(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text != "" && (text[0] == '{') {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil {
			for _, key := range []string{"message", "error", "detail"} {
				if s, ok := payload[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	if text != "" && text[0] != '<' {
		return truncate(text, maxMessageLen)
	}
	if s := http.StatusText(status); s != "" {
		return s
	}
	return fmt.Sprintf("unexpected status %d", status)
}
