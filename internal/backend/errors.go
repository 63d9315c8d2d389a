package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Category tells callers whether retrying a failed request can help.
type Category int

const (
	// Transient failures may succeed later.
	Transient Category = iota
	// Permanent failures will fail the same way on every replay.
	Permanent
)

func (c Category) String() string {
	if c == Permanent {
		return "permanent"
	}
	return "transient"
}

// ErrUnauthorized is wrapped by errors for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// Error describes a failed API call.
type Error struct {
	Op       string // e.g. "PATCH /grocery/l1/items/i1"
	Status   int    // zero when no response was received
	Category Category
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("api %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsPermanent reports whether err is a backend error that replay cannot fix.
func IsPermanent(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Category == Permanent
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func categorizeStatus(status int) Category {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed,
		http.StatusGone, http.StatusUnprocessableEntity:
		return Permanent
	default:
		return Transient
	}
}
