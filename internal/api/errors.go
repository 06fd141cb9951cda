package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure kinds reported by the backend. A *RemoteError matches its kind with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrConflict   = errors.New("conflict")
	ErrNetwork    = errors.New("network error")
	ErrServer     = errors.New("server error")
)

// RemoteError is a failed remote call. Message is the backend's own description when it
// sent one and is meant to be shown to the user verbatim.
type RemoteError struct {
	Kind    error
	Status  int
	Method  string
	Path    string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s failed", e.Method, e.Path)
}

func (e *RemoteError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *RemoteError) Unwrap() error { return e.Err }

// kindForStatus maps an HTTP status onto the failure taxonomy.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrPermission
	case status == http.StatusNotFound || status == http.StatusGone:
		return ErrNotFound
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return ErrConflict
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return ErrNetwork
	default:
		return ErrServer
	}
}

func transportError(method, path string, err error) *RemoteError {
	msg := ""
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &RemoteError{Kind: ErrNetwork, Method: method, Path: path, Message: msg, Err: err}
}

// KindOf returns the taxonomy kind of err, or nil when err is not a remote failure.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrPermission, ErrConflict, ErrNetwork, ErrServer} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
