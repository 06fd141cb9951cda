package cli

import (
	"errors"

	"kanban-cli/internal/api"
	"kanban-cli/internal/session"
	"kanban-cli/internal/validation"
)

// Exit codes by error kind; anything unclassified exits 1.
const (
	exitFailure    = 1
	exitValidation = 2
	exitPermission = 3
	exitNotFound   = 4
	exitConflict   = 5
	exitNetwork    = 6
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var verr *validation.Error
	switch {
	case err == nil:
		return 0
	case errors.Is(err, api.ErrValidation), errors.As(err, &verr):
		return exitValidation
	case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, api.ErrPermission):
		return exitPermission
	case errors.Is(err, api.ErrNotFound):
		return exitNotFound
	case errors.Is(err, api.ErrConflict):
		return exitConflict
	case errors.Is(err, api.ErrNetwork):
		return exitNetwork
	default:
		return exitFailure
	}
}
