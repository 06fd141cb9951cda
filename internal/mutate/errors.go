package mutate

import (
	"errors"
	"fmt"

	"kanban-cli/internal/api"
	"kanban-cli/internal/validation"
)

// ValidationError is raised locally, before any store write or remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func (e ValidationError) Is(target error) bool { return target == api.ErrValidation }

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == api.ErrNotFound }

// PermissionError is a membership rule that failed locally.
type PermissionError struct {
	Action  string
	ActorID string
	BoardID string
}

func (e PermissionError) Error() string {
	return fmt.Sprintf("not allowed to %s on board %s", e.Action, e.BoardID)
}

func (e PermissionError) Is(target error) bool { return target == api.ErrPermission }

// validationFrom converts a validator failure into a ValidationError for the first field.
func validationFrom(err error) error {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return err
	}
	if len(verr.Fields) != 1 {
		return ValidationError{Message: verr.Error()}
	}
	for field, msg := range verr.Fields {
		return ValidationError{Field: field, Message: msg}
	}
	return nil
}
