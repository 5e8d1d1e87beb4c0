package services

import (
	"errors"

	"github.com/fahndung/backend/internal/models"
)

var (
	// ErrNotFound is returned when an investigation, image or user does not exist or is not visible to the caller
	ErrNotFound = models.ErrNotFound
	// ErrForbidden is returned when the caller's role does not allow the operation
	ErrForbidden = errors.New("operation not permitted")
	// ErrValidation wraps every input validation failure
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a unique value is already taken
	ErrConflict = errors.New("already exists")
)

// Actor is the caller of a service operation
type Actor struct {
	UserID string
	Role   models.Role
}

// ActorFromSession builds the actor of an authenticated session; a nil session is anonymous
func ActorFromSession(s *models.Session) Actor {
	if s == nil {
		return Actor{}
	}
	return Actor{UserID: s.User.ID, Role: s.Role()}
}

// Permissions returns what the actor may do
func (a Actor) Permissions() models.Permissions {
	return models.PermissionsFor(a.Role)
}
