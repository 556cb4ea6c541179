package models

import "errors"

// Domain specific errors shared by services and handlers.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidRole     = errors.New("role is not one of rep, admin, superadmin")
	ErrOrderClosed     = errors.New("order is already delivered or cancelled")
)
