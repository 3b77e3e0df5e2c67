package domain

import "errors"

// Error taxonomy shared by every service. Wrap with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrConflict            = errors.New("already exists")
)
