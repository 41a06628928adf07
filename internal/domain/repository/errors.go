package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica una violación de unicidad.
	ErrConflict = errors.New("conflict")

	// ErrUsernameTaken: username unique index violated.
	ErrUsernameTaken = fmtConflict("username already taken")

	// ErrProviderLinked: linked_provider_id unique index violated.
	ErrProviderLinked = fmtConflict("provider id already linked")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")
)

type conflictError struct{ msg string }

func fmtConflict(msg string) error { return &conflictError{msg: msg} }

func (e *conflictError) Error() string { return e.msg }
func (e *conflictError) Unwrap() error { return ErrConflict }

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es una violación de unicidad.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
