package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto de unicidad (ej: (provider, subject) ya vinculado).
	ErrConflict = errors.New("conflict")

	// ErrLastIdentity indica que no se puede eliminar el último método de autenticación.
	ErrLastIdentity = errors.New("cannot remove last identity")

	// ErrTokenNotActive indica que el CAS de rotación no encontró el token en estado Active.
	ErrTokenNotActive = errors.New("refresh token not active")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
