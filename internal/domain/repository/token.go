package repository

import (
	"context"
	"time"
)

// TokenState es el estado de un refresh token: Active -> Rotated -> Revoked.
// Revoked es terminal.
type TokenState string

const (
	TokenActive  TokenState = "active"
	TokenRotated TokenState = "rotated"
	TokenRevoked TokenState = "revoked"
)

// RefreshToken es un eslabón de una familia de rotación. Solo se guarda el hash.
type RefreshToken struct {
	ID            string
	FamilyID      string
	UserID        string
	TokenHash     string
	PredecessorID *string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RotatedAt     *time.Time
	Revoked       bool
	RevokedAt     *time.Time
	UserAgent     string
	IP            string
}

// State deriva el estado del registro.
func (t *RefreshToken) State() TokenState {
	switch {
	case t.Revoked:
		return TokenRevoked
	case t.RotatedAt != nil:
		return TokenRotated
	default:
		return TokenActive
	}
}

// TokenRepository define operaciones sobre refresh tokens.
type TokenRepository interface {
	// Create inserta un token nuevo (inicio de familia).
	Create(ctx context.Context, t RefreshToken) error

	// GetByHash busca por hash. ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// GetByID busca por id. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*RefreshToken, error)

	// Rotate marca oldID como Rotated e inserta next, atómicamente.
	// El cambio de estado es un compare-and-swap: si oldID no está Active
	// (rotado o revocado por otro request) retorna ErrTokenNotActive y no inserta.
	Rotate(ctx context.Context, oldID string, next RefreshToken) error

	// RevokeFamily revoca todos los tokens de la familia. Retorna cuántos cambiaron.
	RevokeFamily(ctx context.Context, familyID string) (int, error)

	// RevokeAllByUser revoca todos los tokens activos del usuario.
	RevokeAllByUser(ctx context.Context, userID string) (int, error)

	// ListActiveByUser devuelve los tokens activos y no expirados del usuario.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]RefreshToken, error)
}
