package repository

import (
	"context"
	"time"
)

// LinkedAccount vincula una identidad externa (provider, subject) a un usuario.
type LinkedAccount struct {
	ID            string
	UserID        string
	Provider      string
	Subject       string
	ProviderEmail string
	// Perfil que informó el proveedor en el último login; sirve para
	// restaurar nombre y avatar del usuario.
	ProviderDisplayName string
	ProviderAvatarURL   string
	CreatedAt           time.Time
}

// AccountRepository define operaciones sobre cuentas vinculadas.
type AccountRepository interface {
	// FindLink busca por (provider, subject). ErrNotFound si no existe.
	FindLink(ctx context.Context, provider, subject string) (*LinkedAccount, error)

	// ListByUser devuelve los links del usuario ordenados por fecha de creación.
	ListByUser(ctx context.Context, userID string) ([]LinkedAccount, error)

	// CreateUserWithLink crea usuario y link en una sola transacción.
	// ErrConflict si el (provider, subject) ya existe.
	CreateUserWithLink(ctx context.Context, u User, l LinkedAccount) (*User, *LinkedAccount, error)

	// Link agrega un link a un usuario existente. ErrConflict si (provider, subject) ya existe.
	Link(ctx context.Context, l LinkedAccount) (*LinkedAccount, error)

	// UpdateProviderProfile guarda el nombre y avatar que informó el proveedor.
	// ErrNotFound si el link no existe.
	UpdateProviderProfile(ctx context.Context, linkID, displayName, avatarURL string) error

	// Unlink borra el link del usuario para ese proveedor.
	// ErrNotFound si no existe; ErrLastIdentity si es el único método del usuario.
	// Conteo y borrado ocurren en la misma transacción.
	Unlink(ctx context.Context, userID, provider string) (*LinkedAccount, error)
}
