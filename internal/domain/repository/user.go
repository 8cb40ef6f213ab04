package repository

import (
	"context"
	"time"
)

// User es el usuario local del broker. Email se guarda en minúsculas y no es
// único: dos usuarios pueden compartirlo si el segundo no calificó para auto-link.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileUpdate cambia solo los campos no nil. "" limpia el campo.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
}

// Empty es true si no hay nada que cambiar.
func (p ProfileUpdate) Empty() bool { return p.DisplayName == nil && p.AvatarURL == nil }

// UserRepository define operaciones sobre usuarios.
// La creación va siempre junto a su primer link (AccountRepository.CreateUserWithLink).
type UserRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail busca por email normalizado (lowercase). Con varios usuarios
	// devuelve el más antiguo. ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update aplica el cambio de perfil y devuelve el usuario actualizado.
	// ErrNotFound si no existe.
	Update(ctx context.Context, id string, p ProfileUpdate) (*User, error)

	// Delete borra el usuario junto con sus links y refresh tokens.
	// ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error
}
