package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/events"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// ErrNoProviderProfile: el link existe pero el proveedor nunca informó nombre ni avatar.
var ErrNoProviderProfile = errors.New("account: no provider profile stored")

// SessionRevoker revoca todas las sesiones (familias de refresh) del usuario.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) (int, error)
}

type ProfileDeps struct {
	Users    repository.UserRepository
	Accounts repository.AccountRepository
	Sessions SessionRevoker
	Events   events.Emitter
}

// Profiles maneja el perfil del usuario autenticado: lectura, edición,
// baja y restauración desde un proveedor vinculado.
type Profiles struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	sessions SessionRevoker
	events   events.Emitter
}

func NewProfiles(d ProfileDeps) *Profiles {
	em := d.Events
	if em == nil {
		em = events.Nop{}
	}
	return &Profiles{users: d.Users, accounts: d.Accounts, sessions: d.Sessions, events: em}
}

// Profile es el usuario con sus proveedores vinculados.
type Profile struct {
	User     *repository.User
	Accounts []repository.LinkedAccount
}

// Deleted resume una baja.
type Deleted struct {
	UserID          string
	Email           string
	Providers       []string
	RevokedSessions int
}

// SyncResult lista qué campos del perfil se copiaron del proveedor.
type SyncResult struct {
	Provider string
	Updated  []string
	User     *repository.User
}

func (p *Profiles) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component("profile"), logger.Op(op))
}

func (p *Profiles) user(ctx context.Context, userID string) (*repository.User, error) {
	u, err := p.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (p *Profiles) Get(ctx context.Context, userID string) (*Profile, error) {
	u, err := p.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	links, err := p.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Accounts: links}, nil
}

// Update aplica el cambio y devuelve el perfil junto con los campos que
// efectivamente cambiaron. Sin cambios no escribe ni emite eventos.
func (p *Profiles) Update(ctx context.Context, userID string, upd repository.ProfileUpdate) (*Profile, []string, error) {
	cur, err := p.user(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	upd, changed := diff(cur, upd)
	if len(changed) > 0 {
		if _, err := p.users.Update(ctx, userID, upd); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil, ErrUserNotFound
			}
			return nil, nil, fmt.Errorf("account: update profile: %w", err)
		}
		p.log(ctx, "Update").Info("profile updated", logger.UserID(userID), logger.Any("changes", changed))
		p.events.Emit(ctx, events.New(events.UserUpdated, userID, map[string]any{"changes": changed}))
	}
	prof, err := p.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return prof, changed, nil
}

// Delete revoca todas las sesiones y borra el usuario con sus links.
// Los access tokens ya emitidos siguen válidos hasta su exp.
func (p *Profiles) Delete(ctx context.Context, userID string) (*Deleted, error) {
	prof, err := p.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(prof.Accounts))
	for _, la := range prof.Accounts {
		providers = append(providers, la.Provider)
	}

	n, err := p.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("account: revoke sessions: %w", err)
	}
	if err := p.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("account: delete user: %w", err)
	}

	p.log(ctx, "Delete").Info("user deleted", logger.UserID(userID), logger.Int("revoked_sessions", n))
	p.events.Emit(ctx, events.New(events.UserDeleted, userID, map[string]any{
		"email":           prof.User.Email,
		"oauth_providers": providers,
	}))
	return &Deleted{UserID: userID, Email: prof.User.Email, Providers: providers, RevokedSessions: n}, nil
}

// SyncFromProvider copia al usuario el nombre y avatar que guardó el último
// login con ese proveedor.
func (p *Profiles) SyncFromProvider(ctx context.Context, userID, provider string) (*SyncResult, error) {
	links, err := p.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var la *repository.LinkedAccount
	for i := range links {
		if links[i].Provider == provider {
			la = &links[i]
			break
		}
	}
	if la == nil {
		return nil, ErrNotLinked
	}
	if la.ProviderDisplayName == "" && la.ProviderAvatarURL == "" {
		return nil, ErrNoProviderProfile
	}

	var upd repository.ProfileUpdate
	var updated []string
	if la.ProviderDisplayName != "" {
		upd.DisplayName = &la.ProviderDisplayName
		updated = append(updated, "display_name")
	}
	if la.ProviderAvatarURL != "" {
		upd.AvatarURL = &la.ProviderAvatarURL
		updated = append(updated, "avatar_url")
	}
	u, err := p.users.Update(ctx, userID, upd)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account: sync profile: %w", err)
	}

	p.log(ctx, "SyncFromProvider").Info("profile synced", logger.UserID(userID), logger.Provider(provider))
	p.events.Emit(ctx, events.New(events.UserUpdated, userID, map[string]any{
		"changes": updated,
		"source":  provider,
	}))
	return &SyncResult{Provider: provider, Updated: updated, User: u}, nil
}

// diff descarta de upd los campos que ya tienen ese valor.
func diff(cur *repository.User, upd repository.ProfileUpdate) (repository.ProfileUpdate, []string) {
	var out repository.ProfileUpdate
	var changed []string
	if upd.DisplayName != nil && *upd.DisplayName != cur.DisplayName {
		out.DisplayName = upd.DisplayName
		changed = append(changed, "display_name")
	}
	if upd.AvatarURL != nil && *upd.AvatarURL != cur.AvatarURL {
		out.AvatarURL = upd.AvatarURL
		changed = append(changed, "avatar_url")
	}
	return out, changed
}
