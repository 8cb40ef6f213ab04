// Package account vincula identidades canónicas con usuarios locales:
// resolución en login, listado, link explícito y unlink con guardia de
// último método.
package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/events"
	"github.com/dropDatabas3/yesod/internal/identity"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

var (
	// ErrLastMethod: el link es el único método de autenticación del usuario.
	ErrLastMethod = errors.New("account: cannot unlink last authentication method")
	// ErrNotLinked: el usuario no tiene ese proveedor vinculado.
	ErrNotLinked = errors.New("account: provider not linked")
	// ErrAlreadyLinked: la identidad ya pertenece a otro usuario.
	ErrAlreadyLinked = errors.New("account: identity linked to another user")
	// ErrUserNotFound: el usuario del link explícito ya no existe.
	ErrUserNotFound = errors.New("account: user not found")
)

// Deps agrupa las dependencias del Resolver.
type Deps struct {
	Users    repository.UserRepository
	Accounts repository.AccountRepository
	Events   events.Emitter
	// TrustUnverifiedEmail permite auto-link por email cuando el proveedor no
	// informa el estado de verificación. Un email marcado sin verificar nunca linkea.
	TrustUnverifiedEmail bool
}

type Resolver struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	events   events.Emitter
	trust    bool
}

func NewResolver(d Deps) *Resolver {
	em := d.Events
	if em == nil {
		em = events.Nop{}
	}
	return &Resolver{users: d.Users, accounts: d.Accounts, events: em, trust: d.TrustUnverifiedEmail}
}

// Outcome describe cómo se resolvió la identidad.
type Outcome int

const (
	OutcomeExisting Outcome = iota // (provider, subject) ya vinculado
	OutcomeLinked                  // vinculado a un usuario existente por email
	OutcomeCreated                 // usuario nuevo
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLinked:
		return "linked"
	case OutcomeCreated:
		return "created"
	default:
		return "existing"
	}
}

type Result struct {
	User    *repository.User
	Outcome Outcome
}

// Created es true si el login creó el usuario.
func (r Result) Created() bool { return r.Outcome == OutcomeCreated }

func (r *Resolver) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component("account"), logger.Op(op))
}

// Resolve busca o crea el usuario para la identidad. Los eventos se emiten
// después de que el cambio quedó persistido.
func (r *Resolver) Resolve(ctx context.Context, id identity.Canonical) (*Result, error) {
	log := r.log(ctx, "Resolve").With(logger.Provider(id.Provider.String()))

	// 1. (provider, subject)
	if res, la, err := r.findByLink(ctx, id); err == nil {
		r.refreshProviderProfile(ctx, la, id, log)
		return res, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 2. email, solo si la identidad califica
	if r.canLinkByEmail(id) {
		u, err := r.users.GetByEmail(ctx, id.Email)
		switch {
		case err == nil:
			la, err := r.accounts.Link(ctx, linkFor(u.ID, id))
			if errors.Is(err, repository.ErrConflict) {
				// otro request vinculó la misma identidad primero
				return r.byLink(ctx, id)
			}
			if err != nil {
				return nil, fmt.Errorf("account: link by email: %w", err)
			}
			log.Info("identity linked by email", logger.UserID(u.ID), logger.Email(id.Email))
			r.emitLinked(ctx, u.ID, la, "email")
			return &Result{User: u, Outcome: OutcomeLinked}, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	// 3. usuario + link en una transacción. Un email que coincide con otro
	// usuario pero no calificó para auto-link da un usuario separado.
	u, la, err := r.accounts.CreateUserWithLink(ctx, repository.User{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
	}, linkFor("", id))
	if errors.Is(err, repository.ErrConflict) {
		// otro request creó el mismo (provider, subject) primero
		return r.byLink(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("account: create user: %w", err)
	}

	log.Info("user created", logger.UserID(u.ID),
		logger.String("verification", id.Verification.String()))
	r.events.Emit(ctx, events.New(events.UserCreated, u.ID, map[string]any{
		"provider": la.Provider,
		"email":    u.Email,
	}))
	return &Result{User: u, Outcome: OutcomeCreated}, nil
}

func (r *Resolver) byLink(ctx context.Context, id identity.Canonical) (*Result, error) {
	res, _, err := r.findByLink(ctx, id)
	return res, err
}

func (r *Resolver) findByLink(ctx context.Context, id identity.Canonical) (*Result, *repository.LinkedAccount, error) {
	la, err := r.accounts.FindLink(ctx, id.Provider.String(), id.Subject)
	if err != nil {
		return nil, nil, err
	}
	u, err := r.users.GetByID(ctx, la.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("account: linked user %s: %w", la.UserID, err)
	}
	return &Result{User: u, Outcome: OutcomeExisting}, la, nil
}

// refreshProviderProfile guarda el nombre y avatar actuales del proveedor
// para sync-from-provider. Un error no corta el login.
func (r *Resolver) refreshProviderProfile(ctx context.Context, la *repository.LinkedAccount, id identity.Canonical, log *zap.Logger) {
	if la.ProviderDisplayName == id.DisplayName && la.ProviderAvatarURL == id.AvatarURL {
		return
	}
	if err := r.accounts.UpdateProviderProfile(ctx, la.ID, id.DisplayName, id.AvatarURL); err != nil {
		log.Warn("provider profile not refreshed", logger.Err(err))
	}
}

func (r *Resolver) canLinkByEmail(id identity.Canonical) bool {
	if id.Synthesized || id.Email == "" {
		return false
	}
	switch id.Verification {
	case identity.Verified:
		return true
	case identity.VerificationUnknown:
		return r.trust
	default:
		return false
	}
}

// List devuelve los proveedores vinculados del usuario.
func (r *Resolver) List(ctx context.Context, userID string) ([]repository.LinkedAccount, error) {
	return r.accounts.ListByUser(ctx, userID)
}

// Link vincula explícitamente la identidad al usuario autenticado.
// Si ya pertenece al mismo usuario es idempotente.
func (r *Resolver) Link(ctx context.Context, userID string, id identity.Canonical) (*repository.LinkedAccount, error) {
	if existing, err := r.accounts.FindLink(ctx, id.Provider.String(), id.Subject); err == nil {
		if existing.UserID == userID {
			return existing, nil
		}
		return nil, ErrAlreadyLinked
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	la, err := r.accounts.Link(ctx, linkFor(userID, id))
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrAlreadyLinked
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("account: link: %w", err)
	}
	r.log(ctx, "Link").Info("identity linked", logger.UserID(userID), logger.Provider(la.Provider))
	r.emitLinked(ctx, userID, la, "explicit")
	return la, nil
}

// Unlink elimina el link del proveedor. Falla con ErrLastMethod si es el único.
func (r *Resolver) Unlink(ctx context.Context, userID, provider string) error {
	la, err := r.accounts.Unlink(ctx, userID, provider)
	switch {
	case errors.Is(err, repository.ErrLastIdentity):
		return ErrLastMethod
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotLinked
	case err != nil:
		return fmt.Errorf("account: unlink: %w", err)
	}
	r.log(ctx, "Unlink").Info("identity unlinked", logger.UserID(userID), logger.Provider(provider))
	r.events.Emit(ctx, events.New(events.UserOAuthUnlinked, userID, map[string]any{
		"provider":            la.Provider,
		"provider_subject_id": la.Subject,
	}))
	return nil
}

func (r *Resolver) emitLinked(ctx context.Context, userID string, la *repository.LinkedAccount, via string) {
	r.events.Emit(ctx, events.New(events.UserOAuthLinked, userID, map[string]any{
		"provider":            la.Provider,
		"provider_subject_id": la.Subject,
		"via":                 via,
	}))
}

func linkFor(userID string, id identity.Canonical) repository.LinkedAccount {
	la := repository.LinkedAccount{
		UserID:   userID,
		Provider: id.Provider.String(),
		Subject:  id.Subject,
	}
	if !id.Synthesized {
		la.ProviderEmail = id.Email
	}
	la.ProviderDisplayName = id.DisplayName
	la.ProviderAvatarURL = id.AvatarURL
	return la
}
