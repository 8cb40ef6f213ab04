// Package account contiene los controllers de cuentas vinculadas.
package account

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	authctrl "github.com/dropDatabas3/yesod/internal/http/controllers/auth"
	dto "github.com/dropDatabas3/yesod/internal/http/dto/account"
	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	mw "github.com/dropDatabas3/yesod/internal/http/middlewares"
	"github.com/dropDatabas3/yesod/internal/http/services/social"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/providers"
	"github.com/dropDatabas3/yesod/internal/state"
)

// Accounts es la parte del resolver que usa el controller.
type Accounts interface {
	List(ctx context.Context, userID string) ([]repository.LinkedAccount, error)
	Unlink(ctx context.Context, userID, provider string) error
}

// Linker inicia el flujo de link (mismo callback que el login).
type Linker interface {
	Begin(ctx context.Context, in social.BeginInput) (string, error)
}

type AccountController struct {
	accounts Accounts
	users    repository.UserRepository
	linker   Linker
}

func NewAccountController(accounts Accounts, users repository.UserRepository, linker Linker) *AccountController {
	return &AccountController{accounts: accounts, users: users, linker: linker}
}

// List maneja GET /api/v1/accounts
func (c *AccountController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mw.GetUserID(ctx)

	u, err := c.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrUserNotFound)
			return
		}
		httperrors.Respond(r.Context(), w, err)
		return
	}
	links, err := c.accounts.List(ctx, userID)
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}

	resp := dto.ListResponse{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.DisplayName,
		Picture:  u.AvatarURL,
		Accounts: make([]dto.LinkedAccount, 0, len(links)),
	}
	for _, l := range links {
		resp.Accounts = append(resp.Accounts, dto.LinkedAccount{
			Provider:      l.Provider,
			ProviderEmail: l.ProviderEmail,
			LinkedAt:      l.CreatedAt,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// BeginLink maneja GET /api/v1/accounts/{provider}/link
func (c *AccountController) BeginLink(w http.ResponseWriter, r *http.Request) {
	authURL, err := c.linker.Begin(r.Context(), social.BeginInput{
		Provider: chi.URLParam(r, "provider"),
		Action:   state.ActionLink,
		UserID:   mw.GetUserID(r.Context()),
	})
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	authctrl.RespondAuthorize(w, r, authURL)
}

// Unlink maneja DELETE /api/v1/accounts/{provider}. Un proveedor deshabilitado
// en config igual se puede desvincular.
func (c *AccountController) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AccountController.Unlink"))

	kind, ok := providers.ParseKind(chi.URLParam(r, "provider"))
	if !ok {
		httperrors.WriteError(w, httperrors.ErrProviderUnknown)
		return
	}
	if err := c.accounts.Unlink(ctx, mw.GetUserID(ctx), kind.String()); err != nil {
		log.Info("unlink rejected", logger.Provider(kind.String()), logger.Err(err))
		httperrors.Respond(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
