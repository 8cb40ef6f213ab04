// Package auth contiene los controllers del login social y del ciclo de vida
// de la sesión (refresh, logout).
package auth

import (
	"context"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/http/services/social"
	"github.com/dropDatabas3/yesod/internal/providers"
	"github.com/dropDatabas3/yesod/internal/token"
)

// LoginFlow es la parte del servicio social que usan los controllers.
type LoginFlow interface {
	Begin(ctx context.Context, in social.BeginInput) (string, error)
	Callback(ctx context.Context, in social.CallbackInput) (*social.CallbackResult, error)
	SuccessRedirect(res *social.CallbackResult) string
	ErrorRedirect(code string) string
	Enabled() []providers.Adapter
}

// SessionTokens es la parte del token service que usan refresh y logout.
type SessionTokens interface {
	Refresh(ctx context.Context, raw string, client token.Client) (*token.Pair, error)
	RevokeSession(ctx context.Context, raw string) (*repository.RefreshToken, error)
	RevokeAll(ctx context.Context, userID string) (int, error)
}

// Controllers agrupa los controllers de auth.
type Controllers struct {
	Login     *LoginController
	Session   *SessionController
	Providers *ProvidersController
}

func NewControllers(flow LoginFlow, tokens SessionTokens, publicURL string) *Controllers {
	return &Controllers{
		Login:     NewLoginController(flow),
		Session:   NewSessionController(tokens),
		Providers: NewProvidersController(flow, publicURL),
	}
}
