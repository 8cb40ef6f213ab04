// Package session contiene los controllers de sesiones activas del usuario.
package session

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/yesod/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	mw "github.com/dropDatabas3/yesod/internal/http/middlewares"
	"github.com/dropDatabas3/yesod/internal/token"
)

// Sessions es la parte del token service que usa el controller.
type Sessions interface {
	Sessions(ctx context.Context, userID, currentFamily string) ([]token.Session, error)
	RevokeByID(ctx context.Context, userID, tokenID string) error
	RevokeAll(ctx context.Context, userID string) (int, error)
}

type SessionController struct {
	sessions Sessions
}

func NewSessionController(s Sessions) *SessionController {
	return &SessionController{sessions: s}
}

// List maneja GET /api/v1/sessions. La sesión del access token viene marcada current.
func (c *SessionController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := c.sessions.Sessions(ctx, mw.GetUserID(ctx), mw.GetSessionID(ctx))
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ListResponse{Sessions: list})
}

// Revoke maneja DELETE /api/v1/sessions/{id}
func (c *SessionController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("id required"))
		return
	}
	if err := c.sessions.RevokeByID(ctx, mw.GetUserID(ctx), id); err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeAll maneja DELETE /api/v1/sessions
func (c *SessionController) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := c.sessions.RevokeAll(ctx, mw.GetUserID(ctx))
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeAllResponse{Revoked: n})
}
