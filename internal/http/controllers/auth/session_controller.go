package auth

import (
	"net/http"

	"github.com/dropDatabas3/yesod/internal/audit"
	dto "github.com/dropDatabas3/yesod/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

type SessionController struct {
	tokens SessionTokens
}

func NewSessionController(tokens SessionTokens) *SessionController {
	return &SessionController{tokens: tokens}
}

// Refresh maneja POST /api/v1/auth/refresh
func (c *SessionController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	pair, err := c.tokens.Refresh(r.Context(), req.RefreshToken, helpers.ClientOf(r))
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, pair)
}

// Logout maneja POST /api/v1/auth/logout. Un token desconocido también da 204.
func (c *SessionController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Logout"))

	var req dto.LogoutRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	rec, err := c.tokens.RevokeSession(ctx, req.RefreshToken)
	if err != nil {
		log.Error("revoke session failed", logger.Err(err))
		httperrors.Respond(r.Context(), w, err)
		return
	}

	if rec != nil {
		if req.Everywhere {
			if _, err := c.tokens.RevokeAll(ctx, rec.UserID); err != nil {
				log.Error("revoke all failed", logger.Err(err), logger.UserID(rec.UserID))
				httperrors.Respond(r.Context(), w, err)
				return
			}
		}
		client := helpers.ClientOf(r)
		audit.Log(ctx, audit.Entry{
			Event: audit.EventLogout, UserID: rec.UserID, Success: true,
			IP: client.IP, UserAgent: client.UserAgent,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}
