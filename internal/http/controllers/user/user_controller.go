// Package user contiene los controllers del perfil del usuario autenticado.
package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/yesod/internal/account"
	"github.com/dropDatabas3/yesod/internal/audit"
	"github.com/dropDatabas3/yesod/internal/domain/repository"
	dto "github.com/dropDatabas3/yesod/internal/http/dto/user"
	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	mw "github.com/dropDatabas3/yesod/internal/http/middlewares"
	"github.com/dropDatabas3/yesod/internal/providers"
)

// Profiles es la parte del servicio de perfiles que usa el controller.
type Profiles interface {
	Get(ctx context.Context, userID string) (*account.Profile, error)
	Update(ctx context.Context, userID string, upd repository.ProfileUpdate) (*account.Profile, []string, error)
	Delete(ctx context.Context, userID string) (*account.Deleted, error)
	SyncFromProvider(ctx context.Context, userID, provider string) (*account.SyncResult, error)
}

type UserController struct {
	profiles Profiles
}

func NewUserController(p Profiles) *UserController {
	return &UserController{profiles: p}
}

// Me maneja GET /api/v1/users/me (también userinfo_endpoint del discovery).
func (c *UserController) Me(w http.ResponseWriter, r *http.Request) {
	prof, err := c.profiles.Get(r.Context(), mw.GetUserID(r.Context()))
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toMe(prof))
}

// Update maneja PATCH /api/v1/users/me
func (c *UserController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req dto.UpdateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.AvatarURL != nil && *req.AvatarURL != "" && !isHTTPURL(*req.AvatarURL) {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid: avatar_url"))
		return
	}

	userID := mw.GetUserID(ctx)
	prof, changed, err := c.profiles.Update(ctx, userID, repository.ProfileUpdate{
		DisplayName: trimmed(req.DisplayName),
		AvatarURL:   trimmed(req.AvatarURL),
	})
	if err != nil {
		httperrors.Respond(ctx, w, err)
		return
	}
	if len(changed) > 0 {
		c.audit(r, audit.EventProfileUpdated, userID, strings.Join(changed, ","))
	}
	helpers.WriteJSON(w, http.StatusOK, toMe(prof))
}

// Delete maneja DELETE /api/v1/users/me
func (c *UserController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mw.GetUserID(ctx)
	del, err := c.profiles.Delete(ctx, userID)
	if err != nil {
		httperrors.Respond(ctx, w, err)
		return
	}
	c.audit(r, audit.EventAccountDeleted, userID, "")
	helpers.WriteJSON(w, http.StatusOK, dto.DeleteResponse{
		DeletedUserID:   del.UserID,
		DeletedEmail:    del.Email,
		Providers:       del.Providers,
		RevokedSessions: del.RevokedSessions,
	})
}

// Sync maneja POST /api/v1/users/me/sync-from-provider?provider=<p>
func (c *UserController) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := providers.ParseKind(r.URL.Query().Get("provider"))
	if !ok {
		httperrors.WriteError(w, httperrors.ErrProviderUnknown)
		return
	}
	userID := mw.GetUserID(ctx)
	res, err := c.profiles.SyncFromProvider(ctx, userID, kind.String())
	if err != nil {
		httperrors.Respond(ctx, w, err)
		return
	}
	e := c.entry(r, audit.EventProfileSynced, userID, strings.Join(res.Updated, ","))
	e.Provider = res.Provider
	audit.Log(ctx, e)
	helpers.WriteJSON(w, http.StatusOK, dto.SyncResponse{
		Provider:      res.Provider,
		UpdatedFields: res.Updated,
		Name:          res.User.DisplayName,
		Picture:       res.User.AvatarURL,
	})
}

func (c *UserController) entry(r *http.Request, event, userID, reason string) audit.Entry {
	client := helpers.ClientOf(r)
	return audit.Entry{
		Event: event, UserID: userID, Success: true, Reason: reason,
		IP: client.IP, UserAgent: client.UserAgent,
	}
}

func (c *UserController) audit(r *http.Request, event, userID, reason string) {
	audit.Log(r.Context(), c.entry(r, event, userID, reason))
}

func toMe(p *account.Profile) dto.MeResponse {
	out := dto.MeResponse{
		Sub:       p.User.ID,
		Email:     p.User.Email,
		Name:      p.User.DisplayName,
		Picture:   p.User.AvatarURL,
		CreatedAt: p.User.CreatedAt,
		UpdatedAt: p.User.UpdatedAt,
		Accounts:  make([]dto.LinkedAccount, 0, len(p.Accounts)),
	}
	for _, la := range p.Accounts {
		out.Accounts = append(out.Accounts, dto.LinkedAccount{
			ID: la.ID, Provider: la.Provider, Subject: la.Subject, CreatedAt: la.CreatedAt,
		})
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
