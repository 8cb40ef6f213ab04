package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	"github.com/dropDatabas3/yesod/internal/http/services/social"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/state"
)

const maxNonceLen = 256

type LoginController struct {
	flow LoginFlow
}

func NewLoginController(flow LoginFlow) *LoginController {
	return &LoginController{flow: flow}
}

// Begin maneja GET /api/v1/auth/{provider}
func (c *LoginController) Begin(w http.ResponseWriter, r *http.Request) {
	nonce := strings.TrimSpace(r.URL.Query().Get("nonce"))
	if len(nonce) > maxNonceLen {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("nonce too long"))
		return
	}

	authURL, err := c.flow.Begin(r.Context(), social.BeginInput{
		Provider: chi.URLParam(r, "provider"),
		Action:   state.ActionLogin,
		Nonce:    nonce,
	})
	if err != nil {
		httperrors.Respond(r.Context(), w, err)
		return
	}
	RespondAuthorize(w, r, authURL)
}

// RespondAuthorize redirige al proveedor, o devuelve la URL si el cliente pidió JSON.
func RespondAuthorize(w http.ResponseWriter, r *http.Request, authURL string) {
	if helpers.WantsJSON(r) {
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"authorization_url": authURL})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback maneja GET /api/v1/auth/{provider}/callback. Siempre termina en un
// redirect al frontend: con tokens o con ?error=<código>.
func (c *LoginController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Callback"))

	q := r.URL.Query()
	res, err := c.flow.Callback(ctx, social.CallbackInput{
		Provider:         chi.URLParam(r, "provider"),
		Code:             strings.TrimSpace(q.Get("code")),
		State:            strings.TrimSpace(q.Get("state")),
		Error:            strings.TrimSpace(q.Get("error")),
		ErrorDescription: strings.TrimSpace(q.Get("error_description")),
		Client:           helpers.ClientOf(r),
	})
	if err != nil {
		code := social.CodeServerError
		var fe *social.FlowError
		if errors.As(err, &fe) {
			code = fe.Code
		}
		log.Debug("callback failed", logger.String("code", code))
		http.Redirect(w, r, c.flow.ErrorRedirect(code), http.StatusFound)
		return
	}
	http.Redirect(w, r, c.flow.SuccessRedirect(res), http.StatusFound)
}
