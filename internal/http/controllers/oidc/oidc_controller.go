// Package oidc contiene discovery, JWKS y el endpoint de verificación de ID tokens.
package oidc

import (
	"net/http"

	dto "github.com/dropDatabas3/yesod/internal/http/dto/oidc"
	httperrors "github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/http/helpers"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

type OIDCController struct {
	issuer    *jwt.Issuer
	discovery jwt.Discovery
}

// NewOIDCController precalcula el documento de discovery: no cambia en runtime.
func NewOIDCController(issuer *jwt.Issuer, publicURL string) *OIDCController {
	return &OIDCController{issuer: issuer, discovery: issuer.DiscoveryDocument(publicURL)}
}

// Discovery maneja GET /.well-known/openid-configuration
func (c *OIDCController) Discovery(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.discovery)
}

// JWKS maneja GET /.well-known/jwks.json
func (c *OIDCController) JWKS(w http.ResponseWriter, r *http.Request) {
	helpers.WriteRaw(w, http.StatusOK, "application/json; charset=utf-8", c.issuer.Keys.JWKSJSON())
}

// Verify maneja POST /api/v1/oidc/verify (solo con oidc.debug_endpoints).
func (c *OIDCController) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	claims, err := c.issuer.VerifyIDToken(req.IDToken, req.Audience)
	if err != nil {
		logger.From(r.Context()).Debug("id token rejected", logger.Op("OIDCController.Verify"), logger.Err(err))
		httperrors.Respond(r.Context(), w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyResponse{Valid: true, Claims: claims})
}
