package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/yesod/internal/http/errors"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// AccessVerifier valida access tokens. *jwt.Issuer lo implementa.
type AccessVerifier interface {
	ParseAccess(raw string) (*jwt.AccessClaims, error)
}

// bearerToken devuelve "" si no hay header Authorization: Bearer.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAuth exige un access token válido y deja claims y user id en el contexto.
func RequireAuth(v AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}

			claims, err := v.ParseAccess(raw)
			if err != nil {
				logger.From(r.Context()).Debug("access token rejected",
					logger.Component("auth"), logger.Err(err))
				errors.WriteError(w, errors.FromError(err))
				return
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = WithUserID(ctx, claims.Subject)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.Subject)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
