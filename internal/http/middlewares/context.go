package middlewares

import (
	"context"

	"github.com/dropDatabas3/yesod/internal/jwt"
)

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxUserIDKey    ctxKey = "user_id"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithClaims inyecta las claims del access token en el contexto.
func WithClaims(ctx context.Context, c *jwt.AccessClaims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// WithUserID inyecta el user ID en el contexto
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func contextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetClaims devuelve nil si la ruta no pasó por RequireAuth.
func GetClaims(ctx context.Context) *jwt.AccessClaims {
	c, _ := ctx.Value(ctxClaimsKey).(*jwt.AccessClaims)
	return c
}

// GetUserID obtiene el user ID del contexto.
// Retorna cadena vacía si no hay user ID.
func GetUserID(ctx context.Context) string {
	s, _ := ctx.Value(ctxUserIDKey).(string)
	return s
}

// GetSessionID es el family id de la sesión del access token ("sid").
func GetSessionID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.SessionID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
