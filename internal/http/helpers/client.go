package helpers

import (
	"net/http"

	"github.com/dropDatabas3/yesod/internal/http/middlewares"
	"github.com/dropDatabas3/yesod/internal/token"
)

// ClientOf describe el dispositivo del request para las sesiones.
func ClientOf(r *http.Request) token.Client {
	return token.Client{UserAgent: r.UserAgent(), IP: middlewares.ClientIP(r)}
}
