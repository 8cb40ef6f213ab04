package providers

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var linkedinEndpoints = endpoints{
	Auth:     "https://www.linkedin.com/oauth/v2/authorization",
	Token:    "https://www.linkedin.com/oauth/v2/accessToken",
	UserInfo: "https://api.linkedin.com/v2/userinfo",
}

// linkedinAdapter: OIDC; acepta code_challenge pero no lo valida para clientes confidenciales.
type linkedinAdapter struct{ base }

func newLinkedIn(pc config.ProviderConfig, client *http.Client) *linkedinAdapter {
	return &linkedinAdapter{base: newBase(LinkedIn, Capabilities{PKCE: PKCEAttempted, NativeOIDC: true}, pc, linkedinEndpoints,
		[]string{"openid", "profile", "email"}, oauth2.AuthStyleInParams, client)}
}
