package providers

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var googleEndpoints = endpoints{
	Auth:     "https://accounts.google.com/o/oauth2/v2/auth",
	Token:    "https://oauth2.googleapis.com/token",
	UserInfo: "https://www.googleapis.com/oauth2/v2/userinfo",
}

// googleAdapter: OIDC nativo, PKCE validado. Pide offline + consent para recibir refresh token.
type googleAdapter struct{ base }

func newGoogle(pc config.ProviderConfig, client *http.Client) *googleAdapter {
	b := newBase(Google, Capabilities{PKCE: PKCEEnforced, NativeOIDC: true}, pc, googleEndpoints,
		[]string{"openid", "email", "profile"}, oauth2.AuthStyleInParams, client)
	b.authParams = []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
	return &googleAdapter{base: b}
}
