package providers

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var facebookEndpoints = endpoints{
	Auth:     "https://www.facebook.com/v18.0/dialog/oauth",
	Token:    "https://graph.facebook.com/v18.0/oauth/access_token",
	UserInfo: "https://graph.facebook.com/v18.0/me?fields=id,name,email,picture.type(large)",
}

type facebookAdapter struct{ base }

func newFacebook(pc config.ProviderConfig, client *http.Client) *facebookAdapter {
	return &facebookAdapter{base: newBase(Facebook, Capabilities{PKCE: PKCEAttempted}, pc, facebookEndpoints,
		[]string{"email", "public_profile"}, oauth2.AuthStyleInParams, client)}
}
