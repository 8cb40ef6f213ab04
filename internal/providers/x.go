package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var xEndpoints = endpoints{
	Auth:     "https://twitter.com/i/oauth2/authorize",
	Token:    "https://api.twitter.com/2/oauth2/token",
	UserInfo: "https://api.twitter.com/2/users/me?user.fields=id,username,name,profile_image_url",
}

// xAdapter: PKCE obligatorio, client auth por Basic, nunca expone email.
type xAdapter struct{ base }

func newX(pc config.ProviderConfig, client *http.Client) *xAdapter {
	return &xAdapter{base: newBase(X, Capabilities{PKCE: PKCEEnforced}, pc, xEndpoints,
		[]string{"tweet.read", "users.read", "offline.access"}, oauth2.AuthStyleInHeader, client)}
}

func (a *xAdapter) FetchIdentity(ctx context.Context, accessToken string) (*RawIdentity, error) {
	claims, err := a.getJSON(ctx, a.userInfoURL, accessToken)
	if err != nil {
		return nil, err
	}
	user, err := a.unwrapData(claims)
	if err != nil {
		return nil, err
	}
	return &RawIdentity{Provider: X, Claims: user}, nil
}
