package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var twitchEndpoints = endpoints{
	Auth:     "https://id.twitch.tv/oauth2/authorize",
	Token:    "https://id.twitch.tv/oauth2/token",
	UserInfo: "https://api.twitch.tv/helix/users",
}

// twitchAdapter: Helix exige el header Client-Id y responde {"data": [user]}.
type twitchAdapter struct{ base }

func newTwitch(pc config.ProviderConfig, client *http.Client) *twitchAdapter {
	b := newBase(Twitch, Capabilities{PKCE: PKCENone, NativeOIDC: true}, pc, twitchEndpoints,
		[]string{"openid", "user:read:email"}, oauth2.AuthStyleInParams, client)
	b.headers = http.Header{"Client-Id": []string{pc.ClientID}}
	return &twitchAdapter{base: b}
}

func (a *twitchAdapter) FetchIdentity(ctx context.Context, accessToken string) (*RawIdentity, error) {
	claims, err := a.getJSON(ctx, a.userInfoURL, accessToken)
	if err != nil {
		return nil, err
	}
	user, err := a.unwrapData(claims)
	if err != nil {
		return nil, err
	}
	return &RawIdentity{Provider: Twitch, Claims: user}, nil
}
