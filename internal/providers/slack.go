package providers

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var slackEndpoints = endpoints{
	Auth:     "https://slack.com/openid/connect/authorize",
	Token:    "https://slack.com/api/openid.connect.token",
	UserInfo: "https://slack.com/api/openid.connect.userInfo",
}

// slackAdapter: Sign in with Slack (OIDC). La API responde 200 con {"ok": false}
// en los errores.
type slackAdapter struct{ base }

func newSlack(pc config.ProviderConfig, client *http.Client) *slackAdapter {
	return &slackAdapter{base: newBase(Slack, Capabilities{PKCE: PKCENone, NativeOIDC: true}, pc, slackEndpoints,
		[]string{"openid", "email", "profile"}, oauth2.AuthStyleInParams, client)}
}

func (a *slackAdapter) FetchIdentity(ctx context.Context, accessToken string) (*RawIdentity, error) {
	claims, err := a.getJSON(ctx, a.userInfoURL, accessToken)
	if err != nil {
		return nil, err
	}
	if ok, present := claims["ok"].(bool); present && !ok {
		return nil, &IdentityError{Provider: Slack, Status: http.StatusOK, Reason: fmt.Sprint(claims["error"])}
	}
	return &RawIdentity{Provider: Slack, Claims: claims}, nil
}
