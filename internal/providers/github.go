package providers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

var githubEndpoints = endpoints{
	Auth:     "https://github.com/login/oauth/authorize",
	Token:    "https://github.com/login/oauth/access_token",
	UserInfo: "https://api.github.com/user",
}

const githubEmailsURL = "https://api.github.com/user/emails"

// githubAdapter: OAuth2 sin ID token. /user no informa verificación de email,
// así que siempre se consulta /user/emails.
type githubAdapter struct {
	base
	emailsURL string
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func newGitHub(pc config.ProviderConfig, client *http.Client) *githubAdapter {
	b := newBase(GitHub, Capabilities{PKCE: PKCEEnforced}, pc, githubEndpoints,
		[]string{"read:user", "user:email"}, oauth2.AuthStyleInParams, client)
	b.headers = http.Header{"X-Github-Api-Version": []string{"2022-11-28"}}
	emails := githubEmailsURL
	if pc.EmailsURL != "" {
		emails = pc.EmailsURL
	}
	return &githubAdapter{base: b, emailsURL: emails}
}

func (a *githubAdapter) FetchIdentity(ctx context.Context, accessToken string) (*RawIdentity, error) {
	claims, err := a.getJSON(ctx, a.userInfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	// La lista de emails es opcional: si falla, seguimos con lo que dio /user
	// (o con un email sintético más adelante).
	e, err := a.primaryEmail(ctx, accessToken)
	if err != nil {
		logger.From(ctx).Warn("github email lookup failed, degrading",
			logger.Component("providers"), logger.Provider(string(GitHub)), logger.Err(err))
		return &RawIdentity{Provider: GitHub, Claims: claims}, nil
	}
	if e != nil {
		claims["email"] = e.Email
		claims["email_verified"] = e.Verified
	}
	return &RawIdentity{Provider: GitHub, Claims: claims}, nil
}

// primaryEmail elige primary+verified, luego cualquier verified, luego el primero.
func (a *githubAdapter) primaryEmail(ctx context.Context, accessToken string) (*githubEmail, error) {
	var emails []githubEmail
	if err := a.getInto(ctx, a.emailsURL, accessToken, &emails); err != nil {
		return nil, err
	}
	for i := range emails {
		if emails[i].Primary && emails[i].Verified {
			return &emails[i], nil
		}
	}
	for i := range emails {
		if emails[i].Verified {
			return &emails[i], nil
		}
	}
	if len(emails) > 0 {
		return &emails[0], nil
	}
	return nil, nil
}
