package providers

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

var discordEndpoints = endpoints{
	Auth:     "https://discord.com/api/oauth2/authorize",
	Token:    "https://discord.com/api/oauth2/token",
	UserInfo: "https://discord.com/api/users/@me",
}

// discordAdapter: OAuth2 puro. El avatar es un hash que se resuelve contra el CDN.
type discordAdapter struct{ base }

func newDiscord(pc config.ProviderConfig, client *http.Client) *discordAdapter {
	return &discordAdapter{base: newBase(Discord, Capabilities{PKCE: PKCENone}, pc, discordEndpoints,
		[]string{"identify", "email"}, oauth2.AuthStyleInParams, client)}
}
