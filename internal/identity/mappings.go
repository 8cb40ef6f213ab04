package identity

import "github.com/dropDatabas3/yesod/internal/providers"

// mapping lista, por atributo canónico, los campos candidatos del userinfo del
// proveedor. Gana el primero no vacío.
type mapping struct {
	subject  []string
	email    []string
	verified []string
	name     []string
	handle   []string
	avatar   []string
	// avatarTemplate se usa si avatar no resolvió; {campo} se reemplaza.
	avatarTemplate string
}

var mappings = map[providers.Kind]mapping{
	providers.Google: {
		subject:  []string{"sub", "id"},
		email:    []string{"email"},
		verified: []string{"email_verified", "verified_email"},
		name:     []string{"name", "given_name"},
		avatar:   []string{"picture"},
	},
	providers.GitHub: {
		subject:  []string{"id"},
		email:    []string{"email"},
		verified: []string{"email_verified"},
		name:     []string{"name"},
		handle:   []string{"login"},
		avatar:   []string{"avatar_url"},
	},
	providers.Discord: {
		subject:        []string{"id"},
		email:          []string{"email"},
		verified:       []string{"verified"},
		name:           []string{"global_name", "username"},
		handle:         []string{"username"},
		avatarTemplate: "https://cdn.discordapp.com/avatars/{id}/{avatar}.png",
	},
	// X nunca expone email: siempre placeholder.
	providers.X: {
		subject: []string{"id"},
		name:    []string{"name"},
		handle:  []string{"username"},
		avatar:  []string{"profile_image_url"},
	},
	providers.LinkedIn: {
		subject:  []string{"sub"},
		email:    []string{"email"},
		verified: []string{"email_verified"},
		name:     []string{"name", "given_name"},
		avatar:   []string{"picture"},
	},
	providers.Facebook: {
		subject: []string{"id"},
		email:   []string{"email"},
		name:    []string{"name"},
		avatar:  []string{"picture.data.url"},
	},
	providers.Slack: {
		subject:  []string{"sub", "https://slack.com/user_id"},
		email:    []string{"email"},
		verified: []string{"email_verified"},
		name:     []string{"name", "given_name"},
		avatar:   []string{"picture"},
	},
	providers.Twitch: {
		subject: []string{"id", "sub"},
		email:   []string{"email"},
		name:    []string{"display_name", "login"},
		handle:  []string{"login"},
		avatar:  []string{"profile_image_url"},
	},
}
