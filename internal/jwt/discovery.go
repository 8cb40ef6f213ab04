package jwt

import "strings"

// Discovery es el documento /.well-known/openid-configuration.
type Discovery struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                          string   `json:"jwks_uri"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
	ClaimsSupported                  []string `json:"claims_supported"`
	GrantTypesSupported              []string `json:"grant_types_supported"`
}

// DiscoveryDocument deriva la metadata estática de baseURL (URL pública del broker).
func (i *Issuer) DiscoveryDocument(baseURL string) Discovery {
	base := strings.TrimRight(baseURL, "/")
	return Discovery{
		Issuer:                           i.Iss,
		AuthorizationEndpoint:            base + "/api/v1/auth/{provider}",
		TokenEndpoint:                    base + "/api/v1/auth/refresh",
		UserinfoEndpoint:                 base + "/api/v1/users/me",
		JWKSURI:                          base + "/.well-known/jwks.json",
		ResponseTypesSupported:           []string{"code"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
		ScopesSupported:                  []string{"openid", "email", "profile"},
		ClaimsSupported: []string{
			"iss", "sub", "aud", "iat", "exp", "auth_time", "nonce",
			"email", "email_verified", "name", "picture", "provider", "provider_sub",
		},
		GrantTypesSupported: []string{"authorization_code", "refresh_token"},
	}
}
