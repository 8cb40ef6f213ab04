package auth

// ProviderInfo describes one enabled provider for GET /api/v1/auth/providers.
type ProviderInfo struct {
	Name       string `json:"name"`
	LoginURL   string `json:"login_url"`
	PKCE       string `json:"pkce"`
	NativeOIDC bool   `json:"native_oidc"`
}

// ProvidersResponse is the response for GET /api/v1/auth/providers.
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
}
