package oidc

// VerifyRequest represents the request body for POST /api/v1/oidc/verify.
type VerifyRequest struct {
	IDToken string `json:"id_token" validate:"required"`
	// Audience is optional; empty skips the aud check.
	Audience string `json:"audience,omitempty"`
}

// VerifyResponse carries the verified claims.
type VerifyResponse struct {
	Valid  bool           `json:"valid"`
	Claims map[string]any `json:"claims"`
}
