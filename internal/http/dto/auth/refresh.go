package auth

// RefreshRequest represents the request body for POST /api/v1/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=256"`
}

// LogoutRequest represents the request body for POST /api/v1/auth/logout
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=256"`
	// Everywhere revokes every session of the token owner, not only this one.
	Everywhere bool `json:"everywhere,omitempty"`
}
