package user

import "time"

// LinkedAccount is a provider linked to the caller.
type LinkedAccount struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Subject   string    `json:"provider_user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MeResponse is the response for GET/PATCH /api/v1/users/me. Claim names
// follow OIDC userinfo.
type MeResponse struct {
	Sub       string          `json:"sub"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Picture   string          `json:"picture,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Accounts  []LinkedAccount `json:"oauth_accounts"`
}

// UpdateRequest is the body for PATCH /api/v1/users/me. Only present fields
// change; an empty string clears the field.
type UpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=255"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,max=500"`
}

// DeleteResponse is the response for DELETE /api/v1/users/me.
type DeleteResponse struct {
	DeletedUserID   string   `json:"deleted_user_id"`
	DeletedEmail    string   `json:"deleted_email"`
	Providers       []string `json:"oauth_providers"`
	RevokedSessions int      `json:"revoked_sessions"`
}

// SyncResponse is the response for POST /api/v1/users/me/sync-from-provider.
type SyncResponse struct {
	Provider      string   `json:"provider"`
	UpdatedFields []string `json:"updated_fields"`
	Name          string   `json:"name"`
	Picture       string   `json:"picture,omitempty"`
}
