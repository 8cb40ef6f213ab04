package account

import "time"

// LinkedAccount is the public view of a provider linked to the caller.
type LinkedAccount struct {
	Provider      string    `json:"provider"`
	ProviderEmail string    `json:"provider_email,omitempty"`
	LinkedAt      time.Time `json:"linked_at"`
}

// ListResponse is the response for GET /api/v1/accounts.
type ListResponse struct {
	UserID   string          `json:"user_id"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Picture  string          `json:"picture,omitempty"`
	Accounts []LinkedAccount `json:"accounts"`
}
