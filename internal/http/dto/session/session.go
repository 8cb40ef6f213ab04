package session

import "github.com/dropDatabas3/yesod/internal/token"

// ListResponse is the response for GET /api/v1/sessions.
type ListResponse struct {
	Sessions []token.Session `json:"sessions"`
}

// RevokeAllResponse is the response for DELETE /api/v1/sessions.
type RevokeAllResponse struct {
	Revoked int `json:"revoked"`
}
