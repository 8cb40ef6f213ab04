package providers

import "golang.org/x/oauth2"

// PKCE es un par verifier/challenge con método S256.
type PKCE struct {
	Verifier  string
	Challenge string
}

// Method siempre es S256; plain no se soporta.
func (PKCE) Method() string { return "S256" }

// NewPKCE genera un verifier de 32 bytes aleatorios (43 chars base64url) y su challenge.
func NewPKCE() *PKCE {
	v := oauth2.GenerateVerifier()
	return &PKCE{Verifier: v, Challenge: oauth2.S256ChallengeFromVerifier(v)}
}
