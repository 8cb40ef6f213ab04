// Package providers implementa un adapter por proveedor de identidad externo.
//
// El conjunto de proveedores es cerrado (Kind). Cada adapter implementa el mismo
// contrato: construir la URL de autorización, canjear el code y traer la identidad
// cruda. Los adapters no guardan estado por request y se comparten entre goroutines.
//
// El canje del code nunca se reintenta: los codes son de un solo uso.
package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind identifica un proveedor soportado.
type Kind string

const (
	Google   Kind = "google"
	GitHub   Kind = "github"
	Discord  Kind = "discord"
	X        Kind = "x"
	LinkedIn Kind = "linkedin"
	Facebook Kind = "facebook"
	Slack    Kind = "slack"
	Twitch   Kind = "twitch"
)

// Kinds lista todos los proveedores en orden estable.
var Kinds = []Kind{Google, GitHub, Discord, X, LinkedIn, Facebook, Slack, Twitch}

func (k Kind) String() string { return string(k) }

// ParseKind valida un nombre de proveedor.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// PKCEMode describe qué hace el proveedor con un challenge PKCE.
type PKCEMode int

const (
	// PKCENone: no se envía challenge.
	PKCENone PKCEMode = iota
	// PKCEAttempted: se envía, pero el proveedor no lo valida.
	PKCEAttempted
	// PKCEEnforced: el proveedor valida el verifier en el canje.
	PKCEEnforced
)

func (m PKCEMode) String() string {
	switch m {
	case PKCEAttempted:
		return "attempted"
	case PKCEEnforced:
		return "enforced"
	default:
		return "none"
	}
}

// Capabilities es metadata estática del proveedor.
type Capabilities struct {
	PKCE       PKCEMode
	NativeOIDC bool
}

// SendsPKCE indica si hay que generar verifier/challenge para este proveedor.
func (c Capabilities) SendsPKCE() bool { return c.PKCE != PKCENone }

// TokenSet son los tokens devueltos por el token endpoint del proveedor.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Expiry       time.Time
}

// RawIdentity es la respuesta de userinfo tal cual, ya desenvuelta de sobres
// como {"data": {...}}. El mapeo a identidad canónica vive en internal/identity.
type RawIdentity struct {
	Provider Kind
	Claims   map[string]any
}

// Adapter es el contrato común de todos los proveedores.
type Adapter interface {
	Kind() Kind
	Capabilities() Capabilities

	// AuthorizeURL es determinística. challenge nil = sin PKCE.
	AuthorizeURL(redirectURI, state string, challenge *PKCE) string

	// Exchange canjea el code. verifier vacío = sin PKCE. Falla con *ExchangeError.
	Exchange(ctx context.Context, code, redirectURI, verifier string) (*TokenSet, error)

	// FetchIdentity trae el userinfo. Falla con *IdentityError.
	FetchIdentity(ctx context.Context, accessToken string) (*RawIdentity, error)
}

// =================================================================================
// ERRORES
// =================================================================================

var (
	ErrExchangeFailed      = errors.New("providers: code exchange failed")
	ErrIdentityFetchFailed = errors.New("providers: identity fetch failed")
	ErrUnknownProvider     = errors.New("providers: unknown or disabled provider")
)

// ExchangeError detalla una falla del token endpoint. Status es 0 si no hubo respuesta.
type ExchangeError struct {
	Provider Kind
	Status   int
	Reason   string
	Err      error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("providers: %s exchange failed (status=%d): %s", e.Provider, e.Status, e.Reason)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

func (e *ExchangeError) Is(target error) bool { return target == ErrExchangeFailed }

// IdentityError detalla una falla del endpoint de userinfo.
type IdentityError struct {
	Provider Kind
	Status   int
	Reason   string
	Err      error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("providers: %s identity fetch failed (status=%d): %s", e.Provider, e.Status, e.Reason)
}

func (e *IdentityError) Unwrap() error { return e.Err }

func (e *IdentityError) Is(target error) bool { return target == ErrIdentityFetchFailed }
