// Package identity convierte la respuesta cruda de un proveedor en una identidad
// canónica. Las reglas por proveedor son datos (ver mappings.go): agregar un
// proveedor es agregar una entrada, no ramas nuevas.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/dropDatabas3/yesod/internal/providers"
)

// Verification es el estado de verificación del email informado por el proveedor.
type Verification int

const (
	VerificationUnknown Verification = iota
	Verified
	Unverified
)

func (v Verification) String() string {
	switch v {
	case Verified:
		return "verified"
	case Unverified:
		return "unverified"
	default:
		return "unknown"
	}
}

// Canonical es la identidad independiente del proveedor. Siempre tiene
// DisplayName no vacío y un Email sintácticamente válido.
type Canonical struct {
	Provider     providers.Kind
	Subject      string
	Email        string
	Verification Verification
	// Synthesized indica que Email es un placeholder {handle}@{provider}.invalid.
	Synthesized bool
	DisplayName string
	Handle      string
	AvatarURL   string
	Raw         map[string]any
}

// EmailVerified es true solo si el proveedor afirmó la verificación.
func (c Canonical) EmailVerified() bool { return c.Verification == Verified && !c.Synthesized }

// ErrMissingSubject: la respuesta no trae un id estable del usuario.
var ErrMissingSubject = errors.New("identity: provider response has no subject")

// Normalize aplica la tabla de mapeo del proveedor.
func Normalize(raw *providers.RawIdentity) (Canonical, error) {
	if raw == nil {
		return Canonical{}, ErrMissingSubject
	}
	m, ok := mappings[raw.Provider]
	if !ok {
		return Canonical{}, fmt.Errorf("identity: no mapping for provider %q", raw.Provider)
	}
	claims := raw.Claims

	c := Canonical{
		Provider: raw.Provider,
		Subject:  first(claims, m.subject),
		Handle:   first(claims, m.handle),
		Raw:      claims,
	}
	if c.Subject == "" {
		return Canonical{}, ErrMissingSubject
	}

	if email, ok := validEmail(first(claims, m.email)); ok {
		c.Email = email
		c.Verification = verification(claims, m.verified)
	} else {
		c.Email = placeholderEmail(raw.Provider, c.Handle, c.Subject)
		c.Synthesized = true
		c.Verification = Unverified
	}

	c.DisplayName = first(claims, m.name)
	if c.DisplayName == "" {
		c.DisplayName = c.Handle
	}
	if c.DisplayName == "" && !c.Synthesized {
		c.DisplayName = c.Email[:strings.IndexByte(c.Email, '@')]
	}
	if c.DisplayName == "" {
		c.DisplayName = string(raw.Provider) + " user"
	}

	c.AvatarURL = first(claims, m.avatar)
	if c.AvatarURL == "" && m.avatarTemplate != "" {
		c.AvatarURL = expand(m.avatarTemplate, claims)
	}
	return c, nil
}

// lookup resuelve path con "." como separador de anidamiento. Una clave
// literal que contiene puntos (claims con forma de URL) se prueba primero.
// Ej: "picture.data.url", "https://slack.com/user_id".
func lookup(claims map[string]any, path string) string {
	if v, ok := claims[path]; ok {
		return scalar(v)
	}
	var cur any = claims
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[part]
	}
	return scalar(cur)
}

func scalar(cur any) string {
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func first(claims map[string]any, paths []string) string {
	for _, p := range paths {
		if v := lookup(claims, p); v != "" {
			return v
		}
	}
	return ""
}

func verification(claims map[string]any, paths []string) Verification {
	for _, p := range paths {
		switch v := claims[p].(type) {
		case bool:
			if v {
				return Verified
			}
			return Unverified
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				if b {
					return Verified
				}
				return Unverified
			}
		}
	}
	return VerificationUnknown
}

func validEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", false
	}
	return s, true
}

func placeholderEmail(p providers.Kind, handle, subject string) string {
	local := sanitizeLocal(handle)
	if local == "" {
		local = sanitizeLocal(subject)
	}
	if local == "" {
		local = "user"
	}
	return local + "@" + string(p) + ".invalid"
}

// sanitizeLocal deja solo [a-z0-9._-], sin puntos dobles ni en los extremos,
// y como máximo 64 caracteres (límite del local part).
func sanitizeLocal(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return strings.Trim(out, ".")
}

// expand reemplaza {campo} por su valor; si falta alguno devuelve "".
func expand(tmpl string, claims map[string]any) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(tmpl, '{')
		if i < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		j := strings.IndexByte(tmpl[i:], '}')
		if j < 0 {
			return ""
		}
		v := lookup(claims, tmpl[i+1:i+j])
		if v == "" {
			return ""
		}
		b.WriteString(tmpl[:i])
		b.WriteString(v)
		tmpl = tmpl[i+j+1:]
	}
}
