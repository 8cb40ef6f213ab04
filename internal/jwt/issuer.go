package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TypAccess marca los access tokens; los ID tokens no llevan "typ".
const TypAccess = "access"

// Issuer firma access e ID tokens con la clave activa del keystore.
type Issuer struct {
	Iss        string // "iss"
	Audience   string // "aud" por defecto
	Keys       *Keystore
	AccessTTL  time.Duration
	IDTokenTTL time.Duration
	// Leeway tolera desfase de reloj en exp/nbf al verificar. Nunca se usa al emitir.
	Leeway time.Duration

	now func() time.Time
}

func NewIssuer(iss, aud string, ks *Keystore) *Issuer {
	return &Issuer{
		Iss:        iss,
		Audience:   aud,
		Keys:       ks,
		AccessTTL:  15 * time.Minute,
		IDTokenTTL: time.Hour,
		Leeway:     30 * time.Second,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) clock() time.Time {
	if i.now == nil {
		return time.Now().UTC()
	}
	return i.now().UTC()
}

// ActiveKID devuelve el kid con el que se firma.
func (i *Issuer) ActiveKID() string { return i.Keys.Active().KID }

// SignRaw firma un MapClaims arbitrario, setea header kid/typ y devuelve el JWT firmado.
func (i *Issuer) SignRaw(claims jwtv5.MapClaims) (string, string, error) {
	kp := i.Keys.Active()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tk.Header["kid"] = kp.KID
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(kp.Private)
	if err != nil {
		return "", "", err
	}
	return signed, kp.KID, nil
}

// AccessInput son los datos del usuario que viajan en el access token.
type AccessInput struct {
	Subject   string // user id local
	Email     string
	SessionID string // family id del refresh token
}

// IssueAccess emite un access token de vida corta.
func (i *Issuer) IssueAccess(in AccessInput) (string, time.Time, error) {
	if in.Subject == "" {
		return "", time.Time{}, errors.New("jwt: empty subject")
	}
	now := i.clock()
	exp := now.Add(i.AccessTTL)
	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": in.Subject,
		"aud": i.Audience,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
		"typ": TypAccess,
	}
	if in.Email != "" {
		claims["email"] = in.Email
	}
	if in.SessionID != "" {
		claims["sid"] = in.SessionID
	}
	signed, _, err := i.SignRaw(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IDTokenInput son los claims de identidad del ID token.
type IDTokenInput struct {
	Subject       string // user id local, estable entre logins
	Audience      string // vacío = Issuer.Audience
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Provider      string // proveedor upstream que autenticó
	ProviderSub   string
	Nonce         string
	AuthTime      time.Time
}

// MintIDToken fabrica un ID token OIDC firmado con la clave activa.
func (i *Issuer) MintIDToken(in IDTokenInput) (string, time.Time, error) {
	if in.Subject == "" {
		return "", time.Time{}, errors.New("jwt: empty subject")
	}
	aud := in.Audience
	if aud == "" {
		aud = i.Audience
	}
	now := i.clock()
	exp := now.Add(i.IDTokenTTL)
	authTime := in.AuthTime
	if authTime.IsZero() {
		authTime = now
	}
	claims := jwtv5.MapClaims{
		"iss":       i.Iss,
		"sub":       in.Subject,
		"aud":       aud,
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
		"auth_time": authTime.Unix(),
		"provider":  in.Provider,
	}
	if in.Email != "" {
		claims["email"] = in.Email
		claims["email_verified"] = in.EmailVerified
	}
	optional := map[string]string{
		"provider_sub": in.ProviderSub,
		"name":         in.Name,
		"picture":      in.Picture,
		"nonce":        in.Nonce,
	}
	for k, v := range optional {
		if v != "" {
			claims[k] = v
		}
	}
	signed, _, err := i.SignRaw(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
