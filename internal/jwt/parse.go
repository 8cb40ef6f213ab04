package jwt

import (
	"errors"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrExpired      = errors.New("jwt: token expired")
	ErrWrongType    = errors.New("jwt: unexpected token type")
)

// Keyfunc elige la clave pública por "kid". Tokens sin kid se rechazan.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("kid_missing")
		}
		return i.Keys.PublicKeyByKID(kid)
	}
}

// parse valida firma RS256, iss y aud. El leeway aplica a exp/nbf; iat no se valida.
func (i *Issuer) parse(raw, aud string) (jwtv5.MapClaims, error) {
	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodRS256.Alg()}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithLeeway(i.Leeway),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(i.clock),
	}
	if aud != "" {
		opts = append(opts, jwtv5.WithAudience(aud))
	}
	claims := jwtv5.MapClaims{}
	tok, err := jwtv5.ParseWithClaims(raw, claims, i.Keyfunc(), opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessClaims son los claims que el resto del sistema necesita de un access token.
type AccessClaims struct {
	Subject   string
	Email     string
	SessionID string
	Raw       map[string]any
}

// ParseAccess valida un access token emitido por este Issuer.
func (i *Issuer) ParseAccess(raw string) (*AccessClaims, error) {
	claims, err := i.parse(raw, i.Audience)
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != TypAccess {
		return nil, ErrWrongType
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	out := &AccessClaims{Subject: sub, Raw: claims}
	out.Email, _ = claims["email"].(string)
	out.SessionID, _ = claims["sid"].(string)
	return out, nil
}

// VerifyIDToken valida un ID token contra el JWKS publicado. aud vacío
// omite el chequeo de audiencia.
func (i *Issuer) VerifyIDToken(raw, aud string) (map[string]any, error) {
	claims, err := i.parse(raw, aud)
	if err != nil {
		return nil, err
	}
	if _, ok := claims["typ"]; ok {
		return nil, ErrWrongType
	}
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}
