package jwt

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
)

// JWK es la representación pública de una clave RSA.
type JWK struct {
	Kty string `json:"kty"` // "RSA"
	Use string `json:"use"` // "sig"
	Alg string `json:"alg"` // "RS256"
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

func EncodeBase64URL(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func publicJWK(pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: Thumbprint(pub),
		N:   EncodeBase64URL(pub.N.Bytes()),
		E:   EncodeBase64URL(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// PublicKey reconstruye la clave desde el JWK.
func (j JWK) PublicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
}

// MarshalJWKS serializa el set; un set sin claves se publica como {"keys":[]}.
func MarshalJWKS(set JWKS) []byte {
	if set.Keys == nil {
		set.Keys = []JWK{}
	}
	b, _ := json.Marshal(set)
	return b
}
