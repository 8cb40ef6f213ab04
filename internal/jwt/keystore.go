package jwt

import (
	"crypto/rsa"
)

// Keystore guarda la clave activa y las públicas previas. Es inmutable
// después de construido y se comparte entre requests sin locks.
type Keystore struct {
	active   *KeyPair
	byKID    map[string]*rsa.PublicKey
	ordered  []string // active primero
	jwksJSON []byte
}

// NewKeystore arma el keystore. Las claves previas con el mismo kid que la
// activa se ignoran.
func NewKeystore(active *KeyPair, previous ...*rsa.PublicKey) *Keystore {
	ks := &Keystore{
		active: active,
		byKID:  map[string]*rsa.PublicKey{active.KID: active.Public},
	}
	ks.ordered = append(ks.ordered, active.KID)
	for _, pub := range previous {
		kid := Thumbprint(pub)
		if _, dup := ks.byKID[kid]; dup {
			continue
		}
		ks.byKID[kid] = pub
		ks.ordered = append(ks.ordered, kid)
	}
	ks.jwksJSON = MarshalJWKS(ks.JWKS())
	return ks
}

// Active devuelve la clave con la que se firma.
func (k *Keystore) Active() *KeyPair { return k.active }

// PublicKeyByKID busca entre la activa y las previas.
func (k *Keystore) PublicKeyByKID(kid string) (*rsa.PublicKey, error) {
	if pub, ok := k.byKID[kid]; ok {
		return pub, nil
	}
	return nil, ErrKeyNotFound
}

// JWKS devuelve solo mitades públicas, la activa primero.
func (k *Keystore) JWKS() JWKS {
	set := JWKS{Keys: make([]JWK, 0, len(k.ordered))}
	for _, kid := range k.ordered {
		set.Keys = append(set.Keys, publicJWK(k.byKID[kid]))
	}
	return set
}

// JWKSJSON devuelve el JWKS serializado (precalculado).
func (k *Keystore) JWKSJSON() []byte { return k.jwksJSON }
