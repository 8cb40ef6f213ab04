package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultRSABits es el tamaño de las claves generadas.
	DefaultRSABits = 2048
	// MinRSABits es el mínimo que acepta el issuer.
	MinRSABits = 2048
)

var (
	ErrNoPEMBlock  = errors.New("jwt: no PEM block found")
	ErrNotRSAKey   = errors.New("jwt: key is not RSA")
	ErrKeyNotFound = errors.New("jwt: kid not found")
	ErrKeyTooSmall = errors.New("jwt: RSA key smaller than 2048 bits")
)

// KeyPair es la clave de firma del proceso. Se carga o genera al arrancar y
// no cambia durante la vida del proceso.
type KeyPair struct {
	KID       string
	Alg       string // "RS256"
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	CreatedAt time.Time
}

func newKeyPair(priv *rsa.PrivateKey) *KeyPair {
	return &KeyPair{
		KID:       Thumbprint(&priv.PublicKey),
		Alg:       "RS256",
		Private:   priv,
		Public:    &priv.PublicKey,
		CreatedAt: time.Now().UTC(),
	}
}

// GenerateRSA genera un par nuevo. bits <= 0 usa DefaultRSABits; menos de
// MinRSABits es ErrKeyTooSmall.
func GenerateRSA(bits int) (*KeyPair, error) {
	if bits <= 0 {
		bits = DefaultRSABits
	}
	if bits < MinRSABits {
		return nil, ErrKeyTooSmall
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("jwt: generate rsa: %w", err)
	}
	return newKeyPair(priv), nil
}

// Thumbprint deriva el kid del módulo de la clave pública (prefijo SHA-256),
// estable entre reinicios con la misma clave.
func Thumbprint(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(sum[:8])
}

// ParsePrivateKeyPEM acepta PKCS#1 ("RSA PRIVATE KEY") o PKCS#8 ("PRIVATE KEY").
func ParsePrivateKeyPEM(b []byte) (*KeyPair, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	var priv *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkcs1: %w", err)
		}
		priv = k
	default:
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkcs8: %w", err)
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrNotRSAKey
		}
		priv = rk
	}
	if priv.N.BitLen() < MinRSABits {
		return nil, ErrKeyTooSmall
	}
	return newKeyPair(priv), nil
}

// ParsePublicKeyPEM acepta "PUBLIC KEY" (PKIX), "RSA PUBLIC KEY" (PKCS#1) o
// una clave privada, de la que se toma la mitad pública.
func ParsePublicKeyPEM(b []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	switch block.Type {
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse pkix: %w", err)
		}
		pub, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, ErrNotRSAKey
		}
		return pub, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		kp, err := ParsePrivateKeyPEM(b)
		if err != nil {
			return nil, err
		}
		return kp.Public, nil
	}
}

// EncodePrivateKeyPEM serializa la clave en PKCS#8.
func EncodePrivateKeyPEM(kp *KeyPair) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKeyPEM serializa la mitad pública en PKIX.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// LoadOrGenerate carga la clave de path; con path vacío genera una efímera.
func LoadOrGenerate(path string) (kp *KeyPair, generated bool, err error) {
	if path == "" {
		kp, err = GenerateRSA(0)
		return kp, true, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("jwt: read private key %s: %w", path, err)
	}
	kp, err = ParsePrivateKeyPEM(b)
	return kp, false, err
}

// LoadPublicKeys interpreta cada entrada como PEM en línea o como ruta a un archivo PEM.
func LoadPublicKeys(entries []string) ([]*rsa.PublicKey, error) {
	out := make([]*rsa.PublicKey, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		b := []byte(e)
		if !strings.HasPrefix(e, "-----BEGIN") {
			var err error
			if b, err = os.ReadFile(e); err != nil {
				return nil, fmt.Errorf("jwt: read public key %s: %w", e, err)
			}
		}
		pub, err := ParsePublicKeyPEM(b)
		if err != nil {
			return nil, err
		}
		out = append(out, pub)
	}
	return out, nil
}
