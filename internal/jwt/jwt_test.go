package jwt

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	keysOnce sync.Once
	keyA     *KeyPair
	keyB     *KeyPair
)

func testKeys(t *testing.T) (*KeyPair, *KeyPair) {
	t.Helper()
	keysOnce.Do(func() {
		var err error
		if keyA, err = GenerateRSA(0); err != nil {
			t.Fatalf("generate: %v", err)
		}
		if keyB, err = GenerateRSA(0); err != nil {
			t.Fatalf("generate: %v", err)
		}
	})
	return keyA, keyB
}

func newTestIssuer(t *testing.T, now time.Time) *Issuer {
	a, _ := testKeys(t)
	return NewIssuer("https://id.example.com", "app", NewKeystore(a)).WithClock(func() time.Time { return now })
}

func TestPEMRoundTripKeepsKID(t *testing.T) {
	a, _ := testKeys(t)
	b, err := EncodePrivateKeyPEM(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := ParsePrivateKeyPEM(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.KID != a.KID {
		t.Fatalf("kid changed: %s != %s", back.KID, a.KID)
	}

	pub, err := EncodePublicKeyPEM(a.Public)
	if err != nil {
		t.Fatalf("encode pub: %v", err)
	}
	pk, err := ParsePublicKeyPEM(pub)
	if err != nil {
		t.Fatalf("parse pub: %v", err)
	}
	if Thumbprint(pk) != a.KID {
		t.Fatalf("public kid mismatch")
	}
}

func TestLoadOrGenerate(t *testing.T) {
	kp, generated, err := LoadOrGenerate("")
	if err != nil || !generated || kp.Alg != "RS256" {
		t.Fatalf("ephemeral: kp=%v generated=%v err=%v", kp, generated, err)
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	pemBytes, err := EncodePrivateKeyPEM(kp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, generated, err := LoadOrGenerate(path)
	if err != nil || generated {
		t.Fatalf("load: generated=%v err=%v", generated, err)
	}
	if loaded.KID != kp.KID {
		t.Fatalf("kid mismatch after reload")
	}
	st, _ := os.Stat(path)
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v", st.Mode().Perm())
	}

	if _, _, err := LoadOrGenerate(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestGenerateRSA_RejectsSmallKeys(t *testing.T) {
	if _, err := GenerateRSA(1024); !errors.Is(err, ErrKeyTooSmall) {
		t.Fatalf("GenerateRSA(1024) err = %v, want ErrKeyTooSmall", err)
	}
}

func TestJWKS_OnlyPublicMaterial(t *testing.T) {
	a, b := testKeys(t)
	ks := NewKeystore(a, b.Public, a.Public)

	set := ks.JWKS()
	if len(set.Keys) != 2 {
		t.Fatalf("keys = %d, want 2 (dup of active ignored)", len(set.Keys))
	}
	if set.Keys[0].Kid != a.KID || set.Keys[1].Kid != b.KID {
		t.Fatalf("order: %s, %s", set.Keys[0].Kid, set.Keys[1].Kid)
	}
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Use != "sig" || k.Alg != "RS256" || k.N == "" || k.E != "AQAB" {
			t.Fatalf("bad jwk: %+v", k)
		}
	}

	var raw map[string][]map[string]any
	if err := json.Unmarshal(ks.JWKSJSON(), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range raw["keys"] {
		for _, private := range []string{"d", "p", "q", "dp", "dq", "qi"} {
			if _, ok := k[private]; ok {
				t.Fatalf("jwks leaks %q", private)
			}
		}
	}
}

func TestMintIDToken_VerifiesAgainstPublishedJWKS(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, now)

	raw, exp, err := iss.MintIDToken(IDTokenInput{
		Subject: "user-1", Email: "a@example.com", EmailVerified: true,
		Name: "Ana", Provider: "discord", ProviderSub: "d-1", Nonce: "n-1",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("exp not in the future")
	}

	// verificación independiente usando solo el JWKS serializado
	var set JWKS
	if err := json.Unmarshal(iss.Keys.JWKSJSON(), &set); err != nil {
		t.Fatalf("jwks: %v", err)
	}
	tok, err := jwtv5.Parse(raw, func(tk *jwtv5.Token) (any, error) {
		kid, _ := tk.Header["kid"].(string)
		for _, k := range set.Keys {
			if k.Kid == kid {
				return k.PublicKey()
			}
		}
		return nil, ErrKeyNotFound
	}, jwtv5.WithValidMethods([]string{"RS256"}), jwtv5.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !tok.Valid {
		t.Fatalf("jwks verification failed: %v", err)
	}

	claims, err := iss.VerifyIDToken(raw, "app")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims["provider"] != "discord" || claims["sub"] != "user-1" || claims["nonce"] != "n-1" {
		t.Fatalf("claims = %v", claims)
	}
	if claims["email_verified"] != true {
		t.Fatalf("email_verified = %v", claims["email_verified"])
	}
	if _, ok := claims["picture"]; ok {
		t.Fatalf("empty picture should be omitted")
	}
}

func TestPreviousKeyStillVerifies(t *testing.T) {
	a, b := testKeys(t)
	now := time.Now()
	old := NewIssuer("https://id.example.com", "app", NewKeystore(b)).WithClock(func() time.Time { return now })
	raw, _, err := old.MintIDToken(IDTokenInput{Subject: "u", Provider: "google"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	rotated := NewIssuer("https://id.example.com", "app", NewKeystore(a, b.Public)).WithClock(func() time.Time { return now })
	if _, err := rotated.VerifyIDToken(raw, "app"); err != nil {
		t.Fatalf("previous key rejected: %v", err)
	}

	dropped := NewIssuer("https://id.example.com", "app", NewKeystore(a)).WithClock(func() time.Time { return now })
	if _, err := dropped.VerifyIDToken(raw, "app"); err == nil {
		t.Fatalf("expected failure once the key left the JWKS")
	}
}

func TestAccessToken_LeewayOnExpiryOnly(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	iss := newTestIssuer(t, issuedAt)
	iss.AccessTTL = time.Minute
	iss.Leeway = 10 * time.Second

	raw, _, err := iss.IssueAccess(AccessInput{Subject: "u-1", Email: "a@example.com", SessionID: "fam-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// dentro del leeway
	iss.WithClock(func() time.Time { return issuedAt.Add(time.Minute + 5*time.Second) })
	c, err := iss.ParseAccess(raw)
	if err != nil {
		t.Fatalf("within leeway: %v", err)
	}
	if c.Subject != "u-1" || c.SessionID != "fam-1" || c.Email != "a@example.com" {
		t.Fatalf("claims = %+v", c)
	}

	// fuera del leeway
	iss.WithClock(func() time.Time { return issuedAt.Add(time.Minute + 11*time.Second) })
	if _, err := iss.ParseAccess(raw); err != ErrExpired {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
}

func TestParseAccess_RejectsIDToken(t *testing.T) {
	iss := newTestIssuer(t, time.Now())
	raw, _, err := iss.MintIDToken(IDTokenInput{Subject: "u", Provider: "x"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := iss.ParseAccess(raw); err != ErrWrongType {
		t.Fatalf("err = %v, want ErrWrongType", err)
	}

	access, _, _ := iss.IssueAccess(AccessInput{Subject: "u"})
	if _, err := iss.VerifyIDToken(access, ""); err != ErrWrongType {
		t.Fatalf("err = %v, want ErrWrongType", err)
	}
}

func TestParse_RejectsForeignIssuerAndTampering(t *testing.T) {
	now := time.Now()
	iss := newTestIssuer(t, now)
	raw, _, _ := iss.IssueAccess(AccessInput{Subject: "u"})

	other := NewIssuer("https://evil.example.com", "app", iss.Keys).WithClock(func() time.Time { return now })
	if _, err := other.ParseAccess(raw); err == nil {
		t.Fatalf("issuer mismatch accepted")
	}

	parts := strings.Split(raw, ".")
	parts[1] = EncodeBase64URL([]byte(`{"sub":"admin","typ":"access"}`))
	if _, err := iss.ParseAccess(strings.Join(parts, ".")); err == nil {
		t.Fatalf("tampered token accepted")
	}
}

func TestDiscoveryDocument(t *testing.T) {
	iss := newTestIssuer(t, time.Now())
	d := iss.DiscoveryDocument("https://id.example.com/")
	if d.Issuer != "https://id.example.com" || d.JWKSURI != "https://id.example.com/.well-known/jwks.json" {
		t.Fatalf("doc = %+v", d)
	}
	if len(d.IDTokenSigningAlgValuesSupported) != 1 || d.IDTokenSigningAlgValuesSupported[0] != "RS256" {
		t.Fatalf("algs = %v", d.IDTokenSigningAlgValuesSupported)
	}
}
