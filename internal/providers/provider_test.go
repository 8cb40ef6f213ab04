package providers

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yesod/internal/config"
)

// fakeUpstream sirve token y userinfo para un proveedor falso.
type fakeUpstream struct {
	srv       *httptest.Server
	tokenHits atomic.Int32
	tokenFn   http.HandlerFunc
	userFn    http.HandlerFunc
	emailsFn  http.HandlerFunc

	mu         sync.Mutex
	lastTokenQ url.Values
	lastAuth   string
}

func (f *fakeUpstream) last() (url.Values, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTokenQ, f.lastAuth
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits.Add(1)
		_ = r.ParseForm()
		f.mu.Lock()
		f.lastTokenQ = r.PostForm
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		f.tokenFn(w, r)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) { f.userFn(w, r) })
	mux.HandleFunc("/emails", func(w http.ResponseWriter, r *http.Request) { f.emailsFn(w, r) })
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) config() config.ProviderConfig {
	return config.ProviderConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		AuthURL:      f.srv.URL + "/authorize",
		TokenURL:     f.srv.URL + "/token",
		UserInfoURL:  f.srv.URL + "/userinfo",
		EmailsURL:    f.srv.URL + "/emails",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func okToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "up-at", "token_type": "Bearer", "expires_in": 3600, "id_token": "up-idt",
	})
}

func TestNewPKCE_S256(t *testing.T) {
	p := NewPKCE()
	require.GreaterOrEqual(t, len(p.Verifier), 43)
	sum := sha256.Sum256([]byte(p.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), p.Challenge)
	assert.Equal(t, "S256", p.Method())
}

func TestAuthorizeURL_GoogleEmbedsPKCEAndOffline(t *testing.T) {
	a := New(Google, config.ProviderConfig{ClientID: "gid", ClientSecret: "s"}, http.DefaultClient)
	pk := &PKCE{Verifier: "v", Challenge: "chal"}

	raw := a.AuthorizeURL("https://broker/cb", "st-1", pk)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "gid", q.Get("client_id"))
	assert.Equal(t, "st-1", q.Get("state"))
	assert.Equal(t, "https://broker/cb", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "chal", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))

	// determinística
	assert.Equal(t, raw, a.AuthorizeURL("https://broker/cb", "st-1", pk))
}

func TestAuthorizeURL_NoPKCEProviderOmitsChallenge(t *testing.T) {
	a := New(Discord, config.ProviderConfig{ClientID: "did", ClientSecret: "s"}, http.DefaultClient)
	assert.Equal(t, PKCENone, a.Capabilities().PKCE)

	u, err := url.Parse(a.AuthorizeURL("https://broker/cb", "st", &PKCE{Challenge: "chal"}))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("code_challenge"))
	assert.Equal(t, "identify email", u.Query().Get("scope"))
}

func TestCapabilities_Table(t *testing.T) {
	want := map[Kind]PKCEMode{
		Google: PKCEEnforced, GitHub: PKCEEnforced, X: PKCEEnforced,
		LinkedIn: PKCEAttempted, Facebook: PKCEAttempted,
		Discord: PKCENone, Slack: PKCENone, Twitch: PKCENone,
	}
	for _, k := range Kinds {
		a := New(k, config.ProviderConfig{ClientID: "c", ClientSecret: "s"}, http.DefaultClient)
		assert.Equal(t, k, a.Kind())
		assert.Equal(t, want[k], a.Capabilities().PKCE, "kind %s", k)
	}
}

func TestExchange_SendsVerifierAndReturnsTokens(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFn = okToken
	a := New(Google, f.config(), f.srv.Client())

	ts, err := a.Exchange(context.Background(), "the-code", "https://broker/cb", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "up-at", ts.AccessToken)
	assert.Equal(t, "up-idt", ts.IDToken)
	form, _ := f.last()
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "the-verifier", form.Get("code_verifier"))
	assert.Equal(t, "https://broker/cb", form.Get("redirect_uri"))
	assert.Equal(t, "cid", form.Get("client_id"))
}

func TestExchange_XUsesBasicAuth(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFn = okToken
	a := New(X, f.config(), f.srv.Client())

	_, err := a.Exchange(context.Background(), "c", "https://broker/cb", "v")
	require.NoError(t, err)
	form, auth := f.last()
	assert.Contains(t, auth, "Basic ")
	assert.Empty(t, form.Get("client_secret"))
}

func TestExchange_Non2xxFailsOnceWithoutRetry(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	}
	a := New(GitHub, f.config(), f.srv.Client())

	_, err := a.Exchange(context.Background(), "used-code", "https://broker/cb", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchangeFailed))

	var xe *ExchangeError
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, http.StatusBadRequest, xe.Status)
	assert.Equal(t, "invalid_grant", xe.Reason)
	assert.Equal(t, GitHub, xe.Provider)
	assert.Equal(t, int32(1), f.tokenHits.Load())
}

func TestExchange_MalformedBody(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token_type": "Bearer"})
	}
	a := New(Twitch, f.config(), f.srv.Client())

	_, err := a.Exchange(context.Background(), "c", "https://broker/cb", "")
	assert.ErrorIs(t, err, ErrExchangeFailed)
}

func TestExchange_Timeout(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFn = func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		okToken(w, nil)
	}
	client := &http.Client{Timeout: 50 * time.Millisecond}
	a := New(LinkedIn, f.config(), client)

	_, err := a.Exchange(context.Background(), "c", "https://broker/cb", "")
	var xe *ExchangeError
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, "timeout", xe.Reason)
}

func TestFetchIdentity_DefaultAndErrors(t *testing.T) {
	f := newFakeUpstream(t)
	f.userFn = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer up-at" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "bad token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "123456789012345678", "username": "neo"})
	}
	a := New(Discord, f.config(), f.srv.Client())

	raw, err := a.FetchIdentity(context.Background(), "up-at")
	require.NoError(t, err)
	assert.Equal(t, Discord, raw.Provider)
	assert.Equal(t, "123456789012345678", raw.Claims["id"])

	_, err = a.FetchIdentity(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrIdentityFetchFailed)
	var ie *IdentityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, http.StatusUnauthorized, ie.Status)
}

func TestFetchIdentity_GitHubPicksPrimaryVerified(t *testing.T) {
	f := newFakeUpstream(t)
	f.userFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 42, "login": "octo", "email": nil})
	}
	f.emailsFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "main@example.com", "primary": true, "verified": true},
		})
	}
	a := New(GitHub, f.config(), f.srv.Client())

	raw, err := a.FetchIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "main@example.com", raw.Claims["email"])
	assert.Equal(t, true, raw.Claims["email_verified"])
	assert.Equal(t, json.Number("42"), raw.Claims["id"])
}

func TestFetchIdentity_GitHubEmailFailureDegrades(t *testing.T) {
	f := newFakeUpstream(t)
	f.userFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "login": "octo"})
	}
	f.emailsFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "scope missing"})
	}
	a := New(GitHub, f.config(), f.srv.Client())

	raw, err := a.FetchIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "octo", raw.Claims["login"])
	_, hasEmail := raw.Claims["email"]
	assert.False(t, hasEmail)
}

func TestFetchIdentity_TwitchUnwrapsAndSendsClientID(t *testing.T) {
	f := newFakeUpstream(t)
	f.userFn = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Id") != "cid" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "missing client id"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "t1", "login": "streamer"}}})
	}
	a := New(Twitch, f.config(), f.srv.Client())

	raw, err := a.FetchIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "streamer", raw.Claims["login"])
}

func TestFetchIdentity_XUnwrapsData(t *testing.T) {
	f := newFakeUpstream(t)
	f.userFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "x1", "username": "jack"}})
	}
	a := New(X, f.config(), f.srv.Client())

	raw, err := a.FetchIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "jack", raw.Claims["username"])

	f.userFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"errors": []string{"nope"}})
	}
	_, err = a.FetchIdentity(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrIdentityFetchFailed)
}

func TestFetchIdentity_SlackOkFalse(t *testing.T) {
	f := newFakeUpstream(t)
	f.userFn = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "invalid_auth"})
	}
	a := New(Slack, f.config(), f.srv.Client())

	_, err := a.FetchIdentity(context.Background(), "tok")
	var ie *IdentityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "invalid_auth", ie.Reason)
}

func TestRegistry_OnlyEnabled(t *testing.T) {
	cfg := config.Providers{
		Timeout: time.Second,
		Google:  config.ProviderConfig{ClientID: "g", ClientSecret: "s"},
		X:       config.ProviderConfig{ClientID: "x", ClientSecret: "s"},
	}
	r := NewRegistry(cfg)

	assert.Equal(t, []Kind{Google, X}, r.Enabled())

	a, err := r.Lookup("google")
	require.NoError(t, err)
	assert.Equal(t, Google, a.Kind())

	_, err = r.Lookup("github")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = r.Lookup("myspace")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
