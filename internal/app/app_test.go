package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/yesod/internal/config"
)

// fakeGitHub simula los endpoints de GitHub que usa el adapter.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"gh-at","token_type":"bearer"}`)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":4242,"login":"octo","name":"Octo Cat","avatar_url":"https://img.test/octo.png"}`)
	})
	mux.HandleFunc("/emails", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"email":"octo@example.com","primary":true,"verified":true}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	srv    *httptest.Server
	client *http.Client
	cfg    *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	up := fakeGitHub(t)

	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Rate.Enabled = false
	cfg.Providers.GitHub = config.ProviderConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		AuthURL:      up.URL + "/authorize",
		TokenURL:     up.URL + "/token",
		UserInfoURL:  up.URL + "/user",
		EmailsURL:    up.URL + "/emails",
	}

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &harness{srv: srv, client: client, cfg: cfg}
}

func (h *harness) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// login recorre begin + callback y devuelve los parámetros del fragment.
func (h *harness) login(t *testing.T) url.Values {
	t.Helper()
	resp := h.do(t, http.MethodGet, "/api/v1/auth/github", "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	authURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	st := authURL.Query().Get("state")
	require.NotEmpty(t, st)
	assert.NotEmpty(t, authURL.Query().Get("code_challenge"))

	q := url.Values{"code": {"good-code"}, "state": {st}}
	resp = h.do(t, http.MethodGet, "/api/v1/auth/github/callback?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, h.cfg.Server.FrontendURL+"/auth/callback#"), loc)

	frag, err := url.ParseQuery(strings.SplitN(loc, "#", 2)[1])
	require.NoError(t, err)
	require.NotEmpty(t, frag.Get("access_token"))
	require.NotEmpty(t, frag.Get("refresh_token"))
	return frag
}

func TestLoginRefreshAndReuse(t *testing.T) {
	h := newHarness(t)
	frag := h.login(t)
	assert.Equal(t, "github", frag.Get("provider"))
	assert.Equal(t, "true", frag.Get("new_user"))

	resp := h.do(t, http.MethodGet, "/api/v1/accounts", frag.Get("access_token"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Email    string `json:"email"`
		Accounts []struct {
			Provider string `json:"provider"`
		} `json:"accounts"`
	}
	decode(t, resp, &list)
	assert.Equal(t, "octo@example.com", list.Email)
	require.Len(t, list.Accounts, 1)
	assert.Equal(t, "github", list.Accounts[0].Provider)

	old := frag.Get("refresh_token")
	resp = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": old})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, resp, &pair)
	assert.NotEqual(t, old, pair.RefreshToken)

	resp = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": old})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var e struct {
		Code string `json:"code"`
	}
	decode(t, resp, &e)
	assert.Equal(t, "REFRESH_REUSED", e.Code)

	// la familia completa quedó revocada
	resp = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSecondLoginReusesUser(t *testing.T) {
	h := newHarness(t)
	first := h.login(t)
	second := h.login(t)
	assert.Empty(t, second.Get("new_user"))

	resp := h.do(t, http.MethodGet, "/api/v1/sessions", second.Get("access_token"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	decode(t, resp, &sessions)
	assert.Len(t, sessions.Sessions, 2)

	resp = h.do(t, http.MethodPost, "/api/v1/auth/logout", "", map[string]any{"refresh_token": first.Get("refresh_token")})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": first.Get("refresh_token")})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnlinkLastMethodConflict(t *testing.T) {
	h := newHarness(t)
	frag := h.login(t)

	resp := h.do(t, http.MethodDelete, "/api/v1/accounts/github", frag.Get("access_token"), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var e struct {
		Code string `json:"code"`
	}
	decode(t, resp, &e)
	assert.Equal(t, "LAST_METHOD", e.Code)
}

func TestCallbackErrorsRedirectWithCode(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/auth/github/callback?code=x&state=forged", "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, h.cfg.Server.FrontendURL+"/auth/callback?error=state_invalid", resp.Header.Get("Location"))

	resp = h.do(t, http.MethodGet, "/api/v1/auth/github", "", nil)
	authURL, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := url.Values{"code": {"bad-code"}, "state": {authURL.Query().Get("state")}}
	resp = h.do(t, http.MethodGet, "/api/v1/auth/github/callback?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, h.cfg.Server.FrontendURL+"/auth/callback?error=provider_error", resp.Header.Get("Location"))
}

func TestUnknownProviderAndAuth(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/v1/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	resp = h.do(t, http.MethodGet, "/api/v1/accounts", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDiscoveryJWKSAndOps(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/.well-known/openid-configuration", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var disc map[string]any
	decode(t, resp, &disc)
	assert.Equal(t, h.cfg.JWT.Issuer, disc["issuer"])
	assert.Equal(t, h.cfg.Server.PublicURL+"/.well-known/jwks.json", disc["jwks_uri"])
	assert.Equal(t, h.cfg.Server.PublicURL+"/api/v1/users/me", disc["userinfo_endpoint"])

	resp = h.do(t, http.MethodGet, "/.well-known/jwks.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	decode(t, resp, &jwks)
	require.Len(t, jwks.Keys, 1)
	assert.NotContains(t, jwks.Keys[0], "d")

	resp = h.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "yesod_")

	resp = h.do(t, http.MethodGet, "/api/v1/auth/providers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), `"github"`)
}

func TestUserProfileLifecycle(t *testing.T) {
	h := newHarness(t)
	frag := h.login(t)
	at := frag.Get("access_token")

	type me struct {
		Sub      string `json:"sub"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Picture  string `json:"picture"`
		Accounts []struct {
			Provider string `json:"provider"`
		} `json:"oauth_accounts"`
	}

	resp := h.do(t, http.MethodGet, "/api/v1/users/me", at, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got me
	decode(t, resp, &got)
	assert.NotEmpty(t, got.Sub)
	assert.Equal(t, "octo@example.com", got.Email)
	assert.Equal(t, "Octo Cat", got.Name)
	require.Len(t, got.Accounts, 1)
	assert.Equal(t, "github", got.Accounts[0].Provider)

	resp = h.do(t, http.MethodPatch, "/api/v1/users/me", at, map[string]any{"display_name": "Octavia"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, "Octavia", got.Name)
	assert.Equal(t, "https://img.test/octo.png", got.Picture)

	resp = h.do(t, http.MethodPatch, "/api/v1/users/me", at, map[string]any{"avatar_url": "javascript:alert(1)"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/v1/users/me/sync-from-provider?provider=github", at, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var synced struct {
		Provider      string   `json:"provider"`
		UpdatedFields []string `json:"updated_fields"`
		Name          string   `json:"name"`
	}
	decode(t, resp, &synced)
	assert.Equal(t, "Octo Cat", synced.Name)
	assert.Contains(t, synced.UpdatedFields, "display_name")

	resp = h.do(t, http.MethodPost, "/api/v1/users/me/sync-from-provider?provider=discord", at, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/v1/users/me", at, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var del struct {
		DeletedUserID   string `json:"deleted_user_id"`
		RevokedSessions int    `json:"revoked_sessions"`
	}
	decode(t, resp, &del)
	assert.Equal(t, got.Sub, del.DeletedUserID)
	assert.Equal(t, 1, del.RevokedSessions)

	resp = h.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": frag.Get("refresh_token")})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/v1/users/me", at, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e struct {
		Code string `json:"code"`
	}
	decode(t, resp, &e)
	assert.Equal(t, "USER_NOT_FOUND", e.Code)
}

func TestRevokeSessionWithMalformedID(t *testing.T) {
	h := newHarness(t)
	frag := h.login(t)

	resp := h.do(t, http.MethodDelete, "/api/v1/sessions/abc", frag.Get("access_token"), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e struct {
		Code string `json:"code"`
	}
	decode(t, resp, &e)
	assert.Equal(t, "SESSION_NOT_FOUND", e.Code)
}
