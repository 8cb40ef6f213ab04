package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dropDatabas3/yesod/internal/config"
)

const maxBody = 1 << 20

type endpoints struct {
	Auth     string
	Token    string
	UserInfo string
}

// base implementa lo común a todos los adapters: URL de autorización, canje via
// x/oauth2 y GET de userinfo con bearer. Cada proveedor lo embebe y sobreescribe
// FetchIdentity cuando su respuesta lo requiere.
type base struct {
	kind        Kind
	caps        Capabilities
	oauth       oauth2.Config
	userInfoURL string
	authParams  []oauth2.AuthCodeOption
	headers     http.Header
	http        *http.Client
}

// newBase aplica overrides de config sobre los endpoints públicos.
// style siempre es explícito: AuthStyleAutoDetect reintenta el canje con el
// otro estilo y eso consumiría el code dos veces.
func newBase(kind Kind, caps Capabilities, pc config.ProviderConfig, def endpoints, scopes []string, style oauth2.AuthStyle, client *http.Client) base {
	ep := def
	if pc.AuthURL != "" {
		ep.Auth = pc.AuthURL
	}
	if pc.TokenURL != "" {
		ep.Token = pc.TokenURL
	}
	if pc.UserInfoURL != "" {
		ep.UserInfo = pc.UserInfoURL
	}
	if len(pc.Scopes) > 0 {
		scopes = pc.Scopes
	}
	return base{
		kind: kind,
		caps: caps,
		oauth: oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   ep.Auth,
				TokenURL:  ep.Token,
				AuthStyle: style,
			},
		},
		userInfoURL: ep.UserInfo,
		http:        client,
	}
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Capabilities() Capabilities { return b.caps }

func (b *base) AuthorizeURL(redirectURI, state string, challenge *PKCE) string {
	c := b.oauth
	c.RedirectURL = redirectURI

	opts := make([]oauth2.AuthCodeOption, 0, len(b.authParams)+2)
	opts = append(opts, b.authParams...)
	if challenge != nil && b.caps.SendsPKCE() {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", challenge.Challenge),
			oauth2.SetAuthURLParam("code_challenge_method", challenge.Method()),
		)
	}
	return c.AuthCodeURL(state, opts...)
}

func (b *base) Exchange(ctx context.Context, code, redirectURI, verifier string) (*TokenSet, error) {
	c := b.oauth
	c.RedirectURL = redirectURI
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.http)

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := c.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, b.exchangeError(err)
	}

	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
	if idt, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idt
	}
	return ts, nil
}

func (b *base) exchangeError(err error) *ExchangeError {
	e := &ExchangeError{Provider: b.kind, Err: err}
	var re *oauth2.RetrieveError
	switch {
	case errors.As(err, &re):
		if re.Response != nil {
			e.Status = re.Response.StatusCode
		}
		e.Reason = re.ErrorCode
		if e.Reason == "" {
			e.Reason = truncate(string(re.Body), 200)
		}
	case isTimeout(err):
		e.Reason = "timeout"
	default:
		e.Reason = "malformed response: " + err.Error()
	}
	return e
}

// FetchIdentity por defecto: GET userinfo y devolver el objeto JSON tal cual.
func (b *base) FetchIdentity(ctx context.Context, accessToken string) (*RawIdentity, error) {
	claims, err := b.getJSON(ctx, b.userInfoURL, accessToken)
	if err != nil {
		return nil, err
	}
	return &RawIdentity{Provider: b.kind, Claims: claims}, nil
}

// getJSON hace GET con bearer y decodifica un objeto JSON.
// Los números quedan como json.Number para no perder ids grandes.
func (b *base) getJSON(ctx context.Context, url, accessToken string) (map[string]any, error) {
	var out map[string]any
	if err := b.getInto(ctx, url, accessToken, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &IdentityError{Provider: b.kind, Status: http.StatusOK, Reason: "empty body"}
	}
	return out, nil
}

func (b *base) getInto(ctx context.Context, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &IdentityError{Provider: b.kind, Reason: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	for k, vs := range b.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.http.Do(req)
	if err != nil {
		reason := "transport error"
		if isTimeout(err) {
			reason = "timeout"
		}
		return &IdentityError{Provider: b.kind, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &IdentityError{Provider: b.kind, Status: resp.StatusCode, Reason: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &IdentityError{Provider: b.kind, Status: resp.StatusCode, Reason: truncate(string(body), 200)}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &IdentityError{Provider: b.kind, Status: resp.StatusCode, Reason: "malformed body", Err: err}
	}
	return nil
}

// unwrapData saca el objeto de respuestas estilo {"data": {...}} o {"data": [{...}]}.
func (b *base) unwrapData(claims map[string]any) (map[string]any, error) {
	switch d := claims["data"].(type) {
	case map[string]any:
		return d, nil
	case []any:
		if len(d) > 0 {
			if m, ok := d[0].(map[string]any); ok {
				return m, nil
			}
		}
	}
	return nil, &IdentityError{Provider: b.kind, Status: http.StatusOK, Reason: "missing data envelope"}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
