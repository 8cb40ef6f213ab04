// Package social orquesta el login y el link de cuentas contra proveedores
// externos: begin (state + PKCE + authorize URL) y callback (consume, canje,
// identidad, resolución de cuenta, emisión de tokens).
package social

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/yesod/internal/account"
	"github.com/dropDatabas3/yesod/internal/audit"
	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/events"
	"github.com/dropDatabas3/yesod/internal/identity"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/metrics"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
	"github.com/dropDatabas3/yesod/internal/providers"
	"github.com/dropDatabas3/yesod/internal/state"
	"github.com/dropDatabas3/yesod/internal/token"
)

// Adapters es la vista del registry que usa el servicio.
type Adapters interface {
	Lookup(name string) (providers.Adapter, error)
	Enabled() []providers.Kind
}

// Deps contiene las dependencias del servicio social.
type Deps struct {
	Providers Adapters
	State     *state.Store
	Accounts  *account.Resolver
	Tokens    *token.Service
	Events    events.Emitter
	// PublicURL es la base del redirect_uri registrado en cada proveedor.
	PublicURL string
	// FrontendURL recibe el redirect final del callback.
	FrontendURL string
}

type Service struct {
	providers   Adapters
	state       *state.Store
	accounts    *account.Resolver
	tokens      *token.Service
	events      events.Emitter
	publicURL   string
	frontendURL string
	now         func() time.Time
}

func NewService(d Deps) *Service {
	em := d.Events
	if em == nil {
		em = events.Nop{}
	}
	return &Service{
		providers:   d.Providers,
		state:       d.State,
		accounts:    d.Accounts,
		tokens:      d.Tokens,
		events:      em,
		publicURL:   d.PublicURL,
		frontendURL: d.FrontendURL,
		now:         time.Now,
	}
}

func (s *Service) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component("social"), logger.Op(op))
}

// RedirectURI es el callback del broker para el proveedor. Login y link comparten callback.
func (s *Service) RedirectURI(k providers.Kind) string {
	return s.publicURL + "/api/v1/auth/" + k.String() + "/callback"
}

// Enabled lista los proveedores con credenciales.
func (s *Service) Enabled() []providers.Adapter {
	kinds := s.providers.Enabled()
	out := make([]providers.Adapter, 0, len(kinds))
	for _, k := range kinds {
		if ad, err := s.providers.Lookup(k.String()); err == nil {
			out = append(out, ad)
		}
	}
	return out
}

// BeginInput: UserID solo para ActionLink. Nonce (opcional) se copia al ID token.
type BeginInput struct {
	Provider string
	Action   state.Action
	UserID   string
	Nonce    string
}

// Begin registra el intento y devuelve la URL de autorización del proveedor.
func (s *Service) Begin(ctx context.Context, in BeginInput) (string, error) {
	ad, err := s.providers.Lookup(in.Provider)
	if err != nil {
		return "", err
	}
	if in.Action == state.ActionLink && in.UserID == "" {
		return "", errors.New("social: link flow without user")
	}

	var pkce *providers.PKCE
	if ad.Capabilities().SendsPKCE() {
		pkce = providers.NewPKCE()
	}

	attempt := state.Attempt{
		Provider:    ad.Kind().String(),
		RedirectURI: s.RedirectURI(ad.Kind()),
		Action:      in.Action,
		UserID:      in.UserID,
		Nonce:       in.Nonce,
	}
	if pkce != nil {
		attempt.PKCEVerifier = pkce.Verifier
	}
	id, err := s.state.Create(ctx, attempt)
	if err != nil {
		return "", err
	}

	s.log(ctx, "Begin").Debug("authorization started",
		logger.Provider(attempt.Provider), logger.String("action", string(attempt.Action)),
		logger.String("pkce", ad.Capabilities().PKCE.String()))
	return ad.AuthorizeURL(attempt.RedirectURI, id, pkce), nil
}

// CallbackInput son los parámetros que el proveedor devuelve al navegador.
type CallbackInput struct {
	Provider         string
	Code             string
	State            string
	Error            string
	ErrorDescription string
	Client           token.Client
}

// CallbackResult: Pair para login, Linked para link.
type CallbackResult struct {
	Action   state.Action
	Provider providers.Kind
	User     *repository.User
	Outcome  account.Outcome
	Pair     *token.Pair
	Linked   *repository.LinkedAccount
}

// Callback completa el flujo. Los errores son siempre *FlowError con un
// código opaco apto para el redirect; la causa queda en los logs.
func (s *Service) Callback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	log := s.log(ctx, "Callback").With(logger.Provider(in.Provider))
	res, err := s.callback(ctx, in, log)
	if err != nil {
		var fe *FlowError
		if !errors.As(err, &fe) {
			fe = flowErr(CodeServerError, err)
		}
		label := in.Provider
		if _, ok := providers.ParseKind(label); !ok {
			label = "unknown"
		}
		metrics.Login(label, fe.Code)
		audit.Log(ctx, audit.Entry{
			Event: audit.EventLogin, Provider: label, Success: false, Reason: fe.Code,
			IP: in.Client.IP, UserAgent: in.Client.UserAgent,
		})
		return nil, fe
	}
	return res, nil
}

func (s *Service) callback(ctx context.Context, in CallbackInput, log *zap.Logger) (*CallbackResult, error) {
	ad, err := s.providers.Lookup(in.Provider)
	if err != nil {
		return nil, flowErr(CodeStateInvalid, err)
	}
	kind := ad.Kind()

	// El intento se consume aunque el proveedor devuelva error: es de un solo uso.
	att, err := s.state.Consume(ctx, in.State, kind.String())
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			log.Info("authorization attempt not found")
			return nil, flowErr(CodeStateInvalid, err)
		}
		log.Error("state store failed", logger.Err(err))
		return nil, flowErr(CodeServerError, err)
	}
	log = log.With(logger.AttemptID(att.ID))

	if in.Error != "" {
		log.Info("provider returned error",
			logger.String("error", in.Error), logger.String("error_description", in.ErrorDescription))
		if in.Error == "access_denied" {
			return nil, flowErr(CodeAccessDenied, errors.New(in.Error))
		}
		return nil, flowErr(CodeProviderError, errors.New(in.Error))
	}
	if in.Code == "" {
		return nil, flowErr(CodeProviderError, errors.New("social: callback without code"))
	}

	ts, err := ad.Exchange(ctx, in.Code, att.RedirectURI, att.PKCEVerifier)
	if err != nil {
		logUpstream(log, "code exchange failed", err)
		return nil, flowErr(CodeProviderError, err)
	}

	raw, err := ad.FetchIdentity(ctx, ts.AccessToken)
	if err != nil {
		logUpstream(log, "identity fetch failed", err)
		return nil, flowErr(CodeIdentityError, err)
	}
	canon, err := identity.Normalize(raw)
	if err != nil {
		log.Warn("identity normalization failed", logger.Err(err))
		return nil, flowErr(CodeIdentityError, err)
	}

	if att.Action == state.ActionLink {
		return s.finishLink(ctx, att, canon, in.Client, log)
	}
	return s.finishLogin(ctx, att, canon, in.Client, log)
}

func (s *Service) finishLogin(ctx context.Context, att *state.Attempt, id identity.Canonical, client token.Client, log *zap.Logger) (*CallbackResult, error) {
	res, err := s.accounts.Resolve(ctx, id)
	if err != nil {
		log.Error("account resolution failed", logger.Err(err))
		return nil, flowErr(CodeServerError, err)
	}

	pair, err := s.tokens.Issue(ctx, token.IssueInput{
		User: res.User,
		IDToken: &jwt.IDTokenInput{
			Email:         res.User.Email,
			EmailVerified: id.EmailVerified(),
			Name:          res.User.DisplayName,
			Picture:       res.User.AvatarURL,
			Provider:      id.Provider.String(),
			ProviderSub:   id.Subject,
			Nonce:         att.Nonce,
			AuthTime:      s.now(),
		},
		Client: client,
	})
	if err != nil {
		log.Error("token issue failed", logger.Err(err), logger.UserID(res.User.ID))
		return nil, flowErr(CodeServerError, err)
	}

	// user.created (si hubo) ya salió desde el resolver; login va después.
	s.events.Emit(ctx, events.New(events.UserLogin, res.User.ID, map[string]any{
		"provider": id.Provider.String(),
		"outcome":  res.Outcome.String(),
	}))
	metrics.Login(id.Provider.String(), res.Outcome.String())
	audit.Log(ctx, audit.Entry{
		Event: audit.EventLogin, Provider: id.Provider.String(), UserID: res.User.ID, Success: true,
		IP: client.IP, UserAgent: client.UserAgent,
	})
	log.Info("login completed", logger.UserID(res.User.ID), logger.String("outcome", res.Outcome.String()))

	return &CallbackResult{
		Action:   state.ActionLogin,
		Provider: id.Provider,
		User:     res.User,
		Outcome:  res.Outcome,
		Pair:     pair,
	}, nil
}

func (s *Service) finishLink(ctx context.Context, att *state.Attempt, id identity.Canonical, client token.Client, log *zap.Logger) (*CallbackResult, error) {
	if att.UserID == "" {
		return nil, flowErr(CodeServerError, errors.New("social: link attempt without user"))
	}
	la, err := s.accounts.Link(ctx, att.UserID, id)
	if err != nil {
		if errors.Is(err, account.ErrAlreadyLinked) {
			log.Info("link rejected: identity belongs to another user", logger.UserID(att.UserID))
			return nil, flowErr(CodeAlreadyLinked, err)
		}
		log.Error("link failed", logger.Err(err), logger.UserID(att.UserID))
		return nil, flowErr(CodeServerError, err)
	}

	metrics.Login(id.Provider.String(), "link")
	audit.Log(ctx, audit.Entry{
		Event: audit.EventLink, Provider: id.Provider.String(), UserID: att.UserID, Success: true,
		IP: client.IP, UserAgent: client.UserAgent,
	})
	return &CallbackResult{Action: state.ActionLink, Provider: id.Provider, Linked: la}, nil
}

// logUpstream deja el status y el motivo del proveedor solo en el log.
func logUpstream(log *zap.Logger, msg string, err error) {
	var ee *providers.ExchangeError
	var ie *providers.IdentityError
	switch {
	case errors.As(err, &ee):
		log.Warn(msg, logger.UpstreamStatus(ee.Status), logger.String("reason", ee.Reason))
	case errors.As(err, &ie):
		log.Warn(msg, logger.UpstreamStatus(ie.Status), logger.String("reason", ie.Reason))
	default:
		log.Warn(msg, logger.Err(err))
	}
}

// =================================================================================
// REDIRECTS
// =================================================================================

// SuccessRedirect arma la URL del frontend. Los tokens viajan en el fragment
// para que no queden en logs de proxies ni en el Referer.
func (s *Service) SuccessRedirect(res *CallbackResult) string {
	base := s.frontendURL + "/auth/callback"
	if res.Action == state.ActionLink {
		q := url.Values{}
		q.Set("linked", res.Provider.String())
		return base + "?" + q.Encode()
	}

	f := url.Values{}
	f.Set("access_token", res.Pair.AccessToken)
	f.Set("refresh_token", res.Pair.RefreshToken)
	f.Set("token_type", res.Pair.TokenType)
	f.Set("expires_in", strconv.FormatInt(res.Pair.ExpiresIn, 10))
	if res.Pair.IDToken != "" {
		f.Set("id_token", res.Pair.IDToken)
	}
	f.Set("provider", res.Provider.String())
	if res.Outcome == account.OutcomeCreated {
		f.Set("new_user", "true")
	}
	return base + "#" + f.Encode()
}

// ErrorRedirect nunca lleva tokens: solo el código opaco.
func (s *Service) ErrorRedirect(code string) string {
	q := url.Values{}
	q.Set("error", code)
	return s.frontendURL + "/auth/callback?" + q.Encode()
}
