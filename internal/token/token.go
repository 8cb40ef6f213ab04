// Package token emite las credenciales del broker y maneja el ciclo de vida
// de las familias de refresh tokens: Active -> Rotated -> Revoked.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/yesod/internal/domain/repository"
	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/metrics"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

var (
	// ErrRevoked: el refresh token fue revocado (logout, revocación explícita o reuso).
	ErrRevoked = errors.New("token: refresh token revoked")
	// ErrReuseDetected: se presentó un token ya rotado; la familia entera quedó revocada.
	ErrReuseDetected = errors.New("token: refresh token reuse detected")
	// ErrExpired: el refresh token venció.
	ErrExpired = errors.New("token: refresh token expired")
	// ErrInvalid: el token no corresponde a ningún registro.
	ErrInvalid = errors.New("token: refresh token invalid")
	// ErrSessionNotFound: la sesión no existe o no pertenece al usuario.
	ErrSessionNotFound = errors.New("token: session not found")
)

// Deps agrupa las dependencias del Service.
type Deps struct {
	Tokens     repository.TokenRepository
	Users      repository.UserRepository
	Issuer     *jwt.Issuer
	RefreshTTL time.Duration
}

type Service struct {
	tokens     repository.TokenRepository
	users      repository.UserRepository
	issuer     *jwt.Issuer
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(d Deps) *Service {
	ttl := d.RefreshTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{tokens: d.Tokens, users: d.Users, issuer: d.Issuer, refreshTTL: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Client describe el dispositivo que pidió la sesión.
type Client struct {
	UserAgent string
	IP        string
}

// Pair es la respuesta de Issue y Refresh. IDToken solo se llena en Issue.
type Pair struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshToken     string    `json:"refresh_token"`
	IDToken          string    `json:"id_token,omitempty"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
	SessionID        string    `json:"-"`
}

// IssueInput: IDToken nil omite el ID token.
type IssueInput struct {
	User    *repository.User
	IDToken *jwt.IDTokenInput
	Client  Client
}

func (s *Service) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(logger.Layer("service"), logger.Component("token"), logger.Op(op))
}

// Issue inicia una familia nueva y devuelve access, refresh y (opcional) ID token.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*Pair, error) {
	if in.User == nil || in.User.ID == "" {
		return nil, errors.New("token: issue without user")
	}
	now := s.now().UTC()
	raw, rec, err := s.newRecord(in.User.ID, uuid.NewString(), nil, now, in.Client)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("token: store refresh: %w", err)
	}

	pair, err := s.pair(in.User, rec, raw)
	if err != nil {
		return nil, err
	}
	if in.IDToken != nil {
		idIn := *in.IDToken
		idIn.Subject = in.User.ID
		idt, _, err := s.issuer.MintIDToken(idIn)
		if err != nil {
			return nil, fmt.Errorf("token: mint id token: %w", err)
		}
		pair.IDToken = idt
	}
	s.log(ctx, "Issue").Info("session issued", logger.UserID(in.User.ID), logger.FamilyID(rec.FamilyID))
	return pair, nil
}

// Refresh rota el token presentado. Un token ya rotado revoca la familia completa.
func (s *Service) Refresh(ctx context.Context, raw string, client Client) (*Pair, error) {
	log := s.log(ctx, "Refresh")
	pair, err := s.refresh(ctx, raw, client, log)
	metrics.Refresh(refreshOutcome(err))
	return pair, err
}

func (s *Service) refresh(ctx context.Context, raw string, client Client, log *zap.Logger) (*Pair, error) {
	if raw == "" {
		return nil, ErrInvalid
	}
	cur, err := s.tokens.GetByHash(ctx, Hash(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalid
	}
	if err != nil {
		return nil, err
	}
	log = log.With(logger.FamilyID(cur.FamilyID), logger.UserID(cur.UserID))

	if err := s.classify(ctx, cur, log); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !cur.ExpiresAt.After(now) {
		return nil, ErrExpired
	}

	u, err := s.users.GetByID(ctx, cur.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRevoked
	}
	if err != nil {
		return nil, err
	}

	nextRaw, next, err := s.newRecord(cur.UserID, cur.FamilyID, &cur.ID, now, client)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Rotate(ctx, cur.ID, next); err != nil {
		if !errors.Is(err, repository.ErrTokenNotActive) {
			return nil, fmt.Errorf("token: rotate: %w", err)
		}
		// perdimos el CAS: otro request rotó o revocó primero
		latest, gerr := s.tokens.GetByID(ctx, cur.ID)
		if gerr != nil {
			return nil, gerr
		}
		if cerr := s.classify(ctx, latest, log); cerr != nil {
			return nil, cerr
		}
		return nil, ErrRevoked
	}

	log.Debug("refresh rotated", logger.TokenID(next.ID))
	return s.pair(u, next, nextRaw)
}

// classify devuelve error si el registro no está Active; en Rotated revoca la familia.
func (s *Service) classify(ctx context.Context, rec *repository.RefreshToken, log *zap.Logger) error {
	switch rec.State() {
	case repository.TokenRevoked:
		return ErrRevoked
	case repository.TokenRotated:
		n, err := s.tokens.RevokeFamily(ctx, rec.FamilyID)
		if err != nil {
			log.Error("family revocation failed after reuse", logger.Err(err))
			return fmt.Errorf("token: revoke family: %w", err)
		}
		metrics.ReuseDetected()
		log.Warn("refresh token reuse detected, family revoked",
			logger.TokenID(rec.ID), logger.Int("revoked", n))
		return ErrReuseDetected
	default:
		return nil
	}
}

// RevokeSession revoca la sesión (familia) del token presentado. Tokens
// desconocidos no son error: logout es idempotente.
func (s *Service) RevokeSession(ctx context.Context, raw string) (*repository.RefreshToken, error) {
	rec, err := s.tokens.GetByHash(ctx, Hash(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n, err := s.tokens.RevokeFamily(ctx, rec.FamilyID)
	if err != nil {
		return nil, err
	}
	s.log(ctx, "RevokeSession").Info("session revoked",
		logger.UserID(rec.UserID), logger.FamilyID(rec.FamilyID), logger.Int("revoked", n))
	return rec, nil
}

// RevokeAll revoca todas las sesiones activas del usuario.
func (s *Service) RevokeAll(ctx context.Context, userID string) (int, error) {
	n, err := s.tokens.RevokeAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log(ctx, "RevokeAll").Info("all sessions revoked", logger.UserID(userID), logger.Int("revoked", n))
	return n, nil
}

// Session es la vista pública de un refresh token activo.
type Session struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Current   bool      `json:"current"`
}

// Sessions lista las sesiones activas. currentFamily marca la del caller.
func (s *Service) Sessions(ctx context.Context, userID, currentFamily string) ([]Session, error) {
	recs, err := s.tokens.ListActiveByUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(recs))
	for _, r := range recs {
		out = append(out, Session{
			ID: r.ID, FamilyID: r.FamilyID, IssuedAt: r.IssuedAt, ExpiresAt: r.ExpiresAt,
			UserAgent: r.UserAgent, IP: r.IP, Current: currentFamily != "" && r.FamilyID == currentFamily,
		})
	}
	return out, nil
}

// RevokeByID revoca una sesión del usuario por id de token.
// Un id que no es UUID no puede existir y no llega al store.
func (s *Service) RevokeByID(ctx context.Context, userID, tokenID string) error {
	if _, err := uuid.Parse(tokenID); err != nil {
		return ErrSessionNotFound
	}
	rec, err := s.tokens.GetByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && rec.UserID != userID) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if _, err := s.tokens.RevokeFamily(ctx, rec.FamilyID); err != nil {
		return err
	}
	s.log(ctx, "RevokeByID").Info("session revoked", logger.UserID(userID), logger.FamilyID(rec.FamilyID))
	return nil
}

func (s *Service) newRecord(userID, familyID string, predecessor *string, now time.Time, c Client) (string, repository.RefreshToken, error) {
	raw, err := NewOpaque()
	if err != nil {
		return "", repository.RefreshToken{}, err
	}
	return raw, repository.RefreshToken{
		ID:            uuid.NewString(),
		FamilyID:      familyID,
		UserID:        userID,
		TokenHash:     Hash(raw),
		PredecessorID: predecessor,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.refreshTTL),
		UserAgent:     truncate(c.UserAgent, 512),
		IP:            c.IP,
	}, nil
}

func (s *Service) pair(u *repository.User, rec repository.RefreshToken, raw string) (*Pair, error) {
	access, exp, err := s.issuer.IssueAccess(jwt.AccessInput{
		Subject:   u.ID,
		Email:     u.Email,
		SessionID: rec.FamilyID,
	})
	if err != nil {
		return nil, fmt.Errorf("token: sign access: %w", err)
	}
	return &Pair{
		AccessToken:      access,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.issuer.AccessTTL / time.Second),
		RefreshToken:     raw,
		AccessExpiresAt:  exp,
		RefreshExpiresAt: rec.ExpiresAt,
		SessionID:        rec.FamilyID,
	}, nil
}

// NewOpaque genera 32 bytes aleatorios en base64url sin padding.
func NewOpaque() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash es el SHA-256 hex con el que se guarda el refresh token.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func refreshOutcome(err error) string {
	switch {
	case err == nil:
		return "rotated"
	case errors.Is(err, ErrReuseDetected):
		return "reuse"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
