// Package state guarda los intentos de autorización en curso (login o link).
//
// Un Attempt se crea al iniciar el flujo y se consume exactamente una vez en el
// callback. El TTL lo impone el backend (cache), no el llamador: un intento
// expirado y uno ya consumido son indistinguibles (ErrStateNotFound).
package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/yesod/internal/cache"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

const keyPrefix = "oauth_state:"

// ErrStateNotFound: id desconocido, ya consumido, expirado o de otro proveedor.
var ErrStateNotFound = errors.New("state: authorization attempt not found")

// Action distingue un login de un link de cuenta sobre un usuario ya autenticado.
type Action string

const (
	ActionLogin Action = "login"
	ActionLink  Action = "link"
)

// Attempt es un intento de autorización en vuelo.
type Attempt struct {
	ID           string    `json:"-"`
	Provider     string    `json:"provider"`
	PKCEVerifier string    `json:"pkce_verifier,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	Action       Action    `json:"action"`
	UserID       string    `json:"user_id,omitempty"`
	Nonce        string    `json:"nonce,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store persiste Attempts sobre un cache.Client compartido entre instancias.
type Store struct {
	kv  cache.Client
	ttl time.Duration
	now func() time.Time
}

// NewStore crea el store. ttl debe ser positivo.
func NewStore(kv cache.Client, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl, now: time.Now}
}

// TTL es la ventana de validez de cada intento.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create genera un id aleatorio, completa timestamps y guarda el intento.
func (s *Store) Create(ctx context.Context, a Attempt) (string, error) {
	id, err := randomID(32)
	if err != nil {
		return "", fmt.Errorf("state: generate id: %w", err)
	}
	now := s.now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.ExpiresAt = now.Add(s.ttl)
	if a.Action == "" {
		a.Action = ActionLogin
	}

	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("state: encode: %w", err)
	}
	if err := s.kv.Set(ctx, keyPrefix+id, string(b), s.ttl); err != nil {
		return "", fmt.Errorf("state: store: %w", err)
	}

	logger.From(ctx).Debug("authorization attempt created",
		logger.Component("state"), logger.Provider(a.Provider), logger.AttemptID(id))
	return id, nil
}

// Consume lee y borra el intento en una sola operación atómica.
// Si provider no coincide con el del intento, el intento queda consumido igual
// y se devuelve ErrStateNotFound.
func (s *Store) Consume(ctx context.Context, id, provider string) (*Attempt, error) {
	if id == "" {
		return nil, ErrStateNotFound
	}
	raw, err := s.kv.Take(ctx, keyPrefix+id)
	if cache.IsNotFound(err) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("state: take: %w", err)
	}

	var a Attempt
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, ErrStateNotFound
	}
	a.ID = id

	// El backend ya expira la key; esto cubre relojes de backends con granularidad gruesa.
	if !a.ExpiresAt.IsZero() && !s.now().Before(a.ExpiresAt) {
		return nil, ErrStateNotFound
	}
	if provider != "" && a.Provider != provider {
		logger.From(ctx).Warn("authorization attempt provider mismatch",
			logger.Component("state"), logger.Provider(provider), logger.String("expected", a.Provider))
		return nil, ErrStateNotFound
	}
	return &a, nil
}

func randomID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
