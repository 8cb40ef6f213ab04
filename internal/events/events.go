// Package events emite eventos de ciclo de vida de usuarios hacia el sistema
// de notificaciones externo. Emitir nunca hace fallar el request del usuario.
package events

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Type string

const (
	UserCreated       Type = "user.created"
	UserUpdated       Type = "user.updated"
	UserDeleted       Type = "user.deleted"
	UserLogin         Type = "user.login"
	UserOAuthLinked   Type = "user.oauth_linked"
	UserOAuthUnlinked Type = "user.oauth_unlinked"
)

// Event es el payload que consume el dispatcher de webhooks.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Emitter publica eventos. Implementaciones loguean sus propios errores.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

func newID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// New arma un evento con id ULID (ordenable por tiempo).
func New(t Type, userID string, data map[string]any) Event {
	now := time.Now().UTC()
	return Event{ID: newID(now), Type: t, Timestamp: now, UserID: userID, Data: data}
}

// Nop descarta todo.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
