package events

import (
	"context"
	"sync"

	"github.com/dropDatabas3/yesod/internal/metrics"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// Recorder guarda los eventos en memoria (modo dev y tests).
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(ctx context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	metrics.EventEmitted(string(ev.Type), "ok")
	logger.From(ctx).Debug("event recorded",
		logger.EventType(string(ev.Type)), logger.UserID(ev.UserID))
}

// Events devuelve una copia en orden de emisión.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types devuelve solo los tipos, útil para asserts de orden.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
