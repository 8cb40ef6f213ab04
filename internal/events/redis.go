package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/yesod/internal/metrics"
	"github.com/dropDatabas3/yesod/internal/observability/logger"
)

// DefaultQueue es la lista que consume el dispatcher de webhooks.
const DefaultQueue = "webhook:events"

type pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisEmitter hace RPUSH del evento serializado en una lista de redis.
type RedisEmitter struct {
	rdb   pusher
	queue string
}

func NewRedisEmitter(rdb redis.Cmdable, queue string) *RedisEmitter {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisEmitter{rdb: rdb, queue: queue}
}

func (e *RedisEmitter) Emit(ctx context.Context, ev Event) {
	log := logger.From(ctx).With(
		logger.Component("events.redis"),
		logger.EventType(string(ev.Type)),
		logger.UserID(ev.UserID),
	)
	b, err := json.Marshal(ev)
	if err != nil {
		metrics.EventEmitted(string(ev.Type), "error")
		log.Error("event marshal failed", logger.Err(err))
		return
	}
	// El request puede haber terminado; el push no depende de su cancelación.
	if err := e.rdb.RPush(context.WithoutCancel(ctx), e.queue, b).Err(); err != nil {
		metrics.EventEmitted(string(ev.Type), "error")
		log.Error("event push failed", logger.Err(err))
		return
	}
	metrics.EventEmitted(string(ev.Type), "ok")
	log.Debug("event emitted", logger.String("event_id", ev.ID))
}
