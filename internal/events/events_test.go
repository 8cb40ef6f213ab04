package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	key    string
	values []interface{}
	err    error
}

func (f *fakePusher) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	return redis.NewIntResult(int64(len(f.values)), f.err)
}

func TestNew_IDsAreOrdered(t *testing.T) {
	a := New(UserCreated, "u1", nil)
	b := New(UserLogin, "u1", nil)
	assert.Len(t, a.ID, 26)
	assert.Less(t, a.ID, b.ID)
}

func TestRedisEmitter_PushesJSON(t *testing.T) {
	fp := &fakePusher{}
	e := &RedisEmitter{rdb: fp, queue: DefaultQueue}

	ev := New(UserOAuthLinked, "u-7", map[string]any{"provider": "github"})
	e.Emit(context.Background(), ev)

	assert.Equal(t, "webhook:events", fp.key)
	require.Len(t, fp.values, 1)
	var got Event
	require.NoError(t, json.Unmarshal(fp.values[0].([]byte), &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, UserOAuthLinked, got.Type)
	assert.Equal(t, "github", got.Data["provider"])
}

func TestRedisEmitter_FailureDoesNotPanic(t *testing.T) {
	fp := &fakePusher{err: errors.New("connection refused")}
	e := &RedisEmitter{rdb: fp, queue: "q"}
	e.Emit(context.Background(), New(UserLogin, "u", nil))
	assert.Len(t, fp.values, 1)
}

func TestRecorder_Order(t *testing.T) {
	r := NewRecorder()
	r.Emit(context.Background(), New(UserCreated, "u", nil))
	r.Emit(context.Background(), New(UserLogin, "u", nil))
	assert.Equal(t, []Type{UserCreated, UserLogin}, r.Types())
	r.Reset()
	assert.Empty(t, r.Events())
}
