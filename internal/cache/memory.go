package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClient implementa Client en memoria. Útil para desarrollo y testing;
// no comparte estado entre instancias.
type MemoryClient struct {
	prefix string
	c      *gocache.Cache
	// takeMu serializa Take: go-cache no tiene get-and-delete atómico.
	takeMu sync.Mutex
}

// NewMemory crea un cliente de cache en memoria con janitor de 1 minuto.
func NewMemory(prefix string) *MemoryClient {
	return &MemoryClient{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	m.c.Set(prefixed(m.prefix, key), value, ttl)
	return nil
}

func (m *MemoryClient) Take(_ context.Context, key string) (string, error) {
	k := prefixed(m.prefix, key)

	m.takeMu.Lock()
	defer m.takeMu.Unlock()

	v, ok := m.c.Get(k)
	if !ok {
		return "", ErrNotFound
	}
	m.c.Delete(k)
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryClient) Delete(_ context.Context, key string) error {
	m.c.Delete(prefixed(m.prefix, key))
	return nil
}

func (m *MemoryClient) Ping(context.Context) error { return nil }

func (m *MemoryClient) Close() error {
	m.c.Flush()
	return nil
}
