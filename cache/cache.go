// Package cache stores small byte blobs for a bounded time.
// Concurrent writers race; the last Set wins.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrMiss = errors.New("cache: miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type item struct {
	value   []byte
	expires time.Time
}

// Memory is a process-local Cache.
type Memory struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items: map[string]item{},
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(it.expires) {
		return nil, ErrMiss
	}
	return it.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = item{value: value, expires: m.now().Add(ttl)}
	return nil
}
