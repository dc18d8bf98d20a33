package credstore

import (
	"context"
	"sync"
)

// Memory - хранилище в памяти процесса.
type Memory struct {
	mu sync.RWMutex
	kv map[string]string
}

func NewMemory() *Memory {
	return &Memory{kv: make(map[string]string, 2)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.kv[key] = value
	m.mu.Unlock()

	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.kv, key)
	m.mu.Unlock()

	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	delete(m.kv, KeyAccess)
	delete(m.kv, KeyRefresh)
	m.mu.Unlock()

	return nil
}

func (m *Memory) SetPair(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	m.kv[KeyAccess] = access
	if refresh != "" {
		m.kv[KeyRefresh] = refresh
	}
	m.mu.Unlock()

	return nil
}
