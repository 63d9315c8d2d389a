package kv

import (
	"errors"
	"sync"
)

// Memory is an in-process Store. Data does not survive the process; tests use
// it to simulate a restart by building a fresh engine over the same Memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWrites makes every write return an error while true.
	FailWrites bool
}

var _ Store = (*Memory)(nil)

var errWriteInjected = errors.New("kv: injected write failure")

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

func (m *Memory) Set(key string, value []byte) error {
	return m.MultiSet(map[string][]byte{key: value})
}

func (m *Memory) MultiGet(keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = cloneBytes(v)
		}
	}
	return out, nil
}

func (m *Memory) MultiSet(pairs map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errWriteInjected
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	for k, v := range pairs {
		m.data[k] = cloneBytes(v)
	}
	return nil
}

func (m *Memory) MultiRemove(keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errWriteInjected
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Close is a no-op; the data stays readable.
func (m *Memory) Close() error { return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return dup
}
