package kv

import (
	"context"
	"encoding/json"
	"sync"
)

const watchBuffer = 16

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]json.RawMessage
	watchers map[string][]*memoryWatcher
	closed   bool
}

type memoryWatcher struct {
	ch chan Change
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]json.RawMessage),
		watchers: make(map[string][]*memoryWatcher),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	defer m.mu.Unlock()
	prev, existed := m.data[key]
	m.data[key] = data

	if existed && sameValue(prev, data) {
		return nil
	}
	for _, w := range m.watchers[key] {
		// a watcher that stopped reading misses intermediate values
		select {
		case w.ch <- Change{Key: key, Value: append(json.RawMessage(nil), data...)}:
		default:
		}
	}
	return nil
}

// Watch implements Store.
func (m *MemoryStore) Watch(ctx context.Context, key string) (<-chan Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	w := &memoryWatcher{ch: make(chan Change, watchBuffer)}
	m.watchers[key] = append(m.watchers[key], w)

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		list := m.watchers[key]
		for i, cur := range list {
			if cur == w {
				m.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(w.ch)
		m.mu.Unlock()
	}()
	return w.ch, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
