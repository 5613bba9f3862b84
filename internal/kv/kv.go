// Package kv is the key-value persistence the hooky store sits on. Every
// value is one JSON document stored under a top-level key.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv: store closed")

// Change is emitted by Watch when the value under Key changes. Value is nil
// when the key was removed.
type Change struct {
	Key   string
	Value json.RawMessage
}

// Store is a JSON document store keyed by top-level key.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	// Set replaces the whole value under key.
	Set(ctx context.Context, key string, value any) error
	// Watch streams changes to key until ctx is done. The channel is closed
	// afterwards.
	Watch(ctx context.Context, key string) (<-chan Change, error)
	Close() error
}

// GetJSON decodes the value under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// encode turns value into compact JSON; raw messages pass through.
func encode(value any) (json.RawMessage, error) {
	var data []byte
	switch v := value.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("invalid json value: %w", err)
	}
	return buf.Bytes(), nil
}

// sameValue compares two documents ignoring formatting.
func sameValue(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ca, errA := encode(a)
	cb, errB := encode(b)
	if errA != nil || errB != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca, cb)
}

// send delivers c without blocking past ctx.
func send(ctx context.Context, ch chan<- Change, c Change) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
