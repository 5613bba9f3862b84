package kv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YangQing-Lin/hooky-cli/internal/backup"
)

type doc struct {
	Theme string `json:"theme"`
}

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no change received")
	}
	return Change{}
}

func assertQuiet(t *testing.T, ch <-chan Change, wait time.Duration) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change: %s", c.Value)
	case <-time.After(wait):
	}
}

// storeContract runs the behavior every backend shares.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing_key", func(t *testing.T) {
		raw, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, raw)
	})

	t.Run("set_then_get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "hooky", doc{Theme: "dark"}))
		var got doc
		ok, err := GetJSON(ctx, s, "hooky", &got)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "dark", got.Theme)
	})

	t.Run("keys_are_independent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "webhook", json.RawMessage(`{"url":"https://h.com"}`)))
		raw, ok, err := s.Get(ctx, "webhook")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"url":"https://h.com"}`, string(raw))

		var got doc
		_, err = GetJSON(ctx, s, "hooky", &got)
		require.NoError(t, err)
		assert.Equal(t, "dark", got.Theme)
	})

	t.Run("invalid_raw_rejected", func(t *testing.T) {
		assert.Error(t, s.Set(ctx, "bad", json.RawMessage(`{nope`)))
	})

	t.Run("watch", func(t *testing.T) {
		wctx, cancel := context.WithCancel(ctx)
		ch, err := s.Watch(wctx, "hooky")
		require.NoError(t, err)

		require.NoError(t, s.Set(ctx, "hooky", doc{Theme: "light"}))
		c := receive(t, ch)
		assert.Equal(t, "hooky", c.Key)
		assert.JSONEq(t, `{"theme":"light"}`, string(c.Value))

		// other keys and identical values are filtered
		require.NoError(t, s.Set(ctx, "webhook", json.RawMessage(`{"url":"x"}`)))
		require.NoError(t, s.Set(ctx, "hooky", doc{Theme: "light"}))
		assertQuiet(t, ch, 300*time.Millisecond)

		cancel()
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-ch:
				return !ok
			default:
				return false
			}
		}, 3*time.Second, 10*time.Millisecond)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	storeContract(t, s)

	require.NoError(t, s.Close())
	_, _, err := s.Get(context.Background(), "hooky")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), "hooky", doc{}), ErrClosed)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", json.RawMessage(`{"a":1}`)))

	raw, _, _ := s.Get(ctx, "k")
	raw[2] = 'b'

	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooky.json")
	storeContract(t, NewFileStore(path))
}

func TestFileStorePersistsAndBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "hooky.json")
	ctx := context.Background()

	s := NewFileStore(path)
	require.NoError(t, s.Set(ctx, "hooky", doc{Theme: "dark"}))
	require.NoError(t, s.Set(ctx, "hooky", doc{Theme: "light"}))

	reopened := NewFileStore(path)
	var got doc
	ok, err := GetJSON(ctx, reopened, "hooky", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "light", got.Theme)

	// the first write had nothing to back up
	backups, err := backup.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.True(t, backups[0].Auto)

	data, err := os.ReadFile(backups[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dark"`)
}

func TestFileStoreWithoutAutoBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooky.json")
	s := NewFileStore(path, WithAutoBackup(false))
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", 1))
	require.NoError(t, s.Set(ctx, "a", 2))

	backups, err := backup.ListBackups(path)
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooky.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	s := NewFileStore(path)
	_, _, err := s.Get(context.Background(), "hooky")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "hooky", doc{}))
}

func TestFileStoreEmptyFileAndNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooky.json")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	s := NewFileStore(path)
	_, ok, err := s.Get(context.Background(), "hooky")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte(`{"hooky":null}`), 0600))
	_, ok, err = s.Get(context.Background(), "hooky")
	require.NoError(t, err)
	assert.False(t, ok, "null is treated as absent")
}

func TestFileStoreWatchSeesExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooky.json")
	s := NewFileStore(path)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx, "hooky")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"hooky":{"theme":"dark"}}`), 0600))
	c := receive(t, ch)
	assert.JSONEq(t, `{"theme":"dark"}`, string(c.Value))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("HOOKY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HOOKY_TEST_REDIS_ADDR not set")
	}

	prefix := "hooky-test-" + time.Now().Format("150405.000000") + ":"
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr, Prefix: prefix}, nil)
	require.NoError(t, err)
	defer s.Close()

	storeContract(t, s)
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, err)
}
