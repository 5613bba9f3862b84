package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/backup"
	"github.com/YangQing-Lin/hooky-cli/internal/utils"
)

// FileStore keeps every key in one JSON document file.
type FileStore struct {
	path       string
	autoBackup bool
	log        *zap.Logger

	mu     sync.Mutex
	closed bool
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithAutoBackup toggles the automatic backup taken before each write.
func WithAutoBackup(enabled bool) FileOption {
	return func(f *FileStore) { f.autoBackup = enabled }
}

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(l *zap.Logger) FileOption {
	return func(f *FileStore) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFileStore opens (without creating) the document at path.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	f := &FileStore{path: path, autoBackup: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the document file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) readDoc() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取存储文件失败: %w", err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析存储文件失败: %w", err)
	}
	return doc, nil
}

// Get implements Store.
func (f *FileStore) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false, ErrClosed
	}

	doc, err := f.readDoc()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	if !ok || string(v) == "null" {
		return nil, false, nil
	}
	return v, true, nil
}

// Set implements Store.
func (f *FileStore) Set(_ context.Context, key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	doc, err := f.readDoc()
	if err != nil {
		return err
	}
	doc[key] = data

	if f.autoBackup {
		if _, err := backup.CreateAutoBackup(f.path); err != nil {
			return fmt.Errorf("自动备份失败: %w", err)
		}
	}
	if err := utils.WriteJSONFile(f.path, doc, 0600); err != nil {
		return fmt.Errorf("保存存储文件失败: %w", err)
	}
	return nil
}

// Watch implements Store. The directory is watched rather than the file so
// atomic renames are seen.
func (f *FileStore) Watch(ctx context.Context, key string) (<-chan Change, error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监听失败: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("监听目录失败: %w", err)
	}

	last, _, err := f.Get(ctx, key)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	ch := make(chan Change, watchBuffer)
	target := filepath.Clean(f.path)
	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.log.Warn("file watch error", zap.Error(err))
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				cur, _, err := f.Get(ctx, key)
				if err != nil {
					// half-written by another editor; the next event retries
					f.log.Debug("skip unreadable document", zap.Error(err))
					continue
				}
				if sameValue(last, cur) {
					continue
				}
				last = cur
				if !send(ctx, ch, Change{Key: key, Value: cur}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
