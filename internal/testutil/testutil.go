// Package testutil 测试辅助：临时文件断言、预置存储文档、记录请求的假传输层
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/YangQing-Lin/hooky-cli/internal/kv"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

// CreateTempFile 在 dir 下创建文件
func CreateTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}
	return path
}

// AssertFileExists 断言文件存在
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("文件不存在: %s", path)
	}
}

// AssertFileNotExists 断言文件不存在
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("文件不应该存在: %s", path)
	}
}

// SeedKV 把原始 JSON 写到 key 下，doc 为空时不写
func SeedKV(t *testing.T, s kv.Store, key, doc string) {
	t.Helper()
	if doc == "" {
		return
	}
	if !json.Valid([]byte(doc)) {
		t.Fatalf("无效的 JSON 文档: %s", doc)
	}
	if err := s.Set(context.Background(), key, json.RawMessage(doc)); err != nil {
		t.Fatalf("写入存储失败: %v", err)
	}
}

// NewMemoryManager 返回一个预置了 hooky 文档的内存存储管理器
func NewMemoryManager(t *testing.T, doc string) *store.Manager {
	t.Helper()
	mem := kv.NewMemoryStore()
	SeedKV(t, mem, store.StoreKey, doc)
	t.Cleanup(func() { mem.Close() })
	return store.NewManager(mem)
}

// Transport 记录请求并返回预设响应，可并发使用
type Transport struct {
	mu       sync.Mutex
	requests []webhook.Request

	Resp webhook.Response
	Err  error
}

// NewTransport 返回一个总是回复 200 的传输层
func NewTransport() *Transport {
	return &Transport{Resp: webhook.Response{OK: true, Status: 200}}
}

// Do 实现 webhook.Transport
func (t *Transport) Do(_ context.Context, req webhook.Request) (webhook.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	return t.Resp, t.Err
}

// Requests 返回已记录请求的副本
func (t *Transport) Requests() []webhook.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]webhook.Request(nil), t.requests...)
}
