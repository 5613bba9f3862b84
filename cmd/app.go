package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/kv"
	"github.com/YangQing-Lin/hooky-cli/internal/logger"
	"github.com/YangQing-Lin/hooky-cli/internal/metrics"
	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/settings"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

// app 一次命令执行共享的依赖
type app struct {
	settings *settings.Manager
	log      *zap.Logger
	kv       kv.Store
	store    *store.Manager
	// migrated 启动时是否把旧版配置迁移成了模板
	migrated bool
}

var current *app

// newTransport 测试中可替换
var newTransport = func(timeout time.Duration) webhook.Transport {
	return webhook.NewRestyTransport(timeout)
}

// getApp 按需初始化设置、日志和存储，同一进程内只初始化一次
func getApp(ctx context.Context) (*app, error) {
	if current != nil {
		return current, nil
	}

	dir, err := settings.ResolveConfigDir(configDir)
	if err != nil {
		return nil, err
	}
	sm, err := settings.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	i18n.SetLanguage(sm.GetLanguage())

	logCfg := sm.LogConfig()
	if verbose {
		logCfg.Level = "debug"
		logCfg.Format = "console"
		logCfg.Output = "both"
	}
	log := logger.New(&logCfg)
	logger.SetLogger(log)

	store, err := openKV(ctx, sm, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	current = &app{
		settings: sm,
		log:      log,
		kv:       store,
		store:    newStoreManager(store, log),
	}
	current.migrateLegacy(ctx)
	return current, nil
}

// migrateLegacy 在任何命令读取存储之前迁移旧版配置；失败只记录日志
func (a *app) migrateLegacy(ctx context.Context) {
	migrated, err := a.store.Migrate(ctx)
	if err != nil {
		a.log.Warn("legacy migration failed", zap.Error(err))
		return
	}
	if migrated {
		a.log.Info("legacy webhook migrated")
		a.migrated = true
	}
}

// closeApp 关闭存储并刷新日志
func closeApp() {
	if current == nil {
		return
	}
	if err := current.kv.Close(); err != nil {
		current.log.Warn("close store", zap.Error(err))
	}
	_ = current.log.Sync()
	logger.SetLogger(nil)
	current = nil
}

func newStoreManager(s kv.Store, log *zap.Logger) *store.Manager {
	return store.NewManager(s, store.WithLogger(log.Named("store")))
}

// openKV 根据 storage.backend 打开存储后端
func openKV(ctx context.Context, sm *settings.Manager, log *zap.Logger) (kv.Store, error) {
	cfg := sm.Get()
	switch cfg.Storage.Backend {
	case settings.BackendMemory:
		return kv.NewMemoryStore(), nil
	case settings.BackendRedis:
		s, err := kv.NewRedisStore(ctx, kv.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, log.Named("kv"))
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		return kv.NewFileStore(sm.DocumentPath(),
			kv.WithAutoBackup(cfg.Storage.AutoBackup),
			kv.WithLogger(log.Named("kv")),
		), nil
	}
}

// dispatcher 创建发送器，超时取自 http.timeout
func (a *app) dispatcher(m *metrics.Metrics) *webhook.Dispatcher {
	var opts []webhook.Option
	if m != nil {
		opts = append(opts, webhook.WithObserver(m.ObserveDispatch))
	}
	return webhook.NewDispatcher(newTransport(a.settings.Get().HTTP.Timeout), opts...)
}

// extractor 开启抓取时返回 HTTP 抽取器，否则为 nil
func (a *app) extractor(force bool) pagecontext.Extractor {
	cfg := a.settings.Get().PageContext
	if !force && !cfg.Fetch {
		return nil
	}
	return pagecontext.NewHTTPExtractor(cfg.Timeout)
}

// pages 把命令行页面参数叠加到抽取结果上
func (a *app) pages(pf *pageFlags) (*pagecontext.Provider, error) {
	page, err := pf.page()
	if err != nil {
		return nil, err
	}
	ex := pagecontext.StaticExtractor{Page: page, Base: a.extractor(pf.fetch)}
	return pagecontext.NewProvider(ex, a.log.Named("page")), nil
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
