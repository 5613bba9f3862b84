package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/kv"
)

// SnapshotKind 区分读取到的文档格式
type SnapshotKind int

const (
	// SnapshotAbsent 两个键都不存在
	SnapshotAbsent SnapshotKind = iota
	// SnapshotLegacy 只有旧版单 webhook 配置
	SnapshotLegacy
	// SnapshotCurrent 多模板文档
	SnapshotCurrent
)

func (k SnapshotKind) String() string {
	switch k {
	case SnapshotLegacy:
		return "legacy"
	case SnapshotCurrent:
		return "current"
	default:
		return "absent"
	}
}

// Snapshot 一次加载得到的文档；Kind 决定 Legacy 和 Current 哪个有值
type Snapshot struct {
	Kind    SnapshotKind
	Legacy  *LegacyWebhook
	Current *Store
}

// LoadSnapshot 读取文档并在加载时确定格式。多模板键存在时总是优先
func (m *Manager) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	current := Default()
	ok, err := kv.GetJSON(ctx, m.kv, StoreKey, current)
	if err != nil {
		return Snapshot{}, fmt.Errorf("加载存储失败: %w", err)
	}
	if ok {
		current.Normalize()
		return Snapshot{Kind: SnapshotCurrent, Current: current}, nil
	}

	legacy, ok, err := m.loadLegacy(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if ok {
		return Snapshot{Kind: SnapshotLegacy, Legacy: legacy}, nil
	}
	return Snapshot{Kind: SnapshotAbsent}, nil
}

func (m *Manager) loadLegacy(ctx context.Context) (*LegacyWebhook, bool, error) {
	var legacy LegacyWebhook
	ok, err := kv.GetJSON(ctx, m.kv, LegacyKey, &legacy)
	if err != nil {
		return nil, false, fmt.Errorf("加载旧版配置失败: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &legacy, true, nil
}

// Migrate 把旧版单 webhook 配置转换成一个名为 Webhook 的模板。
// 已有模板或没有旧配置时不做任何事，因此可以在每次启动时调用。
// 旧配置按原样复制，不做校验。返回是否发生了迁移。
func (m *Manager) Migrate(ctx context.Context) (bool, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(s.Templates) > 0 {
		return false, nil
	}

	legacy, ok, err := m.loadLegacy(ctx)
	if err != nil || !ok {
		return false, err
	}

	tpl := legacy.Template()
	tpl.ID = m.newID()
	s.Templates = append(s.Templates, tpl)
	s.ActiveTemplateID = strPtr(tpl.ID)
	s.QuickSend = legacy.QuickSend

	if err := m.Save(ctx, s); err != nil {
		return false, fmt.Errorf("保存迁移后的存储失败: %w", err)
	}
	m.log.Info("migrated legacy webhook", zap.String("template", tpl.ID))
	return true, nil
}
