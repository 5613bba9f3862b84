package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/kv"
	"github.com/YangQing-Lin/hooky-cli/internal/params"
	"github.com/YangQing-Lin/hooky-cli/internal/rules"
)

// Manager 对文档做整体读-改-写；跨调用不保证原子性，并发写入以最后一次为准
type Manager struct {
	kv    kv.Store
	newID func() string
	log   *zap.Logger
}

// Option 配置 Manager
type Option func(*Manager)

// WithIDGenerator 替换 id 生成函数（测试使用）
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager 创建文档管理器
func NewManager(store kv.Store, opts ...Option) *Manager {
	m := &Manager{kv: store, newID: uuid.NewString, log: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// KV 返回底层存储
func (m *Manager) KV() kv.Store {
	return m.kv
}

// Load 读取文档，不存在时返回空文档
func (m *Manager) Load(ctx context.Context) (*Store, error) {
	s := Default()
	ok, err := kv.GetJSON(ctx, m.kv, StoreKey, s)
	if err != nil {
		return nil, fmt.Errorf("加载存储失败: %w", err)
	}
	if !ok {
		return Default(), nil
	}
	s.Normalize()
	return s, nil
}

// Save 写回整个文档。只校验被修改的实体，其他工具写入的数据原样保留
func (m *Manager) Save(ctx context.Context, s *Store) error {
	s.Normalize()
	if err := m.kv.Set(ctx, StoreKey, s); err != nil {
		return fmt.Errorf("保存存储失败: %w", err)
	}
	return nil
}

// update 读取、修改、保存；fn 返回错误时不写入
func (m *Manager) update(ctx context.Context, fn func(s *Store) error) error {
	s, err := m.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return m.Save(ctx, s)
}

func strPtr(s string) *string {
	return &s
}

func notFound(sentinel error, id string) error {
	return fmt.Errorf("%w: %s", sentinel, id)
}

// CreateTemplate 新建空模板；当前没有选中模板时自动选中
func (m *Manager) CreateTemplate(ctx context.Context, name string) (Template, error) {
	tpl := Template{ID: m.newID(), Name: name, Method: "POST", Params: []params.Param{}}
	err := m.update(ctx, func(s *Store) error {
		s.Templates = append(s.Templates, tpl)
		if s.ActiveTemplateID == nil {
			s.ActiveTemplateID = strPtr(tpl.ID)
		}
		return nil
	})
	if err != nil {
		return Template{}, err
	}
	m.log.Debug("template created", zap.String("id", tpl.ID))
	return tpl, nil
}

// UpdateTemplate 部分更新模板
func (m *Manager) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (Template, error) {
	var updated Template
	err := m.update(ctx, func(s *Store) error {
		tpl := s.Template(id)
		if tpl == nil {
			return notFound(ErrTemplateNotFound, id)
		}
		patch.apply(tpl)
		if err := ValidateTemplate(*tpl); err != nil {
			return err
		}
		updated = *tpl
		return nil
	})
	return updated, err
}

// DeleteTemplate 删除模板，同时删除引用它的规则；
// 被指定为快速发送模板时清除指定，被选中时切换到剩余的第一个模板
func (m *Manager) DeleteTemplate(ctx context.Context, id string) error {
	return m.update(ctx, func(s *Store) error {
		if s.Template(id) == nil {
			return notFound(ErrTemplateNotFound, id)
		}

		kept := s.Templates[:0]
		for _, t := range s.Templates {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		s.Templates = kept

		keptRules := s.QuickSendRules[:0]
		for _, r := range s.QuickSendRules {
			if r.TemplateID != id {
				keptRules = append(keptRules, r)
			}
		}
		s.QuickSendRules = keptRules

		if s.ActiveTemplateID != nil && *s.ActiveTemplateID == id {
			s.ActiveTemplateID = nil
			if len(s.Templates) > 0 {
				s.ActiveTemplateID = strPtr(s.Templates[0].ID)
			}
		}
		if s.QuickSendTemplateID != nil && *s.QuickSendTemplateID == id {
			s.QuickSendTemplateID = nil
		}
		return nil
	})
}

// GetTemplate 按 id 获取模板
func (m *Manager) GetTemplate(ctx context.Context, id string) (Template, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return Template{}, err
	}
	tpl := s.Template(id)
	if tpl == nil {
		return Template{}, notFound(ErrTemplateNotFound, id)
	}
	return *tpl, nil
}

// ListTemplates 按存储顺序列出模板
func (m *Manager) ListTemplates(ctx context.Context) ([]Template, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Templates, nil
}

// GetActiveTemplate 返回当前选中的模板，没有时返回 nil
func (m *Manager) GetActiveTemplate(ctx context.Context) (*Template, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.ActiveTemplate(), nil
}

// SetActiveTemplateID 设置当前模板，空字符串表示清除
func (m *Manager) SetActiveTemplateID(ctx context.Context, id string) error {
	return m.update(ctx, func(s *Store) error {
		if id == "" {
			s.ActiveTemplateID = nil
			return nil
		}
		if s.Template(id) == nil {
			return notFound(ErrTemplateNotFound, id)
		}
		s.ActiveTemplateID = strPtr(id)
		return nil
	})
}

// QuickSend 返回快速发送开关
func (m *Manager) QuickSend(ctx context.Context) (bool, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return false, err
	}
	return s.QuickSend, nil
}

// SetQuickSend 设置快速发送开关，不影响指定模板
func (m *Manager) SetQuickSend(ctx context.Context, enabled bool) error {
	return m.update(ctx, func(s *Store) error {
		s.QuickSend = enabled
		return nil
	})
}

// QuickSendTemplateID 返回指定的快速发送模板 id，未指定时为空字符串
func (m *Manager) QuickSendTemplateID(ctx context.Context) (string, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	if s.QuickSendTemplateID == nil {
		return "", nil
	}
	return *s.QuickSendTemplateID, nil
}

// SetQuickSendTemplateID 指定快速发送模板，空字符串表示清除
func (m *Manager) SetQuickSendTemplateID(ctx context.Context, id string) error {
	return m.update(ctx, func(s *Store) error {
		if id == "" {
			s.QuickSendTemplateID = nil
			return nil
		}
		if s.Template(id) == nil {
			return notFound(ErrTemplateNotFound, id)
		}
		s.QuickSendTemplateID = strPtr(id)
		return nil
	})
}

// QuickSendRules 按存储顺序返回规则
func (m *Manager) QuickSendRules(ctx context.Context) ([]rules.Rule, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.QuickSendRules, nil
}

// AddQuickSendRule 追加规则；至少需要一个模板，且 templateId 必须存在
func (m *Manager) AddQuickSendRule(ctx context.Context, in RuleInput) (rules.Rule, error) {
	rule := rules.Rule{
		ID:         m.newID(),
		Field:      in.Field,
		Operator:   in.Operator,
		Value:      in.Value,
		TemplateID: in.TemplateID,
		Enabled:    in.Enabled == nil || *in.Enabled,
	}
	err := m.update(ctx, func(s *Store) error {
		if len(s.Templates) == 0 {
			return ErrNoTemplates
		}
		if err := ValidateRule(rule); err != nil {
			return err
		}
		if s.Template(rule.TemplateID) == nil {
			return notFound(ErrTemplateNotFound, rule.TemplateID)
		}
		s.QuickSendRules = append(s.QuickSendRules, rule)
		return nil
	})
	if err != nil {
		return rules.Rule{}, err
	}
	return rule, nil
}

// UpdateQuickSendRule 部分更新规则
func (m *Manager) UpdateQuickSendRule(ctx context.Context, id string, patch RulePatch) (rules.Rule, error) {
	var updated rules.Rule
	err := m.update(ctx, func(s *Store) error {
		i := s.ruleIndex(id)
		if i < 0 {
			return notFound(ErrRuleNotFound, id)
		}
		r := s.QuickSendRules[i]
		patch.apply(&r)
		if err := ValidateRule(r); err != nil {
			return err
		}
		if patch.TemplateID != nil && s.Template(r.TemplateID) == nil {
			return notFound(ErrTemplateNotFound, r.TemplateID)
		}
		s.QuickSendRules[i] = r
		updated = r
		return nil
	})
	return updated, err
}

// DeleteQuickSendRule 删除规则
func (m *Manager) DeleteQuickSendRule(ctx context.Context, id string) error {
	return m.update(ctx, func(s *Store) error {
		i := s.ruleIndex(id)
		if i < 0 {
			return notFound(ErrRuleNotFound, id)
		}
		s.QuickSendRules = append(s.QuickSendRules[:i], s.QuickSendRules[i+1:]...)
		return nil
	})
}

// ReorderQuickSendRules 按 ids 重新排列规则；未列出的规则保持原有相对顺序排在最后
func (m *Manager) ReorderQuickSendRules(ctx context.Context, ids []string) error {
	return m.update(ctx, func(s *Store) error {
		reordered := make([]rules.Rule, 0, len(s.QuickSendRules))
		used := make(map[string]bool, len(ids))
		for _, id := range ids {
			if used[id] {
				continue
			}
			i := s.ruleIndex(id)
			if i < 0 {
				return notFound(ErrRuleNotFound, id)
			}
			reordered = append(reordered, s.QuickSendRules[i])
			used[id] = true
		}
		for _, r := range s.QuickSendRules {
			if !used[r.ID] {
				reordered = append(reordered, r)
			}
		}
		s.QuickSendRules = reordered
		return nil
	})
}

// Theme 返回主题，空值视为 system
func (m *Manager) Theme(ctx context.Context) (string, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.ThemeOrDefault(), nil
}

// SetTheme 设置主题
func (m *Manager) SetTheme(ctx context.Context, theme string) error {
	if err := ValidateStruct(&Store{Theme: theme}); err != nil {
		return err
	}
	return m.update(ctx, func(s *Store) error {
		s.Theme = theme
		return nil
	})
}
