// Package store 管理 hooky 的持久化文档：模板、快速发送规则和界面偏好
package store

import (
	"github.com/YangQing-Lin/hooky-cli/internal/params"
	"github.com/YangQing-Lin/hooky-cli/internal/rules"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

// KV 中的键名
const (
	StoreKey  = "hooky"
	LegacyKey = "webhook"
)

// 主题取值
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// Themes 支持的主题
var Themes = []string{ThemeSystem, ThemeLight, ThemeDark}

// Methods 模板支持的 HTTP 方法
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// Template 一个已保存的 webhook 定义
type Template struct {
	ID     string         `json:"id" validate:"required"`
	Name   string         `json:"name"`
	URL    string         `json:"url"`
	Method string         `json:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	Params []params.Param `json:"params"`
}

// EffectiveMethod 返回实际使用的方法，未设置时为 POST
func (t Template) EffectiveMethod() string {
	if t.Method == "" {
		return webhook.DefaultMethod
	}
	return t.Method
}

// Configured 模板是否配置了 URL（未配置的模板不会被发送）
func (t Template) Configured() bool {
	return t.URL != ""
}

// WebhookConfig 转换为发送器使用的配置
func (t Template) WebhookConfig() webhook.Config {
	return webhook.Config{URL: t.URL, Method: t.EffectiveMethod(), Params: t.Params}
}

// DisplayName 名称为空时返回 fallback
func (t Template) DisplayName(fallback string) string {
	if t.Name == "" {
		return fallback
	}
	return t.Name
}

// Store 持久化的根文档
type Store struct {
	Templates           []Template   `json:"templates" validate:"dive"`
	ActiveTemplateID    *string      `json:"activeTemplateId"`
	QuickSend           bool         `json:"quickSend"`
	QuickSendTemplateID *string      `json:"quickSendTemplateId"`
	QuickSendRules      []rules.Rule `json:"quickSendRules" validate:"dive"`
	Theme               string       `json:"theme" validate:"omitempty,oneof=system light dark"`
}

// Default 返回空文档
func Default() *Store {
	return &Store{
		Templates:      []Template{},
		QuickSendRules: []rules.Rule{},
		Theme:          ThemeSystem,
	}
}

// Normalize 补齐 nil 切片，保证序列化结果为 [] 而不是 null
func (s *Store) Normalize() {
	if s.Templates == nil {
		s.Templates = []Template{}
	}
	for i := range s.Templates {
		if s.Templates[i].Params == nil {
			s.Templates[i].Params = []params.Param{}
		}
	}
	if s.QuickSendRules == nil {
		s.QuickSendRules = []rules.Rule{}
	}
}

// Template 按 id 查找模板，不存在返回 nil
func (s *Store) Template(id string) *Template {
	for i := range s.Templates {
		if s.Templates[i].ID == id {
			return &s.Templates[i]
		}
	}
	return nil
}

// ActiveTemplate 返回当前选中的模板
func (s *Store) ActiveTemplate() *Template {
	if s.ActiveTemplateID == nil {
		return nil
	}
	return s.Template(*s.ActiveTemplateID)
}

// DesignatedTemplate 返回快速发送指定的模板
func (s *Store) DesignatedTemplate() *Template {
	if s.QuickSendTemplateID == nil {
		return nil
	}
	return s.Template(*s.QuickSendTemplateID)
}

// ThemeOrDefault 空主题视为 system
func (s *Store) ThemeOrDefault() string {
	if s.Theme == "" {
		return ThemeSystem
	}
	return s.Theme
}

func (s *Store) ruleIndex(id string) int {
	for i := range s.QuickSendRules {
		if s.QuickSendRules[i].ID == id {
			return i
		}
	}
	return -1
}

// LegacyWebhook 旧版单 webhook 配置，只作为迁移来源
type LegacyWebhook struct {
	URL       string         `json:"url"`
	Method    string         `json:"method"`
	Params    []params.Param `json:"params"`
	QuickSend bool           `json:"quickSend"`
}

// Template 把旧配置转换成模板（不含 id）
func (l LegacyWebhook) Template() Template {
	method := l.Method
	if method == "" {
		method = webhook.DefaultMethod
	}
	list := l.Params
	if list == nil {
		list = []params.Param{}
	}
	return Template{Name: "Webhook", URL: l.URL, Method: method, Params: list}
}

// TemplatePatch 模板的部分更新，nil 字段保持不变
type TemplatePatch struct {
	Name   *string         `json:"name,omitempty"`
	URL    *string         `json:"url,omitempty"`
	Method *string         `json:"method,omitempty"`
	Params *[]params.Param `json:"params,omitempty"`
}

func (p TemplatePatch) apply(t *Template) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.URL != nil {
		t.URL = *p.URL
	}
	if p.Method != nil {
		t.Method = *p.Method
	}
	if p.Params != nil {
		t.Params = append([]params.Param{}, (*p.Params)...)
	}
}

// RuleInput 新建规则的参数，Enabled 为 nil 时默认启用
type RuleInput struct {
	Field      string `json:"field"`
	Operator   string `json:"operator"`
	Value      string `json:"value"`
	TemplateID string `json:"templateId"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

// RulePatch 规则的部分更新
type RulePatch struct {
	Field      *string `json:"field,omitempty"`
	Operator   *string `json:"operator,omitempty"`
	Value      *string `json:"value,omitempty"`
	TemplateID *string `json:"templateId,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

func (p RulePatch) apply(r *rules.Rule) {
	if p.Field != nil {
		r.Field = *p.Field
	}
	if p.Operator != nil {
		r.Operator = *p.Operator
	}
	if p.Value != nil {
		r.Value = *p.Value
	}
	if p.TemplateID != nil {
		r.TemplateID = *p.TemplateID
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
}
