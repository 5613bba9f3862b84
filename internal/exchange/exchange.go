// Package exchange 在 json、yaml、toml 之间导入导出整个存储文档
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/template"
)

// Format 导入导出格式
type Format string

// 支持的格式
const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ParseFormat 解析格式名（大小写不敏感，yml 视为 yaml）
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	}
	return "", fmt.Errorf("不支持的格式: %s (支持: json, yaml, toml)", name)
}

// FormatFromPath 根据文件扩展名推断格式，无扩展名时为 json
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return JSON, nil
	}
	return ParseFormat(ext)
}

// Encode 按格式序列化存储文档；yaml/toml 与 json 使用相同的键名
func Encode(s *store.Store, format Format) ([]byte, error) {
	if format == JSON {
		return marshalJSON(s)
	}

	doc, err := toMap(s)
	if err != nil {
		return nil, err
	}

	switch format {
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("序列化 YAML 失败: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("序列化 YAML 失败: %w", err)
		}
		return buf.Bytes(), nil
	case TOML:
		// toml 没有 null，空值直接省略
		data, err := toml.Marshal(dropNulls(doc))
		if err != nil {
			return nil, fmt.Errorf("序列化 TOML 失败: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("不支持的格式: %s", format)
}

// Decode 按格式解析并校验存储文档
func Decode(data []byte, format Format) (*store.Store, error) {
	var raw []byte
	switch format {
	case JSON:
		raw = data
	case YAML, TOML:
		doc := map[string]any{}
		var err error
		if format == YAML {
			err = yaml.Unmarshal(data, &doc)
		} else {
			err = toml.Unmarshal(data, &doc)
		}
		if err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", strings.ToUpper(string(format)), err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("转换文档失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的格式: %s", format)
	}

	s := store.Default()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("解析存储文档失败: %w", err)
	}
	s.Normalize()
	if err := store.ValidateStore(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Export 读取当前文档并编码
func Export(ctx context.Context, m *store.Manager, format Format) ([]byte, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Encode(s, format)
}

// Plan 一次导入的预览
type Plan struct {
	Next    *store.Store
	Diff    string
	Changed bool
}

// Prepare 解析导入数据并生成与当前文档的 diff，不写入
func Prepare(ctx context.Context, m *store.Manager, data []byte, format Format, label string) (*Plan, error) {
	next, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	current, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}

	oldText, err := marshalJSON(current)
	if err != nil {
		return nil, err
	}
	newText, err := marshalJSON(next)
	if err != nil {
		return nil, err
	}

	diff := template.GenerateDiff(string(oldText), string(newText), "current", label)
	return &Plan{Next: next, Diff: diff, Changed: diff != template.NoDifferences}, nil
}

// Apply 用导入的文档整体替换当前文档
func Apply(ctx context.Context, m *store.Manager, plan *Plan) error {
	return m.Save(ctx, plan.Next)
}

func marshalJSON(s *store.Store) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("序列化 JSON 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func toMap(s *store.Store) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("序列化存储失败: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("转换文档失败: %w", err)
	}
	return doc, nil
}

func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = dropNulls(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = dropNulls(val)
		}
		return out
	}
	return v
}
