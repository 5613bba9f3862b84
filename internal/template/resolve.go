package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern 匹配 {{ path }}，花括号内允许空白
var placeholderPattern = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

// Resolve 使用上下文替换模板中的 {{path.to.value}} 变量
// 无法解析的路径替换为空字符串
func Resolve(tmpl string, ctx map[string]any) string {
	if tmpl == "" {
		return ""
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		value, ok := lookup(ctx, strings.TrimSpace(sub[1]))
		if !ok {
			return ""
		}
		return stringify(value)
	})
}

// lookup 按 "." 分段遍历上下文，段内的 ":" 不作为分隔符（如 page.meta.og:title）
func lookup(ctx map[string]any, path string) (any, bool) {
	var current any = ctx
	for _, segment := range strings.Split(path, ".") {
		next, ok := index(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func index(v any, segment string) (any, bool) {
	switch node := v.(type) {
	case map[string]any:
		if node == nil {
			return nil, false
		}
		val, ok := node[segment]
		return val, ok
	case map[string]string:
		if node == nil {
			return nil, false
		}
		val, ok := node[segment]
		return val, ok
	case []any:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(node) {
			return nil, false
		}
		return node[i], true
	case []string:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(node) {
			return nil, false
		}
		return node[i], true
	}
	return nil, false
}

// stringify 将解析出的值转换为字符串
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
