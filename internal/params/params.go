// Package params builds outgoing webhook URLs and JSON bodies from key/value
// parameter templates.
package params

import (
	"strings"

	"github.com/YangQing-Lin/hooky-cli/internal/template"
)

// Param is one key/value pair; Value may contain {{path}} placeholders.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// queryMethods carry params in the URL query string instead of the body.
var queryMethods = map[string]bool{
	"GET":    true,
	"DELETE": true,
}

// IsQueryMethod reports whether method sends its params in the query string.
func IsQueryMethod(method string) bool {
	return queryMethods[method]
}

// BuildBody resolves every param with a non-empty key into a fresh map.
// Later duplicates overwrite earlier ones.
func BuildBody(list []Param, ctx map[string]any) map[string]string {
	body := make(map[string]string, len(list))
	for _, p := range list {
		if p.Key == "" {
			continue
		}
		body[p.Key] = template.Resolve(p.Value, ctx)
	}
	return body
}

// BuildURL appends the resolved params as a query string for GET/DELETE.
// Other methods get baseURL back untouched.
func BuildURL(baseURL string, list []Param, ctx map[string]any, method string) string {
	if !IsQueryMethod(method) {
		return baseURL
	}

	parts := make([]string, 0, len(list))
	for _, p := range list {
		if p.Key == "" {
			continue
		}
		resolved := template.Resolve(p.Value, ctx)
		parts = append(parts, EncodeComponent(p.Key)+"="+EncodeComponent(resolved))
	}
	if len(parts) == 0 {
		return baseURL
	}

	separator := "?"
	if strings.Contains(baseURL, "?") {
		separator = "&"
	}
	return baseURL + separator + strings.Join(parts, "&")
}

const upperhex = "0123456789ABCDEF"

// EncodeComponent percent-encodes s the way encodeURIComponent does: only
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) are left as is.
func EncodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
