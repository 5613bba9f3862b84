package i18n

import (
	"testing"
)

func TestSetLanguage(t *testing.T) {
	tests := []struct {
		name string
		lang string
		want string
	}{
		{"设置英文", "en", "en"},
		{"设置中文", "zh", "zh"},
		{"设置无效语言", "fr", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLanguage("en")
			t.Cleanup(func() { SetLanguage("en") })

			SetLanguage(tt.lang)
			if got := GetLanguage(); got != tt.want {
				t.Errorf("GetLanguage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestT(t *testing.T) {
	t.Cleanup(func() { SetLanguage("en") })

	tests := []struct {
		name string
		lang string
		key  string
		args []interface{}
		want string
	}{
		{"english", "en", "send", nil, "Send"},
		{"chinese", "zh", "send", nil, "发送"},
		{"format", "en", "success_status", []interface{}{"200"}, "Sent (200)"},
		{"format zh", "zh", "template_created", []interface{}{"A"}, "模板已创建: A"},
		{"missing key", "zh", "does.not.exist", nil, "does.not.exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLanguage(tt.lang)
			if got := T(tt.key, tt.args...); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestMessageTablesHaveSameKeys(t *testing.T) {
	for key := range messages["en"] {
		if _, ok := messages["zh"][key]; !ok {
			t.Errorf("zh 缺少翻译: %s", key)
		}
	}
	for key := range messages["zh"] {
		if _, ok := messages["en"][key]; !ok {
			t.Errorf("en 缺少翻译: %s", key)
		}
	}
}
