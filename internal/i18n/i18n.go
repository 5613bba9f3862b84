package i18n

import (
	"fmt"
	"sync"
)

var (
	mu              sync.RWMutex
	currentLanguage = "en"
)

// messages 多语言消息定义
var messages = map[string]map[string]string{
	"en": {
		// Common
		"success":  "Success",
		"failed":   "Failed",
		"error":    "Error",
		"untitled": "Untitled",

		// Sending
		"send":           "Send",
		"sending":        "Sending…",
		"success_status": "Sent (%s)",
		"failed_status":  "Failed (%s)",
		"request_failed": "Request failed",

		// Templates
		"template_created":   "Template created: %s",
		"template_updated":   "Template updated: %s",
		"template_deleted":   "Template deleted: %s",
		"template_activated": "Active template: %s",
		"no_templates":       "No templates yet. Run 'hooky template add <name>' to create one.",
		"no_url":             "This template has no URL. Set one with 'hooky template update <id> --url <url>'.",

		// Rules
		"rule_added":    "Rule added: %s",
		"rule_updated":  "Rule updated: %s",
		"rule_deleted":  "Rule deleted: %s",
		"rules_ordered": "Rules reordered",
		"no_rules":      "No quick-send rules.",
		"rule_matched":  "Matched rule %s → template %s",
		"rule_no_match": "No rule matches this page",

		// Quick send
		"quicksend_on":         "Quick send enabled",
		"quicksend_off":        "Quick send disabled",
		"quicksend_designated": "Quick-send template: %s",
		"quicksend_cleared":    "Quick-send template cleared",
		"manual_ui_opened":     "No quick-send target; opening the popup",
		"manual_ui_unavailable": "No quick-send target, and no terminal to open the popup in. " +
			"Run 'hooky popup' in a terminal.",

		// Store
		"migrated":        "Legacy webhook migrated into a template",
		"migrate_skipped": "Nothing to migrate",
		"theme_set":       "Theme set to %s",
		"imported":        "Store imported from %s",
		"exported":        "Store exported to %s",
		"dry_run":         "Dry run: nothing written",
		"no_changes":      "No changes",
		"language_set":    "Language set to %s",

		// Backups
		"backup_created":  "Backup created: %s",
		"backup_restored": "Backup restored: %s",
		"no_backups":      "No backups",

		// Daemon
		"serve_listening": "Listening on %s",
		"serve_running":   "hooky serve is already running",
		"popup_running":   "A hooky popup is already open",

		// Popup
		"popup_title":     "Hooky",
		"popup_empty":     "No templates configured",
		"popup_help_list": "↑/↓ select • enter open • a set active • q quit",
		"popup_help_form": "tab next field • ctrl+s send • esc back",
		"popup_active":    "active",
	},
	"zh": {
		"success":  "成功",
		"failed":   "失败",
		"error":    "错误",
		"untitled": "未命名",

		"send":           "发送",
		"sending":        "发送中…",
		"success_status": "已发送 (%s)",
		"failed_status":  "发送失败 (%s)",
		"request_failed": "请求失败",

		"template_created":   "模板已创建: %s",
		"template_updated":   "模板已更新: %s",
		"template_deleted":   "模板已删除: %s",
		"template_activated": "当前模板: %s",
		"no_templates":       "还没有模板，运行 'hooky template add <名称>' 创建",
		"no_url":             "该模板没有 URL，使用 'hooky template update <id> --url <url>' 设置",

		"rule_added":    "规则已添加: %s",
		"rule_updated":  "规则已更新: %s",
		"rule_deleted":  "规则已删除: %s",
		"rules_ordered": "规则顺序已更新",
		"no_rules":      "没有快速发送规则",
		"rule_matched":  "命中规则 %s → 模板 %s",
		"rule_no_match": "没有规则命中当前页面",

		"quicksend_on":          "快速发送已开启",
		"quicksend_off":         "快速发送已关闭",
		"quicksend_designated":  "快速发送模板: %s",
		"quicksend_cleared":     "已清除快速发送模板",
		"manual_ui_opened":      "没有可用的快速发送目标，打开弹窗",
		"manual_ui_unavailable": "没有可用的快速发送目标，且当前不是终端，请在终端中运行 'hooky popup'",

		"migrated":        "旧版 webhook 已迁移为模板",
		"migrate_skipped": "无需迁移",
		"theme_set":       "主题已设置为 %s",
		"imported":        "已从 %s 导入",
		"exported":        "已导出到 %s",
		"dry_run":         "预览模式：未写入任何内容",
		"no_changes":      "没有变化",
		"language_set":    "语言已设置为 %s",

		"backup_created":  "备份已创建: %s",
		"backup_restored": "备份已恢复: %s",
		"no_backups":      "没有备份",

		"serve_listening": "正在监听 %s",
		"serve_running":   "hooky serve 已在运行",
		"popup_running":   "已有一个 hooky 弹窗打开",

		"popup_title":     "Hooky",
		"popup_empty":     "还没有配置模板",
		"popup_help_list": "↑/↓ 选择 • enter 打开 • a 设为当前 • q 退出",
		"popup_help_form": "tab 切换 • ctrl+s 发送 • esc 返回",
		"popup_active":    "当前",
	},
}

// SetLanguage 设置当前语言，不支持的语言被忽略
func SetLanguage(lang string) {
	if _, ok := messages[lang]; !ok {
		return
	}
	mu.Lock()
	currentLanguage = lang
	mu.Unlock()
}

// GetLanguage 获取当前语言
func GetLanguage() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentLanguage
}

// T 翻译消息；找不到时回退到英文，再回退到 key 本身
func T(key string, args ...interface{}) string {
	msg, ok := messages[GetLanguage()][key]
	if !ok {
		msg, ok = messages["en"][key]
	}
	if !ok {
		return key
	}

	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
