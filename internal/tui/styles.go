package tui

import "github.com/charmbracelet/lipgloss"

// 主题：light/dark 强制背景色，system 交给终端检测
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

var (
	// 颜色定义（自适应明暗背景）
	primaryColor   = lipgloss.AdaptiveColor{Light: "#007AFF", Dark: "#0A84FF"}
	successColor   = lipgloss.AdaptiveColor{Light: "#34C759", Dark: "#30D158"}
	dangerColor    = lipgloss.AdaptiveColor{Light: "#FF3B30", Dark: "#FF453A"}
	subtleColor    = lipgloss.AdaptiveColor{Light: "#8E8E93", Dark: "#98989D"}
	selectedBg     = lipgloss.AdaptiveColor{Light: "#F2F2F7", Dark: "#2C2C2E"}
	mutedTextColor = lipgloss.AdaptiveColor{Light: "#6C6C70", Dark: "#AEAEB2"}

	// 方法徽章颜色
	methodColors = map[string]lipgloss.AdaptiveColor{
		"GET":    successColor,
		"POST":   primaryColor,
		"PUT":    {Light: "#FF9500", Dark: "#FF9F0A"},
		"PATCH":  {Light: "#AF52DE", Dark: "#BF5AF2"},
		"DELETE": dangerColor,
	}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtleColor).
			Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().
				Background(selectedBg).
				Foreground(primaryColor).
				Bold(true).
				Padding(0, 1)

	normalItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	activeMarkerStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(mutedTextColor)

	paramKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Width(16)

	successMessageStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(dangerColor).
				Bold(true)

	badgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true)

	focusedStyle = lipgloss.NewStyle().Foreground(primaryColor)
	noStyle      = lipgloss.NewStyle()
)

// MethodBadge 返回带颜色的请求方法徽章
func MethodBadge(method string) string {
	color, ok := methodColors[method]
	if !ok {
		color = subtleColor
	}
	return badgeStyle.Foreground(color).Render(method)
}

// ApplyTheme 把存储里的主题偏好应用到 lipgloss，system 保留终端自动检测；未知主题返回 false
func ApplyTheme(theme string) bool {
	switch theme {
	case ThemeLight:
		lipgloss.SetHasDarkBackground(false)
		return true
	case ThemeDark:
		lipgloss.SetHasDarkBackground(true)
		return true
	case ThemeSystem:
		return true
	}
	return false
}
