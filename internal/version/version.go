package version

import "strings"

// Version 当前版本
const Version = "1.2.0"

// BuildDate 构建日期（由编译时注入）
var BuildDate = "unknown"

// GitCommit Git 提交哈希（由编译时注入）
var GitCommit = "unknown"

// GetVersion 获取版本信息
func GetVersion() string { return Version }

// GetBuildDate 获取构建日期
func GetBuildDate() string { return BuildDate }

// GetGitCommit 获取 Git 提交哈希
func GetGitCommit() string { return GitCommit }

// String 单行版本描述，未注入的构建信息省略
func String() string {
	var b strings.Builder
	b.WriteString("hooky " + Version)
	var extra []string
	if GitCommit != "unknown" && GitCommit != "" {
		extra = append(extra, "commit "+GitCommit)
	}
	if BuildDate != "unknown" && BuildDate != "" {
		extra = append(extra, "built "+BuildDate)
	}
	if len(extra) > 0 {
		b.WriteString(" (" + strings.Join(extra, ", ") + ")")
	}
	return b.String()
}
