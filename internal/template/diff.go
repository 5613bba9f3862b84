package template

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// NoDifferences 两段文本一致时 GenerateDiff 的返回值
const NoDifferences = "No differences found."

// GenerateDiff 按行比较两段文本，输出带单个 hunk 的 unified diff
func GenerateDiff(oldText, newText, oldLabel, newLabel string) string {
	if oldText == newText {
		return NoDifferences
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var body strings.Builder
	oldCount, newCount := 0, 0
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			body.WriteString(prefix + line + "\n")
			if d.Type != diffmatchpatch.DiffInsert {
				oldCount++
			}
			if d.Type != diffmatchpatch.DiffDelete {
				newCount++
			}
		}
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- %s\n", oldLabel))
	result.WriteString(fmt.Sprintf("+++ %s\n", newLabel))
	result.WriteString(fmt.Sprintf("@@ -1,%d +1,%d @@\n", oldCount, newCount))
	result.WriteString(body.String())
	return result.String()
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// FormatDiffForCLI 为 CLI 输出格式化 diff（带颜色）
func FormatDiffForCLI(diff string) string {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	var result strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			result.WriteString(bold(line))
		case strings.HasPrefix(line, "-"):
			result.WriteString(red(line))
		case strings.HasPrefix(line, "+"):
			result.WriteString(green(line))
		case strings.HasPrefix(line, "@@"):
			result.WriteString(cyan(line))
		default:
			result.WriteString(line)
		}
		result.WriteString("\n")
	}

	return result.String()
}
