package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/params"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
)

// pageFlags 命令行提供的页面信息
type pageFlags struct {
	url       string
	title     string
	selection string
	meta      []string
	fetch     bool
}

var pf pageFlags

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pf.url, "url", "", "page URL")
	cmd.Flags().StringVar(&pf.title, "title", "", "page title")
	cmd.Flags().StringVar(&pf.selection, "selection", "", "selected text")
	cmd.Flags().StringArrayVar(&pf.meta, "meta", nil, "page meta as key=value (repeatable)")
	cmd.Flags().BoolVar(&pf.fetch, "fetch", false, "fetch the page to read its title and meta tags")
}

func (f *pageFlags) empty() bool {
	return f.url == "" && f.title == "" && f.selection == "" && len(f.meta) == 0
}

// tab 没有任何页面参数时返回 nil，相当于没有活动标签页
func (f *pageFlags) tab() *pagecontext.Tab {
	if f.empty() {
		return nil
	}
	return &pagecontext.Tab{ID: 1, URL: f.url, Title: f.title}
}

func (f *pageFlags) page() (pagecontext.Page, error) {
	meta, err := parsePairs(f.meta, "--meta")
	if err != nil {
		return pagecontext.Page{}, err
	}
	m := make(map[string]string, len(meta))
	for _, p := range meta {
		m[p.Key] = p.Value
	}
	return pagecontext.Page{URL: f.url, Title: f.title, Selection: f.selection, Meta: m}, nil
}

// parsePairs 解析 key=value 列表，保持顺序
func parsePairs(values []string, flag string) ([]params.Param, error) {
	out := make([]params.Param, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s %q: want key=value", flag, v)
		}
		out = append(out, params.Param{Key: key, Value: value})
	}
	return out, nil
}

// methodFlag 校验并大写 HTTP 方法
type methodFlag struct {
	value string
}

func (m *methodFlag) String() string { return m.value }

func (m *methodFlag) Set(s string) error {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if !slices.Contains(store.Methods, upper) {
		return fmt.Errorf("must be one of %s", strings.Join(store.Methods, "|"))
	}
	m.value = upper
	return nil
}

func (m *methodFlag) Type() string { return "method" }
