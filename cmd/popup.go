package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/lock"
	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/surface"
	"github.com/YangQing-Lin/hooky-cli/internal/tui"
)

// popupRunner 测试中替换为不启动真实终端界面的实现
var popupRunner = tui.Run

var popupCmd = &cobra.Command{
	Use:   "popup",
	Short: "Open the template popup",
	Long: `Opens the popup: pick a template, review the parameters resolved
against the page, edit them and send.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		provider, err := a.pages(&pf)
		if err != nil {
			return err
		}
		return launchPopup(ctx, a, provider.PageContext(ctx, pf.tab()))
	},
}

func init() {
	rootCmd.AddCommand(popupCmd)
	addPageFlags(popupCmd)
}

// runPopup 图标点击在快速发送关闭时走这里，非终端环境只打印提示
func runPopup(cmd *cobra.Command, a *app) error {
	provider, err := a.pages(&pf)
	if err != nil {
		return err
	}
	launch := func(ctx context.Context) error {
		return launchPopup(ctx, a, provider.PageContext(ctx, pf.tab()))
	}
	surface.NewTerminal(cmd.OutOrStdout(), launch,
		surface.WithLogger(a.log),
		surface.WithTerminalCheck(isTerminal),
	).OpenManualUI(cmd.Context())
	return nil
}

// launchPopup 持有 popup 锁期间运行弹窗，同一数据目录只允许一个弹窗
func launchPopup(ctx context.Context, a *app, page pagecontext.Context) error {
	l := lock.New(a.settings.Dir(), "popup")
	if err := l.Acquire(); err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return errors.New(i18n.T("popup_running"))
		}
		return err
	}
	defer l.Release()

	m, err := tui.New(ctx, a.store, a.dispatcher(nil), page)
	if err != nil {
		return fmt.Errorf("open popup: %w", err)
	}
	return popupRunner(ctx, m)
}
