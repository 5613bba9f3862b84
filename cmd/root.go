package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/store"
)

var (
	configDir string
	verbose   bool
	jsonOut   bool

	// exitFunc 测试中替换，避免进程退出
	exitFunc = os.Exit
)

var rootCmd = &cobra.Command{
	Use:   "hooky",
	Short: "Send the current page to a webhook",
	Long: `hooky sends page context (url, title, selection, meta) to configured webhooks.

Usage:
  hooky --url <url> --title <title>   same as clicking the toolbar icon:
                                      quick-send when enabled, otherwise the popup
  hooky send                          run quick send
  hooky send --template <id>          send one template, like a context-menu click
  hooky popup                         open the popup
  hooky template add <name>           create a template`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		return runIconClick(cmd, a)
	},
}

// Execute 运行根命令，出错时以红色输出并退出码 1
func Execute() {
	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "%s: %v\n", "Error", err)
		exitFunc(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "dir", "", "data directory (default: portable dir or ~/.hooky)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout as well")
	addPageFlags(rootCmd)
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print the quick-send outcome as JSON")
}

// runIconClick 工具栏图标：quickSend 开启时快速发送，否则打开弹窗
func runIconClick(cmd *cobra.Command, a *app) error {
	snap, err := a.store.LoadSnapshot(cmd.Context())
	if err != nil {
		a.log.Debug("store unreadable, opening popup", zap.Error(err))
		return runPopup(cmd, a)
	}
	quickSend := false
	switch snap.Kind {
	case store.SnapshotCurrent:
		quickSend = snap.Current.QuickSend
	case store.SnapshotLegacy:
		quickSend = snap.Legacy.QuickSend
	}
	if quickSend {
		return runQuickSend(cmd, a)
	}
	return runPopup(cmd, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := marshalIndent(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
