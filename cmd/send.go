package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/YangQing-Lin/hooky-cli/internal/contextmenu"
	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/surface"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

var sendTemplate string

// isTerminal 测试中替换
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Quick-send the page, or send one template with --template",
	Long: `Without --template, runs quick send: the first matching rule, then the
designated template, then the first template when there are no rules.
When nothing is usable the popup opens instead.

With --template, sends that template like a context-menu click.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if sendTemplate != "" {
			return runMenuClick(cmd, a, contextmenu.ItemID(sendTemplate))
		}
		return runQuickSend(cmd, a)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addPageFlags(sendCmd)
	sendCmd.Flags().StringVarP(&sendTemplate, "template", "t", "", "template id to send")
	sendCmd.Flags().BoolVar(&jsonOut, "json", false, "print the outcome as JSON")
}

// onceProvider 一次命令内只抽取一次页面
type onceProvider struct {
	base quicksend.PageInfo
	once sync.Once
	page pagecontext.Context
}

func (p *onceProvider) PageContext(ctx context.Context, tab *pagecontext.Tab) pagecontext.Context {
	p.once.Do(func() { p.page = p.base.PageContext(ctx, tab) })
	return p.page
}

func runQuickSend(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	provider, err := a.pages(&pf)
	if err != nil {
		return err
	}
	pages := &onceProvider{base: provider}
	out := cmd.OutOrStdout()

	var surf quicksend.Surface = &surface.Recorder{}
	if !jsonOut {
		launch := func(ctx context.Context) error {
			return launchPopup(ctx, a, pages.PageContext(ctx, pf.tab()))
		}
		surf = surface.NewTerminal(out, launch,
			surface.WithLogger(a.log),
			surface.WithTerminalCheck(isTerminal),
		)
	}

	resolver := quicksend.New(a.store, pages, a.dispatcher(nil), surf,
		quicksend.WithLogger(a.log.Named("quicksend")),
	)
	outcome := resolver.Run(ctx, pf.tab())
	if jsonOut {
		return printJSON(cmd, outcome)
	}
	if outcome.Dispatched() {
		printResult(out, *outcome.Result)
	}
	return nil
}

// printResult 输出状态码或错误信息
func printResult(out io.Writer, r webhook.Result) {
	switch {
	case r.OK:
		fmt.Fprintln(out, i18n.T("success_status", fmt.Sprint(r.Status)))
	case r.Error != "":
		fmt.Fprintf(out, "%s: %s\n", i18n.T("request_failed"), r.Error)
	default:
		fmt.Fprintln(out, i18n.T("failed_status", fmt.Sprint(r.Status)))
	}
}
