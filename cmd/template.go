package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/params"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

var (
	tplName     string
	tplURL      string
	tplMethod   methodFlag
	tplParams   []string
	tplNoParams bool
	tplUseClear bool
	tplListJSON bool
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage webhook templates",
	Long: `Create, inspect and edit webhook templates.

Params are key=value pairs. Values may use {{page.url}}, {{page.title}},
{{page.selection}} and {{page.meta.<name>}}.

Examples:
  hooky template add Notes --url https://example.com/hook --param title={{page.title}}
  hooky template update <id> --method GET
  hooky template preview <id> --url https://example.com --title Example`,
}

var templateAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		patch, err := templatePatchFromFlags(cmd)
		if err != nil {
			return err
		}
		tpl, err := a.store.CreateTemplate(ctx, args[0])
		if err != nil {
			return err
		}
		if patch != (store.TemplatePatch{}) {
			id := tpl.ID
			if tpl, err = a.store.UpdateTemplate(ctx, id, patch); err != nil {
				// 校验失败时不留下空模板
				_ = a.store.DeleteTemplate(ctx, id)
				return err
			}
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintln(out, "✓ "+i18n.T("template_created", tpl.DisplayName(i18n.T("untitled"))))
		fmt.Fprintf(out, "  ID: %s\n", tpl.ID)
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List templates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		s, err := a.store.Load(cmd.Context())
		if err != nil {
			return err
		}
		if tplListJSON {
			return printJSON(cmd, s.Templates)
		}
		printTemplates(cmd.OutOrStdout(), s)
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a template as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		tpl, err := a.store.GetTemplate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, tpl)
	},
}

var templateUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a template's name, URL, method or params",
	Long: `Only the flags given are changed. --param replaces the whole parameter
list; --no-params clears it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		patch, err := templatePatchFromFlags(cmd)
		if err != nil {
			return err
		}
		tpl, err := a.store.UpdateTemplate(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("template_updated", tpl.DisplayName(i18n.T("untitled"))))
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a template and the rules that point to it",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.store.DeleteTemplate(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("template_deleted", args[0]))
		return nil
	},
}

var templateUseCmd = &cobra.Command{
	Use:   "use [id]",
	Short: "Set the active template (pre-selected in the popup)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !tplUseClear {
			return fmt.Errorf("template id required (or --clear)")
		}
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		if err := a.store.SetActiveTemplateID(cmd.Context(), id); err != nil {
			return err
		}
		if id == "" {
			id = "-"
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("template_activated", id))
		return nil
	},
}

var templatePreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Show the request a template would send for a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		tpl, err := a.store.GetTemplate(ctx, args[0])
		if err != nil {
			return err
		}
		if !tpl.Configured() {
			return fmt.Errorf("%s", i18n.T("no_url"))
		}
		provider, err := a.pages(&pf)
		if err != nil {
			return err
		}
		page := provider.PageContext(ctx, pf.tab())
		req, err := webhook.BuildRequest(tpl.WebhookConfig(), page.Vars())
		if err != nil {
			return err
		}
		printRequest(cmd.OutOrStdout(), req)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateAddCmd, templateListCmd, templateShowCmd,
		templateUpdateCmd, templateDeleteCmd, templateUseCmd, templatePreviewCmd)

	for _, c := range []*cobra.Command{templateAddCmd, templateUpdateCmd} {
		c.Flags().StringVar(&tplURL, "url", "", "webhook URL")
		c.Flags().Var(&tplMethod, "method", "HTTP method: "+strings.Join(store.Methods, "|"))
		c.Flags().StringArrayVarP(&tplParams, "param", "p", nil, "parameter as key=value (repeatable)")
	}
	templateUpdateCmd.Flags().StringVar(&tplName, "name", "", "template name")
	templateUpdateCmd.Flags().BoolVar(&tplNoParams, "no-params", false, "remove all parameters")
	templateUseCmd.Flags().BoolVar(&tplUseClear, "clear", false, "clear the active template")
	templateListCmd.Flags().BoolVar(&tplListJSON, "json", false, "print as JSON")
	addPageFlags(templatePreviewCmd)
}

// templatePatchFromFlags 只收集显式给出的参数
func templatePatchFromFlags(cmd *cobra.Command) (store.TemplatePatch, error) {
	var patch store.TemplatePatch
	flags := cmd.Flags()
	if flags.Changed("name") {
		patch.Name = &tplName
	}
	if flags.Changed("url") {
		patch.URL = &tplURL
	}
	if flags.Changed("method") {
		method := tplMethod.String()
		patch.Method = &method
	}
	switch {
	case flags.Changed("param"):
		list, err := parsePairs(tplParams, "--param")
		if err != nil {
			return patch, err
		}
		patch.Params = &list
	case tplNoParams:
		empty := []params.Param{}
		patch.Params = &empty
	}
	return patch, nil
}

func printTemplates(out io.Writer, s *store.Store) {
	if len(s.Templates) == 0 {
		fmt.Fprintln(out, i18n.T("no_templates"))
		return
	}
	active := ""
	if s.ActiveTemplateID != nil {
		active = *s.ActiveTemplateID
	}
	designated := ""
	if s.QuickSendTemplateID != nil {
		designated = *s.QuickSendTemplateID
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tMETHOD\tURL\tPARAMS")
	for _, tpl := range s.Templates {
		marker := "○"
		if tpl.ID == active {
			marker = "●"
		}
		if tpl.ID == designated {
			marker += "⚡"
		}
		url := tpl.URL
		if url == "" {
			url = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", marker, tpl.ID,
			tpl.DisplayName(i18n.T("untitled")), tpl.EffectiveMethod(), url, len(tpl.Params))
	}
	w.Flush()
}

func printRequest(out io.Writer, req webhook.Request) {
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint(req.Method), req.URL)
	for k, v := range req.Headers {
		fmt.Fprintf(out, "%s: %s\n", k, v)
	}
	if req.Body != nil {
		fmt.Fprintf(out, "\n%s\n", req.Body)
	}
}
