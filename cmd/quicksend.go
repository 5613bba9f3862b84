package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
)

var designateClear bool

var quickSendCmd = &cobra.Command{
	Use:     "quicksend",
	Aliases: []string{"qs"},
	Short:   "Turn quick send on or off and pick its template",
	Long: `When quick send is on, clicking the icon (running hooky with no command)
sends right away instead of opening the popup.`,
}

var quickSendOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable quick send",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setQuickSend(cmd, true)
	},
}

var quickSendOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable quick send",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setQuickSend(cmd, false)
	},
}

var quickSendDesignateCmd = &cobra.Command{
	Use:   "designate [id]",
	Short: "Use a template when no rule matches",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !designateClear {
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
		if err := a.store.SetQuickSendTemplateID(cmd.Context(), id); err != nil {
			return err
		}
		if id == "" {
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("quicksend_cleared"))
			return nil
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("quicksend_designated", id))
		return nil
	},
}

var quickSendStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quick-send settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		s, err := a.store.Load(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		state := i18n.T("quicksend_off")
		if s.QuickSend {
			state = i18n.T("quicksend_on")
		}
		fmt.Fprintln(out, state)

		designated := "-"
		if tpl := s.DesignatedTemplate(); tpl != nil {
			designated = fmt.Sprintf("%s (%s)", tpl.DisplayName(i18n.T("untitled")), tpl.ID)
		}
		fmt.Fprintf(out, "  template: %s\n", designated)
		enabled := 0
		for _, r := range s.QuickSendRules {
			if r.Enabled {
				enabled++
			}
		}
		fmt.Fprintf(out, "  rules: %d (%d enabled)\n", len(s.QuickSendRules), enabled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quickSendCmd)
	quickSendCmd.AddCommand(quickSendOnCmd, quickSendOffCmd, quickSendDesignateCmd, quickSendStatusCmd)
	quickSendDesignateCmd.Flags().BoolVar(&designateClear, "clear", false, "clear the designated template")
}

func setQuickSend(cmd *cobra.Command, enabled bool) error {
	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := a.store.SetQuickSend(cmd.Context(), enabled); err != nil {
		return err
	}
	key := "quicksend_off"
	if enabled {
		key = "quicksend_on"
	}
	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T(key))
	return nil
}
