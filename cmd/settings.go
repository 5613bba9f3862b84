package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/settings"
	"github.com/YangQing-Lin/hooky-cli/internal/tui"
)

var themes = []string{tui.ThemeSystem, tui.ThemeLight, tui.ThemeDark}

var themeCmd = &cobra.Command{
	Use:       "theme [system|light|dark]",
	Short:     "Show or set the popup theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: themes,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			theme, err := a.store.Theme(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme)
			return nil
		}
		if !slices.Contains(themes, args[0]) {
			return fmt.Errorf("unknown theme %q: want %s", args[0], strings.Join(themes, "|"))
		}
		if err := a.store.SetTheme(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("theme_set", args[0]))
		return nil
	},
}

var langCmd = &cobra.Command{
	Use:       "lang [en|zh]",
	Short:     "Show or set the interface language",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: settings.Languages,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), a.settings.GetLanguage())
			return nil
		}
		if err := a.settings.SetLanguage(args[0]); err != nil {
			return err
		}
		i18n.SetLanguage(args[0])
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("language_set", args[0]))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert a legacy single-webhook config into a template",
	Long: `Older versions kept one webhook under the "webhook" key. migrate turns it
into a template named "Webhook", makes it active and carries over the
quick-send flag. Every command does this on startup; migrate reports the
result or the error. It does nothing once any template exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		migrated, err := a.store.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		if !migrated && !a.migrated {
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("migrate_skipped"))
			return nil
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("migrated"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd, langCmd, migrateCmd)
}
