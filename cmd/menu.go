package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/contextmenu"
	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/surface"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Show or click the context menu",
	Long: `The context menu has a "Hooky" entry with one item per template.
Clicking an item sends that template for the page.`,
}

var menuListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the context menu items",
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
		items := contextmenu.Build(s.Templates)
		if jsonOut {
			return printJSON(cmd, items)
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, i18n.T("no_templates"))
			return nil
		}
		for _, item := range items {
			if item.ParentID == "" {
				fmt.Fprintln(out, item.Title)
				continue
			}
			fmt.Fprintf(out, "  └ %s  (%s)\n", item.Title, item.ID)
		}
		return nil
	},
}

var menuClickCmd = &cobra.Command{
	Use:   "click <item-id>",
	Short: "Click a context menu item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		return runMenuClick(cmd, a, args[0])
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
	menuCmd.AddCommand(menuListCmd, menuClickCmd)
	menuListCmd.Flags().BoolVar(&jsonOut, "json", false, "print as JSON")
	menuClickCmd.Flags().BoolVar(&jsonOut, "json", false, "print the click result as JSON")
	addPageFlags(menuClickCmd)
}

func runMenuClick(cmd *cobra.Command, a *app, itemID string) error {
	ctx := cmd.Context()
	provider, err := a.pages(&pf)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var indicator contextmenu.Indicator = &surface.Recorder{}
	if !jsonOut {
		indicator = surface.NewTerminal(out, nil)
	}
	h := contextmenu.NewHandler(a.store, provider, a.dispatcher(nil), a.log.Named("menu"))
	click, err := h.HandleClick(ctx, itemID, pf.tab(), indicator)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd, click)
	}
	if click.Dispatched {
		printResult(out, *click.Result)
		return nil
	}
	if click.TemplateID == "" {
		return fmt.Errorf("not a template item: %s", itemID)
	}
	if _, err := a.store.GetTemplate(ctx, click.TemplateID); err != nil {
		return err
	}
	return errors.New(i18n.T("no_url"))
}
