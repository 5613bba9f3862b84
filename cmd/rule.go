package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/rules"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
)

var (
	ruleField    string
	ruleOperator string
	ruleValue    string
	ruleTemplate string
	ruleDisabled bool
	ruleListJSON bool
)

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage quick-send rules",
	Long: `Quick-send rules pick a template from the page. They are tried in order;
the first enabled rule that matches wins.

Fields:    ` + strings.Join(rules.Fields, ", ") + `
Operators: ` + strings.Join(rules.Operators, ", ") + `

"matches" takes a case-insensitive regular expression that must compile.

Example:
  hooky rule add --field url --operator contains --value github.com --template <id>`,
}

var ruleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		enabled := !ruleDisabled
		rule, err := a.store.AddQuickSendRule(cmd.Context(), store.RuleInput{
			Field:      ruleField,
			Operator:   ruleOperator,
			Value:      ruleValue,
			TemplateID: ruleTemplate,
			Enabled:    &enabled,
		})
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("rule_added", rule.ID))
		return nil
	},
}

var ruleListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List rules in evaluation order",
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
		if ruleListJSON {
			return printJSON(cmd, s.QuickSendRules)
		}
		printRules(cmd.OutOrStdout(), s)
		return nil
	},
}

var ruleUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		var patch store.RulePatch
		flags := cmd.Flags()
		if flags.Changed("field") {
			patch.Field = &ruleField
		}
		if flags.Changed("operator") {
			patch.Operator = &ruleOperator
		}
		if flags.Changed("value") {
			patch.Value = &ruleValue
		}
		if flags.Changed("template") {
			patch.TemplateID = &ruleTemplate
		}
		rule, err := a.store.UpdateQuickSendRule(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("rule_updated", rule.ID))
		return nil
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a rule",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.store.DeleteQuickSendRule(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("rule_deleted", args[0]))
		return nil
	},
}

func newRuleToggleCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			rule, err := a.store.UpdateQuickSendRule(cmd.Context(), args[0], store.RulePatch{Enabled: &enabled})
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("rule_updated", rule.ID))
			return nil
		},
	}
}

var ruleReorderCmd = &cobra.Command{
	Use:   "reorder <id>...",
	Short: "Move the given rules to the front, in this order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.store.ReorderQuickSendRules(cmd.Context(), args); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("rules_ordered"))
		return nil
	},
}

var ruleTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Show which rule matches a page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := a.store.Load(ctx)
		if err != nil {
			return err
		}
		provider, err := a.pages(&pf)
		if err != nil {
			return err
		}
		page := provider.PageContext(ctx, pf.tab()).RulePage()

		out := cmd.OutOrStdout()
		rule := rules.FindFirstMatch(s.QuickSendRules, page)
		if rule == nil {
			fmt.Fprintln(out, i18n.T("rule_no_match"))
			return nil
		}
		target := rule.TemplateID
		if tpl := s.Template(rule.TemplateID); tpl != nil {
			target = tpl.DisplayName(i18n.T("untitled"))
		}
		fmt.Fprintln(out, i18n.T("rule_matched", rule.ID, target))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.AddCommand(ruleAddCmd, ruleListCmd, ruleUpdateCmd, ruleDeleteCmd,
		newRuleToggleCmd("enable", true), newRuleToggleCmd("disable", false),
		ruleReorderCmd, ruleTestCmd)

	for _, c := range []*cobra.Command{ruleAddCmd, ruleUpdateCmd} {
		c.Flags().StringVar(&ruleField, "field", rules.FieldURL, "page field: "+strings.Join(rules.Fields, "|"))
		c.Flags().StringVar(&ruleOperator, "operator", rules.OpContains, "operator: "+strings.Join(rules.Operators, "|"))
		c.Flags().StringVar(&ruleValue, "value", "", "value to compare with")
		c.Flags().StringVarP(&ruleTemplate, "template", "t", "", "template id to send when the rule matches")
	}
	ruleAddCmd.Flags().BoolVar(&ruleDisabled, "disabled", false, "add the rule disabled")
	ruleListCmd.Flags().BoolVar(&ruleListJSON, "json", false, "print as JSON")
	addPageFlags(ruleTestCmd)
}

func printRules(out io.Writer, s *store.Store) {
	if len(s.QuickSendRules) == 0 {
		fmt.Fprintln(out, i18n.T("no_rules"))
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tON\tCONDITION\tTEMPLATE")
	for i, r := range s.QuickSendRules {
		on := "yes"
		if !r.Enabled {
			on = "no"
		}
		target := r.TemplateID
		if tpl := s.Template(r.TemplateID); tpl != nil {
			target = tpl.DisplayName(i18n.T("untitled"))
		} else {
			target += " (missing)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s %s %q\t%s\n", i+1, r.ID, on, r.Field, r.Operator, r.Value, target)
	}
	w.Flush()
}
