package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/exchange"
	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/template"
	"github.com/YangQing-Lin/hooky-cli/internal/utils"
)

var (
	exportFormat string
	exportOutput string
	importFormat string
	importDryRun bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export templates, rules and settings",
	Long: `Writes the whole store as json, yaml or toml. Without --output it goes to
stdout; with --output the format defaults to the file extension.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		format, err := pickFormat(exportFormat, exportOutput)
		if err != nil {
			return err
		}
		data, err := exchange.Export(cmd.Context(), a.store, format)
		if err != nil {
			return err
		}
		if exportOutput == "" || exportOutput == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := utils.AtomicWriteFile(exportOutput, data, 0600); err != nil {
			return fmt.Errorf("write %s: %w", exportOutput, err)
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("exported", exportOutput))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the store with an exported file",
	Long: `Reads a json, yaml or toml export, validates it, prints a diff against the
current store and replaces it. --dry-run stops after the diff.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		src := args[0]
		var data []byte
		if src == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(src)
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}

		path := src
		if src == "-" {
			path = ""
		}
		format, err := pickFormat(importFormat, path)
		if err != nil {
			return err
		}
		return importStore(cmd, a, data, format, src, importDryRun)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "json|yaml|toml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "json|yaml|toml (default from extension)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show the diff without writing")
}

// pickFormat --format 优先，其次按文件扩展名，默认 json
func pickFormat(flag, path string) (exchange.Format, error) {
	if flag != "" {
		return exchange.ParseFormat(flag)
	}
	if path == "" || path == "-" {
		return exchange.JSON, nil
	}
	return exchange.FormatFromPath(path)
}

// importStore 打印 diff，非 dry-run 且有变化时写入
func importStore(cmd *cobra.Command, a *app, data []byte, format exchange.Format, label string, dryRun bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	plan, err := exchange.Prepare(ctx, a.store, data, format, label)
	if err != nil {
		return err
	}
	if !plan.Changed {
		fmt.Fprintln(out, i18n.T("no_changes"))
		return nil
	}
	fmt.Fprintln(out, template.FormatDiffForCLI(plan.Diff))
	if dryRun {
		color.New(color.FgYellow).Fprintln(out, i18n.T("dry_run"))
		return nil
	}
	if err := exchange.Apply(ctx, a.store, plan); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(out, "✓ "+i18n.T("imported", label))
	return nil
}
