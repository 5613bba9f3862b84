package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/exchange"
)

var editFormat string

// editorRunner 测试中替换为直接改写文件的实现
var editorRunner = func(ctx context.Context, argv []string) error {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the store in $EDITOR",
	Long: `Opens the whole store in $VISUAL or $EDITOR (which may include arguments,
e.g. "code --wait"). On save the edit is validated and applied like import.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		format, err := exchange.ParseFormat(editFormat)
		if err != nil {
			return err
		}
		data, err := exchange.Export(ctx, a.store, format)
		if err != nil {
			return err
		}

		tmp, err := os.CreateTemp("", "hooky-*."+string(format))
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		path := tmp.Name()
		defer os.Remove(path)
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}

		argv, err := editorCommand(path)
		if err != nil {
			return err
		}
		if err := editorRunner(ctx, argv); err != nil {
			return fmt.Errorf("run editor: %w", err)
		}

		edited, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read edited file: %w", err)
		}
		return importStore(cmd, a, edited, format, "edited", false)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editFormat, "format", "f", string(exchange.YAML), "json|yaml|toml")
}

// editorCommand 解析 $VISUAL / $EDITOR，支持带引号的参数
func editorCommand(path string) ([]string, error) {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
		if runtime.GOOS == "windows" {
			editor = "notepad"
		}
	}
	argv, err := shellwords.Parse(editor)
	if err != nil {
		return nil, fmt.Errorf("parse editor %q: %w", editor, err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty editor command")
	}
	return append(argv, path), nil
}
