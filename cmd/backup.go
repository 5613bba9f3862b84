package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/backup"
	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/settings"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list and restore backups of the store file",
	Long: `Backups are copies of the store document in <data dir>/backups.
Automatic backups (auto_backup_*) are taken before every write; the last 5
are kept. Manual backups keep the last 10.

  hooky backup create
  hooky backup list
  hooky backup restore <id>`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a manual backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := backupDocument(cmd)
		if err != nil {
			return err
		}
		id, err := backup.CreateBackup(doc)
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("store file not found: %s", doc)
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ "+i18n.T("backup_created", id))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List backups, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := backupDocument(cmd)
		if err != nil {
			return err
		}
		list, err := backup.ListBackups(doc)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, i18n.T("no_backups"))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tSIZE\tKIND")
		for _, b := range list {
			kind := "manual"
			if b.Auto {
				kind = "auto"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", b.ID, b.Timestamp.Local().Format("2006-01-02 15:04:05"), b.Size, kind)
		}
		return w.Flush()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id|path>",
	Short: "Restore a backup (the current store is backed up first)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := backupDocument(cmd)
		if err != nil {
			return err
		}
		path, err := backup.Resolve(doc, args[0])
		if err != nil {
			return err
		}
		saved, err := backup.RestoreBackup(doc, path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if saved != "" {
			fmt.Fprintln(out, i18n.T("backup_created", saved))
		}
		color.New(color.FgGreen).Fprintln(out, "✓ "+i18n.T("backup_restored", args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
}

// backupDocument 备份只对文件后端有意义
func backupDocument(cmd *cobra.Command) (string, error) {
	a, err := getApp(cmd.Context())
	if err != nil {
		return "", err
	}
	if a.settings.Get().Storage.Backend != settings.BackendFile {
		return "", errors.New("backups need storage.backend: file")
	}
	return a.settings.DocumentPath(), nil
}
