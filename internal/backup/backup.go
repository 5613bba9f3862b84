// Package backup keeps timestamped copies of the hooky document file.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/YangQing-Lin/hooky-cli/internal/utils"
)

const (
	// MaxBackups is the maximum number of manual backups to keep
	MaxBackups = 10
	// MaxAutoBackups is the maximum number of auto backups to keep
	MaxAutoBackups = 5
	// BackupDirName is the name of the backup directory
	BackupDirName = "backups"
	// AutoBackupPrefix is the prefix for auto backup files
	AutoBackupPrefix = "auto_"
	// ManualBackupPrefix is the prefix for manual backup files
	ManualBackupPrefix = "backup_"
)

// Info describes one backup file.
type Info struct {
	ID        string
	Path      string
	Timestamp time.Time
	Size      int64
	Auto      bool
}

// now is replaced in tests.
var now = time.Now

// Dir returns the backup directory for a document path.
func Dir(docPath string) string {
	return filepath.Join(filepath.Dir(docPath), BackupDirName)
}

// CreateBackup creates a manual backup of docPath.
// Returns the backup ID or empty string if the source doesn't exist.
func CreateBackup(docPath string) (string, error) {
	return createBackup(docPath, false)
}

// CreateAutoBackup creates an automatic backup; the file store calls it
// before every write.
func CreateAutoBackup(docPath string) (string, error) {
	return createBackup(docPath, true)
}

func createBackup(docPath string, isAuto bool) (string, error) {
	data, err := os.ReadFile(docPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	backupDir := Dir(docPath)
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	prefix := ManualBackupPrefix
	if isAuto {
		prefix = AutoBackupPrefix + ManualBackupPrefix
	}
	backupID := uniqueID(backupDir, prefix+now().UTC().Format("20060102_150405"))

	if err := utils.AtomicWriteFile(filepath.Join(backupDir, backupID+".json"), data, 0600); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	if isAuto {
		cleanupByPrefix(backupDir, AutoBackupPrefix, MaxAutoBackups)
	} else {
		cleanupByPrefix(backupDir, ManualBackupPrefix, MaxBackups)
	}

	return backupID, nil
}

// uniqueID appends a counter when several backups land in the same second.
func uniqueID(dir, base string) string {
	id := base
	for i := 1; utils.FileExists(filepath.Join(dir, id+".json")); i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	return id
}

func cleanupByPrefix(backupDir, prefix string, retain int) {
	if retain <= 0 {
		return
	}

	backups, err := scan(backupDir)
	if err != nil {
		return
	}

	var matched []Info
	for _, b := range backups {
		if strings.HasPrefix(b.ID, prefix) {
			matched = append(matched, b)
		}
	}
	if len(matched) <= retain {
		return
	}

	// oldest first
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})
	for i := 0; i < len(matched)-retain; i++ {
		os.Remove(matched[i].Path)
	}
}

func scan(backupDir string) ([]Info, error) {
	entries, err := os.ReadDir(backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		backups = append(backups, Info{
			ID:        id,
			Path:      filepath.Join(backupDir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
			Auto:      strings.HasPrefix(id, AutoBackupPrefix),
		})
	}
	return backups, nil
}

// ListBackups returns all backups for docPath, newest first.
func ListBackups(docPath string) ([]Info, error) {
	backups, err := scan(Dir(docPath))
	if err != nil {
		return nil, err
	}
	sort.Slice(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	if backups == nil {
		backups = []Info{}
	}
	return backups, nil
}

// Resolve maps a backup ID (or a path) to a file path.
func Resolve(docPath, idOrPath string) (string, error) {
	if utils.FileExists(idOrPath) {
		return idOrPath, nil
	}
	path := filepath.Join(Dir(docPath), strings.TrimSuffix(idOrPath, ".json")+".json")
	if !utils.FileExists(path) {
		return "", fmt.Errorf("backup not found: %s", idOrPath)
	}
	return path, nil
}

// RestoreBackup replaces docPath with the backup at backupPath after taking
// a manual backup of the current document. It returns the ID of that
// pre-restore backup (empty when there was nothing to save).
func RestoreBackup(docPath, backupPath string) (string, error) {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to read backup file: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("backup file is corrupted: %w", err)
	}

	backupID, err := CreateBackup(docPath)
	if err != nil {
		return "", fmt.Errorf("failed to backup current document: %w", err)
	}

	if err := utils.AtomicWriteFile(docPath, data, 0600); err != nil {
		return backupID, fmt.Errorf("failed to write document: %w", err)
	}
	return backupID, nil
}
