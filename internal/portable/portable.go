// Package portable 检测便携模式：可执行文件旁存在 portable.ini 时，数据目录跟随程序
package portable

import (
	"os"
	"path/filepath"
)

const (
	// MarkerFile 便携模式标记文件
	MarkerFile = "portable.ini"
	// DataDirName 数据目录名（便携模式与家目录模式共用）
	DataDirName = ".hooky"
)

var executableFunc = os.Executable

// IsPortableMode 检测是否为便携模式
func IsPortableMode() bool {
	execPath, err := executableFunc()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(filepath.Dir(execPath), MarkerFile))
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// GetPortableConfigDir 返回可执行文件所在目录下的 .hooky
func GetPortableConfigDir() (string, error) {
	execPath, err := executableFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(execPath), DataDirName), nil
}
