// Package settings 读取 <数据目录>/config.yaml，环境变量 HOOKY_* 可覆盖任意键
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/YangQing-Lin/hooky-cli/internal/logger"
	"github.com/YangQing-Lin/hooky-cli/internal/portable"
	"github.com/YangQing-Lin/hooky-cli/internal/utils"
)

const (
	// FileName 设置文件名
	FileName = "config.yaml"
	// DocumentFileName 文件存储后端的文档名
	DocumentFileName = "hooky.json"
	// EnvPrefix 环境变量前缀
	EnvPrefix = "HOOKY"
)

// 存储后端
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Languages 支持的界面语言
var Languages = []string{"en", "zh"}

// AppSettings 应用设置
type AppSettings struct {
	Language    string              `mapstructure:"language"`
	Storage     StorageSettings     `mapstructure:"storage"`
	Redis       RedisSettings       `mapstructure:"redis"`
	HTTP        HTTPSettings        `mapstructure:"http"`
	PageContext PageContextSettings `mapstructure:"pagecontext"`
	Serve       ServeSettings       `mapstructure:"serve"`
	Log         logger.Config       `mapstructure:"log"`
}

// StorageSettings 存储后端设置
type StorageSettings struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	AutoBackup bool   `mapstructure:"auto_backup"`
}

// RedisSettings redis 后端连接参数
type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// HTTPSettings webhook 请求设置
type HTTPSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// PageContextSettings 页面上下文抓取设置
type PageContextSettings struct {
	Fetch   bool          `mapstructure:"fetch"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServeSettings 守护进程设置
type ServeSettings struct {
	Addr string `mapstructure:"addr"`
}

// Manager 设置管理器
type Manager struct {
	v        *viper.Viper
	dir      string
	settings *AppSettings
}

// ResolveConfigDir 按 --dir、便携模式、~/.hooky 的顺序确定数据目录
func ResolveConfigDir(flagDir string) (string, error) {
	if flagDir != "" {
		return filepath.Abs(flagDir)
	}
	if portable.IsPortableMode() {
		return portable.GetPortableConfigDir()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("获取用户主目录失败: %w", err)
	}
	return filepath.Join(home, portable.DataDirName), nil
}

// NewManager 创建设置管理器并加载 dir 下的设置文件
func NewManager(dir string) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, FileName))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	m := &Manager{v: v, dir: dir}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "en")
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.auto_backup", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "hooky:")
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("pagecontext.fetch", false)
	v.SetDefault("pagecontext.timeout", "5s")
	v.SetDefault("serve.addr", "127.0.0.1:7733")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "file")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
}

// Load 重新读取设置文件；文件不存在时使用默认值
func (m *Manager) Load() error {
	if utils.FileExists(m.Path()) {
		if err := m.v.ReadInConfig(); err != nil {
			return fmt.Errorf("解析设置文件失败: %w", err)
		}
	}

	s := &AppSettings{}
	if err := m.v.Unmarshal(s); err != nil {
		return fmt.Errorf("解析设置失败: %w", err)
	}
	if err := s.validate(); err != nil {
		return err
	}
	m.settings = s
	return nil
}

func (s *AppSettings) validate() error {
	if !isLanguage(s.Language) {
		return fmt.Errorf("不支持的语言: %s (支持: %s)", s.Language, strings.Join(Languages, ", "))
	}
	switch s.Storage.Backend {
	case BackendFile, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("不支持的存储后端: %s (支持: file, memory, redis)", s.Storage.Backend)
	}
	return nil
}

func isLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Save 写回设置文件
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("创建设置目录失败: %w", err)
	}
	if err := m.v.WriteConfigAs(m.Path()); err != nil {
		return fmt.Errorf("写入设置文件失败: %w", err)
	}
	return nil
}

// Path 返回设置文件路径
func (m *Manager) Path() string {
	return filepath.Join(m.dir, FileName)
}

// Dir 返回数据目录
func (m *Manager) Dir() string {
	return m.dir
}

// Get 获取所有设置
func (m *Manager) Get() *AppSettings {
	return m.settings
}

// GetLanguage 获取语言设置
func (m *Manager) GetLanguage() string {
	return m.settings.Language
}

// SetLanguage 设置语言并保存
func (m *Manager) SetLanguage(language string) error {
	if !isLanguage(language) {
		return fmt.Errorf("不支持的语言: %s (支持: %s)", language, strings.Join(Languages, ", "))
	}
	m.v.Set("language", language)
	m.settings.Language = language
	return m.Save()
}

// DocumentPath 文件后端的文档路径，未配置时位于数据目录下
func (m *Manager) DocumentPath() string {
	if p := m.settings.Storage.Path; p != "" {
		return p
	}
	return filepath.Join(m.dir, DocumentFileName)
}

// LogConfig 返回日志配置，未配置文件路径时写到数据目录 logs/ 下
func (m *Manager) LogConfig() logger.Config {
	cfg := m.settings.Log
	if cfg.FilePath == "" {
		cfg.FilePath = filepath.Join(m.dir, "logs", "hooky.log")
	}
	return cfg
}
