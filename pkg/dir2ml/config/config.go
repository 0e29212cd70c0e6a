package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// EnvPrefix prefixes environment overrides, e.g. DIR2ML_HASH_TYPE.
const EnvPrefix = "DIR2ML"

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	MaxSize    string            `mapstructure:"max_size"`
	MaxBackups int               `mapstructure:"max_backups"`
	Components map[string]string `mapstructure:"components"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// HistoryConfig configures the run history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Directory string `mapstructure:"directory"`
	Output    string `mapstructure:"output"`
	Format    string `mapstructure:"format"`
	Template  string `mapstructure:"template"`

	BaseURL   []string `mapstructure:"base_url"`
	Country   string   `mapstructure:"country"`
	FileURL   bool     `mapstructure:"file_url"`
	NIURL     bool     `mapstructure:"ni_url"`
	MagnetURL bool     `mapstructure:"magnet_url"`

	HashType    []string `mapstructure:"hash_type"`
	Dedup       string   `mapstructure:"dedup"`
	IgnoreMtime bool     `mapstructure:"ignore_mtime"`
	Collisions  string   `mapstructure:"collisions"`

	Recursive bool     `mapstructure:"recursive"`
	Exclude   []string `mapstructure:"exclude"`
	MaxDepth  int      `mapstructure:"max_depth"`
	MinSize   string   `mapstructure:"min_size"`

	NoGenerator  bool `mapstructure:"no_generator"`
	NoDate       bool `mapstructure:"no_date"`
	SparseOutput bool `mapstructure:"sparse_output"`

	Strict         bool `mapstructure:"strict"`
	ShowStatistics bool `mapstructure:"show_statistics"`
	Progress       bool `mapstructure:"progress"`
	Estimate       bool `mapstructure:"estimate"`
	Verbose        bool `mapstructure:"verbose"`
	Quiet          bool `mapstructure:"quiet"`

	Logging LoggingConfig `mapstructure:"logging"`
	Watch   WatchConfig   `mapstructure:"watch"`
	History HistoryConfig `mapstructure:"history"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("directory", "")
	v.SetDefault("output", "")
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("template", "")
	v.SetDefault("base_url", []string{})
	v.SetDefault("country", "")
	v.SetDefault("file_url", false)
	v.SetDefault("ni_url", false)
	v.SetDefault("magnet_url", false)
	v.SetDefault("hash_type", DefaultHashTypes)
	v.SetDefault("dedup", DefaultDedup)
	v.SetDefault("ignore_mtime", false)
	v.SetDefault("collisions", DefaultCollisions)
	v.SetDefault("recursive", true)
	v.SetDefault("exclude", []string{})
	v.SetDefault("max_depth", 0)
	v.SetDefault("min_size", DefaultMinSize)
	v.SetDefault("no_generator", false)
	v.SetDefault("no_date", false)
	v.SetDefault("sparse_output", false)
	v.SetDefault("strict", false)
	v.SetDefault("show_statistics", false)
	v.SetDefault("progress", false)
	v.SetDefault("estimate", false)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)

	// Logging defaults
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", map[string]string{})

	v.SetDefault("watch.debounce", DefaultDebounce)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dir", "") // Empty means use HistoryDir
	v.SetDefault("history.retention_days", DefaultRetentionDays)
}

// Setup prepares v to read configuration: defaults, DIR2ML_ environment
// overrides, and the config file. An explicit cfgFile must exist; the
// default file is optional.
func Setup(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	v.AddConfigPath(dir)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Decode unmarshals v into a Config and expands ~ in path settings.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Directory, &cfg.Output, &cfg.Logging.Path, &cfg.History.Dir} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if cfg.SparseOutput {
		cfg.NoGenerator = true
		cfg.NoDate = true
	}
	return &cfg, nil
}

// Load loads configuration from the default file and environment
// variables. The config file lives at $XDG_CONFIG_HOME/dir2ml/config.yaml,
// falling back to $HOME/.config/dir2ml/config.yaml.
//
// Environment variables are prefixed with DIR2ML_ (e.g., DIR2ML_DEDUP).
func Load() (*Config, error) {
	v := viper.New()
	if err := Setup(v, ""); err != nil {
		return nil, err
	}
	return Decode(v)
}

// MinSizeBytes parses the configured minimum file size.
func (c *Config) MinSizeBytes() (int64, error) {
	if c.MinSize == "" {
		return 0, nil
	}
	return types.ParseSize(c.MinSize)
}

// LoggingOptions converts the logging section into logging.Config. The
// console level follows the verbose and quiet switches.
func (c *Config) LoggingOptions() (logging.Config, error) {
	lc := logging.Config{
		Level:        c.Logging.Level,
		MaxBackups:   c.Logging.MaxBackups,
		Components:   c.Logging.Components,
		ConsoleLevel: "warn",
	}
	switch {
	case c.Quiet:
		lc.ConsoleLevel = "error"
	case c.Verbose:
		lc.ConsoleLevel = "debug"
	}

	if c.Logging.Enabled {
		lc.Path = c.Logging.Path
		if lc.Path == "" {
			lc.Path = logging.DefaultLogPath()
		}
	}

	if c.Logging.MaxSize != "" {
		size, err := types.ParseSize(c.Logging.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("logging.max_size: %w", err)
		}
		lc.MaxSize = size
	}
	return lc, nil
}

// HistoryPath returns the configured history directory or the default.
func (c *Config) HistoryPath() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	return HistoryDir()
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "dir2ml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "dir2ml"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StateDir returns $XDG_STATE_HOME/dir2ml/ for logs and run history.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "dir2ml")
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(StateDir(), "history")
}

// WriteDefault writes a commented default config file if none exists and
// returns its path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# dir2ml configuration
# Every key can also be set with a DIR2ML_ environment variable,
# e.g. DIR2ML_HASH_TYPE=md5,sha256.

# Output format: metalink, json, jsonl, yaml, plain, paths, null, template, pretty
format: %s
# Go text/template used by the template format
template: ""

# Base URLs prepended to relative paths
base_url: []
# ISO 3166-1 alpha-2 country code for base URLs
country: ""
file_url: false
ni_url: false
magnet_url: false

# Digests to compute: md5, sha1, sha256
hash_type:
  - sha256

# Duplicate handling: off, find, consolidate
dedup: %s
ignore_mtime: false
# Digest collisions: ignore, warn, fail
collisions: %s

recursive: true
exclude: []
max_depth: 0
min_size: "%s"

no_generator: false
no_date: false
strict: false

logging:
  # Write a log file (default: $XDG_STATE_HOME/dir2ml/dir2ml.log)
  enabled: false
  # Log level: debug, info, warn, error
  level: info
  path: ""
  max_size: %s
  max_backups: %d
  # Per-component log levels
  components:
    scanner: info
    dedup: info

watch:
  debounce: %s

# Run history
history:
  enabled: false
  dir: ""
  retention_days: %d
`, DefaultFormat, DefaultDedup, DefaultCollisions, DefaultMinSize,
		DefaultLogMaxSize, DefaultLogMaxBackups, DefaultDebounce, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
