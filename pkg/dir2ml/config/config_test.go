package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/logging"
)

func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return tempDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Format != DefaultFormat {
		t.Errorf("Format = %q, want %q", cfg.Format, DefaultFormat)
	}
	if cfg.Dedup != DefaultDedup {
		t.Errorf("Dedup = %q, want %q", cfg.Dedup, DefaultDedup)
	}
	if cfg.Collisions != DefaultCollisions {
		t.Errorf("Collisions = %q, want %q", cfg.Collisions, DefaultCollisions)
	}
	if len(cfg.HashType) != 1 || cfg.HashType[0] != "sha256" {
		t.Errorf("HashType = %v, want [sha256]", cfg.HashType)
	}
	if !cfg.Recursive {
		t.Error("Recursive = false, want true")
	}
	if cfg.Watch.Debounce != DefaultDebounce {
		t.Errorf("Watch.Debounce = %v, want %v", cfg.Watch.Debounce, DefaultDebounce)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History.RetentionDays = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}
	if cfg.Logging.Enabled {
		t.Error("Logging.Enabled = true, want false")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := isolate(t)
	writeConfig(t, filepath.Join(tempDir, ".config", "dir2ml"), `
base_url:
  - http://mirror.example.com/pub
country: DE
hash_type: [md5, sha256]
dedup: consolidate
collisions: fail
exclude: ["*.tmp", ".git"]
min_size: 1K
output: ~/out.meta4
sparse_output: true
watch:
  debounce: 500ms
history:
  enabled: true
  dir: ~/runs
logging:
  level: debug
  components:
    dedup: warn
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.BaseURL) != 1 || cfg.BaseURL[0] != "http://mirror.example.com/pub" {
		t.Errorf("BaseURL = %v", cfg.BaseURL)
	}
	if cfg.Country != "DE" {
		t.Errorf("Country = %q, want DE", cfg.Country)
	}
	if strings.Join(cfg.HashType, ",") != "md5,sha256" {
		t.Errorf("HashType = %v", cfg.HashType)
	}
	if cfg.Dedup != "consolidate" || cfg.Collisions != "fail" {
		t.Errorf("Dedup/Collisions = %q/%q", cfg.Dedup, cfg.Collisions)
	}
	if len(cfg.Exclude) != 2 {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.Output != filepath.Join(tempDir, "out.meta4") {
		t.Errorf("Output = %q, want expanded path", cfg.Output)
	}
	if !cfg.NoGenerator || !cfg.NoDate {
		t.Error("sparse_output did not imply no_generator and no_date")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 500ms", cfg.Watch.Debounce)
	}
	if !cfg.History.Enabled || cfg.HistoryPath() != filepath.Join(tempDir, "runs") {
		t.Errorf("History = %+v, HistoryPath() = %q", cfg.History, cfg.HistoryPath())
	}
	if cfg.Logging.Components["dedup"] != "warn" {
		t.Errorf("Logging.Components = %v", cfg.Logging.Components)
	}

	size, err := cfg.MinSizeBytes()
	if err != nil || size != 1024 {
		t.Errorf("MinSizeBytes() = %d, %v; want 1024", size, err)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := isolate(t)
	writeConfig(t, filepath.Join(tempDir, "xdg-config", "dir2ml"), `format: json`)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg-config"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("DIR2ML_DEDUP", "find")
	t.Setenv("DIR2ML_HASH_TYPE", "md5,sha1")
	t.Setenv("DIR2ML_WATCH_DEBOUNCE", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dedup != "find" {
		t.Errorf("Dedup = %q, want find", cfg.Dedup)
	}
	if strings.Join(cfg.HashType, ",") != "md5,sha1" {
		t.Errorf("HashType = %v, want [md5 sha1]", cfg.HashType)
	}
	if cfg.Watch.Debounce != 3*time.Second {
		t.Errorf("Watch.Debounce = %v, want 3s", cfg.Watch.Debounce)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	tempDir := isolate(t)
	writeConfig(t, filepath.Join(tempDir, ".config", "dir2ml"), "format: [unterminated")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestSetup_ExplicitFile(t *testing.T) {
	tempDir := isolate(t)

	v := viper.New()
	if err := Setup(v, filepath.Join(tempDir, "missing.yaml")); err == nil {
		t.Fatal("Setup() error = nil, want error for missing explicit file")
	}

	path := writeConfig(t, filepath.Join(tempDir, "elsewhere"), "country: fr")
	v = viper.New()
	if err := Setup(v, path); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.Country != "fr" {
		t.Errorf("Country = %q, want fr", cfg.Country)
	}
}

func TestLoggingOptions(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantConsole string
		wantPath    string
		wantSize    int64
		wantErr     bool
	}{
		{
			name:        "default console warn without file",
			cfg:         Config{Logging: LoggingConfig{Level: "info"}},
			wantConsole: "warn",
		},
		{
			name:        "verbose",
			cfg:         Config{Verbose: true},
			wantConsole: "debug",
		},
		{
			name:        "quiet wins over verbose",
			cfg:         Config{Verbose: true, Quiet: true},
			wantConsole: "error",
		},
		{
			name:        "enabled file uses default path",
			cfg:         Config{Logging: LoggingConfig{Enabled: true, MaxSize: "1MB"}},
			wantConsole: "warn",
			wantPath:    logging.DefaultLogPath(),
			wantSize:    1 << 20,
		},
		{
			name:        "explicit path",
			cfg:         Config{Logging: LoggingConfig{Enabled: true, Path: "/tmp/x.log"}},
			wantConsole: "warn",
			wantPath:    "/tmp/x.log",
		},
		{
			name:    "bad max size",
			cfg:     Config{Logging: LoggingConfig{MaxSize: "lots"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.LoggingOptions()
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoggingOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.ConsoleLevel != tt.wantConsole {
				t.Errorf("ConsoleLevel = %q, want %q", got.ConsoleLevel, tt.wantConsole)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.MaxSize != tt.wantSize {
				t.Errorf("MaxSize = %d, want %d", got.MaxSize, tt.wantSize)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if dir != "/custom/config/dir2ml" {
			t.Errorf("ConfigDir() = %q", dir)
		}
	})

	t.Run("falls back to home", func(t *testing.T) {
		tempDir := isolate(t)
		path, err := ConfigPath()
		if err != nil {
			t.Fatalf("ConfigPath() error = %v", err)
		}
		if path != filepath.Join(tempDir, ".config", "dir2ml", "config.yaml") {
			t.Errorf("ConfigPath() = %q", path)
		}
	})
}

func TestHistoryDir(t *testing.T) {
	if !strings.HasSuffix(HistoryDir(), filepath.Join("dir2ml", "history")) {
		t.Errorf("HistoryDir() = %q", HistoryDir())
	}
	if filepath.Dir(HistoryDir()) != StateDir() {
		t.Errorf("HistoryDir() not under StateDir()")
	}
}

func TestWriteDefault(t *testing.T) {
	t.Run("creates loadable default config", func(t *testing.T) {
		tempDir := isolate(t)

		path, err := WriteDefault()
		if err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}
		if path != filepath.Join(tempDir, ".config", "dir2ml", "config.yaml") {
			t.Errorf("WriteDefault() path = %q", path)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() after WriteDefault() error = %v", err)
		}
		if cfg.Format != DefaultFormat || cfg.Watch.Debounce != DefaultDebounce {
			t.Errorf("default file does not round-trip: %+v", cfg)
		}
	})

	t.Run("does not overwrite existing config", func(t *testing.T) {
		tempDir := isolate(t)
		existing := "# existing config\nformat: json"
		path := writeConfig(t, filepath.Join(tempDir, ".config", "dir2ml"), existing)

		if _, err := WriteDefault(); err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(content) != existing {
			t.Errorf("config file was overwritten: got %q", content)
		}
	})
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "expands tilde", input: "~/out/files.meta4", want: filepath.Join(homeDir, "out/files.meta4")},
		{name: "leaves absolute path unchanged", input: "/srv/files", want: "/srv/files"},
		{name: "leaves relative path unchanged", input: "files", want: "files"},
		{name: "handles tilde only", input: "~", want: homeDir},
		{name: "leaves empty unchanged", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
