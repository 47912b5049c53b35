package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	assert.Equal(t, ".", cfg.WatchConfig.WatchDir)
	assert.Equal(t, 500, cfg.WatchConfig.DebounceMs)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchConfig.Debounce())
	assert.True(t, cfg.WatchConfig.InitialScan)
	assert.Equal(t, int64(1024*1024), cfg.WatchConfig.MaxFileSizeBytes)
	assert.Empty(t, cfg.ScanConfig.EnabledRules)
	assert.True(t, cfg.FixConfig.RestrictToWatchDir)
	assert.Empty(t, cfg.FixConfig.JournalPath)
	assert.True(t, cfg.TransportConfig.Enabled)
	assert.Equal(t, "127.0.0.1:7878", cfg.TransportConfig.ListenAddress)
	assert.Equal(t, "/ws", cfg.TransportConfig.Path)
	assert.Equal(t, "info", cfg.LogConfig.LogLevel)
	assert.Equal(t, "console", cfg.LogConfig.LogFormat)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_NoConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(ConfigEnvVar, "")

	cfg, err := LoadGlobalConfig("", zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, NewDefaultGlobalConfig(), cfg)
}

func TestLoadGlobalConfig_NonExistentFile(t *testing.T) {
	cfg, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadGlobalConfig_YAMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "secwatch.yaml")
	content := `
watch_config:
  watch_dir: ./src
  debounce_ms: 250
  initial_scan: false
  ignore_dirs: [generated]
scan_config:
  disabled_rules: [weak-crypto]
fix_config:
  journal_path: .secwatch/history.db
transport_config:
  listen_address: "127.0.0.1:9000"
log_config:
  log_level: debug
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "./src", cfg.WatchConfig.WatchDir)
	assert.Equal(t, 250, cfg.WatchConfig.DebounceMs)
	assert.False(t, cfg.WatchConfig.InitialScan)
	assert.Equal(t, []string{"generated"}, cfg.WatchConfig.IgnoreDirs)
	assert.Equal(t, []string{"weak-crypto"}, cfg.ScanConfig.DisabledRules)
	assert.Equal(t, ".secwatch/history.db", cfg.FixConfig.JournalPath)
	assert.Equal(t, "127.0.0.1:9000", cfg.TransportConfig.ListenAddress)
	assert.Equal(t, "debug", cfg.LogConfig.LogLevel)

	// Untouched values keep their defaults.
	assert.Equal(t, int64(DefaultMaxFileSizeBytes), cfg.WatchConfig.MaxFileSizeBytes)
	assert.Equal(t, "/ws", cfg.TransportConfig.Path)
	assert.True(t, cfg.FixConfig.RestrictToWatchDir)
}

func TestLoadGlobalConfig_JSONFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "secwatch.json")
	content := `{
		"watch_config": {"debounce_ms": 100},
		"transport_config": {"enabled": false}
	}`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.WatchConfig.DebounceMs)
	assert.False(t, cfg.TransportConfig.Enabled)
	assert.Equal(t, ".", cfg.WatchConfig.WatchDir)
}

func TestLoadGlobalConfig_InvalidContent(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "secwatch.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("watch_config: [unclosed"), 0644))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config content")
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"secwatch.yaml", "secwatch.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := NewDefaultGlobalConfig()
			cfg.ScanConfig.EnabledRules = []string{"hardcoded-credential"}
			cfg.TransportConfig.AllowedOrigins = []string{"vscode-webview://abc"}

			require.NoError(t, SaveGlobalConfig(cfg, path))

			loaded, err := LoadGlobalConfig(path, zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, cfg.ScanConfig.EnabledRules, loaded.ScanConfig.EnabledRules)
			assert.Equal(t, cfg.TransportConfig.AllowedOrigins, loaded.TransportConfig.AllowedOrigins)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("flag wins even when missing", func(t *testing.T) {
		assert.Equal(t, "/no/such/file.yaml", GetConfigPath("/no/such/file.yaml"))
	})

	t.Run("environment variable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
		t.Setenv(ConfigEnvVar, path)

		assert.Equal(t, path, GetConfigPath(""))
	})

	t.Run("working directory search order", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		t.Setenv(ConfigEnvVar, "")

		assert.Empty(t, GetConfigPath(""))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "secwatch.json"), []byte("{}"), 0644))
		assert.Equal(t, "secwatch.json", filepath.Base(GetConfigPath("")))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "secwatch.yml"), []byte("{}"), 0644))
		assert.Equal(t, "secwatch.yml", filepath.Base(GetConfigPath("")))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "secwatch.yaml"), []byte("{}"), 0644))
		assert.Equal(t, "secwatch.yaml", filepath.Base(GetConfigPath("")))
	})

	t.Run("missing environment file falls through", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv(ConfigEnvVar, "/no/such/file.yaml")

		assert.Empty(t, GetConfigPath(""))
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *GlobalConfig)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(cfg *GlobalConfig) {},
		},
		{
			name:    "zero debounce",
			mutate:  func(cfg *GlobalConfig) { cfg.WatchConfig.DebounceMs = 0 },
			wantErr: "DebounceMs",
		},
		{
			name:    "empty watch dir",
			mutate:  func(cfg *GlobalConfig) { cfg.WatchConfig.WatchDir = "" },
			wantErr: "WatchDir",
		},
		{
			name:    "unknown log level",
			mutate:  func(cfg *GlobalConfig) { cfg.LogConfig.LogLevel = "loud" },
			wantErr: "loglevel",
		},
		{
			name:    "unknown log format",
			mutate:  func(cfg *GlobalConfig) { cfg.LogConfig.LogFormat = "xml" },
			wantErr: "logformat",
		},
		{
			name:    "blank rule id",
			mutate:  func(cfg *GlobalConfig) { cfg.ScanConfig.DisabledRules = []string{"weak-crypto", " "} },
			wantErr: "ruleids",
		},
		{
			name:    "rule id with spaces",
			mutate:  func(cfg *GlobalConfig) { cfg.ScanConfig.EnabledRules = []string{"weak crypto"} },
			wantErr: "ruleids",
		},
		{
			name:    "listen address without port",
			mutate:  func(cfg *GlobalConfig) { cfg.TransportConfig.ListenAddress = "localhost" },
			wantErr: "hostname_port",
		},
		{
			name:    "enabled transport without address",
			mutate:  func(cfg *GlobalConfig) { cfg.TransportConfig.ListenAddress = "" },
			wantErr: "ListenAddress",
		},
		{
			name: "disabled transport without address",
			mutate: func(cfg *GlobalConfig) {
				cfg.TransportConfig.Enabled = false
				cfg.TransportConfig.ListenAddress = ""
			},
		},
		{
			name:    "relative websocket path",
			mutate:  func(cfg *GlobalConfig) { cfg.TransportConfig.Path = "ws" },
			wantErr: "startswith",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Error(t, ValidateConfig(nil))
}

func TestValidateConfig_ReportsSectionAndField(t *testing.T) {
	cfg := NewDefaultGlobalConfig()
	cfg.WatchConfig.DebounceMs = 0

	err := ValidateConfig(cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "section 'WatchConfig', field 'DebounceMs'")

	cfg.LogConfig.LogLevel = "loud"
	err = ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors occurred")
}
