package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestConfigManager_LoadsAndCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secwatch.yaml")
	writeConfig(t, path, "scan_config:\n  disabled_rules: [weak-crypto]\n")

	cm, err := NewConfigManager(path, DefaultConfigManagerOptions())
	require.NoError(t, err)
	defer cm.Close()

	cfg := cm.GetConfig()
	assert.Equal(t, []string{"weak-crypto"}, cfg.ScanConfig.DisabledRules)

	cfg.ScanConfig.DisabledRules[0] = "mutated"
	assert.Equal(t, []string{"weak-crypto"}, cm.GetConfig().ScanConfig.DisabledRules)
	assert.False(t, cm.IsHotReloadEnabled())
	assert.Equal(t, path, cm.GetConfigPath())
}

func TestConfigManager_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secwatch.yaml")
	writeConfig(t, path, "log_config:\n  log_level: loud\n")

	_, err := NewConfigManager(path, DefaultConfigManagerOptions())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loglevel")
}

func TestConfigManager_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secwatch.yaml")
	writeConfig(t, path, "watch_config:\n  debounce_ms: 200\n")

	cm, err := NewConfigManager(path, DefaultConfigManagerOptions())
	require.NoError(t, err)
	defer cm.Close()

	var reloaded []*GlobalConfig
	cm.OnReload(func(cfg *GlobalConfig) { reloaded = append(reloaded, cfg) })

	writeConfig(t, path, "watch_config:\n  debounce_ms: 0\n")
	require.Error(t, cm.ReloadConfig())
	assert.Equal(t, 200, cm.GetConfig().WatchConfig.DebounceMs)
	assert.Empty(t, reloaded)

	writeConfig(t, path, "watch_config:\n  debounce_ms: 300\n")
	require.NoError(t, cm.ReloadConfig())
	assert.Equal(t, 300, cm.GetConfig().WatchConfig.DebounceMs)
	require.Len(t, reloaded, 1)
	assert.Equal(t, 300, reloaded[0].WatchConfig.DebounceMs)
}

func TestConfigManager_UpdateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secwatch.yaml")
	writeConfig(t, path, "{}\n")

	cm, err := NewConfigManager(path, DefaultConfigManagerOptions())
	require.NoError(t, err)
	defer cm.Close()

	invalid := NewDefaultGlobalConfig()
	invalid.LogConfig.LogFormat = "xml"
	assert.Error(t, cm.UpdateConfig(invalid, false))

	updated := NewDefaultGlobalConfig()
	updated.ScanConfig.EnabledRules = []string{"private-key"}
	require.NoError(t, cm.UpdateConfig(updated, true))
	assert.Equal(t, []string{"private-key"}, cm.GetConfig().ScanConfig.EnabledRules)

	onDisk, err := LoadGlobalConfig(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"private-key"}, onDisk.ScanConfig.EnabledRules)
}

func TestConfigManager_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secwatch.yaml")
	writeConfig(t, path, "scan_config:\n  disabled_rules: [weak-crypto]\n")

	opts := DefaultConfigManagerOptions()
	opts.HotReloadEnabled = true
	opts.ReloadDelay = 20 * time.Millisecond

	cm, err := NewConfigManager(path, opts)
	require.NoError(t, err)
	defer cm.Close()
	require.True(t, cm.IsHotReloadEnabled())

	want := []string{"weak-crypto", "sensitive-data-logging"}
	seen := make(chan struct{})
	var once sync.Once
	cm.OnReload(func(cfg *GlobalConfig) {
		if assert.ObjectsAreEqual(want, cfg.ScanConfig.DisabledRules) {
			once.Do(func() { close(seen) })
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cm.StartHotReload(ctx)

	// Push the modification time forward so the change is seen on coarse clocks.
	writeConfig(t, path, "scan_config:\n  disabled_rules: [weak-crypto, sensitive-data-logging]\n")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case <-seen:
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
	assert.Equal(t, want, cm.GetConfig().ScanConfig.DisabledRules)

	health := cm.GetConfigHealth()
	assert.Equal(t, true, health["hot_reload_enabled"])
	assert.Equal(t, true, health["file_exists"])
}

func TestConfigManager_HotReloadWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(ConfigEnvVar, "")

	opts := DefaultConfigManagerOptions()
	opts.HotReloadEnabled = true

	cm, err := NewConfigManager("", opts)
	require.NoError(t, err)
	defer cm.Close()

	assert.False(t, cm.IsHotReloadEnabled())
	assert.Equal(t, NewDefaultGlobalConfig(), cm.GetConfig())
	require.NoError(t, cm.Close())
}
