package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadFunc receives a private copy of the configuration after each successful reload.
type ReloadFunc func(cfg *GlobalConfig)

// ConfigManager provides centralized configuration management with hot-reload capabilities
type ConfigManager struct {
	mu           sync.RWMutex
	config       *GlobalConfig
	configPath   string
	logger       zerolog.Logger
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	stopOnce     sync.Once
	lastModified time.Time

	callbacksMu sync.Mutex
	callbacks   []ReloadFunc

	validationEnabled bool

	hotReloadEnabled bool
	reloadDelay      time.Duration
}

// ConfigManagerOptions holds options for creating a ConfigManager
type ConfigManagerOptions struct {
	Logger            zerolog.Logger
	ValidationEnabled bool
	HotReloadEnabled  bool
	ReloadDelay       time.Duration
}

// DefaultConfigManagerOptions returns default options for ConfigManager
func DefaultConfigManagerOptions() ConfigManagerOptions {
	return ConfigManagerOptions{
		Logger:            zerolog.Nop(),
		ValidationEnabled: true,
		HotReloadEnabled:  false,
		ReloadDelay:       time.Second,
	}
}

// NewConfigManager loads the configuration at configPath (or the default
// locations when empty) and prepares the file watcher when hot reload is on.
func NewConfigManager(configPath string, opts ConfigManagerOptions) (*ConfigManager, error) {
	cm := &ConfigManager{
		configPath:        configPath,
		logger:            opts.Logger.With().Str("component", "ConfigManager").Logger(),
		stopChan:          make(chan struct{}),
		validationEnabled: opts.ValidationEnabled,
		hotReloadEnabled:  opts.HotReloadEnabled,
		reloadDelay:       opts.ReloadDelay,
	}
	if cm.reloadDelay <= 0 {
		cm.reloadDelay = DefaultConfigManagerOptions().ReloadDelay
	}

	if err := cm.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}

	if cm.hotReloadEnabled && cm.configPath != "" {
		if err := cm.setupFileWatcher(); err != nil {
			cm.logger.Warn().Err(err).Msg("Failed to setup file watcher, hot-reload disabled")
			cm.hotReloadEnabled = false
		}
	} else {
		cm.hotReloadEnabled = false
	}

	return cm, nil
}

// GetConfig returns a copy of the current configuration.
func (cm *ConfigManager) GetConfig() *GlobalConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.config == nil {
		return NewDefaultGlobalConfig()
	}
	return copyConfig(cm.config)
}

// OnReload registers fn to run after every successful reload.
func (cm *ConfigManager) OnReload(fn ReloadFunc) {
	if fn == nil {
		return
	}
	cm.callbacksMu.Lock()
	cm.callbacks = append(cm.callbacks, fn)
	cm.callbacksMu.Unlock()
}

// ReloadConfig reloads the configuration from file and notifies OnReload callbacks.
// On failure the previous configuration stays in effect.
func (cm *ConfigManager) ReloadConfig() error {
	cm.mu.Lock()
	err := cm.loadConfig()
	var snapshot *GlobalConfig
	if err == nil {
		snapshot = copyConfig(cm.config)
	}
	cm.mu.Unlock()

	if err != nil {
		return err
	}
	cm.notify(snapshot)
	return nil
}

// UpdateConfig replaces the configuration and optionally saves it to file.
func (cm *ConfigManager) UpdateConfig(newConfig *GlobalConfig, saveToFile bool) error {
	if cm.validationEnabled {
		if err := ValidateConfig(newConfig); err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.config = copyConfig(newConfig)
	path := cm.configPath
	cm.mu.Unlock()

	if saveToFile && path != "" {
		if err := SaveGlobalConfig(newConfig, path); err != nil {
			return fmt.Errorf("failed to save configuration to file: %w", err)
		}
		cm.logger.Info().Str("path", path).Msg("Configuration saved to file")
	}

	cm.logger.Info().Msg("Configuration updated successfully")
	return nil
}

// GetConfigPath returns the current configuration file path
func (cm *ConfigManager) GetConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// IsHotReloadEnabled returns whether hot-reload is enabled
func (cm *ConfigManager) IsHotReloadEnabled() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.hotReloadEnabled
}

// Close stops the hot-reload loop and the file watcher. It is safe to call more than once.
func (cm *ConfigManager) Close() error {
	var err error
	cm.stopOnce.Do(func() {
		close(cm.stopChan)
		if cm.watcher != nil {
			err = cm.watcher.Close()
		}
	})
	return err
}

// StartHotReload starts the hot-reload goroutine (non-blocking)
func (cm *ConfigManager) StartHotReload(ctx context.Context) {
	if !cm.IsHotReloadEnabled() {
		return
	}

	go cm.hotReloadLoop(ctx)
}

// loadConfig loads configuration from file (assumes lock is held)
func (cm *ConfigManager) loadConfig() error {
	if cm.configPath == "" {
		cm.configPath = GetConfigPath("")
	}
	if cm.configPath != "" {
		if abs, err := filepath.Abs(cm.configPath); err == nil && abs != cm.configPath {
			cm.configPath = abs
		}
	}

	config, err := LoadGlobalConfig(cm.configPath, cm.logger)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cm.validationEnabled {
		if err := ValidateConfig(config); err != nil {
			return err
		}
	}

	if cm.configPath != "" {
		if stat, err := os.Stat(cm.configPath); err == nil {
			cm.lastModified = stat.ModTime()
		}
	}

	cm.config = config
	cm.logger.Info().Str("path", cm.configPath).Msg("Configuration loaded successfully")

	return nil
}

// setupFileWatcher watches the directory holding the config file, so
// editors that save through a rename are still seen.
func (cm *ConfigManager) setupFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	configDir := filepath.Dir(cm.configPath)
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory '%s': %w", configDir, err)
	}

	cm.watcher = watcher
	cm.logger.Info().Str("directory", configDir).Msg("File watcher setup for hot-reload")

	return nil
}

func (cm *ConfigManager) hotReloadLoop(ctx context.Context) {
	if cm.watcher == nil {
		return
	}

	reloadTimer := time.NewTimer(time.Hour)
	reloadTimer.Stop()
	defer reloadTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			cm.logger.Info().Msg("Hot-reload loop stopped due to context cancellation")
			return

		case <-cm.stopChan:
			cm.logger.Info().Msg("Hot-reload loop stopped")
			return

		case event, ok := <-cm.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) == cm.configPath && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				cm.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Config file change detected")
				reloadTimer.Reset(cm.reloadDelay)
			}

		case err, ok := <-cm.watcher.Errors:
			if !ok {
				return
			}
			cm.logger.Error().Err(err).Msg("File watcher error")

		case <-reloadTimer.C:
			if !cm.changedOnDisk() {
				continue
			}
			cm.logger.Info().Msg("Reloading configuration due to file change")
			if err := cm.ReloadConfig(); err != nil {
				cm.logger.Error().Err(err).Msg("Failed to reload configuration, keeping previous one")
			} else {
				cm.logger.Info().Msg("Configuration reloaded successfully")
			}
		}
	}
}

func (cm *ConfigManager) changedOnDisk() bool {
	stat, err := os.Stat(cm.configPath)
	if err != nil {
		return false
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return !stat.ModTime().Equal(cm.lastModified)
}

func (cm *ConfigManager) notify(cfg *GlobalConfig) {
	cm.callbacksMu.Lock()
	callbacks := append([]ReloadFunc(nil), cm.callbacks...)
	cm.callbacksMu.Unlock()

	for _, fn := range callbacks {
		fn(copyConfig(cfg))
	}
}

// copyConfig creates a deep copy of the configuration
func copyConfig(src *GlobalConfig) *GlobalConfig {
	if src == nil {
		return NewDefaultGlobalConfig()
	}

	dst := *src
	dst.WatchConfig.IgnoreDirs = copyStrings(src.WatchConfig.IgnoreDirs)
	dst.ScanConfig.EnabledRules = copyStrings(src.ScanConfig.EnabledRules)
	dst.ScanConfig.DisabledRules = copyStrings(src.ScanConfig.DisabledRules)
	dst.ScanConfig.ExtraSkipExtensions = copyStrings(src.ScanConfig.ExtraSkipExtensions)
	dst.TransportConfig.AllowedOrigins = copyStrings(src.TransportConfig.AllowedOrigins)
	return &dst
}

func copyStrings(src []string) []string {
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// GetConfigHealth returns health information about the configuration manager
func (cm *ConfigManager) GetConfigHealth() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	health := map[string]interface{}{
		"config_loaded":      cm.config != nil,
		"config_path":        cm.configPath,
		"hot_reload_enabled": cm.hotReloadEnabled,
		"validation_enabled": cm.validationEnabled,
	}

	if cm.configPath != "" {
		if stat, err := os.Stat(cm.configPath); err == nil {
			health["file_exists"] = true
			health["last_modified"] = stat.ModTime()
			health["file_size"] = stat.Size()
		} else {
			health["file_exists"] = false
			health["file_error"] = err.Error()
		}
	}

	return health
}
