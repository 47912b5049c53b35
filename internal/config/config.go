package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type GlobalConfig struct {
	WatchConfig     WatchConfig     `json:"watch_config,omitempty" yaml:"watch_config,omitempty"`
	ScanConfig      ScanConfig      `json:"scan_config,omitempty" yaml:"scan_config,omitempty"`
	FixConfig       FixConfig       `json:"fix_config,omitempty" yaml:"fix_config,omitempty"`
	TransportConfig TransportConfig `json:"transport_config,omitempty" yaml:"transport_config,omitempty"`
	LogConfig       LogConfig       `json:"log_config,omitempty" yaml:"log_config,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		WatchConfig:     NewDefaultWatchConfig(),
		ScanConfig:      NewDefaultScanConfig(),
		FixConfig:       NewDefaultFixConfig(),
		TransportConfig: NewDefaultTransportConfig(),
		LogConfig:       NewDefaultLogConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// It determines the config file path using GetConfigPath, supports both JSON and YAML formats.
// Values missing from the file keep their defaults.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		logger.Debug().Msg("No config file found, using defaults")
		return cfg, nil
	}

	fileManager := common.NewFileManager(logger)
	if !fileManager.FileExists(filePath) {
		return nil, common.NewValidationError("config_file", filePath, "config file does not exist")
	}

	data, err := loadConfigFileContent(fileManager, filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	logger.Debug().Str("path", filePath).Msg("Config file loaded")
	return cfg, nil
}

// SaveGlobalConfig writes cfg to path, as YAML or JSON by extension.
func SaveGlobalConfig(cfg *GlobalConfig, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAMLFile(filepath.Ext(path)) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return common.WrapError(err, "failed to marshal config")
	}

	opts := common.DefaultFileWriteOptions()
	opts.CreateDirs = true
	return common.NewFileManager(zerolog.Nop()).WriteFileAtomic(path, data, opts)
}

// loadConfigFileContent reads the config file using FileManager
func loadConfigFileContent(fileManager *common.FileManager, filePath string) ([]byte, error) {
	opts := common.DefaultFileReadOptions()
	opts.MaxSize = maxConfigFileSize

	return fileManager.ReadFile(filePath, opts)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		return parseYAMLConfig(data, filePath, cfg)
	}
	return parseJSONConfig(data, filePath, cfg)
}

func isYAMLFile(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".yaml" || ext == ".yml"
}

func parseYAMLConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
	}
	return nil
}

func parseJSONConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
