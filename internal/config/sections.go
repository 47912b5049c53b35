package config

import "time"

// WatchConfig controls which directory is watched and how events are paced.
type WatchConfig struct {
	WatchDir         string   `json:"watch_dir,omitempty" yaml:"watch_dir,omitempty" validate:"required"`
	DebounceMs       int      `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty" validate:"min=1"`
	IgnoreDirs       []string `json:"ignore_dirs,omitempty" yaml:"ignore_dirs,omitempty" validate:"omitempty,dive,required"`
	InitialScan      bool     `json:"initial_scan" yaml:"initial_scan"`
	MaxFileSizeBytes int64    `json:"max_file_size_bytes,omitempty" yaml:"max_file_size_bytes,omitempty" validate:"min=1"`
}

func NewDefaultWatchConfig() WatchConfig {
	return WatchConfig{
		WatchDir:         DefaultWatchDir,
		DebounceMs:       DefaultDebounceMs,
		IgnoreDirs:       []string{},
		InitialScan:      DefaultInitialScan,
		MaxFileSizeBytes: DefaultMaxFileSizeBytes,
	}
}

// Debounce returns DebounceMs as a duration.
func (wc WatchConfig) Debounce() time.Duration {
	return time.Duration(wc.DebounceMs) * time.Millisecond
}

// ScanConfig selects the active rules. An empty EnabledRules means every rule.
type ScanConfig struct {
	EnabledRules        []string `json:"enabled_rules,omitempty" yaml:"enabled_rules,omitempty" validate:"omitempty,ruleids"`
	DisabledRules       []string `json:"disabled_rules,omitempty" yaml:"disabled_rules,omitempty" validate:"omitempty,ruleids"`
	ExtraSkipExtensions []string `json:"extra_skip_extensions,omitempty" yaml:"extra_skip_extensions,omitempty" validate:"omitempty,dive,required"`
}

func NewDefaultScanConfig() ScanConfig {
	return ScanConfig{
		EnabledRules:        []string{},
		DisabledRules:       []string{},
		ExtraSkipExtensions: []string{},
	}
}

// FixConfig controls the fix applier.
type FixConfig struct {
	JournalPath        string `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`
	RestrictToWatchDir bool   `json:"restrict_to_watch_dir" yaml:"restrict_to_watch_dir"`
}

func NewDefaultFixConfig() FixConfig {
	return FixConfig{
		JournalPath:        DefaultJournalPath,
		RestrictToWatchDir: DefaultRestrictToWatchDir,
	}
}

// TransportConfig controls the websocket endpoint editors connect to.
type TransportConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	ListenAddress  string   `json:"listen_address,omitempty" yaml:"listen_address,omitempty" validate:"omitempty,hostname_port"`
	Path           string   `json:"path,omitempty" yaml:"path,omitempty" validate:"omitempty,startswith=/"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" validate:"omitempty,dive,required"`
}

func NewDefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Enabled:        DefaultTransportEnabled,
		ListenAddress:  DefaultListenAddress,
		Path:           DefaultTransportPath,
		AllowedOrigins: []string{},
	}
}
