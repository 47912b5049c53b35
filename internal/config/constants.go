package config

const (
	// Watch Defaults
	DefaultWatchDir         = "."
	DefaultDebounceMs       = 500
	DefaultInitialScan      = true
	DefaultMaxFileSizeBytes = 1024 * 1024

	// Fix Defaults
	DefaultJournalPath        = ""
	DefaultRestrictToWatchDir = true

	// Transport Defaults
	DefaultTransportEnabled = true
	DefaultListenAddress    = "127.0.0.1:7878"
	DefaultTransportPath    = "/ws"

	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// ConfigEnvVar names the environment variable holding a config file path.
	ConfigEnvVar = "SECWATCH_CONFIG"

	maxConfigFileSize = 10 * 1024 * 1024
)
