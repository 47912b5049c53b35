package config

import (
	"os"
	"path/filepath"
)

var defaultConfigFiles = []string{"secwatch.yaml", "secwatch.yml", "secwatch.json"}

// GetConfigPath determines the configuration file path.
// Priority:
// 1. --config command-line flag, returned as given even if the file is missing
// 2. SECWATCH_CONFIG environment variable
// 3. secwatch.yaml, secwatch.yml, secwatch.json in the current working directory
// It returns "" when no config file is found.
func GetConfigPath(configFilePathFlag string) string {
	if configFilePathFlag != "" {
		return configFilePathFlag
	}

	if envPath := os.Getenv(ConfigEnvVar); envPath != "" {
		if fileExists(envPath) {
			return envPath
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, file := range defaultConfigFiles {
		path := filepath.Join(cwd, file)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
