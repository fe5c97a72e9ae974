package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// LogDirectory returns the directory used for the rotating log file.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\qbfetch\logs
//   - Unix: <user config dir>/qbfetch/logs (~/.config on Linux)
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "qbfetch-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "qbfetch", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "qbfetch-logs")
		}
		return filepath.Join(homeDir, ".config", "qbfetch", "logs")
	}
	return filepath.Join(configDir, "qbfetch", "logs")
}

// DefaultLogFile returns the default rotating log file path.
func DefaultLogFile() string {
	return filepath.Join(LogDirectory(), "qbfetch.log")
}
