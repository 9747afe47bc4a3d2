package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rnnvis"

// windows: C:\Users\{user}\AppData\Roaming\rnnvis
// macOS: ~/Library/Application Support/rnnvis
// linux: $XDG_CONFIG_HOME/rnnvis or ~/.config/rnnvis
func GetConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = fromHome("AppData", "Roaming")
		}
		return joinIfSet(appData, appName)

	case "darwin":
		return joinIfSet(fromHome("Library", "Application Support"), appName)

	default:
		xdgConfig := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfig == "" {
			xdgConfig = fromHome(".config")
		}
		return joinIfSet(xdgConfig, appName)
	}
}

// GetDefaultConfigPath is empty when no home directory can be determined.
func GetDefaultConfigPath() string {
	return joinIfSet(GetConfigDir(), "config.yaml")
}

func fromHome(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

func joinIfSet(base string, elem ...string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(append([]string{base}, elem...)...)
}
