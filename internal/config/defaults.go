package config

import (
	"os"
	"path/filepath"
)

// PlatformConfigDir returns the configuration directory.
//
// Lookup order:
//   - $VBOARD_CONFIG_DIR
//   - $XDG_CONFIG_HOME/vboard
//   - ~/.config/vboard
func PlatformConfigDir() string {
	if dir := os.Getenv("VBOARD_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "vboard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vboard")
	}
	return filepath.Join(home, ".config", "vboard")
}

// SupportedConfigFormats returns the config file extensions, without the
// dot, that Parse decodes directly and FindConfigFile looks for.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"json",
		"yaml",
		"yml",
	}
}

// FindConfigFile searches the current directory and then the config
// directory for config.<ext>. It returns an empty string if none exists.
func FindConfigFile() string {
	for _, dir := range []string{".", PlatformConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
