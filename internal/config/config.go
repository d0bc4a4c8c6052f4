// Package config handles configuration loading, validation, and management for vboardd.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"vboard/internal/contact"
	"vboard/internal/cursor"
	"vboard/internal/keys"
	"vboard/internal/logging"
	"vboard/internal/repeat"
	"vboard/internal/shortcut"
	"vboard/internal/sink"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input holds the keyboard engine timings and the double shift shortcut.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Cursor tunes space cursor mode stepping.
	Cursor CursorConfig `toml:"cursor" json:"cursor" yaml:"cursor"`

	// Device configures the virtual input device.
	Device DeviceConfig `toml:"device" json:"device" yaml:"device"`

	// DBus configures the session bus service.
	DBus DBusConfig `toml:"dbus" json:"dbus" yaml:"dbus"`

	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Status configures the metrics and health endpoint.
	Status StatusConfig `toml:"status" json:"status" yaml:"status"`
}

// InputConfig holds the engine options.
type InputConfig struct {
	// DoubleShiftTimeoutMs is the longest gap between two Shift taps that
	// triggers the shortcut.
	DoubleShiftTimeoutMs int `toml:"double_shift_timeout_ms" json:"double_shift_timeout_ms" yaml:"double_shift_timeout_ms"`

	DoubleShiftShortcutEnabled bool `toml:"double_shift_shortcut_enabled" json:"double_shift_shortcut_enabled" yaml:"double_shift_shortcut_enabled"`

	// DoubleShiftShortcut lists key names, for example ["LEFTCTRL", "SPACE"].
	// A single comma separated string is accepted as well.
	DoubleShiftShortcut KeyList `toml:"double_shift_shortcut" json:"double_shift_shortcut" yaml:"double_shift_shortcut"`

	// SpaceLongPressMs is how long space must be held to enter cursor mode.
	SpaceLongPressMs int `toml:"space_long_press_ms" json:"space_long_press_ms" yaml:"space_long_press_ms"`

	RepeatInitialDelayMs int `toml:"repeat_initial_delay_ms" json:"repeat_initial_delay_ms" yaml:"repeat_initial_delay_ms"`
	RepeatIntervalMs     int `toml:"repeat_interval_ms" json:"repeat_interval_ms" yaml:"repeat_interval_ms"`

	// CapsFlashMs is how long the CapsLock key stays painted after a tap.
	CapsFlashMs int `toml:"caps_flash_ms" json:"caps_flash_ms" yaml:"caps_flash_ms"`
}

// CursorConfig tunes cursor mode. Distances are in pixels.
type CursorConfig struct {
	MinStepPx      float64 `toml:"min_step_px" json:"min_step_px" yaml:"min_step_px"`
	MaxStepPx      float64 `toml:"max_step_px" json:"max_step_px" yaml:"max_step_px"`
	SpeedDivisor   float64 `toml:"speed_divisor" json:"speed_divisor" yaml:"speed_divisor"`
	MaxReductionPx float64 `toml:"max_reduction_px" json:"max_reduction_px" yaml:"max_reduction_px"`
}

// DeviceConfig configures the uinput device.
type DeviceConfig struct {
	// Path is the uinput control node.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Name is the device name shown to the host.
	Name string `toml:"name" json:"name" yaml:"name"`

	// DryRun logs key events instead of injecting them.
	DryRun bool `toml:"dry_run" json:"dry_run" yaml:"dry_run"`
}

// DBusConfig configures the session bus service.
type DBusConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	BusName    string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`
	ObjectPath string `toml:"object_path" json:"object_path" yaml:"object_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// StatusConfig configures the HTTP status endpoint serving /metrics,
// /healthz and /readyz.
type StatusConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Listen  string `toml:"listen" json:"listen" yaml:"listen"`
}

// DefaultStatusListen is the loopback address of the status endpoint.
const DefaultStatusListen = "127.0.0.1:9477"

// Well-known D-Bus names.
const (
	DefaultBusName    = "org.vboard.Keyboard"
	DefaultObjectPath = "/org/vboard/Keyboard"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Input: InputConfig{
			DoubleShiftTimeoutMs:       int(shortcut.DefaultTimeout / time.Millisecond),
			DoubleShiftShortcutEnabled: true,
			DoubleShiftShortcut:        keys.DefaultShortcut.Tokens(),
			SpaceLongPressMs:           int(cursor.DefaultLongPress / time.Millisecond),
			RepeatInitialDelayMs:       int(repeat.DefaultInitialDelay / time.Millisecond),
			RepeatIntervalMs:           int(repeat.DefaultInterval / time.Millisecond),
			CapsFlashMs:                int(contact.DefaultCapsFlash / time.Millisecond),
		},
		Cursor: CursorConfig{
			MinStepPx:      cursor.DefaultMinStep,
			MaxStepPx:      cursor.DefaultMaxStep,
			SpeedDivisor:   cursor.DefaultSpeedDivisor,
			MaxReductionPx: cursor.DefaultMaxReduction,
		},
		Device: DeviceConfig{
			Path: sink.DefaultUinputPath,
			Name: "vboard virtual keyboard",
		},
		DBus: DBusConfig{
			Enabled:    true,
			BusName:    DefaultBusName,
			ObjectPath: DefaultObjectPath,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		Status: StatusConfig{
			Listen: DefaultStatusListen,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads configuration from path. A missing file yields the defaults.
// TOML, JSON and YAML are supported based on the file extension; every
// format is checked against the embedded JSON schema. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies VBOARD_* environment variables. Values that do
// not parse are ignored.
func (c *Config) ApplyEnvOverrides() {
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	envString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// Input overrides
	envInt("VBOARD_DOUBLE_SHIFT_TIMEOUT_MS", &c.Input.DoubleShiftTimeoutMs)
	envBool("VBOARD_DOUBLE_SHIFT_SHORTCUT_ENABLED", &c.Input.DoubleShiftShortcutEnabled)
	if v := os.Getenv("VBOARD_DOUBLE_SHIFT_SHORTCUT"); v != "" {
		c.Input.DoubleShiftShortcut = splitKeyList(v)
	}
	envInt("VBOARD_SPACE_LONG_PRESS_MS", &c.Input.SpaceLongPressMs)
	envInt("VBOARD_REPEAT_INITIAL_DELAY_MS", &c.Input.RepeatInitialDelayMs)
	envInt("VBOARD_REPEAT_INTERVAL_MS", &c.Input.RepeatIntervalMs)

	// Device overrides
	envString("VBOARD_DEVICE_PATH", &c.Device.Path)
	envBool("VBOARD_DRY_RUN", &c.Device.DryRun)

	// D-Bus overrides
	envBool("VBOARD_DBUS_ENABLED", &c.DBus.Enabled)
	envString("VBOARD_BUS_NAME", &c.DBus.BusName)

	// Logging overrides
	envString("VBOARD_LOG_LEVEL", &c.Logging.Level)
	envString("VBOARD_LOG_FORMAT", &c.Logging.Format)
	envString("VBOARD_LOG_PATH", &c.Logging.FilePath)

	// Status endpoint overrides
	envBool("VBOARD_STATUS_ENABLED", &c.Status.Enabled)
	envString("VBOARD_STATUS_LISTEN", &c.Status.Listen)
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Input.DoubleShiftShortcut = append([]string(nil), c.Input.DoubleShiftShortcut...)
	return &clone
}

// Shortcut resolves the configured double shift shortcut.
func (c *Config) Shortcut() keys.Shortcut {
	return keys.ParseShortcut(c.Input.DoubleShiftShortcut)
}

// EngineOptions converts the file form into the keyboard engine's options.
func (c *Config) EngineOptions() contact.Options {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return contact.Options{
		Repeat: repeat.Options{
			InitialDelay: ms(c.Input.RepeatInitialDelayMs),
			Interval:     ms(c.Input.RepeatIntervalMs),
		},
		Shortcut: shortcut.Options{
			Enabled: c.Input.DoubleShiftShortcutEnabled,
			Timeout: ms(c.Input.DoubleShiftTimeoutMs),
			Combo:   c.Shortcut(),
		},
		Cursor: cursor.Options{
			LongPress:    ms(c.Input.SpaceLongPressMs),
			MinStep:      c.Cursor.MinStepPx,
			MaxStep:      c.Cursor.MaxStepPx,
			SpeedDivisor: c.Cursor.SpeedDivisor,
			MaxReduction: c.Cursor.MaxReductionPx,
		},
		CapsFlash: ms(c.Input.CapsFlashMs),
	}
}

// LoggingOptions converts the logging section for the logging package.
func (c *Config) LoggingOptions() *logging.Config {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = level
	}
	if format, err := logging.ParseFormat(c.Logging.Format); err == nil {
		lc.Format = format
	}
	lc.Output = c.Logging.Output
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	lc.Compress = c.Logging.Compress
	return lc
}

// Save writes cfg to path in the format implied by its extension.
func Save(cfg *Config, path string) error {
	data, err := Encode(cfg, filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode serializes cfg. ext selects the format (".toml", ".json",
// ".yaml"/".yml"); anything else is TOML.
func Encode(cfg *Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode JSON: %w", err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encode YAML: %w", err)
		}
		return data, nil
	default:
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode TOML: %w", err)
		}
		return []byte(sb.String()), nil
	}
}
