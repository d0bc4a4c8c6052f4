package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/godbus/dbus/v5"

	"vboard/internal/keys"
	"vboard/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	return e.Warning
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Limits shared by the millisecond options.
const (
	minTimingMs = 1
	maxTimingMs = 5000
)

// Device names longer than this are truncated by the kernel.
const maxDeviceNameLen = 79

var busElement = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*$`)

// ValidateConfig checks the whole configuration. Errors block a load or
// reload; warnings do not. The result wraps ErrInvalidConfig when any
// error is present.
func ValidateConfig(c *Config) error {
	errs := Check(c)
	if !errs.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errs.Errors())
}

// Check returns every problem found in c, warnings included.
func Check(c *Config) ValidationErrors {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateInput(&c.Input)...)
	errs = append(errs, validateCursor(&c.Cursor)...)
	errs = append(errs, validateDevice(&c.Device)...)
	errs = append(errs, validateDBus(&c.DBus)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateStatus(&c.Status)...)
	return errs
}

func validateInput(in *InputConfig) ValidationErrors {
	var errs ValidationErrors

	timing := []struct {
		field string
		value int
	}{
		{"input.double_shift_timeout_ms", in.DoubleShiftTimeoutMs},
		{"input.space_long_press_ms", in.SpaceLongPressMs},
		{"input.repeat_initial_delay_ms", in.RepeatInitialDelayMs},
		{"input.repeat_interval_ms", in.RepeatIntervalMs},
		{"input.caps_flash_ms", in.CapsFlashMs},
	}
	for _, t := range timing {
		if t.value < minTimingMs || t.value > maxTimingMs {
			errs = append(errs, ValidationError{
				Field:   t.field,
				Message: fmt.Sprintf("value must be between %d and %d", minTimingMs, maxTimingMs),
			})
		}
	}

	resolved := 0
	for _, tok := range in.DoubleShiftShortcut {
		if _, ok := keys.Lookup(tok); ok {
			resolved++
			continue
		}
		errs = append(errs, ValidationError{
			Field:   "input.double_shift_shortcut",
			Message: fmt.Sprintf("unknown key %q is ignored", tok),
			Warning: true,
		})
	}
	if resolved == 0 {
		errs = append(errs, ValidationError{
			Field:   "input.double_shift_shortcut",
			Message: fmt.Sprintf("no known keys, using %s", keys.DefaultShortcut),
			Warning: true,
		})
	}

	return errs
}

func validateCursor(c *CursorConfig) ValidationErrors {
	var errs ValidationErrors

	if c.MinStepPx <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cursor.min_step_px",
			Message: "min step must be positive",
		})
	}
	if c.MaxStepPx < c.MinStepPx {
		errs = append(errs, ValidationError{
			Field:   "cursor.max_step_px",
			Message: "max step cannot be below min step",
		})
	}
	if c.SpeedDivisor <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cursor.speed_divisor",
			Message: "speed divisor must be positive",
		})
	}
	if c.MaxReductionPx < 0 {
		errs = append(errs, ValidationError{
			Field:   "cursor.max_reduction_px",
			Message: "max reduction cannot be negative",
		})
	}

	return errs
}

func validateDevice(d *DeviceConfig) ValidationErrors {
	var errs ValidationErrors

	if d.Path == "" && !d.DryRun {
		errs = append(errs, ValidationError{
			Field:   "device.path",
			Message: "device path is required unless dry_run is set",
		})
	}
	if d.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "device.name",
			Message: "device name is required",
		})
	} else if len(d.Name) > maxDeviceNameLen {
		errs = append(errs, ValidationError{
			Field:   "device.name",
			Message: fmt.Sprintf("device name exceeds %d bytes", maxDeviceNameLen),
		})
	}

	return errs
}

func validateDBus(b *DBusConfig) ValidationErrors {
	var errs ValidationErrors

	if !b.Enabled {
		return errs
	}

	if !isValidBusName(b.BusName) {
		errs = append(errs, ValidationError{
			Field:   "dbus.bus_name",
			Message: fmt.Sprintf("invalid bus name %q", b.BusName),
		})
	}
	if !dbus.ObjectPath(b.ObjectPath).IsValid() {
		errs = append(errs, ValidationError{
			Field:   "dbus.object_path",
			Message: fmt.Sprintf("invalid object path %q", b.ObjectPath),
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", l.Level),
		})
	}

	if _, err := logging.ParseFormat(l.Format); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (must be text or json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %q", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateStatus(s *StatusConfig) ValidationErrors {
	var errs ValidationErrors

	if !s.Enabled {
		return errs
	}
	if _, port, err := net.SplitHostPort(s.Listen); err != nil || port == "" {
		errs = append(errs, ValidationError{
			Field:   "status.listen",
			Message: fmt.Sprintf("invalid listen address %q (want host:port)", s.Listen),
		})
	}

	return errs
}

func isValidBusName(name string) bool {
	if name == "" || len(name) > 255 || strings.HasPrefix(name, ":") {
		return false
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if !busElement.MatchString(p) {
			return false
		}
	}
	return true
}
