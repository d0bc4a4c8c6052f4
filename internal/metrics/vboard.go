package metrics

import (
	"net/http"
	"sync"
	"time"

	"vboard/internal/feedback"
	"vboard/internal/keys"
	"vboard/internal/sink"
)

// DaemonMetrics holds the vboardd instruments.
type DaemonMetrics struct {
	registry *Registry
	started  time.Time

	KeyPresses   *Counter
	KeyReleases  *Counter
	DeviceErrors *Counter
	KeysDown     *Gauge

	ConfigReloads        *Counter
	ConfigReloadFailures *Counter

	CursorModeEntries *Counter
	CapsLockToggles   *Counter

	UptimeSeconds *Gauge
}

// NewDaemonMetrics creates and registers the daemon metrics. A nil registry
// gets a fresh one in the vboard namespace.
func NewDaemonMetrics(registry *Registry) *DaemonMetrics {
	if registry == nil {
		registry = NewRegistry("vboard")
	}

	return &DaemonMetrics{
		registry: registry,
		started:  time.Now(),

		KeyPresses: registry.Counter("key_events_total",
			"Key events written to the device", Labels{"value": "press"}),
		KeyReleases: registry.Counter("key_events_total",
			"Key events written to the device", Labels{"value": "release"}),
		DeviceErrors: registry.Counter("device_errors_total",
			"Failed writes to the device", nil),
		KeysDown: registry.Gauge("keys_down",
			"Keys currently held down on the device", nil),

		ConfigReloads: registry.Counter("config_reloads_total",
			"Configuration reloads applied", nil),
		ConfigReloadFailures: registry.Counter("config_reload_failures_total",
			"Configuration reloads rejected", nil),

		CursorModeEntries: registry.Counter("cursor_mode_entries_total",
			"Times space cursor mode was entered", nil),
		CapsLockToggles: registry.Counter("capslock_toggles_total",
			"CapsLock state changes", nil),

		UptimeSeconds: registry.Gauge("uptime_seconds",
			"Seconds since the daemon started", nil),
	}
}

// Registry returns the underlying registry.
func (m *DaemonMetrics) Registry() *Registry {
	return m.registry
}

// RecordCall records one D-Bus method call. It has the shape of
// busapi.CallObserver.
func (m *DaemonMetrics) RecordCall(method string, took time.Duration, err error) {
	labels := Labels{"method": method}
	m.registry.Counter("bus_calls_total", "D-Bus method calls handled", labels).Inc()
	if err != nil {
		m.registry.Counter("bus_call_errors_total", "D-Bus method calls that failed", labels).Inc()
	}
	m.registry.Histogram("bus_call_duration_seconds",
		"Time from D-Bus call to engine completion", labels, LatencyBuckets).ObserveDuration(took)
}

// RecordReload counts a configuration reload attempt.
func (m *DaemonMetrics) RecordReload(err error) {
	if err != nil {
		m.ConfigReloadFailures.Inc()
		return
	}
	m.ConfigReloads.Inc()
}

// Handler serves the registry with a fresh uptime value.
func (m *DaemonMetrics) Handler() http.Handler {
	h := m.registry.HTTPHandler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.UptimeSeconds.Set(int64(time.Since(m.started).Seconds()))
		h.ServeHTTP(w, r)
	})
}

// Device wraps dev so every event it writes is counted.
func (m *DaemonMetrics) Device(dev sink.Device) sink.Device {
	return &countingDevice{Device: dev, m: m, down: make(map[keys.Key]bool)}
}

type countingDevice struct {
	sink.Device
	m *DaemonMetrics

	mu   sync.Mutex
	down map[keys.Key]bool
}

func (d *countingDevice) Emit(key keys.Key, value int32) error {
	if err := d.Device.Emit(key, value); err != nil {
		d.m.DeviceErrors.Inc()
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch value {
	case sink.ValuePress:
		d.m.KeyPresses.Inc()
		if !d.down[key] {
			d.down[key] = true
			d.m.KeysDown.Inc()
		}
	case sink.ValueRelease:
		d.m.KeyReleases.Inc()
		if d.down[key] {
			delete(d.down, key)
			d.m.KeysDown.Dec()
		}
	}
	return nil
}

func (d *countingDevice) Sync() error {
	err := d.Device.Sync()
	if err != nil {
		d.m.DeviceErrors.Inc()
	}
	return err
}

// Observer returns a feedback observer counting mode changes.
func (m *DaemonMetrics) Observer() feedback.Observer {
	return observer{m}
}

type observer struct {
	m *DaemonMetrics
}

func (observer) KeyVisualChanged(keys.Key, bool) {}
func (observer) ShiftActiveChanged(bool)         {}

func (o observer) SpaceCursorModeChanged(active bool) {
	if active {
		o.m.CursorModeEntries.Inc()
	}
}

func (o observer) CapsLockChanged(bool) {
	o.m.CapsLockToggles.Inc()
}
