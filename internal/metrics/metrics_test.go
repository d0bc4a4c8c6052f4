package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vboard/internal/keys"
	"vboard/internal/sink"
)

func TestRegistryReturnsSameInstrument(t *testing.T) {
	r := NewRegistry("vb")

	a := r.Counter("hits_total", "hits", Labels{"k": "a"})
	b := r.Counter("hits_total", "hits", Labels{"k": "a"})
	c := r.Counter("hits_total", "hits", Labels{"k": "b"})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "vb_hits_total", a.Name())
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("vb")
	r.Counter("events_total", "Events", Labels{"value": "release"}).Add(2)
	r.Counter("events_total", "Events", Labels{"value": "press"}).Add(3)
	r.Gauge("down", "Keys down", nil).Set(1)
	h := r.Histogram("latency_seconds", "Latency", nil, []float64{0.5, 0.125})
	h.Observe(0.125)
	h.Observe(0.25)
	h.Observe(2)

	var b strings.Builder
	require.NoError(t, r.WritePrometheus(&b))

	assert.Equal(t, `# HELP vb_down Keys down
# TYPE vb_down gauge
vb_down 1
# HELP vb_events_total Events
# TYPE vb_events_total counter
vb_events_total{value="press"} 3
vb_events_total{value="release"} 2
# HELP vb_latency_seconds Latency
# TYPE vb_latency_seconds histogram
vb_latency_seconds_bucket{le="0.125"} 1
vb_latency_seconds_bucket{le="0.5"} 2
vb_latency_seconds_bucket{le="+Inf"} 3
vb_latency_seconds_sum 2.375
vb_latency_seconds_count 3
`, b.String())
}

func TestHTTPHandlerNegotiatesJSON(t *testing.T) {
	r := NewRegistry("")
	r.Counter("taps_total", "Taps", nil).Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	r.HTTPHandler().ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var samples []Sample
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, Sample{Name: "taps_total", Type: "counter", Value: 1}, samples[0])

	rec = httptest.NewRecorder()
	r.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "taps_total 1\n")
}

func TestDeviceCountsEvents(t *testing.T) {
	m := NewDaemonMetrics(nil)
	inj := sink.NewInjector(m.Device(sink.NewRecorder(nil)))

	require.NoError(t, inj.SetState(keys.KeyLeftShift, true))
	require.NoError(t, inj.Tap(keys.KeyA))
	assert.Equal(t, int64(1), m.KeysDown.Value())

	require.NoError(t, inj.ReleaseAll())
	assert.Equal(t, uint64(2), m.KeyPresses.Value())
	assert.Equal(t, uint64(2), m.KeyReleases.Value())
	assert.Equal(t, int64(0), m.KeysDown.Value())

	broken := sink.NewRecorder(nil)
	broken.Fail = sink.ErrUnavailable
	bad := sink.NewInjector(m.Device(broken))
	assert.Error(t, bad.Tap(keys.KeyA))
	assert.NotZero(t, m.DeviceErrors.Value())
}

func TestRecordCall(t *testing.T) {
	m := NewDaemonMetrics(nil)
	m.RecordCall("Begin", time.Millisecond, nil)
	m.RecordCall("Begin", time.Millisecond, errors.New("boom"))

	reg := m.Registry()
	assert.Equal(t, uint64(2), reg.Counter("bus_calls_total", "", Labels{"method": "Begin"}).Value())
	assert.Equal(t, uint64(1), reg.Counter("bus_call_errors_total", "", Labels{"method": "Begin"}).Value())
	assert.Equal(t, uint64(2), reg.Histogram("bus_call_duration_seconds", "", Labels{"method": "Begin"}, nil).Count())
}

func TestObserverAndReloads(t *testing.T) {
	m := NewDaemonMetrics(nil)
	o := m.Observer()
	o.SpaceCursorModeChanged(true)
	o.SpaceCursorModeChanged(false)
	o.CapsLockChanged(true)
	o.CapsLockChanged(false)
	m.RecordReload(nil)
	m.RecordReload(errors.New("bad file"))

	assert.Equal(t, uint64(1), m.CursorModeEntries.Value())
	assert.Equal(t, uint64(2), m.CapsLockToggles.Value())
	assert.Equal(t, uint64(1), m.ConfigReloads.Value())
	assert.Equal(t, uint64(1), m.ConfigReloadFailures.Value())
}

func TestHandlerSetsUptime(t *testing.T) {
	m := NewDaemonMetrics(nil)
	m.started = time.Now().Add(-90 * time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, m.UptimeSeconds.Value(), int64(90))
	assert.Contains(t, rec.Body.String(), "vboard_uptime_seconds ")
}
