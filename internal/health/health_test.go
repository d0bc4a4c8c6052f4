package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		critical error
		optional error
		want     Status
	}{
		{"all healthy", nil, nil, StatusHealthy},
		{"optional failing", nil, errors.New("bus gone"), StatusDegraded},
		{"critical failing", errors.New("device gone"), nil, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.RegisterFunc("device", true, func(context.Context) error { return tt.critical })
			c.RegisterFunc("dbus", false, func(context.Context) error { return tt.optional })

			c.Check(context.Background())
			assert.Equal(t, tt.want, c.OverallStatus())
		})
	}
}

func TestUncheckedCriticalIsUnknown(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("loop", true, ok)
	assert.Equal(t, StatusUnknown, c.OverallStatus())
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:     "loop",
		Critical: true,
		Timeout:  20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["loop"].Status)
	assert.Equal(t, "check timed out", results["loop"].Message)
}

func TestCheckPanicIsUnhealthy(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:  "device",
		Check: func(context.Context) CheckResult { panic("boom") },
	})

	results := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["device"].Status)
	assert.Equal(t, "boom", results["device"].Error)
}

func TestHandler(t *testing.T) {
	c := NewChecker()
	c.SetReady(true)
	c.RegisterFunc("device", true, ok)
	c.RegisterFunc("dbus", false, func(context.Context) error { return errors.New("not connected") })

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.True(t, resp.Ready)
	assert.Equal(t, []string{"dbus"}, resp.Failing)
	assert.Equal(t, "not connected", resp.Components["dbus"].Error)
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("device", true, func(context.Context) error { return errors.New("closed") })

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c.SetReady(true)
	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "no check has run yet")

	c.Check(context.Background())
	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
