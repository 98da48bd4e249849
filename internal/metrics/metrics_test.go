package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/metrics"
	"codeberg.org/mutker/evdash/internal/vehicle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idleTicker never fires, so only toggles reach the collector.
type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

func newCollector(t *testing.T) (*metrics.Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg)
	require.NoError(t, err)
	return c, reg
}

func TestCollectorObservesTicks(t *testing.T) {
	c, reg := newCollector(t)

	s := vehicle.State{Running: true, Speed: 42, Power: 55, BatteryLevel: 80.5, Gear: vehicle.Third}
	c.OnTick(s)
	c.OnTick(s)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range mfs {
		m := mf.GetMetric()[0]
		switch {
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		case m.GetCounter() != nil && len(m.GetLabel()) == 0:
			values[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	assert.InDelta(t, 42.0, values["evdash_speed_kmh"], 1e-9)
	assert.InDelta(t, 55.0, values["evdash_power_percent"], 1e-9)
	assert.InDelta(t, 80.5, values["evdash_battery_percent"], 1e-9)
	assert.InDelta(t, 3.0, values["evdash_gear"], 1e-9)
	assert.InDelta(t, 1.0, values["evdash_running"], 1e-9)
	assert.InDelta(t, 2.0, values["evdash_ticks_total"], 1e-9)
}

func TestCollectorCountsToggles(t *testing.T) {
	c, reg := newCollector(t)

	ctrl := vehicle.NewController(
		vehicle.WithObserver(c),
		vehicle.WithTickerFactory(func(time.Duration) vehicle.Ticker { return idleTicker{} }),
	)
	t.Cleanup(ctrl.Close)

	ctx := context.Background()
	ctrl.Toggle(ctx)
	ctrl.Toggle(ctx)
	ctrl.Toggle(ctx)

	expected := `
# HELP evdash_toggles_total Lifecycle transitions by target state.
# TYPE evdash_toggles_total counter
evdash_toggles_total{to="running"} 2
evdash_toggles_total{to="stopped"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "evdash_toggles_total"))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 8, count, "five gauges, the tick counter and two toggle series")
}

func TestStopResetsGauges(t *testing.T) {
	c, reg := newCollector(t)

	c.OnTick(vehicle.State{Running: true, Speed: 70, Power: 40, BatteryLevel: 84, Gear: vehicle.Fourth})
	c.OnToggle(vehicle.State{Running: false, BatteryLevel: 84})

	expected := `
# HELP evdash_speed_kmh Current vehicle speed in km/h.
# TYPE evdash_speed_kmh gauge
evdash_speed_kmh 0
# HELP evdash_running 1 while the vehicle is running, 0 otherwise.
# TYPE evdash_running gauge
evdash_running 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "evdash_speed_kmh", "evdash_running"))
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	_, err = metrics.NewCollector(reg)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrRegister))
}

func TestConfigValidate(t *testing.T) {
	assert.False(t, metrics.Config{}.Enabled())
	assert.NoError(t, metrics.Config{}.Validate())
	assert.NoError(t, metrics.Config{Addr: "127.0.0.1:9100"}.Validate())
	assert.NoError(t, metrics.Config{Addr: ":9100"}.Validate())

	err := metrics.Config{Addr: "no-port"}.Validate()
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidConfig))
}

func TestServeListener(t *testing.T) {
	c, reg := newCollector(t)
	c.Observe(vehicle.State{Speed: 12, BatteryLevel: 85})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- metrics.ServeListener(ctx, ln, reg) }()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + metrics.MetricsPath)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "evdash_speed_kmh 12")

	resp, err = http.Get(base + metrics.HealthPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeRejectsBadAddr(t *testing.T) {
	err := metrics.Serve(context.Background(), "no-port", prometheus.NewRegistry())
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidConfig))
}
