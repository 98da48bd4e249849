package metrics

import (
	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/vehicle"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evdash"

// Collector exports vehicle state as Prometheus metrics. It is meant to be
// attached to a controller with vehicle.WithObserver.
type Collector struct {
	speed   prometheus.Gauge
	power   prometheus.Gauge
	battery prometheus.Gauge
	gear    prometheus.Gauge
	running prometheus.Gauge
	ticks   prometheus.Counter
	toggles *prometheus.CounterVec
}

var _ vehicle.Observer = (*Collector)(nil)

// NewCollector creates the vehicle metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed_kmh",
			Help:      "Current vehicle speed in km/h.",
		}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power_percent",
			Help:      "Current power output in percent.",
		}),
		battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_percent",
			Help:      "Remaining battery charge in percent.",
		}),
		gear: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gear",
			Help:      "Current gear, 0 for neutral.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the vehicle is running, 0 otherwise.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Telemetry ticks applied.",
		}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toggles_total",
			Help:      "Lifecycle transitions by target state.",
		}, []string{"to"}),
	}

	for _, col := range []prometheus.Collector{
		c.speed, c.power, c.battery, c.gear, c.running, c.ticks, c.toggles,
	} {
		if err := reg.Register(col); err != nil {
			return nil, errors.New().Wrap(ErrRegister, err)
		}
	}

	c.toggles.WithLabelValues(vehicle.StateRunning)
	c.toggles.WithLabelValues(vehicle.StateStopped)

	return c, nil
}

// OnTick implements vehicle.Observer.
func (c *Collector) OnTick(s vehicle.State) {
	c.observe(s)
	c.ticks.Inc()
}

// OnToggle implements vehicle.Observer.
func (c *Collector) OnToggle(s vehicle.State) {
	c.observe(s)

	to := vehicle.StateStopped
	if s.Running {
		to = vehicle.StateRunning
	}
	c.toggles.WithLabelValues(to).Inc()
}

// Observe sets the gauges from s without counting a tick.
func (c *Collector) Observe(s vehicle.State) {
	c.observe(s)
}

func (c *Collector) observe(s vehicle.State) {
	c.speed.Set(s.Speed)
	c.power.Set(s.Power)
	c.battery.Set(s.BatteryLevel)
	c.gear.Set(float64(s.Gear))
	c.running.Set(float64(boolToInt(s.Running)))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
