package metrics

import (
	"net"

	"codeberg.org/mutker/evdash/internal/errors"
)

const (
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

type Config struct {
	// Addr is the listen address for the metrics endpoint. Empty disables it.
	Addr string
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New().Wrap(ErrInvalidConfig, err)
	}
	return nil
}
