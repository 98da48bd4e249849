package telemetry

import "codeberg.org/mutker/evdash/internal/errors"

const (
	defaultBatchSize = 20

	// The trip log lives only as long as the process.
	memoryDSN = ":memory:"
)

type Config struct {
	Enabled   bool
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		BatchSize: defaultBatchSize,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Enabled && c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize int
		}{c.BatchSize})
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
