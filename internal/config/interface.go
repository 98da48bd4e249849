package config

import (
	"context"
	"fmt"
	"time"
)

// Provider gives read access to the loaded configuration.
type Provider interface {
	// GetTickInterval returns the telemetry tick period
	GetTickInterval() time.Duration

	// GetInitialBattery returns the battery level the vehicle starts with
	GetInitialBattery() float64

	// GetSeed returns the random seed, 0 meaning time-seeded
	GetSeed() uint64

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// IsRecorderEnabled returns whether the in-session trip recorder is on
	IsRecorderEnabled() bool

	// GetMetricsAddr returns the metrics listen address, empty when disabled
	GetMetricsAddr() string
}

// Watcher enables live configuration updates
type Watcher interface {
	// Watch calls callback with the reloaded configuration whenever the
	// config file changes, until ctx is done.
	Watch(ctx context.Context, callback func(*Config), onError func(error)) error
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath  string
	envPrefix   string
	searchPaths []string
	flags       flagSet
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "EVDASH"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		if prefix == "" {
			return fmt.Errorf("empty environment prefix")
		}
		o.envPrefix = prefix
		return nil
	}
}

// WithSearchPaths replaces the directories searched for evdash.toml.
func WithSearchPaths(paths ...string) Option {
	return func(o *options) error {
		o.searchPaths = paths
		return nil
	}
}

// WithFlags binds command line flags registered by RegisterFlags. Flags
// that were set explicitly override file and environment values.
func WithFlags(fs flagSet) Option {
	return func(o *options) error {
		o.flags = fs
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// ValidationError represents a configuration validation error
type ValidationError interface {
	error
	// Field returns the name of the invalid field
	Field() string
	// Value returns the invalid value
	Value() interface{}
	// Reason returns why the value is invalid
	Reason() string
}

type validationError struct {
	field  string
	value  interface{}
	reason string
}

func (e *validationError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.field, e.value, e.reason)
}

func (e *validationError) Field() string      { return e.field }
func (e *validationError) Value() interface{} { return e.value }
func (e *validationError) Reason() string     { return e.reason }
