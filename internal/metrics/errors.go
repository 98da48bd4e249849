package metrics

import "codeberg.org/mutker/evdash/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig

	// Registration Errors
	ErrRegister = errors.ErrInitMetrics

	// Service Errors
	ErrServe           = errors.ErrServeMetrics
	ErrServiceShutdown = errors.ErrShutdownFailed
)
