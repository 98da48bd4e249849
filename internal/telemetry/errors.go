package telemetry

import "codeberg.org/mutker/evdash/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")

	// Collection Errors
	ErrInvalidSample = errors.ErrorCode("telemetry_invalid_sample")

	// Storage Errors
	ErrSchemaInitFailed = errors.ErrorCode("telemetry_schema_init_failed")
)
