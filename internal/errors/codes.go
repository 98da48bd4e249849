package errors

// Common error codes
const (
	// System errors
	ErrInternal         ErrorCode = "internal_error"
	ErrInvalidArgument  ErrorCode = "invalid_argument"
	ErrInvalidOperation ErrorCode = "invalid_operation"
	ErrTimeout          ErrorCode = "operation_timeout"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrWriteConfig     ErrorCode = "write_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidBattery  ErrorCode = "invalid_battery_level"
	ErrWatchConfig     ErrorCode = "watch_config_failed"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Recorder errors
	ErrInitRecorder   ErrorCode = "init_recorder_failed"
	ErrRecordSample   ErrorCode = "record_sample_failed"
	ErrQueryRecorder  ErrorCode = "query_recorder_failed"
	ErrCloseRecorder  ErrorCode = "close_recorder_failed"
	ErrRecorderClosed ErrorCode = "recorder_closed"

	// Metrics errors
	ErrInitMetrics  ErrorCode = "init_metrics_failed"
	ErrServeMetrics ErrorCode = "serve_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrInvalidOperation: "Invalid operation",
	ErrTimeout:          "Operation timed out",
	ErrInvalidConfig:    "Invalid configuration",
	ErrReadConfig:       "Failed to read configuration",
	ErrWriteConfig:      "Failed to write configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrInvalidInterval:  "Invalid tick interval",
	ErrInvalidBattery:   "Invalid battery level",
	ErrWatchConfig:      "Failed to watch configuration",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrInitRecorder:     "Failed to initialize trip recorder",
	ErrRecordSample:     "Failed to record telemetry sample",
	ErrQueryRecorder:    "Failed to query trip recorder",
	ErrCloseRecorder:    "Failed to close trip recorder",
	ErrRecorderClosed:   "Trip recorder is closed",
	ErrInitMetrics:      "Failed to initialize metrics",
	ErrServeMetrics:     "Failed to serve metrics",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
