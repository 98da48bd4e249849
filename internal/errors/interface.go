package errors

// ErrorCode identifies an error kind. Codes are stable strings so they can
// be logged as the error_code field and matched with HasCode.
type ErrorCode string

// Coder is implemented by errors that carry an ErrorCode.
type Coder interface {
	Code() ErrorCode
}

// Error is an application error. Its message is the code's registered
// text, followed by the detail data or the wrapped cause when present.
type Error interface {
	error
	Coder
	Unwrap() error
}

// Factory creates application errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithData(code ErrorCode, data any) Error
}
