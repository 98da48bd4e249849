package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/evdash/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestFactoryMessages(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Invalid tick interval", f.New(errors.ErrInvalidInterval).Error())
	assert.Equal(t, "Failed to watch configuration: no config file in use",
		f.WithData(errors.ErrWatchConfig, "no config file in use").Error())
	assert.Equal(t, "Invalid log level: loud", f.WithData(errors.ErrInvalidLogLevel, "loud").Error())
	assert.Equal(t, "unknown_code", f.New(errors.ErrorCode("unknown_code")).Error())
}

func TestWrapUnwrap(t *testing.T) {
	base := fmt.Errorf("disk on fire")
	err := errors.New().Wrap(errors.ErrRecordSample, base)

	assert.Equal(t, "Failed to record telemetry sample: disk on fire", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, errors.ErrRecordSample, err.Code())
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrInvalidBattery)
	outer := errors.New().Wrap(errors.ErrInvalidConfig, inner)
	wrapped := fmt.Errorf("loading: %w", outer)

	assert.True(t, errors.HasCode(wrapped, errors.ErrInvalidConfig))
	assert.True(t, errors.HasCode(wrapped, errors.ErrInvalidBattery))
	assert.False(t, errors.HasCode(wrapped, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errors.ErrTimeout))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("startup: %w", errors.New().Wrap(errors.ErrAlreadyRunning, fmt.Errorf("pid 42")))

	code, ok := errors.CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, errors.ErrAlreadyRunning, code)

	_, ok = errors.CodeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}
