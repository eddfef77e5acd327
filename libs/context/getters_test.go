package context

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetLogger(t *testing.T) {
	actual, err := GetLogger(context.Background())
	assert.Nil(t, actual)
	assert.ErrorIs(t, err, ErrNotInContext)

	logger := zerolog.Nop()
	ctx := context.WithValue(context.Background(), LoggerCTXKey, &logger)

	actual, err = GetLogger(ctx)
	assert.NoError(t, err)
	assert.Equal(t, &logger, actual)
}

func TestGetStringFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), MomoServerCTXKey, "https://sandbox.momodeveloper.mtn.com")
	ctx = context.WithValue(ctx, MomoClientTimeoutCTXKey, 10)

	actual, err := GetStringFromContext(ctx, MomoServerCTXKey)
	assert.NoError(t, err)
	assert.Equal(t, "https://sandbox.momodeveloper.mtn.com", actual)

	_, err = GetStringFromContext(ctx, MomoClientTimeoutCTXKey)
	assert.ErrorIs(t, err, ErrValueWrongType)

	_, err = GetStringFromContext(ctx, MomoAPIUserCTXKey)
	assert.ErrorIs(t, err, ErrNotInContext)
}

func TestGetDurationFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), MomoTokenMarginCTXKey, time.Minute)

	actual, err := GetDurationFromContext(ctx, MomoTokenMarginCTXKey)
	assert.NoError(t, err)
	assert.Equal(t, time.Minute, actual)
}

func TestGetLogLevelFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), LogLevelCTXKey, "warn")

	actual, err := GetLogLevelFromContext(ctx, LogLevelCTXKey)
	assert.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, actual)

	actual, err = GetLogLevelFromContext(context.Background(), LogLevelCTXKey)
	assert.ErrorIs(t, err, ErrNotInContext)
	assert.Equal(t, zerolog.InfoLevel, actual)
}

func TestWrap(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), EnvironmentCTXKey, "sandbox"))

	ctx, done := context.WithTimeout(context.Background(), time.Minute)
	defer done()

	wrapped := Wrap(parent, ctx)
	cancel()

	assert.NoError(t, wrapped.Err())
	assert.Equal(t, "sandbox", wrapped.Value(EnvironmentCTXKey))
}
