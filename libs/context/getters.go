package context

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GetStringFromContext - given a CTXKey return the string value from the context if it exists
func GetStringFromContext(ctx context.Context, key CTXKey) (string, error) {
	return getFromContext[string](ctx, key)
}

// GetBoolFromContext - given a CTXKey return the bool value from the context if it exists
func GetBoolFromContext(ctx context.Context, key CTXKey) (bool, error) {
	return getFromContext[bool](ctx, key)
}

// GetIntFromContext - given a CTXKey return the int value from the context if it exists
func GetIntFromContext(ctx context.Context, key CTXKey) (int, error) {
	return getFromContext[int](ctx, key)
}

// GetDurationFromContext - given a CTXKey return the duration value from the context if it exists
func GetDurationFromContext(ctx context.Context, key CTXKey) (time.Duration, error) {
	return getFromContext[time.Duration](ctx, key)
}

// GetStringSliceFromContext - given a CTXKey return the []string value from the context if it exists
func GetStringSliceFromContext(ctx context.Context, key CTXKey) ([]string, error) {
	return getFromContext[[]string](ctx, key)
}

// GetLogLevelFromContext - given a CTXKey return the log level from the context if it exists
func GetLogLevelFromContext(ctx context.Context, key CTXKey) (zerolog.Level, error) {
	s, err := GetStringFromContext(ctx, key)
	if err != nil {
		return zerolog.InfoLevel, err
	}
	return zerolog.ParseLevel(s)
}

// GetLogger - return the logger value from the context if it exists
func GetLogger(ctx context.Context) (*zerolog.Logger, error) {
	return getFromContext[*zerolog.Logger](ctx, LoggerCTXKey)
}

func getFromContext[T any](ctx context.Context, key CTXKey) (T, error) {
	var zero T

	v := ctx.Value(key)
	if v == nil {
		return zero, ErrNotInContext
	}

	if s, ok := v.(T); ok {
		return s, nil
	}

	return zero, ErrValueWrongType
}
