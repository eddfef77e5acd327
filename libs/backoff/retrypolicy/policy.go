// Package retrypolicy computes the delays between attempts of a retried operation.
package retrypolicy

//go:generate mockgen -source=policy.go -destination=mock/mock.go -package=mockretrypolicy

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Done signals that no further attempt should be made.
const Done time.Duration = -1

const jitterFactor = 0.2

var (
	errInvalidCoefficient = errors.New("retrypolicy: backoff coefficient must be at least 1")
	errInvalidInterval    = errors.New("retrypolicy: intervals must not be negative")
	errInvalidAttempts    = errors.New("retrypolicy: maximum attempts must not be negative")
)

// Retry calculates the delay before the next attempt.
//
// Implementations are stateful and are not safe for concurrent use; create one per operation.
type Retry interface {
	CalculateNextDelay() time.Duration
}

// Option configures a policy.
type Option func(p *policy) error

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(p *policy) error {
		if d < 0 {
			return errInvalidInterval
		}
		p.initialInterval = d
		return nil
	}
}

// WithBackoffCoefficient sets the growth factor applied to the delay after every attempt.
func WithBackoffCoefficient(c float64) Option {
	return func(p *policy) error {
		if c < 1 {
			return errInvalidCoefficient
		}
		p.backoffCoefficient = c
		return nil
	}
}

// WithMaximumInterval caps a single delay.
func WithMaximumInterval(d time.Duration) Option {
	return func(p *policy) error {
		if d < 0 {
			return errInvalidInterval
		}
		p.maximumInterval = d
		return nil
	}
}

// WithExpirationInterval bounds the total time spent retrying, measured from the first delay.
func WithExpirationInterval(d time.Duration) Option {
	return func(p *policy) error {
		if d < 0 {
			return errInvalidInterval
		}
		p.expirationInterval = d
		return nil
	}
}

// WithMaximumAttempts bounds the number of retries. Zero means unbounded.
func WithMaximumAttempts(n int) Option {
	return func(p *policy) error {
		if n < 0 {
			return errInvalidAttempts
		}
		p.maximumAttempt = n
		return nil
	}
}

// New returns a policy configured by opts on top of the defaults.
func New(opts ...Option) (Retry, error) {
	p := defaultPolicy()
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewDefault returns a fresh policy that starts at 50ms, doubles every attempt up to 10s and gives
// up after 10 retries or a minute.
func NewDefault() Retry {
	return defaultPolicy()
}

var (
	// NoRetry never allows another attempt.
	NoRetry Retry = &policy{maximumAttempt: 1, currentAttempt: 1}
)

type policy struct {
	initialInterval    time.Duration
	backoffCoefficient float64
	maximumInterval    time.Duration
	expirationInterval time.Duration
	maximumAttempt     int

	currentAttempt int
	startTime      time.Time
}

func defaultPolicy() *policy {
	return &policy{
		initialInterval:    50 * time.Millisecond,
		backoffCoefficient: 2,
		maximumInterval:    10 * time.Second,
		expirationInterval: time.Minute,
		maximumAttempt:     10,
	}
}

func (p *policy) CalculateNextDelay() time.Duration {
	if p.maximumAttempt > 0 && p.currentAttempt >= p.maximumAttempt {
		return Done
	}

	if p.startTime.IsZero() {
		p.startTime = time.Now()
	}

	if p.expirationInterval > 0 && time.Since(p.startTime) > p.expirationInterval {
		return Done
	}

	coefficient := p.backoffCoefficient
	if coefficient < 1 {
		coefficient = 1
	}

	next := float64(p.initialInterval) * math.Pow(coefficient, float64(p.currentAttempt))
	if next <= 0 {
		return Done
	}

	if p.maximumInterval > 0 && next > float64(p.maximumInterval) {
		next = float64(p.maximumInterval)
	}

	p.currentAttempt++

	// Jitter only ever shortens the delay so maximumInterval stays an upper bound.
	next -= next * jitterFactor * rand.Float64()

	return time.Duration(next)
}
