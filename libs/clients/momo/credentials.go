package momo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/brave-intl/momo-go/libs/backoff"
	"github.com/brave-intl/momo-go/libs/backoff/retrypolicy"
	"github.com/brave-intl/momo-go/libs/logging"
)

// DefaultTokenMargin is how long a cached token must still be valid to be handed out
const DefaultTokenMargin = 60 * time.Second

// AccessToken is an opaque bearer token and the instant it stops being accepted
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// ValidFor reports whether the token is still good at now plus margin
func (t AccessToken) ValidFor(now time.Time, margin time.Duration) bool {
	return t.Token != "" && now.Add(margin).Before(t.ExpiresAt)
}

// TokenSource hands out access tokens valid for at least one outbound call
type TokenSource interface {
	Token(ctx context.Context) (AccessToken, error)
	// Invalidate drops token if it is still the cached one
	Invalidate(token string)
}

// CredentialCache caches the access token of the api user and refreshes it on expiry or rejection
type CredentialCache struct {
	client  Client
	margin  time.Duration
	policy  func() retrypolicy.Retry
	now     func() time.Time
	current atomic.Pointer[AccessToken]
}

// CredentialOption configures a CredentialCache
type CredentialOption func(*CredentialCache)

// WithRetryPolicy sets the policy used for transport failures during the token exchange,
// a new policy is made per refresh
func WithRetryPolicy(fn func() retrypolicy.Retry) CredentialOption {
	return func(c *CredentialCache) {
		c.policy = fn
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) CredentialOption {
	return func(c *CredentialCache) {
		c.now = now
	}
}

// NewCredentialCache creates an empty CredentialCache
func NewCredentialCache(client Client, margin time.Duration, opts ...CredentialOption) *CredentialCache {
	if margin < 0 {
		margin = DefaultTokenMargin
	}

	c := &CredentialCache{
		client: client,
		margin: margin,
		policy: retrypolicy.NewDefault,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the cached token, exchanging credentials for a new one when it is missing or about to expire
func (c *CredentialCache) Token(ctx context.Context) (AccessToken, error) {
	if cur := c.current.Load(); cur != nil && cur.ValidFor(c.now(), c.margin) {
		return *cur, nil
	}

	logger := logging.Logger(ctx, "momo.CredentialCache.Token")

	resp, err := backoff.Retry(ctx, func() (*TokenResponse, error) {
		return c.client.RequestToken(ctx)
	}, c.policy(), isTransport)
	if err != nil {
		logger.Error().Err(err).Msg("failed to refresh access token")
		// the transport cause stays in the chain
		if !errors.Is(err, ErrAuth) {
			err = fmt.Errorf("%w: %w", ErrAuth, err)
		}
		return AccessToken{}, err
	}

	now := c.now()
	tok := &AccessToken{
		Token:     resp.AccessToken,
		ExpiresAt: now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if !tok.ValidFor(now, c.margin) {
		logger.Error().Int64("expires_in", resp.ExpiresIn).Dur("margin", c.margin).
			Msg("access token lifetime shorter than margin")
		return AccessToken{}, fmt.Errorf("%w: token lifetime of %ds is shorter than margin %s", ErrAuth, resp.ExpiresIn, c.margin)
	}
	c.current.Store(tok)

	logger.Debug().Time("expires_at", tok.ExpiresAt).Msg("refreshed access token")

	return *tok, nil
}

// Invalidate drops token if it is still the cached one
func (c *CredentialCache) Invalidate(token string) {
	cur := c.current.Load()
	if cur != nil && cur.Token == token {
		c.current.CompareAndSwap(cur, nil)
	}
}

func isTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
