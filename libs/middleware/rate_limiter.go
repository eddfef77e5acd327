package middleware

import (
	"context"
	"net/http"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/logging"
)

// IPRateLimiterWithStore rate limits based on IP using
// a provided store and a GCRA leaky bucket algorithm.
func IPRateLimiterWithStore(
	ctx context.Context,
	perMin int,
	burst int,
	store throttled.GCRAStore,
) func(next http.Handler) http.Handler {
	logger := logging.Logger(ctx, "middleware.IPRateLimiterWithStore")

	return func(next http.Handler) http.Handler {
		quota := throttled.RateQuota{
			MaxRate:  throttled.PerMin(perMin),
			MaxBurst: burst,
		}
		rateLimiter, err := throttled.NewGCRARateLimiter(store, quota)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create rate limiter")
		}

		httpRateLimiter := throttled.HTTPRateLimiter{
			RateLimiter: rateLimiter,
			VaryBy: &throttled.VaryBy{
				RemoteAddr: true,
				Path:       true,
				Method:     true,
			},
		}

		limited := httpRateLimiter.RateLimit(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// browsers send a preflight for every cross origin call from the checkout page
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			limited.ServeHTTP(w, r)
		})
	}
}

// RateLimiter rate limits the number of requests a
// user from a single IP address can make using a simple
// in-memory store that will not synchronize across instances.
func RateLimiter(ctx context.Context, perMin int) func(next http.Handler) http.Handler {
	logger := logging.Logger(ctx, "middleware.RateLimiter")
	store, err := memstore.New(65536)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create rate limiter store")
	}

	burst := 0
	if b, err := appctx.GetIntFromContext(ctx, appctx.RateLimiterBurstCTXKey); err == nil {
		burst = b
	}

	return IPRateLimiterWithStore(ctx, perMin, burst, store)
}
