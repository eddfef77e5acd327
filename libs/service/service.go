package service

import (
	"context"
	"time"

	sentry "github.com/getsentry/sentry-go"

	"github.com/brave-intl/momo-go/libs/clients"
	"github.com/brave-intl/momo-go/libs/logging"
)

// JobFunc - type that defines what a Job Function should look like
type JobFunc func(context.Context) (bool, error)

// Job - Structure defining what a common job meta-information
type Job struct {
	Func    JobFunc
	Workers int
	Cadence time.Duration
}

// JobService - interface defining what can have jobs
type JobService interface {
	Jobs() []Job
}

// JobWorker - a job worker, runs until ctx is done
func JobWorker(ctx context.Context, job JobFunc, duration time.Duration) {
	logger := logging.Logger(ctx, "service.JobWorker")
	for {
		if _, err := job(ctx); err != nil {
			log := logger.Error().Err(err)
			if state, uerr := clients.UnwrapHTTPState(err); uerr == nil {
				log = log.Int("status", state.Status).
					Str("path", state.Path).
					Interface("data", state.Body)
			}
			log.Msg("error encountered in job run")
			sentry.CaptureException(err)
		}

		// regardless if attempted or not, wait for the duration until retrying
		timer := time.NewTimer(duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug().Msg("job worker stopped")
			return
		case <-timer.C:
		}
	}
}
