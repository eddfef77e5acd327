package cmd

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	chiware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	rootcmd "github.com/brave-intl/momo-go/cmd"
	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/handlers"
	"github.com/brave-intl/momo-go/libs/logging"
	"github.com/brave-intl/momo-go/libs/middleware"
	srv "github.com/brave-intl/momo-go/libs/service"
)

const (
	timeout = 30 * time.Second
)

func init() {
	rootcmd.RootCmd.AddCommand(ServeCmd)

	// address - sets the address of the server to be started
	ServeCmd.PersistentFlags().String("address", ":8080",
		"the default address to bind to")
	rootcmd.Must(viper.BindPFlag("address", ServeCmd.PersistentFlags().Lookup("address")))
	rootcmd.Must(viper.BindEnv("address", "ADDR"))

	ServeCmd.PersistentFlags().Bool("enable-job-workers", true,
		"enable job workers (defaults true)")
	rootcmd.Must(viper.BindPFlag("enable-job-workers", ServeCmd.PersistentFlags().Lookup("enable-job-workers")))
	rootcmd.Must(viper.BindEnv("enable-job-workers", "ENABLE_JOB_WORKERS"))

	ServeCmd.PersistentFlags().Int("rate-limit-per-min", 180,
		"requests allowed per minute and client ip in production")
	rootcmd.Must(viper.BindPFlag("rate-limit-per-min", ServeCmd.PersistentFlags().Lookup("rate-limit-per-min")))
	rootcmd.Must(viper.BindEnv("rate-limit-per-min", "RATE_LIMIT_PER_MIN"))

	ServeCmd.PersistentFlags().String("allowed-origins", "*",
		"comma separated origins allowed to call the api from a browser")
	rootcmd.Must(viper.BindPFlag("allowed-origins", ServeCmd.PersistentFlags().Lookup("allowed-origins")))
	rootcmd.Must(viper.BindEnv("allowed-origins", "ALLOWED_ORIGINS"))
}

// ServeCmd the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "entrypoint to serve a micro-service",
}

// WithServeFlags adds the serve flags to ctx
func WithServeFlags(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, appctx.RateLimitPerMinuteCTXKey, viper.GetInt("rate-limit-per-min"))
	ctx = context.WithValue(ctx, appctx.CORSAllowedOriginsCTXKey, strings.Split(viper.GetString("allowed-origins"), ","))
	return ctx
}

func corsMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	origins, err := appctx.GetStringSliceFromContext(ctx, appctx.CORSAllowedOriginsCTXKey)
	if err != nil || len(origins) == 0 {
		origins = []string{"*"}
	}

	debug, _ := appctx.GetBoolFromContext(ctx, appctx.DebugLoggingCTXKey)

	return cors.Handler(cors.Options{
		Debug:            debug,
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"x-request-id"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}

// SetupRouter sets up a router, statuses are reported by the health check
func SetupRouter(ctx context.Context, statuses map[string]handlers.StatusFunc) *chi.Mux {
	logger, err := appctx.GetLogger(ctx)
	rootcmd.Must(err)

	r := chi.NewRouter()
	r.Use(
		chiware.RequestID,
		chiware.RealIP,
		chiware.Heartbeat("/"),
		chiware.Timeout(timeout),
		corsMiddleware(ctx),
		middleware.RequestIDTransfer)

	if env, _ := appctx.GetStringFromContext(ctx, appctx.EnvironmentCTXKey); env == "production" {
		rl, ok := ctx.Value(appctx.RateLimitPerMinuteCTXKey).(int)
		if !ok || rl <= 0 {
			r.Use(middleware.RateLimiter(ctx, 180))
		} else {
			r.Use(middleware.RateLimiter(ctx, rl))
		}
	}

	version, _ := appctx.GetStringFromContext(ctx, appctx.VersionCTXKey)
	commit, _ := appctx.GetStringFromContext(ctx, appctx.CommitCTXKey)
	buildTime, _ := appctx.GetStringFromContext(ctx, appctx.BuildTimeCTXKey)

	if logger != nil {
		// Also handles panic recovery
		r.Use(
			hlog.NewHandler(*logger),
			hlog.UserAgentHandler("user_agent"),
			hlog.RequestIDHandler("req_id", "Request-Id"),
			middleware.RequestLogger(logger))

		logger.Info().
			Str("version", version).
			Str("commit", commit).
			Str("build_time", buildTime).
			Str("address", viper.GetString("address")).
			Str("environment", viper.GetString("environment")).
			Msg("server starting")
	}

	r.Get("/health-check", handlers.HealthCheckHandler(version, buildTime, commit, statuses))
	return r
}

// SetupJobWorkers - setup job workers
func SetupJobWorkers(ctx context.Context, jobs []srv.Job) error {
	logger, err := appctx.GetLogger(ctx)
	if err != nil {
		ctx, logger = logging.SetupLogger(ctx)
	}

	enableJobWorkers, err := ServeCmd.PersistentFlags().GetBool("enable-job-workers")
	if err != nil {
		return err
	}

	if enableJobWorkers {
		for _, job := range jobs {
			// iterate over jobs
			for i := 0; i < job.Workers; i++ {
				// spin up a job worker for each worker
				logger.Debug().Dur("cadence", job.Cadence).Msg("starting job worker")
				go srv.JobWorker(ctx, job.Func, job.Cadence)
			}
		}
	}
	return nil
}
