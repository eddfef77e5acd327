package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	rootcmd "github.com/brave-intl/momo-go/cmd"
	appctx "github.com/brave-intl/momo-go/libs/context"
	"github.com/brave-intl/momo-go/libs/handlers"
	"github.com/brave-intl/momo-go/libs/middleware"
	"github.com/brave-intl/momo-go/services/cmd"
	"github.com/brave-intl/momo-go/services/momo"
)

// RestRun - Main entrypoint of the REST subcommand
// This function takes a cobra command and starts up the
// momo rest microservice.
func RestRun(command *cobra.Command, args []string) {
	ctx := command.Context()
	logger, err := appctx.GetLogger(ctx)
	rootcmd.Must(err)
	// add profiling flag to enable profiling routes
	if viper.GetString("pprof-enabled") != "" {
		// pprof attaches routes to default serve mux
		// host:6061/debug/pprof/
		go func() {
			logger.Error().Err(http.ListenAndServe(":6061", http.DefaultServeMux))
		}()
	}

	sentryDsn := os.Getenv("SENTRY_DSN")
	if sentryDsn != "" {
		buildTime := ctx.Value(appctx.BuildTimeCTXKey).(string)
		commit := ctx.Value(appctx.CommitCTXKey).(string)
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         sentryDsn,
			Environment: viper.GetString("environment"),
			Release:     fmt.Sprintf("momo-go@%s-%s", commit, buildTime),
		})
		if err != nil {
			logger.Panic().Err(err).Msg("unable to setup reporting!")
		}
	}
	logger.Info().
		Str("prefix", "main").
		Msg("Starting server")

	ctx = withMomoFlags(cmd.WithServeFlags(ctx))

	s, err := momo.InitService(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize momo service")
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close momo service")
		}
	}()

	r := cmd.SetupRouter(ctx, map[string]handlers.StatusFunc{
		"store": func(ctx context.Context) interface{} {
			if err := s.Ping(ctx); err != nil {
				return map[string]string{"status": "unavailable", "error": err.Error()}
			}
			return map[string]string{"status": "ok"}
		},
	})

	r.Mount("/api", momo.Router(s))

	if err := cmd.SetupJobWorkers(ctx, s.Jobs()); err != nil {
		logger.Error().Err(err).Msg("failed to initialize job workers")
	}

	// make sure exceptions go to sentry
	defer sentry.Flush(time.Second * 2)

	go func() {
		err := http.ListenAndServe(":9090", middleware.Metrics())
		if err != nil {
			sentry.CaptureException(err)
			logger.Panic().Err(err).Msg("metrics HTTP server start failed!")
		}
	}()

	// setup server, and run
	srv := http.Server{
		Addr:         viper.GetString("address"),
		Handler:      chi.ServerBaseContext(ctx, r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 40 * time.Second,
	}

	if err = srv.ListenAndServe(); err != nil {
		sentry.CaptureException(err)
		logger.Fatal().Err(err).Msg("HTTP server start failed!")
	}
}

// withMomoFlags adds the momo command line params to ctx
func withMomoFlags(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, appctx.MomoServerCTXKey, viper.GetString("momo-server"))
	ctx = context.WithValue(ctx, appctx.MomoSubscriptionKeyCTXKey, viper.GetString("momo-subscription-key"))
	ctx = context.WithValue(ctx, appctx.MomoAPIUserCTXKey, viper.GetString("momo-api-user"))
	ctx = context.WithValue(ctx, appctx.MomoAPIKeyCTXKey, viper.GetString("momo-api-key"))
	ctx = context.WithValue(ctx, appctx.MomoTargetEnvironmentCTXKey, viper.GetString("momo-target-environment"))
	ctx = context.WithValue(ctx, appctx.MomoClientTimeoutCTXKey, viper.GetDuration("momo-client-timeout"))
	ctx = context.WithValue(ctx, appctx.MomoTokenMarginCTXKey, viper.GetDuration("momo-token-margin"))
	ctx = context.WithValue(ctx, appctx.MomoDefaultCurrencyCTXKey, viper.GetString("momo-default-currency"))
	ctx = context.WithValue(ctx, appctx.MomoIdempotencyTTLCTXKey, viper.GetDuration("momo-idempotency-ttl"))
	ctx = context.WithValue(ctx, appctx.MomoReconcileCadenceCTXKey, viper.GetDuration("momo-reconcile-cadence"))
	ctx = context.WithValue(ctx, appctx.MomoReconcileMinAgeCTXKey, viper.GetDuration("momo-reconcile-min-age"))
	ctx = context.WithValue(ctx, appctx.MomoReconcileMaxAgeCTXKey, viper.GetDuration("momo-reconcile-max-age"))

	ctx = context.WithValue(ctx, appctx.StoreBackendCTXKey, viper.GetString("store"))
	ctx = context.WithValue(ctx, appctx.DatabaseURLCTXKey, viper.GetString("datastore"))
	ctx = context.WithValue(ctx, appctx.DatabaseMigrationsURLCTXKey, viper.GetString("migrations-url"))
	ctx = context.WithValue(ctx, appctx.RedisAddrCTXKey, viper.GetString("redis-addr"))
	ctx = context.WithValue(ctx, appctx.KafkaBrokersCTXKey, viper.GetString("kafka-brokers"))
	ctx = context.WithValue(ctx, appctx.KafkaTopicCTXKey, viper.GetString("kafka-topic"))
	return ctx
}
