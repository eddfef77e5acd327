package cmd

import (
	// pprof imports
	_ "net/http/pprof"
	"time"

	"github.com/spf13/cobra"

	rootcmd "github.com/brave-intl/momo-go/cmd"
	momoclient "github.com/brave-intl/momo-go/libs/clients/momo"
	"github.com/brave-intl/momo-go/services/cmd"
	"github.com/brave-intl/momo-go/services/momo"
	"github.com/brave-intl/momo-go/services/momo/storage"
)

var (
	// MomoCmd root momo command
	MomoCmd = &cobra.Command{
		Use:   "momo",
		Short: "provides the mobile money payments micro-service entrypoint",
	}

	restCmd = &cobra.Command{
		Use:   "rest",
		Short: "provides REST api services",
		Run:   RestRun,
	}
)

func init() {
	MomoCmd.AddCommand(restCmd)

	// add this command as a serve subcommand
	cmd.ServeCmd.AddCommand(MomoCmd)

	b := rootcmd.NewFlagBuilder(restCmd)

	b.Flag().String("momo-server", momoclient.SandboxServer,
		"the base url of the collection api").
		Env("MOMO_API_URL").
		Bind("momo-server")

	b.Flag().String("momo-subscription-key", "",
		"the collection product subscription key").
		Env("MOMO_SUBSCRIPTION_KEY").
		Bind("momo-subscription-key")

	b.Flag().String("momo-api-user", "",
		"the api user used to exchange credentials for access tokens").
		Env("MOMO_API_USER").
		Bind("momo-api-user")

	b.Flag().String("momo-api-key", "",
		"the api key of the api user, empty in the sandbox").
		Env("MOMO_API_KEY").
		Bind("momo-api-key")

	b.Flag().String("momo-target-environment", momoclient.SandboxEnvironment,
		"the X-Target-Environment sent to the provider").
		Env("MOMO_TARGET_ENVIRONMENT").
		Bind("momo-target-environment")

	b.Flag().Duration("momo-client-timeout", 10*time.Second,
		"the bound on every outbound provider call").
		Env("MOMO_CLIENT_TIMEOUT").
		Bind("momo-client-timeout")

	b.Flag().Duration("momo-token-margin", momoclient.DefaultTokenMargin,
		"how long before expiry a cached access token is refreshed").
		Env("MOMO_TOKEN_MARGIN").
		Bind("momo-token-margin")

	b.Flag().String("momo-default-currency", momo.DefaultCurrency,
		"the currency of payment requests that do not carry one").
		Env("MOMO_DEFAULT_CURRENCY").
		Bind("momo-default-currency")

	b.Flag().Duration("momo-idempotency-ttl", momo.DefaultIdempotencyTTL,
		"how long an Idempotency-Key maps to its transaction").
		Env("MOMO_IDEMPOTENCY_TTL").
		Bind("momo-idempotency-ttl")

	b.Flag().Duration("momo-reconcile-cadence", momo.DefaultReconcileCadence,
		"how often unsettled transactions are verified").
		Env("MOMO_RECONCILE_CADENCE").
		Bind("momo-reconcile-cadence")

	b.Flag().Duration("momo-reconcile-min-age", momo.DefaultReconcileMinAge,
		"unsettled transactions younger than this are left alone").
		Env("MOMO_RECONCILE_MIN_AGE").
		Bind("momo-reconcile-min-age")

	b.Flag().Duration("momo-reconcile-max-age", momo.DefaultReconcileMaxAge,
		"unsettled transactions older than this are expired").
		Env("MOMO_RECONCILE_MAX_AGE").
		Bind("momo-reconcile-max-age")

	b.Flag().String("store", storage.BackendMemory,
		"the transaction store: memory, postgres or redis").
		Env("STORE_BACKEND").
		Bind("store")

	b.Flag().String("datastore", "",
		"the postgres connection url").
		Env("DATABASE_URL").
		Bind("datastore")

	b.Flag().String("migrations-url", "",
		"where migrations are read from, such as file:///src/migrations, empty skips migrating").
		Env("DATABASE_MIGRATIONS_URL").
		Bind("migrations-url")

	b.Flag().String("redis-addr", "",
		"the redis url, such as redis://localhost:6379/0").
		Env("REDIS_URL").
		Bind("redis-addr")

	b.Flag().String("kafka-brokers", "",
		"comma separated kafka brokers, transaction events are not published without any").
		Env("KAFKA_BROKERS").
		Bind("kafka-brokers")

	b.Flag().String("kafka-topic", "",
		"the topic transaction events are published to").
		Env("KAFKA_TOPIC").
		Bind("kafka-topic")
}
