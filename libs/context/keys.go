package context

import "errors"

// CTXKey - a type for context keys
type CTXKey string

const (
	// EnvironmentCTXKey - the key used for service context
	EnvironmentCTXKey CTXKey = "environment"
	// LoggerCTXKey - the context key for the logger
	LoggerCTXKey CTXKey = "logger"
	// LogWriterCTXKey - the context key for an io.Writer overriding the log destination
	LogWriterCTXKey CTXKey = "log_writer"
	// DebugLoggingCTXKey - context key for debug logging
	DebugLoggingCTXKey CTXKey = "debug_logging"
	// LogLevelCTXKey - context key for application logging level
	LogLevelCTXKey CTXKey = "log_level"
	// VersionCTXKey - context key for version of code
	VersionCTXKey CTXKey = "version"
	// CommitCTXKey - context key for the commit of the code
	CommitCTXKey CTXKey = "commit"
	// BuildTimeCTXKey - context key for the build time of code
	BuildTimeCTXKey CTXKey = "build_time"

	// RateLimitPerMinuteCTXKey - the context key for getting the rate limit
	RateLimitPerMinuteCTXKey CTXKey = "rate_limit_per_min"
	// RateLimiterBurstCTXKey - context key for allowing a bursting rate limiter
	RateLimiterBurstCTXKey CTXKey = "rate_limit_burst"
	// CORSAllowedOriginsCTXKey - origins allowed to call the api from a browser
	CORSAllowedOriginsCTXKey CTXKey = "cors_allowed_origins"

	// MomoServerCTXKey - the base url of the mobile money provider
	MomoServerCTXKey CTXKey = "momo_server"
	// MomoSubscriptionKeyCTXKey - the collections product subscription key
	MomoSubscriptionKeyCTXKey CTXKey = "momo_subscription_key"
	// MomoAPIUserCTXKey - the api user id used for basic auth on the token endpoint
	MomoAPIUserCTXKey CTXKey = "momo_api_user"
	// MomoAPIKeyCTXKey - the api key paired with the api user
	MomoAPIKeyCTXKey CTXKey = "momo_api_key"
	// MomoTargetEnvironmentCTXKey - the X-Target-Environment sent to the provider
	MomoTargetEnvironmentCTXKey CTXKey = "momo_target_environment"
	// MomoClientTimeoutCTXKey - the bound on every outbound provider call
	MomoClientTimeoutCTXKey CTXKey = "momo_client_timeout"
	// MomoTokenMarginCTXKey - how long before expiry a cached token stops being handed out
	MomoTokenMarginCTXKey CTXKey = "momo_token_margin"
	// MomoDefaultCurrencyCTXKey - currency used when a request does not carry one
	MomoDefaultCurrencyCTXKey CTXKey = "momo_default_currency"
	// MomoIdempotencyTTLCTXKey - how long an idempotency key maps to its transaction
	MomoIdempotencyTTLCTXKey CTXKey = "momo_idempotency_ttl"
	// MomoReconcileCadenceCTXKey - how often the reconciliation job runs
	MomoReconcileCadenceCTXKey CTXKey = "momo_reconcile_cadence"
	// MomoReconcileMinAgeCTXKey - transactions younger than this are left to the caller
	MomoReconcileMinAgeCTXKey CTXKey = "momo_reconcile_min_age"
	// MomoReconcileMaxAgeCTXKey - non-terminal transactions older than this are expired
	MomoReconcileMaxAgeCTXKey CTXKey = "momo_reconcile_max_age"

	// StoreBackendCTXKey - which transaction store to use: memory, postgres or redis
	StoreBackendCTXKey CTXKey = "store_backend"
	// DatabaseURLCTXKey - the postgres connection url
	DatabaseURLCTXKey CTXKey = "database_url"
	// DatabaseMigrationsURLCTXKey - where golang-migrate reads migrations from
	DatabaseMigrationsURLCTXKey CTXKey = "database_migrations_url"
	// DatabaseTransactionCTXKey - context key for database transactions
	DatabaseTransactionCTXKey CTXKey = "database_transaction"
	// RedisAddrCTXKey - the redis url
	RedisAddrCTXKey CTXKey = "redis_addr"
	// KafkaBrokersCTXKey - comma separated kafka brokers
	KafkaBrokersCTXKey CTXKey = "kafka_brokers"
	// KafkaTopicCTXKey - topic transaction events are published to
	KafkaTopicCTXKey CTXKey = "kafka_topic"
)

var (
	// ErrNotInContext - error you get when you ask for something not in the context.
	ErrNotInContext = errors.New("failed to get value from context")
	// ErrValueWrongType - error you get when you ask for something, and it is not the type you expected
	ErrValueWrongType = errors.New("context value of wrong type")
)
