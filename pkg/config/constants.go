package config

const EnvPrefix = "STRIPEPAY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STRIPEPAY_APP_ENV"
	EnvPort     = "STRIPEPAY_APP_PORT"
	EnvLogLevel = "STRIPEPAY_LOG_LEVEL"

	EnvDBDSN  = "STRIPEPAY_DB_DSN"
	EnvDBHost = "STRIPEPAY_DB_HOST"
	EnvDBUser = "STRIPEPAY_DB_USER"
	EnvDBName = "STRIPEPAY_DB_NAME"

	EnvRedisURL = "STRIPEPAY_REDIS_URL"

	EnvJWTSecret = "STRIPEPAY_JWT_SECRET"
	EnvJWTIssuer = "STRIPEPAY_JWT_ISSUER"

	EnvStripeAPIKey = "STRIPEPAY_STRIPE_API_KEY"
	EnvStripeSecret = "STRIPEPAY_STRIPE_SECRET"

	EnvGlobalRate        = "STRIPEPAY_GLOBAL_RATE"
	EnvCancelAtPeriodEnd = "STRIPEPAY_CANCEL_AT_PERIOD_END"
	EnvDefaultReturnURL  = "STRIPEPAY_DEFAULT_RETURN_URL"

	EnvReconcileSettlingDelay = "STRIPEPAY_RECONCILE_SETTLING_DELAY"
	EnvReconcileMaxAttempts   = "STRIPEPAY_RECONCILE_MAX_ATTEMPTS"
	EnvReconcileBaseBackoff   = "STRIPEPAY_RECONCILE_BASE_BACKOFF"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
