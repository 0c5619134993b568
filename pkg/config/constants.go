package config

const (
	EnvPrefix = "CONTACTALIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "CONTACTALIA_APP_ENV"
	EnvPort      = "CONTACTALIA_APP_PORT"
	EnvLogLevel  = "CONTACTALIA_LOG_LEVEL"
	EnvDBDSN     = "CONTACTALIA_DB_DSN"
	EnvDBHost    = "CONTACTALIA_DB_HOST"
	EnvDBUser    = "CONTACTALIA_DB_USER"
	EnvDBName    = "CONTACTALIA_DB_NAME"
	EnvRedisURL  = "CONTACTALIA_REDIS_URL"
	EnvJWTSecret = "CONTACTALIA_AUTH_JWT_SECRET"

	EnvStripeSecretKey     = "CONTACTALIA_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "CONTACTALIA_STRIPE_WEBHOOK_SECRET"
	EnvStorageBucket       = "CONTACTALIA_STORAGE_BUCKET"
	EnvMediaOrphanGrace    = "CONTACTALIA_MEDIA_ORPHAN_GRACE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
