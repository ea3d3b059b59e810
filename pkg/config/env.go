package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "PIZZERIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSQLiteDSN = "file:pizzeria.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv    = "PIZZERIA_APP_ENV"
	EnvPort      = "PIZZERIA_APP_PORT"
	EnvLogLevel  = "PIZZERIA_LOG_LEVEL"
	EnvLogFormat = "PIZZERIA_LOG_FORMAT"

	EnvDBDSN  = "PIZZERIA_DB_DSN"
	EnvDBHost = "PIZZERIA_DB_HOST"
	EnvDBUser = "PIZZERIA_DB_USER"
	EnvDBName = "PIZZERIA_DB_NAME"

	EnvRedisURL = "PIZZERIA_REDIS_URL"

	EnvJWTSecret  = "PIZZERIA_JWT_SECRET"
	EnvJWTIssuer  = "PIZZERIA_JWT_ISSUER"
	EnvJWTExpMins = "PIZZERIA_JWT_EXPIRATION_MINUTES"

	EnvProfileUpdateRevocation = "PIZZERIA_AUTH_PROFILE_UPDATE_REVOCATION"

	EnvFactoryURL     = "PIZZERIA_FACTORY_URL"
	EnvFactoryAPIKey  = "PIZZERIA_FACTORY_API_KEY"
	EnvFactoryTimeout = "PIZZERIA_FACTORY_TIMEOUT"

	EnvCronStaleAfter = "PIZZERIA_CRON_STALE_FULFILLMENT_AFTER"

	EnvUseSQLite = "PIZZERIA_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
