package config

const EnvPrefix = "COUNTSHEET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                 = "COUNTSHEET_APP_ENV"
	EnvPort                   = "COUNTSHEET_APP_PORT"
	EnvDBDSN                  = "COUNTSHEET_DB_DSN"
	EnvDBHost                 = "COUNTSHEET_DB_HOST"
	EnvDBUser                 = "COUNTSHEET_DB_USER"
	EnvDBName                 = "COUNTSHEET_DB_NAME"
	EnvRedisURL               = "COUNTSHEET_REDIS_URL"
	EnvJWTSecret              = "COUNTSHEET_JWT_SECRET"
	EnvJWTIssuer              = "COUNTSHEET_JWT_ISSUER"
	EnvJWTExpMins             = "COUNTSHEET_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "COUNTSHEET_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite              = "COUNTSHEET_USE_SQLITE"
	EnvCountsPageSize         = "COUNTSHEET_COUNTS_PAGE_SIZE"
	EnvCountsPersistTimeout   = "COUNTSHEET_COUNTS_PERSIST_TIMEOUT"
)

var dbEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
