package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "FINCORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv        = "FINCORE_APP_ENV"
	EnvPort          = "FINCORE_APP_PORT"
	EnvLogLevel      = "FINCORE_LOG_LEVEL"
	EnvLogFormat     = "FINCORE_LOG_FORMAT"
	EnvDBDSN         = "FINCORE_DB_DSN"
	EnvDBDriver      = "FINCORE_DB_DRIVER"
	EnvDBHost        = "FINCORE_DB_HOST"
	EnvDBUser        = "FINCORE_DB_USER"
	EnvDBName        = "FINCORE_DB_NAME"
	EnvDBLockTimeout = "FINCORE_DB_LOCK_TIMEOUT"
	EnvRedisURL      = "FINCORE_REDIS_URL"
	EnvJWTSecret     = "FINCORE_JWT_SECRET"
	EnvJWTIssuer     = "FINCORE_JWT_ISSUER"
	EnvJWTExpMins    = "FINCORE_JWT_EXPIRATION_MINUTES"

	EnvEventingTransport = "FINCORE_EVENTING_TRANSPORT"
	EnvKafkaBrokers      = "FINCORE_KAFKA_BROKERS"

	EnvLedgerSystemOwnerID   = "FINCORE_LEDGER_SYSTEM_OWNER_ID"
	EnvLedgerDefaultCurrency = "FINCORE_LEDGER_DEFAULT_CURRENCY"
	EnvLedgerPlatformFeeRate = "FINCORE_LEDGER_PLATFORM_FEE_RATE"

	EnvRiskAutoApproveCeiling = "FINCORE_RISK_AUTO_APPROVE_CEILING"
	EnvRiskVelocityLimit      = "FINCORE_RISK_VELOCITY_LIMIT"
	EnvRiskLowTrustThreshold  = "FINCORE_RISK_LOW_TRUST_THRESHOLD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
