package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fincore/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Breaker      BreakerConfig
	Ledger       LedgerConfig
	Risk         RiskConfig
	Cron         CronConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := enums.ParseEventTransport(c.Eventing.Transport); err != nil {
		return fmt.Errorf("%s: %w", EnvEventingTransport, err)
	}
	if _, err := enums.ParseCurrency(c.Ledger.DefaultCurrency); err != nil {
		return fmt.Errorf("%s: %w", EnvLedgerDefaultCurrency, err)
	}
	if c.Ledger.SystemOwnerID == uuid.Nil {
		return fmt.Errorf("%s must be a non-nil uuid", EnvLedgerSystemOwnerID)
	}
	if c.Ledger.PlatformFeeRate.IsNegative() || c.Ledger.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1)", EnvLedgerPlatformFeeRate)
	}
	if c.Risk.VelocityLimit < 0 {
		return fmt.Errorf("%s must be >= 0", EnvRiskVelocityLimit)
	}
	if !c.Risk.AutoApproveCeiling.IsPositive() {
		return fmt.Errorf("%s must be > 0", EnvRiskAutoApproveCeiling)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"FINCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"FINCORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FINCORE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FINCORE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FINCORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FINCORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FINCORE_DB_DSN"`
	Driver string `envconfig:"FINCORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FINCORE_DB_HOST"`
	LegacyPort     int    `envconfig:"FINCORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FINCORE_DB_USER"`
	LegacyPassword string `envconfig:"FINCORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FINCORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FINCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FINCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FINCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FINCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FINCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits on a row lock.
	LockTimeout time.Duration `envconfig:"FINCORE_DB_LOCK_TIMEOUT" default:"5s"`
	// SlowQuery is the threshold above which statements are logged. Zero disables.
	SlowQuery time.Duration `envconfig:"FINCORE_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"FINCORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FINCORE_REDIS_ADDR"`
	Password     string        `envconfig:"FINCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FINCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FINCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FINCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FINCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FINCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FINCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FINCORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FINCORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FINCORE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FINCORE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	Transport            string        `envconfig:"FINCORE_EVENTING_TRANSPORT" default:"pubsub"`
	OutboxIdempotencyTTL time.Duration `envconfig:"FINCORE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// TransportKind returns the parsed transport; Load has already validated it.
func (e EventingConfig) TransportKind() enums.EventTransport {
	t, _ := enums.ParseEventTransport(e.Transport)
	return t
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FINCORE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FINCORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FINCORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic           string `envconfig:"FINCORE_PUBSUB_LEDGER_TOPIC" default:"fincore-ledger-events"`
	OrdersTopic           string `envconfig:"FINCORE_PUBSUB_ORDERS_TOPIC" default:"fincore-order-events"`
	RiskTopic             string `envconfig:"FINCORE_PUBSUB_RISK_TOPIC" default:"fincore-risk-events"`
	AnalyticsSubscription string `envconfig:"FINCORE_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"fincore-analytics"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"FINCORE_KAFKA_BROKERS" default:"localhost:9092"`
	ClientID     string        `envconfig:"FINCORE_KAFKA_CLIENT_ID" default:"fincore"`
	GroupID      string        `envconfig:"FINCORE_KAFKA_GROUP_ID" default:"fincore-analytics"`
	LedgerTopic  string        `envconfig:"FINCORE_KAFKA_LEDGER_TOPIC" default:"fincore.ledger"`
	OrdersTopic  string        `envconfig:"FINCORE_KAFKA_ORDERS_TOPIC" default:"fincore.orders"`
	RiskTopic    string        `envconfig:"FINCORE_KAFKA_RISK_TOPIC" default:"fincore.risk"`
	WriteTimeout time.Duration `envconfig:"FINCORE_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type BigQueryConfig struct {
	Dataset             string `envconfig:"FINCORE_BIGQUERY_DATASET" default:"fincore"`
	RiskDecisionsTable  string `envconfig:"FINCORE_BIGQUERY_RISK_TABLE" default:"risk_decisions"`
	LedgerPostingsTable string `envconfig:"FINCORE_BIGQUERY_LEDGER_TABLE" default:"ledger_postings"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FINCORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FINCORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FINCORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"FINCORE_OUTBOX_RETENTION_DAYS" default:"30"`
}

// BreakerConfig tunes the circuit breaker wrapped around event publishing.
type BreakerConfig struct {
	MaxRequests      uint32        `envconfig:"FINCORE_BREAKER_MAX_REQUESTS" default:"1"`
	Interval         time.Duration `envconfig:"FINCORE_BREAKER_INTERVAL" default:"60s"`
	Timeout          time.Duration `envconfig:"FINCORE_BREAKER_TIMEOUT" default:"30s"`
	FailureThreshold uint32        `envconfig:"FINCORE_BREAKER_FAILURE_THRESHOLD" default:"5"`
}

type LedgerConfig struct {
	SystemOwnerID   uuid.UUID       `envconfig:"FINCORE_LEDGER_SYSTEM_OWNER_ID" required:"true"`
	DefaultCurrency string          `envconfig:"FINCORE_LEDGER_DEFAULT_CURRENCY" default:"INR"`
	PlatformFeeRate decimal.Decimal `envconfig:"FINCORE_LEDGER_PLATFORM_FEE_RATE" default:"0.02"`
}

// Currency returns the parsed default currency; Load has already validated it.
func (l LedgerConfig) Currency() enums.Currency {
	c, _ := enums.ParseCurrency(l.DefaultCurrency)
	return c
}

type RiskConfig struct {
	AutoApproveCeiling decimal.Decimal `envconfig:"FINCORE_RISK_AUTO_APPROVE_CEILING" default:"50000"`
	VelocityLimit      int64           `envconfig:"FINCORE_RISK_VELOCITY_LIMIT" default:"10"`
	VelocityWindow     time.Duration   `envconfig:"FINCORE_RISK_VELOCITY_WINDOW" default:"1h"`
	LowTrustThreshold  decimal.Decimal `envconfig:"FINCORE_RISK_LOW_TRUST_THRESHOLD" default:"0.3"`
	AuditQueueSize     int             `envconfig:"FINCORE_RISK_AUDIT_QUEUE_SIZE" default:"1024"`
	AuditWorkers       int             `envconfig:"FINCORE_RISK_AUDIT_WORKERS" default:"2"`
}

type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"FINCORE_HTTP_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RateLimitWindow    time.Duration `envconfig:"FINCORE_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerActor  int           `envconfig:"FINCORE_HTTP_RATE_LIMIT_PER_ACTOR" default:"600"`
	RateLimitPerIP     int           `envconfig:"FINCORE_HTTP_RATE_LIMIT_PER_IP" default:"1200"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"FINCORE_CRON_INTERVAL" default:"5m"`
	IntegrityLookback time.Duration `envconfig:"FINCORE_CRON_INTEGRITY_LOOKBACK" default:"24h"`
	// JobTimeout caps a single job. It must stay below LockTTL so a hung
	// job cannot outlive the lock that admitted it.
	JobTimeout time.Duration `envconfig:"FINCORE_CRON_JOB_TIMEOUT" default:"10m"`
	LockTTL    time.Duration `envconfig:"FINCORE_CRON_LOCK_TTL" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
