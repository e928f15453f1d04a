package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Tickets      TicketsConfig
	QR           QRConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Tickets.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STRIKEGROUND_APP_ENV" required:"true"`
	Port         string `envconfig:"STRIKEGROUND_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STRIKEGROUND_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STRIKEGROUND_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is a comma separated allow list for browser clients.
	CORSOrigins []string `envconfig:"STRIKEGROUND_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STRIKEGROUND_SERVICE_KIND" default:"api"`

	// MetricsAddr enables a /metrics listener on the workers, e.g. ":9102".
	MetricsAddr string `envconfig:"STRIKEGROUND_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"STRIKEGROUND_DB_DSN"`
	Driver string `envconfig:"STRIKEGROUND_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STRIKEGROUND_DB_HOST"`
	LegacyPort     int    `envconfig:"STRIKEGROUND_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STRIKEGROUND_DB_USER"`
	LegacyPassword string `envconfig:"STRIKEGROUND_DB_PASSWORD"`
	LegacyName     string `envconfig:"STRIKEGROUND_DB_NAME"`
	LegacySSLMode  string `envconfig:"STRIKEGROUND_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STRIKEGROUND_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STRIKEGROUND_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STRIKEGROUND_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STRIKEGROUND_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STRIKEGROUND_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the local sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"STRIKEGROUND_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STRIKEGROUND_REDIS_ADDR"`
	Password     string        `envconfig:"STRIKEGROUND_REDIS_PASSWORD"`
	DB           int           `envconfig:"STRIKEGROUND_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STRIKEGROUND_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STRIKEGROUND_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STRIKEGROUND_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STRIKEGROUND_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STRIKEGROUND_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification settings for bearer tokens minted by the storefront.
type JWTConfig struct {
	Secret string `envconfig:"STRIKEGROUND_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STRIKEGROUND_JWT_ISSUER" default:"strikeground"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STRIKEGROUND_AUTO_MIGRATE" default:"false"`
}

// TicketsConfig controls signing, history retention and expiry of tickets.
type TicketsConfig struct {
	SignatureAlgorithm string        `envconfig:"STRIKEGROUND_TICKETS_SIGNATURE_ALG" default:"legacy-checksum"`
	SigningSecret      string        `envconfig:"STRIKEGROUND_TICKETS_SIGNING_SECRET" default:"strikeandground-secret-2026"`
	HistoryLimit       int           `envconfig:"STRIKEGROUND_TICKETS_HISTORY_LIMIT" default:"50"`
	ExpiryGrace        time.Duration `envconfig:"STRIKEGROUND_TICKETS_EXPIRY_GRACE" default:"6h"`
	ExpiryBatchSize    int           `envconfig:"STRIKEGROUND_TICKETS_EXPIRY_BATCH_SIZE" default:"500"`
}

func (t TicketsConfig) validate() error {
	if strings.TrimSpace(t.SigningSecret) == "" {
		return fmt.Errorf("%s must not be empty", EnvTicketsSigningSecret)
	}
	if t.HistoryLimit <= 0 {
		return fmt.Errorf("%s must be positive", EnvTicketsHistoryLimit)
	}
	return nil
}

type QRConfig struct {
	Width           int    `envconfig:"STRIKEGROUND_QR_WIDTH" default:"400"`
	Margin          int    `envconfig:"STRIKEGROUND_QR_MARGIN" default:"2"`
	ErrorCorrection string `envconfig:"STRIKEGROUND_QR_ERROR_CORRECTION" default:"H"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STRIKEGROUND_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	TicketsTopic string `envconfig:"STRIKEGROUND_PUBSUB_TICKETS_TOPIC" default:"sg-ticket-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STRIKEGROUND_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STRIKEGROUND_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STRIKEGROUND_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"STRIKEGROUND_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"STRIKEGROUND_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:strikeground.db?cache=shared"
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
