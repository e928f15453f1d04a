package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "STRIKEGROUND"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STRIKEGROUND_APP_ENV"
	EnvPort         = "STRIKEGROUND_APP_PORT"
	EnvLogLevel     = "STRIKEGROUND_LOG_LEVEL"
	EnvDBDSN        = "STRIKEGROUND_DB_DSN"
	EnvDBDriver     = "STRIKEGROUND_DB_DRIVER"
	EnvDBHost       = "STRIKEGROUND_DB_HOST"
	EnvDBUser       = "STRIKEGROUND_DB_USER"
	EnvDBPassword   = "STRIKEGROUND_DB_PASSWORD"
	EnvDBName       = "STRIKEGROUND_DB_NAME"
	EnvRedisURL     = "STRIKEGROUND_REDIS_URL"
	EnvJWTSecret    = "STRIKEGROUND_JWT_SECRET"
	EnvJWTIssuer    = "STRIKEGROUND_JWT_ISSUER"
	EnvGCPProjectID = "STRIKEGROUND_GCP_PROJECT_ID"
	EnvMetricsAddr  = "STRIKEGROUND_METRICS_ADDR"

	EnvPubSubTicketsTopic = "STRIKEGROUND_PUBSUB_TICKETS_TOPIC"

	EnvTicketsSignatureAlg  = "STRIKEGROUND_TICKETS_SIGNATURE_ALG"
	EnvTicketsSigningSecret = "STRIKEGROUND_TICKETS_SIGNING_SECRET"
	EnvTicketsHistoryLimit  = "STRIKEGROUND_TICKETS_HISTORY_LIMIT"
	EnvTicketsExpiryGrace   = "STRIKEGROUND_TICKETS_EXPIRY_GRACE"
	EnvQRWidth              = "STRIKEGROUND_QR_WIDTH"
	EnvQRErrorCorrection    = "STRIKEGROUND_QR_ERROR_CORRECTION"
	EnvOutboxRetentionDays  = "STRIKEGROUND_OUTBOX_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
