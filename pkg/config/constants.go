package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "FOODOPS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	TransportPubSub = "pubsub"
	TransportKafka  = "kafka"
)

const (
	EnvAppEnv       = "FOODOPS_APP_ENV"
	EnvPort         = "FOODOPS_APP_PORT"
	EnvLogLevel     = "FOODOPS_LOG_LEVEL"
	EnvDBDSN        = "FOODOPS_DB_DSN"
	EnvDBHost       = "FOODOPS_DB_HOST"
	EnvDBUser       = "FOODOPS_DB_USER"
	EnvDBName       = "FOODOPS_DB_NAME"
	EnvRedisURL     = "FOODOPS_REDIS_URL"
	EnvJWTSecret    = "FOODOPS_JWT_SECRET"
	EnvJWTIssuer    = "FOODOPS_JWT_ISSUER"
	EnvJWTExpMins   = "FOODOPS_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID = "FOODOPS_GCP_PROJECT_ID"

	EnvEventTransport           = "FOODOPS_EVENT_TRANSPORT"
	EnvPubSubDomainTopic        = "FOODOPS_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub    = "FOODOPS_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAuditSub           = "FOODOPS_PUBSUB_AUDIT_SUBSCRIPTION"
	EnvKafkaBrokers             = "FOODOPS_KAFKA_BROKERS"
	EnvDeliveredGracePeriod     = "FOODOPS_FULFILLMENT_DELIVERED_GRACE_PERIOD"
	EnvDefaultLowStockThreshold = "FOODOPS_FULFILLMENT_DEFAULT_LOW_STOCK_THRESHOLD"
	EnvCronInterval             = "FOODOPS_CRON_INTERVAL"
	EnvMetricsAddr              = "FOODOPS_METRICS_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
