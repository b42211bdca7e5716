package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Fulfillment  FulfillmentConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	// report every invalid setting at once rather than one per restart
	if err := multierr.Combine(
		cfg.DB.ensureDSN(),
		cfg.Eventing.validate(cfg.GCP, cfg.Kafka),
		cfg.Fulfillment.validate(),
		cfg.Cron.validate(),
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FOODOPS_APP_ENV" required:"true"`
	Port         string `envconfig:"FOODOPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FOODOPS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"FOODOPS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"FOODOPS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// HTTPConfig tunes the public API surface.
type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"FOODOPS_CORS_ALLOWED_ORIGINS"`
	RateLimitWindow    time.Duration `envconfig:"FOODOPS_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitRequests  int           `envconfig:"FOODOPS_RATE_LIMIT_REQUESTS" default:"120"`
	ReadHeaderTimeout  time.Duration `envconfig:"FOODOPS_HTTP_READ_HEADER_TIMEOUT" default:"10s"`
	ShutdownTimeout    time.Duration `envconfig:"FOODOPS_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type ServiceConfig struct {
	Kind string `envconfig:"FOODOPS_SERVICE_KIND" default:"api"`

	// background binaries serve /metrics here; empty disables it
	MetricsAddr string `envconfig:"FOODOPS_METRICS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"FOODOPS_DB_DSN"`
	Driver string `envconfig:"FOODOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FOODOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"FOODOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FOODOPS_DB_USER"`
	LegacyPassword string `envconfig:"FOODOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FOODOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FOODOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FOODOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FOODOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FOODOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FOODOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"FOODOPS_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FOODOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FOODOPS_REDIS_ADDR"`
	Password     string        `envconfig:"FOODOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOODOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOODOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOODOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOODOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOODOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOODOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FOODOPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FOODOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FOODOPS_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FOODOPS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	Transport            string        `envconfig:"FOODOPS_EVENT_TRANSPORT" default:"pubsub"`
	OutboxIdempotencyTTL time.Duration `envconfig:"FOODOPS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// UsesKafka reports whether domain events travel over Kafka instead of Pub/Sub.
func (e EventingConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(e.Transport), TransportKafka)
}

func (e EventingConfig) validate(gcp GCPConfig, kafka KafkaConfig) error {
	switch strings.ToLower(strings.TrimSpace(e.Transport)) {
	case TransportPubSub:
		if strings.TrimSpace(gcp.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvEventTransport, TransportPubSub)
		}
	case TransportKafka:
		if len(kafka.Brokers) == 0 {
			return fmt.Errorf("%s is required when %s=%s", EnvKafkaBrokers, EnvEventTransport, TransportKafka)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvEventTransport, e.Transport)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FOODOPS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FOODOPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FOODOPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"FOODOPS_PUBSUB_DOMAIN_TOPIC" default:"foodops-domain-events"`
	NotificationSubscription string `envconfig:"FOODOPS_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"foodops-notifications"`
	AuditSubscription        string `envconfig:"FOODOPS_PUBSUB_AUDIT_SUBSCRIPTION" default:"foodops-audit"`
}

type KafkaConfig struct {
	Brokers           []string      `envconfig:"FOODOPS_KAFKA_BROKERS"`
	DomainTopic       string        `envconfig:"FOODOPS_KAFKA_DOMAIN_TOPIC" default:"foodops.domain-events"`
	NotificationGroup string        `envconfig:"FOODOPS_KAFKA_NOTIFICATION_GROUP" default:"foodops-notifications"`
	AuditGroup        string        `envconfig:"FOODOPS_KAFKA_AUDIT_GROUP" default:"foodops-audit"`
	WriteTimeout      time.Duration `envconfig:"FOODOPS_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FOODOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FOODOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FOODOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// FulfillmentConfig carries the operational settings handed to the order,
// stock and cron engines at construction time.
type FulfillmentConfig struct {
	DeliveredGracePeriod     time.Duration `envconfig:"FOODOPS_FULFILLMENT_DELIVERED_GRACE_PERIOD" default:"2h"`
	DefaultLowStockThreshold int           `envconfig:"FOODOPS_FULFILLMENT_DEFAULT_LOW_STOCK_THRESHOLD" default:"5"`
	AutoCompleteBatchSize    int           `envconfig:"FOODOPS_FULFILLMENT_AUTO_COMPLETE_BATCH_SIZE" default:"100"`
	OrderTimezone            string        `envconfig:"FOODOPS_FULFILLMENT_ORDER_TIMEZONE" default:"UTC"`
}

func (f FulfillmentConfig) validate() error {
	if f.DeliveredGracePeriod < 0 {
		return fmt.Errorf("%s must not be negative", EnvDeliveredGracePeriod)
	}
	if f.DefaultLowStockThreshold < 0 {
		return fmt.Errorf("%s must not be negative", EnvDefaultLowStockThreshold)
	}
	if _, err := f.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone used to bucket per-day order numbers.
func (f FulfillmentConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(f.OrderTimezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading order timezone %q: %w", name, err)
	}
	return loc, nil
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"FOODOPS_CRON_INTERVAL" default:"5m"`
	LockTTL                   time.Duration `envconfig:"FOODOPS_CRON_LOCK_TTL" default:"10m"`
	OutboxRetentionDays       int           `envconfig:"FOODOPS_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"FOODOPS_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
}

func (c CronConfig) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%s must be positive", EnvCronInterval)
	}
	return nil
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
