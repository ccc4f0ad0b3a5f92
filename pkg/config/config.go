package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	APIKey        APIKeyConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Upload        UploadConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Cases         CasesConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Integrity     IntegrityConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CASESYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"CASESYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CASESYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CASESYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CASESYNC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CASESYNC_DB_DSN"`
	Driver string `envconfig:"CASESYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CASESYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"CASESYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CASESYNC_DB_USER"`
	LegacyPassword string `envconfig:"CASESYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"CASESYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"CASESYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASESYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASESYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASESYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASESYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CASESYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CASESYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CASESYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CASESYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CASESYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASESYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASESYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASESYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CASESYNC_REDIS_WRITE_TIMEOUT" default:"5s"`

	EvidenceLockTTL   time.Duration `envconfig:"CASESYNC_REDIS_EVIDENCE_LOCK_TTL" default:"30s"`
	EvidenceLockWait  time.Duration `envconfig:"CASESYNC_REDIS_EVIDENCE_LOCK_WAIT" default:"5s"`
	EvidenceLockRetry time.Duration `envconfig:"CASESYNC_REDIS_EVIDENCE_LOCK_RETRY" default:"50ms"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CASESYNC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CASESYNC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CASESYNC_JWT_EXPIRATION_MINUTES" required:"true"`
}

type APIKeyConfig struct {
	ArgonMemoryKB    int `envconfig:"CASESYNC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CASESYNC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CASESYNC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CASESYNC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CASESYNC_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	TokenWindow         time.Duration `envconfig:"CASESYNC_AUTH_RATE_LIMIT_TOKEN_WINDOW" default:"1m"`
	TokenPrincipalLimit int           `envconfig:"CASESYNC_AUTH_RATE_LIMIT_TOKEN_PRINCIPAL_LIMIT" default:"5"`
	TokenIPLimit        int           `envconfig:"CASESYNC_AUTH_RATE_LIMIT_TOKEN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CASESYNC_AUTO_MIGRATE" default:"false"`
}

type UploadConfig struct {
	MaxUploadMB int `envconfig:"CASESYNC_MAX_UPLOAD_MB" default:"200"`
}

// MaxUploadBytes returns the configured upload ceiling in bytes.
func (u UploadConfig) MaxUploadBytes() int64 {
	mb := u.MaxUploadMB
	if mb <= 0 {
		mb = 200
	}
	return int64(mb) * 1024 * 1024
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CASESYNC_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CASESYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CASESYNC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName     string        `envconfig:"CASESYNC_GCS_BUCKET_NAME" required:"true"`
	RequestTimeout time.Duration `envconfig:"CASESYNC_GCS_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"CASESYNC_GCS_MAX_RETRIES" default:"3"`
	RetryBackoff   time.Duration `envconfig:"CASESYNC_GCS_RETRY_BACKOFF" default:"250ms"`
}

type CasesConfig struct {
	BaseURL        string        `envconfig:"CASESYNC_CASES_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"CASESYNC_CASES_REQUEST_TIMEOUT" default:"5s"`
}

type PubSubConfig struct {
	DispatchTopic          string `envconfig:"CASESYNC_PUBSUB_DISPATCH_TOPIC" required:"true"`
	CompletionSubscription string `envconfig:"CASESYNC_PUBSUB_COMPLETION_SUBSCRIPTION" required:"true"`
	CustodyTopic           string `envconfig:"CASESYNC_PUBSUB_CUSTODY_TOPIC" required:"true"`
	CustodySubscription    string `envconfig:"CASESYNC_PUBSUB_CUSTODY_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"CASESYNC_BIGQUERY_DATASET" default:"casesync"`
	CustodyAuditTable string `envconfig:"CASESYNC_BIGQUERY_CUSTODY_TABLE" default:"custody_audit"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CASESYNC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CASESYNC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CASESYNC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type IntegrityConfig struct {
	Interval    time.Duration `envconfig:"CASESYNC_INTEGRITY_INTERVAL" default:"24h"`
	BatchSize   int           `envconfig:"CASESYNC_INTEGRITY_BATCH_SIZE" default:"200"`
	MetricsPort string        `envconfig:"CASESYNC_INTEGRITY_METRICS_PORT" default:"9090"`
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
