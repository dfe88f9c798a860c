package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App             AppConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	UploadRateLimit UploadRateLimitConfig
	FeatureFlags    FeatureFlagsConfig
	Media           MediaConfig
	Storage         StorageConfig
	S3              S3Config
	GCP             GCPConfig
	PubSub          PubSubConfig
	Outbox          OutboxConfig
	Maintenance     MaintenanceConfig
}

// Load reads the PROFILEMEDIA_* environment. Every cross-field problem is reported at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	dsn, dsnErr := cfg.DB.resolveDSN()
	cfg.DB.DSN = dsn
	err := multierr.Combine(
		dsnErr,
		cfg.Storage.validate(cfg.S3),
		positive(EnvJWTExpMins, cfg.JWT.ExpirationMinutes),
		positive(EnvOutboxMaxAttempts, cfg.Outbox.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func positive(env string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", env, v)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"PROFILEMEDIA_APP_ENV" required:"true"`
	Port         string `envconfig:"PROFILEMEDIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PROFILEMEDIA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PROFILEMEDIA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PROFILEMEDIA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"PROFILEMEDIA_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type DBConfig struct {
	DSN    string `envconfig:"PROFILEMEDIA_DB_DSN"`
	Driver string `envconfig:"PROFILEMEDIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROFILEMEDIA_DB_HOST"`
	LegacyPort     int    `envconfig:"PROFILEMEDIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROFILEMEDIA_DB_USER"`
	LegacyPassword string `envconfig:"PROFILEMEDIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROFILEMEDIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROFILEMEDIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROFILEMEDIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROFILEMEDIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROFILEMEDIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROFILEMEDIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PROFILEMEDIA_DB_SLOW_QUERY" default:"250ms"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PROFILEMEDIA_REDIS_URL"`
	Address      string        `envconfig:"PROFILEMEDIA_REDIS_ADDR"`
	Password     string        `envconfig:"PROFILEMEDIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROFILEMEDIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROFILEMEDIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROFILEMEDIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROFILEMEDIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROFILEMEDIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROFILEMEDIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PROFILEMEDIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PROFILEMEDIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PROFILEMEDIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type UploadRateLimitConfig struct {
	Window    time.Duration `envconfig:"PROFILEMEDIA_UPLOAD_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit int           `envconfig:"PROFILEMEDIA_UPLOAD_RATE_LIMIT_USER" default:"20"`
	IPLimit   int           `envconfig:"PROFILEMEDIA_UPLOAD_RATE_LIMIT_IP" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"PROFILEMEDIA_AUTO_MIGRATE" default:"false"`
	// LegacyActions mounts the form-encoded action adapter.
	LegacyActions bool `envconfig:"PROFILEMEDIA_LEGACY_ACTIONS" default:"true"`
}

type MediaConfig struct {
	ImageMaxMB int `envconfig:"PROFILEMEDIA_MEDIA_IMAGE_MAX_MB" default:"20"`
	AudioMaxMB int `envconfig:"PROFILEMEDIA_MEDIA_AUDIO_MAX_MB" default:"10"`
	VideoMaxMB int `envconfig:"PROFILEMEDIA_MEDIA_VIDEO_MAX_MB" default:"100"`
}

// MaxUploadBytes is the largest limit across kinds, used to cap multipart parsing.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(max(m.ImageMaxMB, m.AudioMaxMB, m.VideoMaxMB)) << 20
}

type StorageConfig struct {
	Driver        string `envconfig:"PROFILEMEDIA_STORAGE_DRIVER" default:"local"`
	LocalRoot     string `envconfig:"PROFILEMEDIA_LOCAL_STORAGE_ROOT" default:"./data/media"`
	PublicBaseURL string `envconfig:"PROFILEMEDIA_STORAGE_PUBLIC_BASE_URL"`
}

type S3Config struct {
	Bucket       string `envconfig:"PROFILEMEDIA_S3_BUCKET"`
	Region       string `envconfig:"PROFILEMEDIA_S3_REGION" default:"us-east-1"`
	Endpoint     string `envconfig:"PROFILEMEDIA_S3_ENDPOINT"`
	UsePathStyle bool   `envconfig:"PROFILEMEDIA_S3_USE_PATH_STYLE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PROFILEMEDIA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	MediaTopic              string `envconfig:"PROFILEMEDIA_PUBSUB_MEDIA_TOPIC" default:"profile-media-events"`
	BlobCleanupSubscription string `envconfig:"PROFILEMEDIA_PUBSUB_BLOB_CLEANUP_SUBSCRIPTION" default:"profile-media-blob-cleanup"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PROFILEMEDIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PROFILEMEDIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PROFILEMEDIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MaintenanceConfig struct {
	Interval            time.Duration `envconfig:"PROFILEMEDIA_MAINTENANCE_INTERVAL" default:"1h"`
	JobTimeout          time.Duration `envconfig:"PROFILEMEDIA_MAINTENANCE_JOB_TIMEOUT" default:"10m"`
	OutboxRetentionDays int           `envconfig:"PROFILEMEDIA_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (s StorageConfig) validate(s3 S3Config) error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverLocal:
		if strings.TrimSpace(s.LocalRoot) == "" {
			return fmt.Errorf("%s is required for local storage", EnvLocalRoot)
		}
	case StorageDriverS3:
		if strings.TrimSpace(s3.Bucket) == "" {
			return fmt.Errorf("%s is required for s3 storage", EnvS3Bucket)
		}
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvStorageDriver, StorageDriverLocal, StorageDriverS3, s.Driver)
	}
	return nil
}

// resolveDSN prefers PROFILEMEDIA_DB_DSN and otherwise assembles a postgres URL from the
// discrete host, user and name variables older deployments set.
func (db DBConfig) resolveDSN() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}
	if db.IsSQLite() {
		return "", fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("set %s or all of %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.LegacyUser, db.LegacyPassword),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   "/" + db.LegacyName,
	}
	if db.LegacyPassword == "" {
		dsn.User = url.User(db.LegacyUser)
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	return dsn.String(), nil
}
