package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is empty because every field carries its fully qualified tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "POSBRIDGE_DB_DSN"
	EnvDBHost = "POSBRIDGE_DB_HOST"
	EnvDBUser = "POSBRIDGE_DB_USER"
	EnvDBName = "POSBRIDGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Ingest       IngestConfig
	Session      SessionConfig
	Cron         CronConfig
	Credential   CredentialConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"POSBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"POSBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POSBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSBRIDGE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"POSBRIDGE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"POSBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"POSBRIDGE_DB_DSN"`
	Driver string `envconfig:"POSBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POSBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"POSBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POSBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"POSBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"POSBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"POSBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POSBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POSBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POSBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"POSBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"POSBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IngestConfig tunes the webhook order-ingestion pipeline.
type IngestConfig struct {
	// ToleranceMultiplier scales the currency rounding when comparing
	// declared totals against computed ones. The upstream sender rounds
	// per line, so a single rounding unit is too tight in practice.
	ToleranceMultiplier int `envconfig:"POSBRIDGE_INGEST_TOLERANCE_MULTIPLIER" default:"10"`

	MaxBatchSize int `envconfig:"POSBRIDGE_INGEST_MAX_BATCH_SIZE" default:"100"`

	DefaultSource string `envconfig:"POSBRIDGE_INGEST_DEFAULT_SOURCE" default:"karage"`

	ProcessingTimeout time.Duration `envconfig:"POSBRIDGE_IDEMPOTENCY_PROCESSING_TIMEOUT" default:"10m"`
	Retention         time.Duration `envconfig:"POSBRIDGE_IDEMPOTENCY_RETENTION" default:"720h"`
}

type SessionConfig struct {
	AutoClose   bool          `envconfig:"POSBRIDGE_SESSION_AUTO_CLOSE" default:"true"`
	IdleTimeout time.Duration `envconfig:"POSBRIDGE_SESSION_IDLE_TIMEOUT" default:"1h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"POSBRIDGE_CRON_INTERVAL" default:"5m"`
}

// CredentialConfig holds the Argon2id parameters used to hash stored API keys.
type CredentialConfig struct {
	ArgonMemoryKB    int `envconfig:"POSBRIDGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POSBRIDGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POSBRIDGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POSBRIDGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POSBRIDGE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POSBRIDGE_FEATURE_AUTO_MIGRATE" default:"false"`
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
