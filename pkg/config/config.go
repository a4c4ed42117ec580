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
	DB           DBConfig
	Redis        RedisConfig
	Identity     IdentityConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
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
	Env          string `envconfig:"CHATAPP_APP_ENV" required:"true"`
	Port         string `envconfig:"CHATAPP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CHATAPP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHATAPP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CHATAPP_DB_DSN"`
	Driver string `envconfig:"CHATAPP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CHATAPP_DB_HOST"`
	LegacyPort     int    `envconfig:"CHATAPP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHATAPP_DB_USER"`
	LegacyPassword string `envconfig:"CHATAPP_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHATAPP_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHATAPP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHATAPP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHATAPP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHATAPP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHATAPP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CHATAPP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CHATAPP_REDIS_ADDR"`
	Password     string        `envconfig:"CHATAPP_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHATAPP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHATAPP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHATAPP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHATAPP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHATAPP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHATAPP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityConfig points at the external identity provider that owns
// authentication state for every account.
type IdentityConfig struct {
	BaseURL        string        `envconfig:"CHATAPP_IDENTITY_BASE_URL" required:"true"`
	APIKey         string        `envconfig:"CHATAPP_IDENTITY_API_KEY" required:"true"`
	RequestTimeout time.Duration `envconfig:"CHATAPP_IDENTITY_REQUEST_TIMEOUT" default:"10s"`
	// VerifyCacheTTL bounds how long a verified token is trusted without a
	// provider round-trip. Zero disables the cache entirely.
	VerifyCacheTTL time.Duration `envconfig:"CHATAPP_IDENTITY_VERIFY_CACHE_TTL" default:"0s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CHATAPP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CHATAPP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CHATAPP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"CHATAPP_GCS_BUCKET_NAME" required:"true"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"CHATAPP_MAX_UPLOAD_MB" default:"8"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CHATAPP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CHATAPP_AUTO_MIGRATE" default:"false"`
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
