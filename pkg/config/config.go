package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "SHOPLINK"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "SHOPLINK_APP_ENV"
	EnvDBDSN  = "SHOPLINK_DB_DSN"
	EnvDBHost = "SHOPLINK_DB_HOST"
	EnvDBUser = "SHOPLINK_DB_USER"
	EnvDBName = "SHOPLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Handshake     HandshakeConfig
	ML            MLConfig
	Provider      ProviderConfig
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
	Env          string `envconfig:"SHOPLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPLINK_APP_PORT" default:"4000"`
	LogLevel     string `envconfig:"SHOPLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPLINK_DB_DSN"`
	Driver string `envconfig:"SHOPLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPLINK_DB_USER"`
	LegacyPassword string `envconfig:"SHOPLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPLINK_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SHOPLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SHOPLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SHOPLINK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"SHOPLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOPLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOPLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOPLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOPLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOPLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SHOPLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SHOPLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SHOPLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SHOPLINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SHOPLINK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SHOPLINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPLINK_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHOPLINK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001,http://localhost:3002"`
}

// HandshakeConfig governs the cross-origin shop-linking exchange.
type HandshakeConfig struct {
	// ProviderOrigins is the allowlist of storefront origins permitted to
	// deliver handshake messages. Anything else is dropped silently.
	ProviderOrigins []string      `envconfig:"SHOPLINK_HANDSHAKE_PROVIDER_ORIGINS" default:"http://localhost:3001,http://localhost:3002"`
	Timeout         time.Duration `envconfig:"SHOPLINK_HANDSHAKE_TIMEOUT" default:"2s"`
	ExchangeTTL     time.Duration `envconfig:"SHOPLINK_HANDSHAKE_EXCHANGE_TTL" default:"10m"`
}

type MLConfig struct {
	BaseURL string        `envconfig:"SHOPLINK_ML_BASE_URL" default:"http://localhost:8000"`
	Timeout time.Duration `envconfig:"SHOPLINK_ML_TIMEOUT" default:"30s"`
	APIKey  string        `envconfig:"SHOPLINK_ML_API_KEY"`
}

// ProviderConfig points at the marketplace aggregator API used for product
// sync and integration connectivity checks.
type ProviderConfig struct {
	BaseURL string        `envconfig:"SHOPLINK_PROVIDER_BASE_URL" default:"http://localhost:8100"`
	APIKey  string        `envconfig:"SHOPLINK_PROVIDER_API_KEY"`
	Timeout time.Duration `envconfig:"SHOPLINK_PROVIDER_TIMEOUT" default:"20s"`
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
