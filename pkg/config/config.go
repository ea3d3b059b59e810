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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
	Fulfillment   FulfillmentConfig
	FeatureFlags  FeatureFlagsConfig
	Bootstrap     BootstrapConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := ParseRevocationPolicy(cfg.Auth.ProfileUpdateRevocation); err != nil {
		return nil, err
	}
	if err := cfg.checkFulfillmentDeadlines(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkFulfillmentDeadlines keeps the stale sweep from failing orders whose
// factory call may still succeed.
func (c *Config) checkFulfillmentDeadlines() error {
	if c.Cron.StaleAfter <= 0 {
		return fmt.Errorf("%s must be positive", EnvCronStaleAfter)
	}
	if c.Fulfillment.Timeout >= c.Cron.StaleAfter {
		return fmt.Errorf("%s (%s) must be shorter than %s (%s)",
			EnvFactoryTimeout, c.Fulfillment.Timeout, EnvCronStaleAfter, c.Cron.StaleAfter)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"PIZZERIA_APP_ENV" required:"true"`
	Port         string `envconfig:"PIZZERIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PIZZERIA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PIZZERIA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PIZZERIA_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"PIZZERIA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PIZZERIA_DB_DSN"`
	Driver string `envconfig:"PIZZERIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIZZERIA_DB_HOST"`
	LegacyPort     int    `envconfig:"PIZZERIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIZZERIA_DB_USER"`
	LegacyPassword string `envconfig:"PIZZERIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIZZERIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIZZERIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIZZERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIZZERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIZZERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIZZERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIZZERIA_REDIS_URL"`
	Address      string        `envconfig:"PIZZERIA_REDIS_ADDR"`
	Password     string        `envconfig:"PIZZERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIZZERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIZZERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIZZERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIZZERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIZZERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIZZERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"PIZZERIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PIZZERIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PIZZERIA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PIZZERIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PIZZERIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PIZZERIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PIZZERIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PIZZERIA_ARGON_KEY_LEN" default:"32"`
}

type AuthConfig struct {
	// ProfileUpdateRevocation is one of never, password, always.
	ProfileUpdateRevocation string `envconfig:"PIZZERIA_AUTH_PROFILE_UPDATE_REVOCATION" default:"password"`
}

// RevocationPolicy controls whether a profile update invalidates the target's
// outstanding sessions.
type RevocationPolicy string

const (
	RevokeNever    RevocationPolicy = "never"
	RevokePassword RevocationPolicy = "password"
	RevokeAlways   RevocationPolicy = "always"
)

// ParseRevocationPolicy normalizes the configured policy. Empty input maps to RevokePassword.
func ParseRevocationPolicy(value string) (RevocationPolicy, error) {
	switch RevocationPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", RevokePassword:
		return RevokePassword, nil
	case RevokeNever:
		return RevokeNever, nil
	case RevokeAlways:
		return RevokeAlways, nil
	}
	return "", fmt.Errorf("invalid %s value %q (expected never, password or always)", EnvProfileUpdateRevocation, value)
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PIZZERIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PIZZERIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PIZZERIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PIZZERIA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PIZZERIA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PIZZERIA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FulfillmentConfig struct {
	BaseURL string        `envconfig:"PIZZERIA_FACTORY_URL" required:"true"`
	APIKey  string        `envconfig:"PIZZERIA_FACTORY_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"PIZZERIA_FACTORY_TIMEOUT" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PIZZERIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PIZZERIA_AUTO_MIGRATE" default:"false"`
}

type BootstrapConfig struct {
	AdminName     string `envconfig:"PIZZERIA_BOOTSTRAP_ADMIN_NAME" default:"Administrator"`
	AdminEmail    string `envconfig:"PIZZERIA_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"PIZZERIA_BOOTSTRAP_ADMIN_PASSWORD"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PIZZERIA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"PIZZERIA_PUBSUB_ORDERS_TOPIC" default:"pizzeria-order-events"`
	DomainTopic string `envconfig:"PIZZERIA_PUBSUB_DOMAIN_TOPIC" default:"pizzeria-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PIZZERIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PIZZERIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PIZZERIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"PIZZERIA_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"PIZZERIA_CRON_INTERVAL" default:"5m"`
	StaleAfter      time.Duration `envconfig:"PIZZERIA_CRON_STALE_FULFILLMENT_AFTER" default:"15m"`
	OutboxRetention time.Duration `envconfig:"PIZZERIA_CRON_OUTBOX_RETENTION" default:"168h"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = DefaultSQLiteDSN
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
