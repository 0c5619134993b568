package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Media      MediaConfig
	Stripe     StripeConfig
	RateLimit  RateLimitConfig
	Cron       CronConfig
	Accounting AccountingConfig
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
	Env          string `envconfig:"CONTACTALIA_APP_ENV" required:"true"`
	Port         string `envconfig:"CONTACTALIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONTACTALIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONTACTALIA_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CONTACTALIA_AUTO_MIGRATE" default:"false"`
	CORSOrigins  string `envconfig:"CONTACTALIA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated origin list.
func (a AppConfig) AllowedOrigins() []string {
	if strings.TrimSpace(a.CORSOrigins) == "" {
		return nil
	}
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"CONTACTALIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CONTACTALIA_DB_DSN"`
	Driver string `envconfig:"CONTACTALIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONTACTALIA_DB_HOST"`
	LegacyPort     int    `envconfig:"CONTACTALIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONTACTALIA_DB_USER"`
	LegacyPassword string `envconfig:"CONTACTALIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONTACTALIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONTACTALIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONTACTALIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONTACTALIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONTACTALIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONTACTALIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CONTACTALIA_DB_SLOW_QUERY" default:"500ms"`
	ConnectAttempts int           `envconfig:"CONTACTALIA_DB_CONNECT_ATTEMPTS" default:"5"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONTACTALIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CONTACTALIA_REDIS_ADDR"`
	Password     string        `envconfig:"CONTACTALIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONTACTALIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONTACTALIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONTACTALIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONTACTALIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONTACTALIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONTACTALIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig describes how identity-provider tokens are verified.
type AuthConfig struct {
	JWTSecret string        `envconfig:"CONTACTALIA_AUTH_JWT_SECRET" required:"true"`
	Issuer    string        `envconfig:"CONTACTALIA_AUTH_JWT_ISSUER"`
	Audience  string        `envconfig:"CONTACTALIA_AUTH_JWT_AUDIENCE" default:"authenticated"`
	Leeway    time.Duration `envconfig:"CONTACTALIA_AUTH_JWT_LEEWAY" default:"30s"`
}

type StorageConfig struct {
	Endpoint       string `envconfig:"CONTACTALIA_STORAGE_ENDPOINT"`
	Region         string `envconfig:"CONTACTALIA_STORAGE_REGION" default:"eu-west-1"`
	Bucket         string `envconfig:"CONTACTALIA_STORAGE_BUCKET" default:"profile-media"`
	AccessKeyID    string `envconfig:"CONTACTALIA_STORAGE_ACCESS_KEY_ID"`
	SecretKey      string `envconfig:"CONTACTALIA_STORAGE_SECRET_ACCESS_KEY"`
	PublicBaseURL  string `envconfig:"CONTACTALIA_STORAGE_PUBLIC_BASE_URL"`
	ForcePathStyle bool   `envconfig:"CONTACTALIA_STORAGE_FORCE_PATH_STYLE" default:"true"`
}

type MediaConfig struct {
	MaxUploadMB    int           `envconfig:"CONTACTALIA_MAX_UPLOAD_MB" default:"50"`
	ImageMaxWidth  int           `envconfig:"CONTACTALIA_MEDIA_IMAGE_MAX_WIDTH" default:"1920"`
	ImageMaxHeight int           `envconfig:"CONTACTALIA_MEDIA_IMAGE_MAX_HEIGHT" default:"1920"`
	ImageQuality   int           `envconfig:"CONTACTALIA_MEDIA_IMAGE_QUALITY" default:"82"`
	OrphanGrace    time.Duration `envconfig:"CONTACTALIA_MEDIA_ORPHAN_GRACE" default:"24h"`
}

// MaxUploadBytes converts the configured megabyte limit.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 50 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type StripeConfig struct {
	SecretKey              string        `envconfig:"CONTACTALIA_STRIPE_SECRET_KEY"`
	WebhookSecret          string        `envconfig:"CONTACTALIA_STRIPE_WEBHOOK_SECRET"`
	Env                    string        `envconfig:"CONTACTALIA_STRIPE_ENV" default:"test"`
	PricePremiumAnunciante string        `envconfig:"CONTACTALIA_STRIPE_PRICE_PREMIUM_ANUNCIANTE"`
	PriceVipAnunciante     string        `envconfig:"CONTACTALIA_STRIPE_PRICE_VIP_ANUNCIANTE"`
	PricePremiumVisitante  string        `envconfig:"CONTACTALIA_STRIPE_PRICE_PREMIUM_VISITANTE"`
	PriceVipVisitante      string        `envconfig:"CONTACTALIA_STRIPE_PRICE_VIP_VISITANTE"`
	SiteURL                string        `envconfig:"CONTACTALIA_SITE_URL" default:"http://localhost:3000"`
	WebhookIdempotencyTTL  time.Duration `envconfig:"CONTACTALIA_STRIPE_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type RateLimitConfig struct {
	ReportWindow  time.Duration `envconfig:"CONTACTALIA_RATE_LIMIT_REPORT_WINDOW" default:"1h"`
	ReportLimit   int           `envconfig:"CONTACTALIA_RATE_LIMIT_REPORT_LIMIT" default:"10"`
	ContactWindow time.Duration `envconfig:"CONTACTALIA_RATE_LIMIT_CONTACT_WINDOW" default:"10m"`
	ContactLimit  int           `envconfig:"CONTACTALIA_RATE_LIMIT_CONTACT_LIMIT" default:"3"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CONTACTALIA_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"CONTACTALIA_CRON_LOCK_TTL" default:"55m"`
}

// AccountingConfig holds the list prices used by the revenue summary, in EUR.
type AccountingConfig struct {
	VisitorPremium    string `envconfig:"CONTACTALIA_PRICE_VISITOR_PREMIUM" default:"19.99"`
	VisitorVip        string `envconfig:"CONTACTALIA_PRICE_VISITOR_VIP" default:"39.99"`
	AdvertiserPremium string `envconfig:"CONTACTALIA_PRICE_ADVERTISER_PREMIUM" default:"29.99"`
	AdvertiserVip     string `envconfig:"CONTACTALIA_PRICE_ADVERTISER_VIP" default:"59.99"`
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
