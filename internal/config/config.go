package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Worker    WorkerConfig    `json:"worker"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	OAuth     OAuthConfig     `json:"oauth"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Log       LogConfig       `json:"log"`
}

type ServerConfig struct {
	Host            string        `json:"host" env:"HOST" envDefault:"localhost"`
	Port            string        `json:"port" env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	Environment     string        `json:"environment" env:"ENVIRONMENT" envDefault:"development"`
	AllowedOrigins  []string      `json:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `json:"host" env:"DB_HOST" envDefault:"localhost"`
	Port            string        `json:"port" env:"DB_PORT" envDefault:"5432"`
	User            string        `json:"user" env:"DB_USER" envDefault:"postgres"`
	Password        string        `json:"password" env:"DB_PASSWORD"`
	Name            string        `json:"name" env:"DB_NAME" envDefault:"task_manager"`
	SSLMode         string        `json:"ssl_mode" env:"DB_SSL_MODE" envDefault:"disable"`
	SQLitePath      string        `json:"sqlite_path" env:"DB_SQLITE_PATH" envDefault:"taskify.db"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"30m"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled" env:"REDIS_ENABLED" envDefault:"true"`
	Host         string        `json:"host" env:"REDIS_HOST" envDefault:"localhost"`
	Port         string        `json:"port" env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `json:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `json:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" envDefault:"5"`
	MaxRetries   int           `json:"max_retries" env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type WorkerConfig struct {
	Concurrency     int           `json:"concurrency" env:"WORKER_CONCURRENCY" envDefault:"4"`
	PollInterval    time.Duration `json:"poll_interval" env:"WORKER_POLL_INTERVAL" envDefault:"5s"`
	Queues          []string      `json:"queues" env:"WORKER_QUEUES" envSeparator:"," envDefault:"notifications,maintenance,retry_queue"`
	MaxTries        int           `json:"max_tries" env:"WORKER_MAX_TRIES" envDefault:"3"`
	CleanupInterval time.Duration `json:"cleanup_interval" env:"WORKER_CLEANUP_INTERVAL" envDefault:"1h"`
}

type AuthConfig struct {
	JWTSecret        string        `json:"-" env:"JWT_SECRET" envDefault:"your-secret-key"`
	JWTIssuer        string        `json:"jwt_issuer" env:"JWT_ISSUER" envDefault:"taskify-backend"`
	AccessTokenTTL   time.Duration `json:"access_token_ttl" env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	BCryptCost       int           `json:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"10"`
	RegistryCacheTTL time.Duration `json:"registry_cache_ttl" env:"TOKEN_CACHE_TTL" envDefault:"5m"`
}

type RateLimitConfig struct {
	Enabled         bool          `json:"enabled" env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerMin  int           `json:"requests_per_minute" env:"RATE_LIMIT_RPM" envDefault:"100"`
	BurstSize       int           `json:"burst_size" env:"RATE_LIMIT_BURST" envDefault:"10"`
	CleanupInterval time.Duration `json:"cleanup_interval" env:"RATE_LIMIT_CLEANUP" envDefault:"10m"`
	// AuthRate throttles sign-up and login per client IP, in limiter
	// notation ("10-M" is ten per minute). Empty disables it.
	AuthRate        string        `json:"auth_rate" env:"RATE_LIMIT_AUTH" envDefault:"10-M"`
}

type OAuthConfig struct {
	GoogleClientID     string `json:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `json:"-" env:"GOOGLE_CLIENT_SECRET"`
	CallbackBaseURL    string `json:"callback_base_url" env:"OAUTH_CALLBACK_BASE_URL" envDefault:"http://localhost:8080/api/v1"`
	SessionSecret      string `json:"-" env:"SESSION_SECRET"`
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `json:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `json:"service_name" env:"OTEL_SERVICE_NAME" envDefault:"taskify"`
}

type LogConfig struct {
	Level string `json:"level" env:"LOG_LEVEL" envDefault:"info"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}

	if c.IsProduction() {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return errors.New("database password is required in production")
		}
		if c.Auth.JWTSecret == defaultJWTSecret {
			return errors.New("JWT secret must be set in production")
		}
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GoogleOAuthEnabled reports whether Google sign-in credentials are configured.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.OAuth.GoogleClientID != "" && c.OAuth.GoogleClientSecret != ""
}
