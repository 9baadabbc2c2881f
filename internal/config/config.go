// Package config loads application settings from environment variables
// and validates them on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ingest   IngestConfig
	Session  SessionConfig
	Redis    RedisConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading the whole request, including the upload.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for a request (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig selects the destination database.
type DatabaseConfig struct {
	// Kind is the sink backend: postgres, sqlite, mysql or sqlserver.
	Kind string `env:"SINK_KIND" envAlt:"DB_KIND" default:"postgres"`

	// URL is the backend connection string (required).
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// IngestConfig holds spreadsheet processing settings.
type IngestConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `env:"INGEST_MAX_FILE_SIZE" envAlt:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the number of sheets processed in parallel (default: 4)
	MaxConcurrent int `env:"INGEST_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a processing slot (default: 30s)
	MaxWaitTime time.Duration `env:"INGEST_MAX_WAIT_TIME" default:"30s"`

	// ChunkRows caps rows per INSERT statement (default: 1000)
	ChunkRows int `env:"INGEST_CHUNK_ROWS" default:"1000"`

	// Timeout bounds one validate, insert or upload operation (default: 5m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"5m"`

	// StrictNumeric turns unparsable numeric cells into row errors.
	StrictNumeric bool `env:"INGEST_STRICT_NUMERIC" default:"false"`

	// ColumnTypesFile is an optional YAML file overlaying the built-in
	// column types.
	ColumnTypesFile string `env:"COLUMN_TYPES_FILE"`
}

// SessionConfig holds validation session settings.
type SessionConfig struct {
	// Store is the backend: memory, file or redis (default: file)
	Store string `env:"SESSION_STORE" default:"file"`

	// TTL is how long a validated batch stays insertable (default: 30m)
	TTL time.Duration `env:"SESSION_TTL" default:"30m"`

	// Dir holds session files for the file store. Empty means a
	// sheetload-sessions directory under the system temp dir.
	Dir string `env:"SESSION_DIR"`

	// SweepInterval is how often expired sessions are purged; 0 disables.
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// RedisConfig configures the redis session store.
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" default:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the general limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// IngestLimit is requests per minute for validate, insert and upload (default: 10)
	IngestLimit int `env:"RATE_LIMIT_INGEST" envAlt:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys are accepted values for the X-API-Key header.
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey enforces X-API-Key on /api routes.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// CORSAllowedOrigins enables CORS on /api for the listed origins.
	// Empty means same-origin only.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
