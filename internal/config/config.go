// Package config loads the server configuration from environment variables.
// All config is centralized here so no other package reads env vars
// directly. A .env file in the working directory is honoured when present.
// Sensible defaults are provided for development.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// MinSecretKeyLength is the shortest SECRET_KEY accepted in production.
const MinSecretKeyLength = 64

// Config holds all application configuration. Passed to other packages via
// dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for CORS and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Media    MediaConfig
	Player   PlayerConfig
	Notify   NotifyConfig
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format. 3306 is appended
	// when no port is given.
	Host     string
	User     string
	Password string
	Name     string

	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey keys the CSRF token and must be at least
	// MinSecretKeyLength characters in production.
	SecretKey string

	// SessionTTL is how long sessions last before expiring.
	SessionTTL time.Duration

	// LoginRate is the number of login attempts allowed per minute per IP.
	LoginRate int
}

// MediaConfig holds artwork upload settings.
type MediaConfig struct {
	// MaxSize is the maximum upload size in bytes.
	MaxSize int64

	// Path is the directory artwork files are stored in.
	Path string

	// ThumbSize is the edge length of generated thumbnails in pixels.
	ThumbSize int
}

// PlayerConfig tunes the audio player.
type PlayerConfig struct {
	// MPVBinary is the mpv executable (default "mpv").
	MPVBinary string

	// SocketDir holds mpv IPC sockets (default: os.TempDir()).
	SocketDir string

	// ConnectTimeout bounds how long a stream may take to start playing.
	ConnectTimeout time.Duration

	// FadeStep is the delay between 1% volume steps.
	FadeStep time.Duration

	// MaxRestarts caps automatic restarts of a dropped stream.
	MaxRestarts int
}

// NotifyConfig selects how notifications are distributed.
type NotifyConfig struct {
	// RedisChannel, when non-empty, publishes notifications on this Redis
	// pub/sub channel so several instances share them.
	RedisChannel string
}

// Load reads configuration from the environment (and .env, if present)
// with sensible defaults. Returns an error for invalid production setups.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	} else if err == nil {
		slog.Debug("loaded environment from .env")
	}

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "radio"),
			Password:        getEnv("DB_PASSWORD", "radio"),
			Name:            getEnv("DB_NAME", "radio"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:  getEnv("SECRET_KEY", ""),
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
			LoginRate:  getEnvInt("LOGIN_RATE", 10),
		},

		Media: MediaConfig{
			MaxSize:   getEnvInt64("MAX_UPLOAD_SIZE", 5*1024*1024),
			Path:      getEnv("MEDIA_PATH", "./media"),
			ThumbSize: getEnvInt("THUMB_SIZE", 256),
		},

		Player: PlayerConfig{
			MPVBinary:      getEnv("MPV_BINARY", "mpv"),
			SocketDir:      getEnv("MPV_SOCKET_DIR", ""),
			ConnectTimeout: getEnvDuration("STREAM_CONNECT_TIMEOUT", 10*time.Second),
			FadeStep:       getEnvDuration("VOLUME_FADE_STEP", 12*time.Millisecond),
			MaxRestarts:    getEnvInt("STREAM_MAX_RESTARTS", 5),
		},

		Notify: NotifyConfig{
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", ""),
		},
	}

	if cfg.IsProduction() {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < MinSecretKeyLength {
			return nil, fmt.Errorf("SECRET_KEY must be at least %d characters in production", MinSecretKeyLength)
		}
	}

	// Dev-only default so local runs work without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = strings.Repeat("dev-secret-key-do-not-use-in-production!", 2)
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" or "prod" in any case.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
