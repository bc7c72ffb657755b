package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds environment-driven configuration.
type Config struct {
	Env  string
	Addr string

	DBDriver          string
	DatabaseURL       string
	DBConnectAttempts int
	DBConnectDelay    time.Duration

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	RedisURL string

	LogLevel  string
	LogFormat string

	CORSOrigins    string
	RateLimitRPS   int
	RateLimitBurst int

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string
	LoginURL       string

	AdminEmail    string
	AdminPassword string

	// DevSecret is set when JWTSecret fell back to the development default.
	DevSecret bool
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		Addr:           getEnv("APP_ADDR", ":8080"),
		DBDriver:       getEnv("DB_DRIVER", "pgx"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "fullstack-starter"),
		RedisURL:       getEnv("REDIS_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@example.com"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "Fullstack Starter"),
		LoginURL:       getEnv("APP_LOGIN_URL", ""),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
	}

	var err error
	if cfg.DBConnectAttempts, err = getEnvInt("DB_CONNECT_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.DBConnectDelay, err = getEnvDuration("DB_CONNECT_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getEnvInt("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case "pgx", "postgres":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be pgx or postgres, got %q", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required outside development")
		}
		cfg.JWTSecret = devJWTSecret
		cfg.DevSecret = true
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// String masks secrets.
func (c *Config) String() string {
	db := "in-memory"
	if c.DatabaseURL != "" {
		db = c.DBDriver + " (***)"
	}
	redis := "in-memory"
	if c.RedisURL != "" {
		redis = "***"
	}
	return fmt.Sprintf("Config{Env: %s, Addr: %s, DB: %s, Redis: %s, JWT: *** (ttl %s), Log: %s/%s}",
		c.Env, c.Addr, db, redis, c.JWTTTL, c.LogLevel, c.LogFormat)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}
