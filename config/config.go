package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Events     EventsConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Toolbar    ToolbarConfig
	CRM        CRMConfig
	Enrichment EnrichmentConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	SiteURL            string // public base URL of this deployment, e.g. https://app.pulsedeck.com
}

// DatabaseConfig holds PostgreSQL connection settings for the application store.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// EventsConfig holds the analytical event-store connection.
// Defaults to the application database when EVENTS_DATABASE_URL is unset,
// which is what local development uses.
type EventsConfig struct {
	URL              string
	QueryTimeoutSecs int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds session token signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// ToolbarConfig holds the toolbar OAuth handshake settings.
type ToolbarConfig struct {
	Enabled         bool
	StateSecret     string // HMAC secret for the signed authorization state
	StateTTLMinutes int
	AuthServerURL   string // authorization server base URL; defaults to SiteURL
}

// CRMConfig holds the external CRM API settings.
type CRMConfig struct {
	BaseURL     string
	APIToken    string
	TimeoutSecs int
}

// EnrichmentConfig holds CRM enrichment worker settings.
type EnrichmentConfig struct {
	BatchSize           int
	MappingCacheTTLMins int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			SiteURL:            strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "pulsedeck"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Events: EventsConfig{
			URL:              getEnv("EVENTS_DATABASE_URL", ""),
			QueryTimeoutSecs: getEnvInt("EVENTS_QUERY_TIMEOUT_SEC", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Toolbar: ToolbarConfig{
			Enabled:         getEnvBool("TOOLBAR_OAUTH_ENABLED", false),
			StateSecret:     getEnv("TOOLBAR_STATE_SECRET", ""),
			StateTTLMinutes: getEnvInt("TOOLBAR_STATE_TTL_MIN", 10),
			AuthServerURL:   strings.TrimRight(getEnv("TOOLBAR_AUTH_SERVER_URL", ""), "/"),
		},
		CRM: CRMConfig{
			BaseURL:     strings.TrimRight(getEnv("CRM_BASE_URL", ""), "/"),
			APIToken:    getEnv("CRM_API_TOKEN", ""),
			TimeoutSecs: getEnvInt("CRM_TIMEOUT_SEC", 60),
		},
		Enrichment: EnrichmentConfig{
			BatchSize:           getEnvInt("ENRICHMENT_BATCH_SIZE", 100),
			MappingCacheTTLMins: getEnvInt("ENRICHMENT_MAPPING_CACHE_TTL_MIN", 360),
		},
	}

	if cfg.Events.URL == "" {
		cfg.Events.URL = cfg.Database.DSN()
	}
	if cfg.Toolbar.StateSecret == "" {
		cfg.Toolbar.StateSecret = cfg.JWT.Secret
	}
	if cfg.Toolbar.AuthServerURL == "" {
		cfg.Toolbar.AuthServerURL = cfg.Server.SiteURL
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
