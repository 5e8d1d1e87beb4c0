// Package config provides configuration for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	Supabase SupabaseConfig
	Session  SessionConfig
	Media    MediaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
	// RateLimit is the number of requests allowed per IP and minute
	RateLimit int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// SupabaseConfig holds settings of the hosted identity and profile backend
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	JWTSecret      string
	RequestTimeout time.Duration
}

// SessionConfig holds the tunables of the per-visitor session lifecycle
type SessionConfig struct {
	Timeout         time.Duration
	MaxRetries      int
	PollInterval    time.Duration
	RefreshInterval time.Duration
	MaxErrorCount   int
	ProfileMaxAge   time.Duration
	VisitorTTL      time.Duration
	AnonymousTTL    time.Duration
	MaxVisitors     int
	SecureCookies   bool
}

// MediaConfig holds image storage settings
type MediaConfig struct {
	BasePath string
	BaseURL  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional, real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	cfg.Server.Port, err = intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.RateLimit, err = intFromEnv("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Supabase configuration
	cfg.Supabase, err = supabaseFromEnv()
	if err != nil {
		return nil, err
	}

	// Session lifecycle configuration
	cfg.Session.Timeout, err = durationFromEnv("SESSION_TIMEOUT", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	cfg.Session.MaxRetries, err = intFromEnv("SESSION_MAX_RETRIES", 1)
	if err != nil {
		return nil, err
	}
	cfg.Session.PollInterval, err = durationFromEnv("SESSION_POLL_INTERVAL", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Session.RefreshInterval, err = durationFromEnv("SESSION_REFRESH_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Session.MaxErrorCount, err = intFromEnv("SESSION_MAX_ERROR_COUNT", 5)
	if err != nil {
		return nil, err
	}
	cfg.Session.ProfileMaxAge, err = durationFromEnv("SESSION_PROFILE_MAX_AGE", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Session.VisitorTTL, err = durationFromEnv("VISITOR_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.Session.AnonymousTTL, err = durationFromEnv("VISITOR_ANONYMOUS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Session.MaxVisitors, err = intFromEnv("MAX_VISITORS", 10000)
	if err != nil {
		return nil, err
	}
	cfg.Session.SecureCookies = os.Getenv("SECURE_COOKIES") == "true"

	// Media configuration
	mediaBasePath := os.Getenv("MEDIA_BASE_PATH")
	if mediaBasePath == "" {
		mediaBasePath = "./media" // default
	}
	cfg.Media.BasePath = mediaBasePath

	mediaBaseURL := os.Getenv("MEDIA_BASE_URL")
	if mediaBaseURL == "" {
		mediaBaseURL = "/media" // default
	}
	cfg.Media.BaseURL = strings.TrimRight(mediaBaseURL, "/")

	return cfg, nil
}

// LoadSupabase reads only the identity backend settings. Used by tooling that needs no database.
func LoadSupabase() (*SupabaseConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := supabaseFromEnv()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func supabaseFromEnv() (SupabaseConfig, error) {
	var cfg SupabaseConfig

	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	cfg.URL = strings.TrimRight(supabaseURL, "/")

	anonKey := os.Getenv("SUPABASE_ANON_KEY")
	if anonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	cfg.AnonKey = anonKey

	// Service role key is only needed for user administration
	cfg.ServiceRoleKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	// Without a JWT secret bearer tokens are validated remotely
	cfg.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")

	timeout, err := durationFromEnv("SUPABASE_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RequestTimeout = timeout

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	if c.Database.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// parseOrigins parses a comma-separated origin list, defaulting to all origins
func parseOrigins(value string) []string {
	if value == "" {
		// Default to allow all origins if not specified (for development)
		return []string{"*"}
	}

	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, origin := range parts {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}
