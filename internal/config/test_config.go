package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration for integration tests from TEST_* variables.
// Missing database variables leave the database section empty so tests can use their fallback DSN.
// Session tunables are shortened so lifecycle tests finish quickly.
func LoadTestConfig() (*Config, error) {
	// .env is optional for tests
	_ = godotenv.Load("./../../configs/.env")
	_ = godotenv.Load()

	cfg := &Config{
		Session: SessionConfig{
			Timeout:         500 * time.Millisecond,
			MaxRetries:      1,
			PollInterval:    time.Hour,
			RefreshInterval: time.Hour,
			MaxErrorCount:   5,
			ProfileMaxAge:   30 * time.Second,
			VisitorTTL:      time.Hour,
			AnonymousTTL:    time.Hour,
			MaxVisitors:     100,
		},
		Media: MediaConfig{
			BasePath: os.TempDir(),
			BaseURL:  "/media",
		},
		Supabase: SupabaseConfig{
			AnonKey:        "test-anon-key",
			ServiceRoleKey: "test-service-key",
			RequestTimeout: 5 * time.Second,
		},
	}

	dbHost := os.Getenv("TEST_DB_HOST")
	dbPortStr := os.Getenv("TEST_DB_PORT")
	dbUser := os.Getenv("TEST_DB_USER")
	dbPassword := os.Getenv("TEST_DB_PASSWORD")
	dbName := os.Getenv("TEST_DB_NAME")
	if dbHost == "" || dbPortStr == "" || dbUser == "" || dbPassword == "" || dbName == "" {
		// Return config without database to allow fallback DSN in tests
		return cfg, nil
	}

	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}

	cfg.Database = DatabaseConfig{
		Host:     dbHost,
		Port:     dbPort,
		User:     dbUser,
		Password: dbPassword,
		DBName:   dbName,
	}

	return cfg, nil
}
