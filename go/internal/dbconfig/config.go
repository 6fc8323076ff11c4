package dbconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the results journal's Postgres connection settings.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewConfigFromEnv reads JOURNAL_ENABLED and DB_* environment variables (with defaults).
// JOURNAL_DSN, when set, replaces the individual DB_* settings.
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	enabled, err := strconv.ParseBool(getEnv("JOURNAL_ENABLED", "false"))
	if err != nil {
		enabled = false
	}

	return Config{
		Enabled:  enabled,
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "hideandseek"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// DSN returns the Postgres connection URL.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(os.Getenv("JOURNAL_DSN")); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
