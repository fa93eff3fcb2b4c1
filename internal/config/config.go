package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Env       string `mapstructure:"APP_ENV"`
	Port      string `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTExpirationHours is the lifetime of access tokens
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	CORSOrigin         string `mapstructure:"CORS_ORIGIN"`
	RedisURL           string `mapstructure:"REDIS_URL"`
	Timezone           string `mapstructure:"TIMEZONE"`

	Database DatabaseConfig `mapstructure:",squash"`
	Alerts   AlertsConfig   `mapstructure:",squash"`
	Gemini   GeminiConfig   `mapstructure:",squash"`

	EditWindow time.Duration `mapstructure:"EDIT_WINDOW"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"PG_HOST"`
	Port     string `mapstructure:"PG_PORT"`
	Username string `mapstructure:"PG_USERNAME"`
	Password string `mapstructure:"PG_PASSWORD"`
	Database string `mapstructure:"PG_DATABASE"`
	Silent   bool   `mapstructure:"DB_SILENT"`
}

// AlertsConfig controls the periodic alert rule engine
type AlertsConfig struct {
	Interval            time.Duration `mapstructure:"ALERT_INTERVAL"`
	LowYieldThresholdKg float64       `mapstructure:"LOW_YIELD_THRESHOLD_KG"`
}

// GeminiConfig enables alert description enrichment when APIKey is set
type GeminiConfig struct {
	APIKey  string        `mapstructure:"GEMINI_API_KEY"`
	Model   string        `mapstructure:"GEMINI_MODEL"`
	Timeout time.Duration `mapstructure:"GEMINI_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"APP_ENV":                "development",
	"PORT":                   "3000",
	"LOG_LEVEL":              "info",
	"JWT_SECRET":             "",
	"JWT_EXPIRATION_HOURS":   8,
	"CORS_ORIGIN":            "http://localhost:3000",
	"REDIS_URL":              "",
	"TIMEZONE":               "Local",
	"PG_HOST":                "localhost",
	"PG_PORT":                "5432",
	"PG_USERNAME":            "postgres",
	"PG_PASSWORD":            "",
	"PG_DATABASE":            "agrocampo",
	"DB_SILENT":              false,
	"ALERT_INTERVAL":         "5m",
	"LOW_YIELD_THRESHOLD_KG": 50.0,
	"GEMINI_API_KEY":         "",
	"GEMINI_MODEL":           "gemini-1.5-flash",
	"GEMINI_TIMEOUT":         "5s",
	"EDIT_WINDOW":            "2h",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EditWindow <= 0 {
		return nil, fmt.Errorf("EDIT_WINDOW must be positive, got %s", cfg.EditWindow)
	}
	if cfg.Alerts.Interval <= 0 {
		return nil, fmt.Errorf("ALERT_INTERVAL must be positive, got %s", cfg.Alerts.Interval)
	}

	return cfg, nil
}

// Location resolves the configured timezone used to compute calendar days
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
