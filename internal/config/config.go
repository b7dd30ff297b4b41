package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	LocationSourcePush = "push"
	LocationSourceHTTP = "http"
)

type Config struct {
	Port          string        `yaml:"port"`
	DBPath        string        `yaml:"dbPath"`
	JWTSecret     string        `yaml:"jwtSecret"`
	TokenTTL      time.Duration `yaml:"tokenTTL"`
	APIPassphrase string        `yaml:"apiPassphrase"`
	CORSOrigins   []string      `yaml:"corsOrigins"`
	MigrationsDir string        `yaml:"migrationsDir"`
	LogLevel      string        `yaml:"logLevel"`
	Timezone      string        `yaml:"timezone"`

	LocationSource string        `yaml:"locationSource"`
	LocationURL    string        `yaml:"locationURL"`
	SampleTimeout  time.Duration `yaml:"sampleTimeout"`
	SettingsFile   string        `yaml:"settingsFile"`

	GeminiAPIKey         string `yaml:"geminiAPIKey"`
	GeminiModel          string `yaml:"geminiModel"`
	InsightRatePerMinute int    `yaml:"insightRatePerMinute"`
}

func defaults() Config {
	return Config{
		Port:                 "8080",
		DBPath:               "./data/worklog.db",
		JWTSecret:            "change-this-secret",
		TokenTTL:             72 * time.Hour,
		APIPassphrase:        "change-this-passphrase",
		CORSOrigins:          []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		MigrationsDir:        "./migrations",
		LogLevel:             "info",
		Timezone:             "Local",
		LocationSource:       LocationSourcePush,
		SampleTimeout:        20 * time.Second,
		GeminiModel:          "gemini-3-flash-preview",
		InsightRatePerMinute: 6,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (or path, when given), then environment variables.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = time.Duration(getEnvInt("TOKEN_TTL_HOURS", int(cfg.TokenTTL/time.Hour))) * time.Hour
	cfg.APIPassphrase = getEnv("API_PASSPHRASE", cfg.APIPassphrase)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.LocationSource = strings.ToLower(getEnv("LOCATION_SOURCE", cfg.LocationSource))
	cfg.LocationURL = getEnv("LOCATION_URL", cfg.LocationURL)
	cfg.SampleTimeout = getEnvDuration("SAMPLE_TIMEOUT", cfg.SampleTimeout)
	cfg.SettingsFile = getEnv("SETTINGS_FILE", cfg.SettingsFile)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.InsightRatePerMinute = getEnvInt("INSIGHT_RATE_PER_MINUTE", cfg.InsightRatePerMinute)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone for calendar-day reporting.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c Config) validate() error {
	switch c.LocationSource {
	case LocationSourcePush:
	case LocationSourceHTTP:
		if c.LocationURL == "" {
			return fmt.Errorf("LOCATION_URL is required when LOCATION_SOURCE is %q", LocationSourceHTTP)
		}
	default:
		return fmt.Errorf("unknown LOCATION_SOURCE %q", c.LocationSource)
	}
	if c.SampleTimeout <= 0 {
		return fmt.Errorf("SAMPLE_TIMEOUT must be positive")
	}
	if c.InsightRatePerMinute <= 0 {
		return fmt.Errorf("INSIGHT_RATE_PER_MINUTE must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
