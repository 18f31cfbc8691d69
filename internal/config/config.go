package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream source APIs.
	NOAAToken    string
	NOAABaseURL  string
	NOAATimeout  time.Duration
	NOAAPageSize int
	EIAAPIKey    string
	EIABaseURL   string
	EIATimeout   time.Duration
	EIAPageSize  int

	// Ingestion window start; the end is always "today".
	StartDate time.Time

	// Kafka sink configuration (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present
// (local development only; deployments set real environment variables).
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	noaaTimeout, err := parseDurationEnv("NOAA_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	eiaTimeout, err := parseDurationEnv("EIA_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	noaaPageSize, err := parseIntEnv("NOAA_PAGE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	eiaPageSize, err := parseIntEnv("EIA_PAGE_SIZE", 5000)
	if err != nil {
		return nil, err
	}

	startDate, err := parseDateEnv("START_DATE", "2020-01-01")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NOAAToken:    os.Getenv("NOAA_TOKEN"),
		NOAABaseURL:  envOrDefault("NOAA_BASE_URL", "https://www.ncei.noaa.gov/cdo-web/api/v2"),
		NOAATimeout:  noaaTimeout,
		NOAAPageSize: noaaPageSize,
		EIAAPIKey:    os.Getenv("EIA_API_KEY"),
		EIABaseURL:   envOrDefault("EIA_BASE_URL", "https://api.eia.gov/v2"),
		EIATimeout:   eiaTimeout,
		EIAPageSize:  eiaPageSize,

		StartDate: startDate,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "weather-energy-correlation"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseDateEnv(key, fallback string) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		s = fallback
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
