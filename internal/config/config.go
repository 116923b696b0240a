package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port            int           `yaml:"port"`
	Env             string        `yaml:"env"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxSourceBytes  int64         `yaml:"max_source_bytes"`

	// CORS
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Database URLs, all optional; a source URI may only use a configured backend
	PostgresURL   string `yaml:"postgres_url"`
	ClickHouseURL string `yaml:"clickhouse_url"`
	MySQLDSN      string `yaml:"mysql_dsn"`
	RedisURL      string `yaml:"redis_url"`

	// Worker pool
	WorkerCount int           `yaml:"worker_count"`
	QueueSize   int           `yaml:"queue_size"`
	JobTimeout  time.Duration `yaml:"job_timeout"`

	// Forecasting
	ForecastWindow int    `yaml:"forecast_window"`
	ForecastSource string `yaml:"forecast_source"`
	ForecastModel  string `yaml:"forecast_model"`
	FeatureInput   string `yaml:"feature_input"`
	TFLiteThreads  int    `yaml:"tflite_threads"`

	// Classification
	ClassifierModel      string `yaml:"classifier_model"`
	ClassifierVocabulary string `yaml:"classifier_vocabulary"`

	// Outbound fetches
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Error reporting
	SentryDSN string `yaml:"sentry_dsn"`
}

// Defaults returns the configuration used when neither file nor env set a value
func Defaults() *Config {
	return &Config{
		Port:            8080,
		Env:             "development",
		ShutdownTimeout: 15 * time.Second,
		MaxSourceBytes:  8 << 20,
		AllowedOrigins:  []string{"http://localhost:3000"},

		WorkerCount: 1,
		QueueSize:   16,
		JobTimeout:  30 * time.Second,

		ForecastWindow: 3,
		FeatureInput:   "features",
		TFLiteThreads:  1,

		FetchTimeout: 10 * time.Second,
	}
}

// Load loads configuration from an optional YAML file named by CONFIG_PATH,
// then applies environment variable overrides.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MaxSourceBytes = int64(getEnvInt("MAX_SOURCE_BYTES", int(cfg.MaxSourceBytes)))

	cfg.PostgresURL = getEnv("POSTGRES_URL", cfg.PostgresURL)
	cfg.ClickHouseURL = getEnv("CLICKHOUSE_URL", cfg.ClickHouseURL)
	cfg.MySQLDSN = getEnv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)

	cfg.WorkerCount = getEnvInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.QueueSize = getEnvInt("QUEUE_SIZE", cfg.QueueSize)
	cfg.JobTimeout = getEnvDuration("JOB_TIMEOUT", cfg.JobTimeout)

	cfg.ForecastWindow = getEnvInt("FORECAST_WINDOW", cfg.ForecastWindow)
	cfg.ForecastSource = getEnv("FORECAST_SOURCE", cfg.ForecastSource)
	cfg.ForecastModel = getEnv("FORECAST_MODEL", cfg.ForecastModel)
	cfg.FeatureInput = getEnv("FEATURE_INPUT", cfg.FeatureInput)
	cfg.TFLiteThreads = getEnvInt("TFLITE_THREADS", cfg.TFLiteThreads)

	cfg.ClassifierModel = getEnv("CLASSIFIER_MODEL", cfg.ClassifierModel)
	cfg.ClassifierVocabulary = getEnv("CLASSIFIER_VOCABULARY", cfg.ClassifierVocabulary)

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.SentryDSN = getEnv("SENTRY_DSN", cfg.SentryDSN)

	// CORS
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxSourceBytes <= 0 {
		return fmt.Errorf("max source bytes must be positive, got %d", c.MaxSourceBytes)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	// A window below one is treated as one
	if c.ForecastWindow < 1 {
		c.ForecastWindow = 1
	}
	if (c.ClassifierModel == "") != (c.ClassifierVocabulary == "") {
		return fmt.Errorf("classifier model and vocabulary must be configured together")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
