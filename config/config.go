package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration (optional audit trail)
	Database DatabaseConfig

	// External service configurations
	Alpaca  AlpacaConfig
	Bedrock BedrockConfig

	// Pipeline configuration
	Cache    CacheConfig
	Breaker  BreakerConfig
	Retry    RetryConfig
	Analysis AnalysisConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region    string
	ModelID   string
	MaxTokens int
}

// CacheConfig holds TTL cache configuration
type CacheConfig struct {
	SweepInterval time.Duration
	CurrentTTL    time.Duration
	HistoryTTL    time.Duration
	ValidationTTL time.Duration
}

// BreakerConfig holds the data provider circuit breaker configuration
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// RetryConfig holds provider retry configuration
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// AnalysisConfig holds analysis pipeline configuration
type AnalysisConfig struct {
	TimeoutSeconds   int
	HistoryMonths    int
	ConcurrencyLimit int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		Bedrock: BedrockConfig{
			Region:    os.Getenv("AWS_REGION"),
			ModelID:   os.Getenv("BEDROCK_MODEL_ID"),
			MaxTokens: getEnvInt("BEDROCK_MAX_TOKENS", 4096),
		},
		Cache: CacheConfig{
			SweepInterval: getEnvSeconds("CACHE_SWEEP_INTERVAL_SECONDS", 60),
			CurrentTTL:    getEnvSeconds("CACHE_CURRENT_TTL_SECONDS", 300),
			HistoryTTL:    getEnvSeconds("CACHE_HISTORY_TTL_SECONDS", 3600),
			ValidationTTL: getEnvSeconds("CACHE_VALIDATION_TTL_SECONDS", 86400),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:  getEnvSeconds("BREAKER_RECOVERY_TIMEOUT_SECONDS", 60),
		},
		Retry: RetryConfig{
			MaxAttempts:    getEnvInt("PROVIDER_RETRY_MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvSeconds("PROVIDER_RETRY_INITIAL_BACKOFF_SECONDS", 1),
			MaxBackoff:     getEnvSeconds("PROVIDER_RETRY_MAX_BACKOFF_SECONDS", 30),
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds:   getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 60),
			HistoryMonths:    getEnvInt("ANALYSIS_HISTORY_MONTHS", 6),
			ConcurrencyLimit: getEnvInt("ANALYSIS_CONCURRENCY_LIMIT", 10),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		return fmt.Errorf("BREAKER_RECOVERY_TIMEOUT_SECONDS must be positive, got %s", c.Breaker.RecoveryTimeout)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("PROVIDER_RETRY_MAX_ATTEMPTS must be positive, got %d", c.Retry.MaxAttempts)
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT_SECONDS must be positive, got %d", c.Analysis.TimeoutSeconds)
	}
	if c.Analysis.HistoryMonths <= 0 {
		return fmt.Errorf("ANALYSIS_HISTORY_MONTHS must be positive, got %d", c.Analysis.HistoryMonths)
	}
	if c.Analysis.ConcurrencyLimit <= 0 {
		return fmt.Errorf("ANALYSIS_CONCURRENCY_LIMIT must be positive, got %d", c.Analysis.ConcurrencyLimit)
	}
	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasBedrock returns true if Bedrock configuration is available
func (c *Config) HasBedrock() bool {
	return c.Bedrock.Region != "" && c.Bedrock.ModelID != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Alpaca: AlpacaConfig{
			BaseURL: "https://paper-api.alpaca.markets",
		},
		Bedrock: BedrockConfig{
			MaxTokens: 4096,
		},
		Cache: CacheConfig{
			SweepInterval: 60 * time.Second,
			CurrentTTL:    5 * time.Minute,
			HistoryTTL:    time.Hour,
			ValidationTTL: 24 * time.Hour,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  60 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds:   60,
			HistoryMonths:    6,
			ConcurrencyLimit: 10,
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
		},
	}
}
