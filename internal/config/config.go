package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Watchlist     WatchlistConfig     `mapstructure:"watchlist"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// ServerConfig contains the health/metrics HTTP server settings
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LLMConfig contains LLM gateway settings
type LLMConfig struct {
	Endpoint       string  `mapstructure:"endpoint"` // chat-completions URL
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Timeout        int     `mapstructure:"timeout"`         // ms, synthesis hard deadline
	ExtractTimeout int     `mapstructure:"extract_timeout"` // ms, entity-extraction calls
}

// ProvidersConfig groups upstream market-data and news providers
type ProvidersConfig struct {
	CoinGecko    ProviderConfig `mapstructure:"coingecko"`
	AlphaVantage ProviderConfig `mapstructure:"alphavantage"`
	CryptoPanic  ProviderConfig `mapstructure:"cryptopanic"`
	NewsAPI      ProviderConfig `mapstructure:"newsapi"`
}

// ProviderConfig contains settings for a single upstream provider
type ProviderConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	TimeoutMS         int    `mapstructure:"timeout_ms"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// NotificationsConfig contains notification dispatch settings
type NotificationsConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	ImpactThreshold float64 `mapstructure:"impact_threshold"`
	CooldownSeconds int     `mapstructure:"cooldown_seconds"`
	WebhookURL      string  `mapstructure:"webhook_url"`
	WebhookToken    string  `mapstructure:"webhook_token"`
}

// WatchlistConfig contains the background re-analysis settings
type WatchlistConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Subjects     []string `mapstructure:"subjects"`
	PollInterval int      `mapstructure:"poll_interval"` // minutes
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("MARKETMIND")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "MarketMind")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.enable_metrics", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// LLM defaults
	v.SetDefault("llm.endpoint", "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 25000)
	v.SetDefault("llm.extract_timeout", 5000)

	// Provider defaults
	v.SetDefault("providers.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("providers.coingecko.timeout_ms", 10000)
	v.SetDefault("providers.coingecko.requests_per_minute", 30)

	v.SetDefault("providers.alphavantage.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("providers.alphavantage.timeout_ms", 10000)
	v.SetDefault("providers.alphavantage.requests_per_minute", 5)

	v.SetDefault("providers.cryptopanic.base_url", "https://cryptopanic.com/api/v1/posts/")
	v.SetDefault("providers.cryptopanic.timeout_ms", 10000)
	v.SetDefault("providers.cryptopanic.requests_per_minute", 30)

	v.SetDefault("providers.newsapi.base_url", "https://newsapi.org/v2/everything")
	v.SetDefault("providers.newsapi.timeout_ms", 10000)
	v.SetDefault("providers.newsapi.requests_per_minute", 30)

	// Notification defaults
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.impact_threshold", 0.5)
	v.SetDefault("notifications.cooldown_seconds", 900)

	// Watchlist defaults
	v.SetDefault("watchlist.enabled", false)
	v.SetDefault("watchlist.subjects", []string{"BTC", "ETH", "EUR/USD"})
	v.SetDefault("watchlist.poll_interval", 15)
}

// Validate checks configuration invariants that would otherwise surface
// as confusing runtime failures
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %d", c.LLM.Timeout)
	}
	if c.Notifications.ImpactThreshold < 0 || c.Notifications.ImpactThreshold > 1 {
		return fmt.Errorf("notification impact threshold must be in [0,1], got %f", c.Notifications.ImpactThreshold)
	}
	if c.Notifications.CooldownSeconds < 0 {
		return fmt.Errorf("notification cooldown must be non-negative, got %d", c.Notifications.CooldownSeconds)
	}
	if c.Watchlist.Enabled && c.Watchlist.PollInterval <= 0 {
		return fmt.Errorf("watchlist poll interval must be positive, got %d", c.Watchlist.PollInterval)
	}
	return nil
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr returns the HTTP server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SynthesisTimeout returns the LLM synthesis deadline as a duration
func (c *LLMConfig) SynthesisTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ExtractionTimeout returns the entity-extraction deadline as a duration
func (c *LLMConfig) ExtractionTimeout() time.Duration {
	return time.Duration(c.ExtractTimeout) * time.Millisecond
}

// Timeout returns the provider request timeout as a duration
func (c *ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Cooldown returns the per-subject notification cooldown as a duration
func (c *NotificationsConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Interval returns the watchlist poll interval as a duration
func (c *WatchlistConfig) Interval() time.Duration {
	return time.Duration(c.PollInterval) * time.Minute
}
