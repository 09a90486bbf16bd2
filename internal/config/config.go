// Package config loads and validates relay configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Notify providers.
const (
	NotifyNone   = "none"
	NotifyMemory = "memory"
	NotifyPubSub = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Upload      UploadConfig   `mapstructure:"upload"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Reddit      RedditConfig   `mapstructure:"reddit"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Notify      NotifyConfig   `mapstructure:"notify"`
	RateLimit   RateLimit      `mapstructure:"ratelimit"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"`
	StaticDir              string `mapstructure:"static_dir"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// HTTPConfig bounds outbound platform calls.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// UploadConfig limits the accepted media size.
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	BaseURL  string `mapstructure:"base_url"`
}

// RedditConfig holds script-app credentials and endpoints.
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Subreddit    string `mapstructure:"subreddit"`
	AuthBaseURL  string `mapstructure:"auth_base_url"`
	APIBaseURL   string `mapstructure:"api_base_url"`
	UserAgent    string `mapstructure:"user_agent"`
	PostText     string `mapstructure:"post_text"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// NotifyConfig selects where submission events go.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// RateLimit throttles publishes per platform. RPS 0 disables it.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// TracingConfig enables OpenTelemetry spans for requests and publishes.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// legacyEnv maps config keys to the unprefixed variable names deployments already use.
var legacyEnv = map[string]string{
	"environment":          "NODE_ENV",
	"server.port":          "PORT",
	"telegram.bot_token":   "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":     "TELEGRAM_CHAT_ID",
	"reddit.client_id":     "REDDIT_CLIENT_ID",
	"reddit.client_secret": "REDDIT_CLIENT_SECRET",
	"reddit.username":      "REDDIT_USERNAME",
	"reddit.password":      "REDDIT_PASSWORD",
	"reddit.subreddit":     "REDDIT_SUBREDDIT",
	"notify.project_id":    "GOOGLE_CLOUD_PROJECT",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if !v.IsSet("logging.development") {
		cfg.Logging.Development = !cfg.IsProduction()
	}
	cfg.Notify.Provider = strings.ToLower(strings.TrimSpace(cfg.Notify.Provider))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.username", "")
	v.SetDefault("reddit.password", "")
	v.SetDefault("reddit.subreddit", "")
	v.SetDefault("reddit.auth_base_url", "https://www.reddit.com")
	v.SetDefault("reddit.api_base_url", "https://oauth.reddit.com")
	v.SetDefault("reddit.user_agent", "ease-of-business-script/1.0")
	v.SetDefault("reddit.post_text", "Posted via Ease of Business 🚀")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("notify.provider", NotifyNone)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic_name", "")
	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "socialrelay")
}

// bindLegacyEnv lets the legacy name populate a key. AutomaticEnv is consulted
// first, so RELAY_<KEY> wins when both are present.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst must be > 0 when ratelimit.rps is set")
	}
	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.ServiceName) == "" {
		return fmt.Errorf("tracing.service_name is required when tracing is enabled")
	}
	switch c.Notify.Provider {
	case "", NotifyNone, NotifyMemory:
	case NotifyPubSub:
		if c.Notify.ProjectID == "" || c.Notify.TopicName == "" {
			return fmt.Errorf("notify.project_id and notify.topic_name must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("notify.provider must be one of none, memory, pubsub (got %q)", c.Notify.Provider)
	}
	return nil
}

// IsProduction reports whether the service runs with NODE_ENV/RELAY_ENVIRONMENT=production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// RequestTimeout bounds each outbound platform call.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP drain.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
