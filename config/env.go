package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	defaultRemoteURL = "https://ytdlp.online"
	defaultTimeout   = 300
	defaultPort      = 8000
)

// Config holds process-wide settings. It is read once at startup and never mutated.
type Config struct {
	// Remote service
	RemoteURL       string `mapstructure:"YTDLP_ONLINE_URL" validate:"required,url"`
	DownloadBaseURL string `mapstructure:"DOWNLOAD_BASE_URL" validate:"omitempty,url"`
	DownloadTimeout int    `mapstructure:"DOWNLOAD_TIMEOUT" validate:"gt=0"`

	// API
	APITitle    string `mapstructure:"API_TITLE"`
	APIVersion  string `mapstructure:"API_VERSION"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Server
	Host    string `mapstructure:"HOST"`
	Port    int    `mapstructure:"SERVER_PORT" validate:"gt=0,lt=65536"`
	GinMode string `mapstructure:"GIN_MODE"`

	// Logging
	LogLevel      string `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warning warn error critical DEBUG INFO WARNING WARN ERROR CRITICAL"`
	EnableLogFile bool   `mapstructure:"ENABLE_LOG_FILE"`
	LogFile       string `mapstructure:"LOG_FILE"`

	// Error reporting
	SentryDSN string `mapstructure:"SENTRY_DSN"`
}

var keys = []string{
	"YTDLP_ONLINE_URL", "DOWNLOAD_BASE_URL", "DOWNLOAD_TIMEOUT",
	"API_TITLE", "API_VERSION", "CORS_ORIGINS",
	"HOST", "SERVER_PORT", "GIN_MODE",
	"LOG_LEVEL", "ENABLE_LOG_FILE", "LOG_FILE",
	"SENTRY_DSN",
}

// Load reads .env (if present) and the environment into a validated Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	v := viper.New()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	v.SetDefault("YTDLP_ONLINE_URL", defaultRemoteURL)
	v.SetDefault("DOWNLOAD_TIMEOUT", defaultTimeout)
	v.SetDefault("API_TITLE", "ytdlp.online API Wrapper")
	v.SetDefault("API_VERSION", "1.0.0")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FILE", "logs/app.log")

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// RemoteBase returns the remote service base URL without a trailing slash
func (c *Config) RemoteBase() string {
	return strings.TrimRight(c.RemoteURL, "/")
}

// EffectiveDownloadBaseURL returns the public download base, falling back to the remote base
func (c *Config) EffectiveDownloadBaseURL() string {
	if c.DownloadBaseURL != "" {
		return strings.TrimRight(c.DownloadBaseURL, "/")
	}
	return c.RemoteBase()
}

// CORSOriginList splits CORS_ORIGINS on commas
func (c *Config) CORSOriginList() []string {
	if strings.TrimSpace(c.CORSOrigins) == "*" || c.CORSOrigins == "" {
		return []string{"*"}
	}

	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
