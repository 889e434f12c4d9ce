package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/polarityio/pulsedive/internal/entity"
)

// LevelTrace sits below debug and carries raw provider responses
const LevelTrace = slog.Level(-8)

type Config struct {
	App       AppConfig
	Pulsedive PulsediveConfig
	Request   RequestConfig
}

type AppConfig struct {
	Env      string
	Port     int
	Host     string
	LogLevel string
}

// PulsediveConfig holds the integration options used when a caller does not
// supply its own.
type PulsediveConfig struct {
	APIKey               string
	BaseURL              string
	RiskLevelDisplay     string
	ShowUnknownRisk      bool
	Blocklist            string
	DomainBlocklistRegex string
	IPBlocklistRegex     string
	RateLimit            int
}

// RequestConfig is resolved once at startup into the shared HTTP client
type RequestConfig struct {
	Cert               string
	Key                string
	Passphrase         string
	CA                 string
	Proxy              string
	RejectUnauthorized bool
	Timeout            time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/etc/pulselookup")

	// Environment variables
	viper.AutomaticEnv()

	bindEnvVars()
	setDefaults()

	// Try to read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("Error reading config file", "error", err)
		}
	}

	config := &Config{
		App: AppConfig{
			Env:      viper.GetString("APP_ENV"),
			Port:     viper.GetInt("APP_PORT"),
			Host:     viper.GetString("APP_HOST"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Pulsedive: PulsediveConfig{
			APIKey:               viper.GetString("PULSEDIVE_API_KEY"),
			BaseURL:              viper.GetString("PULSEDIVE_BASE_URL"),
			RiskLevelDisplay:     viper.GetString("PULSEDIVE_RISK_LEVEL_DISPLAY"),
			ShowUnknownRisk:      viper.GetBool("PULSEDIVE_SHOW_UNKNOWN_RISK"),
			Blocklist:            viper.GetString("PULSEDIVE_BLOCKLIST"),
			DomainBlocklistRegex: viper.GetString("PULSEDIVE_DOMAIN_BLOCKLIST_REGEX"),
			IPBlocklistRegex:     viper.GetString("PULSEDIVE_IP_BLOCKLIST_REGEX"),
			RateLimit:            viper.GetInt("PULSEDIVE_RATE_LIMIT"),
		},
		Request: RequestConfig{
			Cert:               viper.GetString("PULSEDIVE_REQUEST_CERT"),
			Key:                viper.GetString("PULSEDIVE_REQUEST_KEY"),
			Passphrase:         viper.GetString("PULSEDIVE_REQUEST_PASSPHRASE"),
			CA:                 viper.GetString("PULSEDIVE_REQUEST_CA"),
			Proxy:              viper.GetString("PULSEDIVE_REQUEST_PROXY"),
			RejectUnauthorized: viper.GetBool("PULSEDIVE_REJECT_UNAUTHORIZED"),
			Timeout:            viper.GetDuration("PULSEDIVE_TIMEOUT"),
		},
	}

	return config, nil
}

func bindEnvVars() {
	// App
	viper.BindEnv("APP_ENV")
	viper.BindEnv("APP_PORT")
	viper.BindEnv("APP_HOST")
	viper.BindEnv("LOG_LEVEL")

	// Pulsedive options
	viper.BindEnv("PULSEDIVE_API_KEY")
	viper.BindEnv("PULSEDIVE_BASE_URL")
	viper.BindEnv("PULSEDIVE_RISK_LEVEL_DISPLAY")
	viper.BindEnv("PULSEDIVE_SHOW_UNKNOWN_RISK")
	viper.BindEnv("PULSEDIVE_BLOCKLIST")
	viper.BindEnv("PULSEDIVE_DOMAIN_BLOCKLIST_REGEX")
	viper.BindEnv("PULSEDIVE_IP_BLOCKLIST_REGEX")
	viper.BindEnv("PULSEDIVE_RATE_LIMIT")

	// Transport
	viper.BindEnv("PULSEDIVE_REQUEST_CERT")
	viper.BindEnv("PULSEDIVE_REQUEST_KEY")
	viper.BindEnv("PULSEDIVE_REQUEST_PASSPHRASE")
	viper.BindEnv("PULSEDIVE_REQUEST_CA")
	viper.BindEnv("PULSEDIVE_REQUEST_PROXY")
	viper.BindEnv("PULSEDIVE_REJECT_UNAUTHORIZED")
	viper.BindEnv("PULSEDIVE_TIMEOUT")
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_HOST", "0.0.0.0")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("PULSEDIVE_BASE_URL", "https://pulsedive.com/api")
	viper.SetDefault("PULSEDIVE_RISK_LEVEL_DISPLAY", "medium")
	viper.SetDefault("PULSEDIVE_SHOW_UNKNOWN_RISK", false)
	viper.SetDefault("PULSEDIVE_RATE_LIMIT", 0)

	viper.SetDefault("PULSEDIVE_REJECT_UNAUTHORIZED", true)
	viper.SetDefault("PULSEDIVE_TIMEOUT", time.Duration(0))
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// LookupOptions returns the configured integration options
func (c *Config) LookupOptions() entity.LookupOptions {
	return entity.LookupOptions{
		APIKey:               c.Pulsedive.APIKey,
		RiskLevelDisplay:     entity.RiskSelection{Value: c.Pulsedive.RiskLevelDisplay},
		ShowUnknownRisk:      c.Pulsedive.ShowUnknownRisk,
		Blocklist:            c.Pulsedive.Blocklist,
		DomainBlocklistRegex: c.Pulsedive.DomainBlocklistRegex,
		IPBlocklistRegex:     c.Pulsedive.IPBlocklistRegex,
	}
}

// ParseLevel maps a LOG_LEVEL value to a slog level; unknown values mean info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func SetupLogger(cfg *Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.App.LogLevel),
		ReplaceAttr: replaceLevel,
	}

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// NewTextLogger builds a text logger for command line tools that keep
// stdout for their own output
func NewTextLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: replaceLevel,
	}))
}

// replaceLevel names the custom trace level in handler output
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
