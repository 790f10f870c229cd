package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	HubSpot  HubSpotConfig  `yaml:"hubspot" mapstructure:"hubspot"`
	Airtable AirtableConfig `yaml:"airtable" mapstructure:"airtable"`
	Match    MatchConfig    `yaml:"match" mapstructure:"match"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// HubSpotConfig holds HubSpot CRM API settings.
type HubSpotConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// AirtableConfig holds the optional AlohaCamp property directory settings.
// Directory checking is skipped entirely when Token or BaseID is empty.
type AirtableConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseID  string `yaml:"base_id" mapstructure:"base_id"`
	Table   string `yaml:"table" mapstructure:"table"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// MatchConfig points at the optional threshold override file.
type MatchConfig struct {
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Limit            int `yaml:"limit" mapstructure:"limit"`
	MaxConcurrent    int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	PaceMilliseconds int `yaml:"pace_ms" mapstructure:"pace_ms"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can bind them.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("hubspot.token", "")
	v.SetDefault("airtable.token", "")
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("match.config_path", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.timeout_secs", 15)
	v.SetDefault("hubspot.rate_limit_rps", 4)
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.table", "Properties v2")
	v.SetDefault("batch.limit", 100)
	v.SetDefault("batch.max_concurrent", 1)
	v.SetDefault("batch.pace_ms", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
