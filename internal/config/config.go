// Package config loads application configuration from file and environment.
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
	Annex     AnnexConfig     `yaml:"annex" mapstructure:"annex"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Insights  InsightsConfig  `yaml:"insights" mapstructure:"insights"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnnexConfig locates the controlled vocabulary workbook.
type AnnexConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the term resolution cache document.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DatasetConfig configures cleaned dataset reading.
type DatasetConfig struct {
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// AnthropicConfig holds Anthropic API settings for assisted selection.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// InsightsConfig holds analysis defaults.
type InsightsConfig struct {
	Grain            string  `yaml:"grain" mapstructure:"grain"`
	ThresholdK       float64 `yaml:"threshold_k" mapstructure:"threshold_k"`
	TopManufacturers int     `yaml:"top_manufacturers" mapstructure:"top_manufacturers"`
}

// StoreConfig configures the run bookkeeping database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("MAUDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("annex.path", "annex.xlsx")
	v.SetDefault("cache.path", "cache/device_problem_to_imdrf_cache.json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.requests_per_sec", 2.0)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("insights.grain", "week")
	v.SetDefault("insights.threshold_k", 2.0)
	v.SetDefault("insights.top_manufacturers", 5)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "maude.db")
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
