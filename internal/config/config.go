package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides (ROWFLOW_LOG_LEVEL, ROWFLOW_PORT, ...).
const EnvPrefix = "ROWFLOW"

// Config holds the settings shared by the CLI commands.
type Config struct {
	LogLevel string   `mapstructure:"log_level"`
	NoAnswer []string `mapstructure:"no_answer"`
	AutoFill bool     `mapstructure:"auto_fill"`
	Output   string   `mapstructure:"output"`
	Mode     string   `mapstructure:"mode"`

	Port      int           `mapstructure:"port"`
	RedisAddr string        `mapstructure:"redis_addr"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`

	// StoreDir is where tracked results live when no Redis address is set.
	StoreDir      string   `mapstructure:"store_dir"`
	EncryptionKey string   `mapstructure:"encryption_key"`
	Redact        []string `mapstructure:"redact"`
}

// New returns a viper instance with defaults and environment binding in place.
// Commands bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("no_answer", []string{"-9", "-1"})
	v.SetDefault("auto_fill", false)
	v.SetDefault("output", "text")
	v.SetDefault("mode", "both")
	v.SetDefault("port", 8080)
	v.SetDefault("redis_addr", "")
	v.SetDefault("result_ttl", 24*time.Hour)
	v.SetDefault("store_dir", ".rowflow/results")
	v.SetDefault("encryption_key", "")
	v.SetDefault("redact", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) and decodes the merged settings.
// Without an explicit path it looks for rowflow.yaml in the working directory
// and silently continues when there is none.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rowflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// NoAnswerValues converts the configured sentinels, keeping numbers numeric.
func (c *Config) NoAnswerValues() []any {
	values := make([]any, 0, len(c.NoAnswer))
	for _, s := range c.NoAnswer {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if n, err := cast.ToFloat64E(s); err == nil {
			values = append(values, n)
			continue
		}
		values = append(values, s)
	}
	return values
}
