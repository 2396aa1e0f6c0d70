package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ClientConfig holds configuration values loaded from flags, env, or config file.
type ClientConfig struct {
	StateStreamURL string
	BufferSize     uint
	LogLevel       string
}

// Validate checks that required fields are set.
func (c *ClientConfig) Validate() error {
	if c.StateStreamURL == "" {
		return errors.New("url is required")
	}
	if c.BufferSize < 1 {
		return errors.New("buffer-size must be greater than 0")
	}
	return nil
}

// Load merges config file, environment variables, and flags into ClientConfig.
// Precedence: flags > environment > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*ClientConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("LEDGER_CLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("buffer-size", uint(100))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &ClientConfig{
		StateStreamURL: v.GetString("url"),
		BufferSize:     v.GetUint("buffer-size"),
		LogLevel:       v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
