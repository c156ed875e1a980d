package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs for the relay and CLI.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Notify struct {
		Endpoint        string        `mapstructure:"endpoint"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
		BroadcastLimit  int           `mapstructure:"broadcast_limit"`
		MaxUploadBytes  int           `mapstructure:"max_upload_bytes"`
		RevokeOnInvalid bool          `mapstructure:"revoke_on_invalid"`
	} `mapstructure:"notify"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Crypto struct {
		// SecretKey encrypts stored access tokens; 16, 24 or 32 bytes.
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"crypto"`
	Log struct {
		Env   string `mapstructure:"env"`
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Auth struct {
		Enabled   bool   `mapstructure:"enabled"`
		Username  string `mapstructure:"username"`
		Password  string `mapstructure:"password"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`
}

// Load reads the configuration from disk/environment using Viper.
// A missing file is tolerated so the relay can run from env vars alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("line_notify")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch len(c.Crypto.SecretKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("crypto.secret_key must be 16, 24 or 32 bytes, got %d", len(c.Crypto.SecretKey))
	}
	if c.Notify.BroadcastLimit <= 0 {
		return fmt.Errorf("notify.broadcast_limit must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "60s")

	v.SetDefault("notify.endpoint", "https://notify-api.line.me/api/notify")
	v.SetDefault("notify.request_timeout", "30s")
	v.SetDefault("notify.broadcast_limit", 8)
	v.SetDefault("notify.max_upload_bytes", 10<<20)
	v.SetDefault("notify.revoke_on_invalid", true)

	v.SetDefault("storage.path", "./data/line-notify.db")

	v.SetDefault("crypto.secret_key", "change-me-32-byte-secret-key-000")

	v.SetDefault("log.env", "production")
	v.SetDefault("log.level", "info")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin123")
	v.SetDefault("auth.jwt_secret", "change-me-secret")
}
