// Package config loads the server and CLI configuration with viper:
// defaults, then an optional YAML file, then CHATMEMO_* environment
// variables (dots become underscores: CHATMEMO_AUTH_JWT_SECRET).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

const envPrefix = "CHATMEMO"

// MinSecretLength matches what auth.NewTokenService accepts.
const MinSecretLength = 16

// Config is the server configuration.
type Config struct {
	Listen   string         `yaml:"listen" mapstructure:"listen"`
	LogLevel string         `yaml:"log_level" mapstructure:"log_level"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
}

type DatabaseConfig struct {
	// Path of the SQLite file. ":memory:" works for throwaway servers.
	Path string `yaml:"path" mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// SecureCookie sets the Secure flag; turn it on behind HTTPS.
	SecureCookie bool         `yaml:"secure_cookie" mapstructure:"secure_cookie"`
	Google       GoogleConfig `yaml:"google" mapstructure:"google"`
}

// GoogleConfig enables Google sign-in when ClientID is set.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	CallbackURL  string `yaml:"callback_url" mapstructure:"callback_url"`
}

func (g GoogleConfig) Enabled() bool { return g.ClientID != "" }

// RedisConfig selects the Redis token revocation store when Addr is set;
// otherwise revocations live in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Load reads the server configuration. With an empty path the file is
// searched as config.yml in ".", "$HOME/.chatmemo" and "/etc/chatmemo"; a
// missing file is fine, defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := newViper(path)
	setDefaults(v)

	if err := readFile(v); err != nil {
		return nil, err
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("database.path", "data/chatmemo.db")

	// Keys without a useful default are still registered so that
	// AutomaticEnv picks them up on Unmarshal.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.google.client_id", "")
	v.SetDefault("auth.google.client_secret", "")
	v.SetDefault("auth.google.callback_url", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
}

func validateConfig(c *Config) error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters (set %s_AUTH_JWT_SECRET)",
			MinSecretLength, envPrefix)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.Google.Enabled() {
		if c.Auth.Google.ClientSecret == "" {
			return errors.New("auth.google.client_secret is required when Google sign-in is enabled")
		}
		if c.Auth.Google.CallbackURL == "" {
			return errors.New("auth.google.callback_url is required when Google sign-in is enabled")
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// ClientConfig is the configuration of the memo CLI.
type ClientConfig struct {
	Server    string `yaml:"server" mapstructure:"server"`
	TokenFile string `yaml:"token_file" mapstructure:"token_file"`
}

// LoadClient reads the CLI configuration, using the same search paths and
// environment prefix as Load.
func LoadClient(path string) (*ClientConfig, error) {
	v := newViper(path)
	v.SetDefault("server", "http://localhost:8080")
	v.SetDefault("token_file", defaultTokenFile())

	if err := readFile(v); err != nil {
		return nil, err
	}

	var c ClientConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Server = strings.TrimRight(c.Server, "/")
	if c.Server == "" {
		return nil, errors.New("server URL is required")
	}
	return &c, nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatmemo-token"
	}
	return filepath.Join(home, ".chatmemo", "token")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.chatmemo")
		v.AddConfigPath("/etc/chatmemo")
	}
	return v
}

func readFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}
	log.Debug("Using config file", "file", v.ConfigFileUsed())
	return nil
}
