// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the bridge configuration and the
// logic required to load it from a YAML file, the environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/mcpbridge/pkg/credentials"
	"github.com/stacklok/mcpbridge/pkg/session"
	"github.com/stacklok/mcpbridge/pkg/transport"
)

// EnvPrefix prefixes every environment override, e.g. MCPBRIDGE_PORT.
const EnvPrefix = "MCPBRIDGE"

const (
	defaultHost = "0.0.0.0"
	defaultPort = 8000
)

// Config represents the configuration of the bridge.
type Config struct {
	Host             string        `mapstructure:"host" yaml:"host"`
	Port             int           `mapstructure:"port" yaml:"port"`
	ConstructTimeout time.Duration `mapstructure:"construct_timeout" yaml:"construct_timeout"`
	KeepAlive        time.Duration `mapstructure:"keep_alive" yaml:"keep_alive"`
	Debug            bool          `mapstructure:"debug" yaml:"debug"`
	Credentials      Credentials   `mapstructure:"credentials" yaml:"credentials"`
	Adapters         Adapters      `mapstructure:"adapters" yaml:"adapters"`
}

// Credentials selects the credential provider.
type Credentials struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Dir      string `mapstructure:"dir" yaml:"dir,omitempty"`
	OAuthDir string `mapstructure:"oauth_dir" yaml:"oauth_dir,omitempty"`
	Remote   Remote `mapstructure:"remote" yaml:"remote,omitempty"`
	Redis    Redis  `mapstructure:"redis" yaml:"redis,omitempty"`
}

// Remote configures the remote credential provider.
type Remote struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	MaxTries uint   `mapstructure:"max_tries" yaml:"max_tries,omitempty"`
}

// Redis configures the redis credential provider.
type Redis struct {
	Addr      string `mapstructure:"addr" yaml:"addr,omitempty"`
	Username  string `mapstructure:"username" yaml:"username,omitempty"`
	Password  string `mapstructure:"password" yaml:"password,omitempty"`
	DB        int    `mapstructure:"db" yaml:"db,omitempty"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
}

// Adapters limits which registered adapters are served.
type Adapters struct {
	// Enabled lists adapter names to serve. Empty serves all of them.
	Enabled []string `mapstructure:"enabled" yaml:"enabled,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Host:             defaultHost,
		Port:             defaultPort,
		ConstructTimeout: session.DefaultConstructTimeout,
		KeepAlive:        transport.DefaultKeepAlive,
		Credentials: Credentials{
			Provider: string(credentials.FileType),
		},
	}
}

// searchConfigFile finds the default config file, can be replaced in tests
var searchConfigFile = func() (string, error) {
	return xdg.SearchConfigFile("mcpbridge/config.yaml")
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() (string, error) {
	return xdg.ConfigFile("mcpbridge/config.yaml")
}

// SetDefaults registers every key with v so that environment overrides
// apply even when the key is absent from the file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("construct_timeout", d.ConstructTimeout)
	v.SetDefault("keep_alive", d.KeepAlive)
	v.SetDefault("debug", false)
	v.SetDefault("credentials.provider", d.Credentials.Provider)
	v.SetDefault("credentials.dir", "")
	v.SetDefault("credentials.oauth_dir", "")
	v.SetDefault("credentials.remote.base_url", "")
	v.SetDefault("credentials.remote.api_key", "")
	v.SetDefault("credentials.remote.max_tries", 0)
	v.SetDefault("credentials.redis.addr", "")
	v.SetDefault("credentials.redis.username", "")
	v.SetDefault("credentials.redis.password", "")
	v.SetDefault("credentials.redis.db", 0)
	v.SetDefault("credentials.redis.key_prefix", "")
	v.SetDefault("adapters.enabled", []string{})
}

// Load reads the configuration into v and decodes it.
//
// An explicit path must exist. Without one the XDG config home is searched
// for mcpbridge/config.yaml and defaults apply when it is absent. Values from
// MCPBRIDGE_* environment variables and flags bound to v take precedence
// over the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if found, err := searchConfigFile(); err == nil {
			path = found
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	if c.ConstructTimeout <= 0 {
		errs = append(errs, fmt.Errorf("construct_timeout must be positive, got %s", c.ConstructTimeout))
	}
	if c.KeepAlive < 0 {
		errs = append(errs, fmt.Errorf("keep_alive must not be negative, got %s", c.KeepAlive))
	}

	switch credentials.ProviderType(c.Credentials.Provider) {
	case credentials.FileType, credentials.KeyringType, credentials.EnvironmentType, "":
	case credentials.RemoteType:
		if c.Credentials.Remote.BaseURL == "" {
			errs = append(errs, errors.New("credentials.remote.base_url is required for the remote provider"))
		}
	case credentials.RedisType:
		if c.Credentials.Redis.Addr == "" {
			errs = append(errs, errors.New("credentials.redis.addr is required for the redis provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: %s", credentials.ErrUnknownProviderType, c.Credentials.Provider))
	}
	return errors.Join(errs...)
}

// CredentialsConfig converts the credentials section for credentials.NewStore.
func (c *Config) CredentialsConfig() credentials.Config {
	return credentials.Config{
		Provider: credentials.ProviderType(c.Credentials.Provider),
		Dir:      c.Credentials.Dir,
		OAuthDir: c.Credentials.OAuthDir,
		Remote: credentials.RemoteConfig{
			BaseURL:  c.Credentials.Remote.BaseURL,
			APIKey:   c.Credentials.Remote.APIKey,
			MaxTries: c.Credentials.Remote.MaxTries,
		},
		Redis: credentials.RedisConfig{
			Addr:      c.Credentials.Redis.Addr,
			Username:  c.Credentials.Redis.Username,
			Password:  c.Credentials.Redis.Password,
			DB:        c.Credentials.Redis.DB,
			KeyPrefix: c.Credentials.Redis.KeyPrefix,
		},
	}
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Credentials.Remote.APIKey != "" {
		c.Credentials.Remote.APIKey = "***"
	}
	if c.Credentials.Redis.Password != "" {
		c.Credentials.Redis.Password = "***"
	}
	return c
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error serializing config: %w", err)
	}
	return out, nil
}

// Save writes c to path as YAML, creating parent directories.
func (c Config) Save(path string) error {
	out, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
