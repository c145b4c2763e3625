// Package config provides centralized configuration for quickgit.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. QUICKGIT_LOG_LEVEL.
const EnvPrefix = "QUICKGIT"

// Config holds application-wide configuration.
type Config struct {
	Log          LogConfig       `mapstructure:"log" yaml:"log"`
	Diff         DiffConfig      `mapstructure:"diff" yaml:"diff"`
	Walk         WalkConfig      `mapstructure:"walk" yaml:"walk"`
	Signature    SignatureConfig `mapstructure:"signature" yaml:"signature"`
	Server       ServerConfig    `mapstructure:"server" yaml:"server"`
	Watch        WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Repositories []string        `mapstructure:"repositories" yaml:"repositories"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DiffConfig controls patch rendering. FullContext renders whole files.
type DiffConfig struct {
	ContextLines int  `mapstructure:"context_lines" yaml:"context_lines"`
	FullContext  bool `mapstructure:"full_context" yaml:"full_context"`
}

// WalkConfig bounds the history walk. MaxCommits of 0 means unbounded.
type WalkConfig struct {
	MaxCommits int `mapstructure:"max_commits" yaml:"max_commits"`
}

// SignatureConfig is used for commits when the repository has no user configured.
type SignatureConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Email string `mapstructure:"email" yaml:"email"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("diff.context_lines", 3)
	v.SetDefault("diff.full_context", false)
	v.SetDefault("walk.max_commits", 0)
	v.SetDefault("signature.name", "")
	v.SetDefault("signature.email", "")
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", 200*time.Millisecond)
	v.SetDefault("repositories", []string{})
}

// Default returns the configuration with no file or environment applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := decode(v)
	return cfg
}

// NewViper returns a viper instance wired with defaults, the config search
// path and environment overrides. An explicit file wins over the search path.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}

	v.SetConfigName("quickgit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".quickgit"))
	}
	return v
}

// Load reads the configuration. A missing config file is not an error.
func Load(file string) (*Config, error) {
	v := NewViper(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Diff.ContextLines < 0 {
		return fmt.Errorf("diff.context_lines must be >= 0, got %d", c.Diff.ContextLines)
	}
	if c.Walk.MaxCommits < 0 {
		return fmt.Errorf("walk.max_commits must be >= 0, got %d", c.Walk.MaxCommits)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", c.Watch.Debounce)
	}
	return nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
