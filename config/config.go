// Package config loads wasmbench settings from defaults, an optional
// config file, WASMBENCH_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/wasmbench/harness"
)

const (
	// AppName is the application name.
	AppName = "wasmbench"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "WASMBENCH"
	// NativeModuleName is the registry name of the in-process reference
	// parser.
	NativeModuleName = "go-native"
)

// Config is the effective configuration.
type Config struct {
	LogLevel    string         `mapstructure:"log_level" toml:"log_level"`
	Listen      string         `mapstructure:"listen" toml:"listen"`
	AssetsDir   string         `mapstructure:"assets_dir" toml:"assets_dir"`
	CacheDir    string         `mapstructure:"cache_dir" toml:"cache_dir"`
	ModulesDir  string         `mapstructure:"modules_dir" toml:"modules_dir"`
	Native      bool           `mapstructure:"native" toml:"native"`
	Parallelism int            `mapstructure:"parallelism" toml:"parallelism"`
	Modules     []harness.Spec `mapstructure:"modules" toml:"modules"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		Listen:     ":9090",
		ModulesDir: "modules",
		Native:     true,
	}
}

// LoadOptions selects the config sources.
type LoadOptions struct {
	// ConfigFile is used exclusively when set and must exist.
	ConfigFile string
	// SearchDirs are searched for wasmbench.{yaml,toml,json} when
	// ConfigFile is empty. Nil means the working directory and Dir().
	SearchDirs []string
	// Flags are bound by replacing dashes with underscores in their names.
	Flags *pflag.FlagSet
}

// Dir returns $XDG_CONFIG_HOME/wasmbench, defaulting to ~/.config.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, AppName), nil
}

// Load resolves the configuration and reports which file, if any, it read.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("assets_dir", defaults.AssetsDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("modules_dir", defaults.ModulesDir)
	v.SetDefault("native", defaults.Native)
	v.SetDefault("parallelism", defaults.Parallelism)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if slices.Contains(configKeys, key) {
				bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
			}
		})
		if bindErr != nil {
			return nil, "", fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, "", fmt.Errorf("config file %s: %w", opts.ConfigFile, err)
		}
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(AppName)

		dirs := opts.SearchDirs
		if dirs == nil {
			dirs = []string{"."}
			if dir, err := Dir(); err == nil {
				dirs = append(dirs, dir)
			}
		}
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	resolved := ""

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	} else {
		resolved = v.ConfigFileUsed()
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, resolved, nil
}

var configKeys = []string{
	"log_level", "listen", "assets_dir", "cache_dir",
	"modules_dir", "native", "parallelism",
}

// Validate checks values that viper cannot.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}

	seen := make(map[string]bool, len(c.Modules)+1)
	if c.Native {
		seen[NativeModuleName] = true
	}

	for i, spec := range c.Modules {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("modules[%d]: %w", i, err)
		}
		if seen[spec.Name] {
			return fmt.Errorf("modules[%d]: name %q is used more than once", i, spec.Name)
		}
		seen[spec.Name] = true
	}

	return nil
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}

	return level
}

// WriteTOML writes c to w as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}
