// Package config loads hashsearch settings from defaults, an optional YAML
// file, HASHSEARCH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// HASHSEARCH_SEARCH_WORKERS.
const EnvPrefix = "HASHSEARCH"

// SearchConfig holds the defaults for a search task.
type SearchConfig struct {
	Algorithm string        `mapstructure:"algorithm"`
	Workers   int           `mapstructure:"workers"`
	Mode      string        `mapstructure:"mode"`
	Interval  time.Duration `mapstructure:"interval"`
	Seed      uint64        `mapstructure:"seed"`
	Dedup     int           `mapstructure:"dedup"`
	Alphabet  string        `mapstructure:"alphabet"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug"`
}

// Config is the full application configuration.
type Config struct {
	Search SearchConfig `mapstructure:"search"`
	Server ServerConfig `mapstructure:"server"`
}

// Options controls where Load looks for settings.
type Options struct {
	// File is an explicit config path. When empty, hashsearch.yaml is
	// searched in the working directory and ~/.hashsearch.
	File string
	// Flags are bound by name through FlagKeys, e.g. "workers" ->
	// "search.workers". Only flags the user actually set override lower
	// layers.
	Flags    *pflag.FlagSet
	FlagKeys map[string]string
	// SearchPaths replaces the default search directories; used by tests.
	SearchPaths []string
}

// Loaded is the decoded configuration plus the file it came from.
type Loaded struct {
	Config
	File string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Search: SearchConfig{
			Algorithm: "md5",
			Workers:   0,
			Mode:      "lexicographic",
			Interval:  500 * time.Millisecond,
			Dedup:     0,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			AllowOrigins:    []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("search.algorithm", d.Search.Algorithm)
	v.SetDefault("search.workers", d.Search.Workers)
	v.SetDefault("search.mode", d.Search.Mode)
	v.SetDefault("search.interval", d.Search.Interval)
	v.SetDefault("search.seed", d.Search.Seed)
	v.SetDefault("search.dedup", d.Search.Dedup)
	v.SetDefault("search.alphabet", d.Search.Alphabet)
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.debug", d.Server.Debug)
}

// Load resolves the layered configuration.
func Load(opts Options) (Loaded, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("hashsearch")
		paths := opts.SearchPaths
		if paths == nil {
			paths = []string{".", filepath.Join("$HOME", ".hashsearch")}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return Loaded{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range opts.FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				return Loaded{}, fmt.Errorf("bind flag %q: no such flag", name)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Loaded{}, fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("decode config: %w", err)
	}
	return Loaded{Config: cfg, File: v.ConfigFileUsed()}, nil
}
