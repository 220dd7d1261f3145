// Package config loads objgraph settings.
//
// Sources are layered, later ones winning:
//
//  1. built-in defaults
//  2. an optional TOML file (objgraph.toml in the working directory)
//  3. OBJGRAPH_* environment variables
//  4. command-line flags that were set explicitly
//
// Nested keys use a dot in TOML and flags and an underscore in the
// environment: cache.backend is OBJGRAPH_CACHE_BACKEND.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/pipeline"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "objgraph.toml"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OBJGRAPH_"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Snippet store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreMongo  = "mongo"
)

// Config holds all settings.
type Config struct {
	ShowBuiltins     bool          `koanf:"show_builtins"`
	ShowAllFunctions bool          `koanf:"show_all_functions"`
	MaxNodes         int           `koanf:"max_nodes"`
	Timeout          time.Duration `koanf:"timeout"`
	RankDir          string        `koanf:"rankdir"`
	Addr             string        `koanf:"addr"`

	Cache CacheConfig `koanf:"cache"`
	Redis RedisConfig `koanf:"redis"`
	Store StoreConfig `koanf:"store"`
	Mongo MongoConfig `koanf:"mongo"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend string        `koanf:"backend"`
	Dir     string        `koanf:"dir"`
	TTL     time.Duration `koanf:"ttl"`
}

// RedisConfig locates the redis cache backend.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// StoreConfig selects the snippet store.
type StoreConfig struct {
	Backend string `koanf:"backend"`
	Dir     string `koanf:"dir"`
}

// MongoConfig locates the mongo snippet store.
type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// sections are the nested tables; their env names use one underscore as the
// separator.
var sections = []string{"cache", "redis", "store", "mongo"}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"builtins":  "show_builtins",
	"functions": "show_all_functions",
	"max-nodes": "max_nodes",
	"no-cache":  "",
	"cache-dir": "cache.dir",
	"store":     "store.backend",
	"store-dir": "store.dir",
}

func defaults() map[string]any {
	return map[string]any{
		"show_builtins":      false,
		"show_all_functions": false,
		"max_nodes":          pipeline.DefaultMaxNodes,
		"timeout":            pipeline.DefaultTimeout.String(),
		"rankdir":            pipeline.DefaultRankDir,
		"addr":               "127.0.0.1:8080",
		"cache.backend":      CacheFile,
		"cache.dir":          "",
		"cache.ttl":          (7 * 24 * time.Hour).String(),
		"redis.addr":         "localhost:6379",
		"redis.password":     "",
		"redis.db":           0,
		"store.backend":      StoreMemory,
		"store.dir":          "",
		"mongo.uri":          "",
		"mongo.database":     "objgraph",
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load("", nil, false)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration. path names the TOML file; when empty,
// DefaultFile is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := load(path, flags, true)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string, flags *pflag.FlagSet, external bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if !external {
		return unmarshal(k)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "load %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" || !k.Exists(key) {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "decode config")
	}
	return &cfg, nil
}

// envKey maps OBJGRAPH_CACHE_BACKEND to cache.backend and
// OBJGRAPH_SHOW_BUILTINS to show_builtins.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(key, sec+"_"); ok {
			return sec + "." + rest
		}
	}
	return key
}

// Validate checks values that cannot be expressed by types alone.
func (c *Config) Validate() error {
	if c.MaxNodes < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "max_nodes must not be negative")
	}
	if c.Timeout < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "timeout must not be negative")
	}
	if err := apperrors.ValidateRankDir(c.RankDir); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Redis.Addr == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "redis.addr is required for the redis cache")
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown cache.backend %q (want file, redis or none)", c.Cache.Backend)
	}

	switch c.Store.Backend {
	case StoreMemory, StoreFile:
	case StoreMongo:
		if c.Mongo.URI == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "mongo.uri is required for the mongo store")
		}
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown store.backend %q (want memory, file or mongo)", c.Store.Backend)
	}
	return nil
}

// PipelineOptions returns the build and render settings as pipeline options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		ShowBuiltins:     c.ShowBuiltins,
		ShowAllFunctions: c.ShowAllFunctions,
		MaxNodes:         c.MaxNodes,
		RankDir:          c.RankDir,
	}
}

// mapProvider feeds a map into koanf.
type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(p))
	for key, v := range p {
		setNested(out, strings.Split(key, "."), v)
	}
	return out, nil
}

func (mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("not implemented")
}

func setNested(m map[string]any, path []string, v any) {
	if len(path) == 1 {
		m[path[0]] = v
		return
	}
	sub, ok := m[path[0]].(map[string]any)
	if !ok {
		sub = make(map[string]any)
		m[path[0]] = sub
	}
	setNested(sub, path[1:], v)
}
