// Package config loads the songrec server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// SONGREC_* environment variables (a .env file in the working directory is
// read first). SONGREC_<SECTION>_<KEY> maps to section.key, for example
// SONGREC_GENERATOR_URL or SONGREC_RANKER_THRESHOLD.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SONGREC_"

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "SONGREC_CONFIG"

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"songrec.yaml",
	"songrec.yml",
	"/etc/songrec/config.yaml",
}

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Generator GeneratorConfig `koanf:"generator"`
	Ranker    RankerConfig    `koanf:"ranker"`
	Limits    LimitsConfig    `koanf:"limits"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" validate:"min=1"`
	RateLimit       int           `koanf:"rate_limit" validate:"min=0"` // requests per window and IP, 0 disables
	RateWindow      time.Duration `koanf:"rate_window" validate:"min=0"`
	Preload         bool          `koanf:"preload"` // build the catalog at startup
}

// StoreConfig locates the artifacts.
type StoreConfig struct {
	Kind      string `koanf:"kind" validate:"oneof=local s3 minio"`
	Path      string `koanf:"path"` // directory for kind=local
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseTLS    bool   `koanf:"use_tls"`
	// CacheDir mirrors remote artifacts on local disk when set.
	CacheDir string `koanf:"cache_dir"`
	// PointerTable is a DynamoDB table holding the CURRENT manifest pointer (kind=s3).
	PointerTable string `koanf:"pointer_table"`
	// ReloadInterval polls for a new catalog version, 0 disables.
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"min=0"`
}

// GeneratorConfig configures the embedding generator client.
type GeneratorConfig struct {
	URL              string        `koanf:"url" validate:"required,url"`
	Model            string        `koanf:"model" validate:"required"`
	Version          string        `koanf:"version"`
	Output           string        `koanf:"output"`
	Timeout          time.Duration `koanf:"timeout" validate:"min=0"`
	CacheSize        int           `koanf:"cache_size" validate:"min=0"` // 0 disables caching
	BreakerFailures  uint32        `koanf:"breaker_failures"`            // 0 disables the breaker
	BreakerOpenDelay time.Duration `koanf:"breaker_open_delay" validate:"min=0"`
}

// RankerConfig configures similarity ranking.
type RankerConfig struct {
	Threshold         float64 `koanf:"threshold" validate:"gte=-1,lte=1"`
	Strategy          string  `koanf:"strategy" validate:"oneof=partition heap"`
	Parallelism       int     `koanf:"parallelism" validate:"min=0"`
	ParallelThreshold int     `koanf:"parallel_threshold" validate:"min=0"`
	DefaultK          int     `koanf:"default_k" validate:"min=1,max=100"`
}

// LimitsConfig bounds resource usage. Zero means unlimited.
type LimitsConfig struct {
	MaxConcurrentQueries int64   `koanf:"max_concurrent_queries" validate:"min=0"`
	GeneratorRate        float64 `koanf:"generator_rate" validate:"min=0"`
	GeneratorBurst       int     `koanf:"generator_burst" validate:"min=0"`
	CacheMemoryBytes     int64   `koanf:"cache_memory_bytes" validate:"min=0"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    64 << 10,
			RateLimit:       100,
			RateWindow:      time.Minute,
		},
		Store: StoreConfig{
			Kind: "local",
			Path: "data",
		},
		Generator: GeneratorConfig{
			URL:              "http://localhost:8501",
			Model:            "generator",
			Timeout:          10 * time.Second,
			CacheSize:        4096,
			BreakerFailures:  5,
			BreakerOpenDelay: 30 * time.Second,
		},
		Ranker: RankerConfig{
			Threshold: 0.6,
			Strategy:  "partition",
			DefaultK:  10,
		},
		Limits: LimitsConfig{
			CacheMemoryBytes: 64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the configuration. An explicit path must exist; without one the
// SONGREC_CONFIG variable and DefaultConfigPaths are searched.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps SONGREC_SECTION_SOME_KEY to section.some_key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}

	switch c.Store.Kind {
	case "local":
		if c.Store.Path == "" {
			return errors.New("store.path is required for kind local")
		}
	case "s3", "minio":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for kind %s", c.Store.Kind)
		}
		if c.Store.Kind == "minio" && c.Store.Endpoint == "" {
			return errors.New("store.endpoint is required for kind minio")
		}
	}
	if c.Store.PointerTable != "" && c.Store.Kind != "s3" {
		return errors.New("store.pointer_table requires kind s3")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return errors.New("server.rate_window must be positive when rate_limit is set")
	}
	return nil
}
