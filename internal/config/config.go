package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

const envPrefix = "JOBFLOW_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Client    ClientConfig    `koanf:"client"`
	Storage   StorageConfig   `koanf:"storage"`
	Queue     QueueConfig     `koanf:"queue"`
	Processor ProcessorConfig `koanf:"processor"`
	API       APIConfig       `koanf:"api"`
	Runtime   RuntimeConfig   `koanf:"runtime"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type ClientConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c ClientConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type StorageConfig struct {
	Backend       string `koanf:"backend"`
	Path          string `koanf:"path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`
	S3Bucket      string `koanf:"s3_bucket"`
	S3Key         string `koanf:"s3_key"`
	S3Region      string `koanf:"s3_region"`
}

type QueueConfig struct {
	RetryDelay  time.Duration `koanf:"retry_delay"`
	MaxAttempts int           `koanf:"max_attempts"`
	History     int           `koanf:"history"`
}

type ProcessorConfig struct {
	Name  string `koanf:"name"`
	Shell string `koanf:"shell"`
}

type APIConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type RuntimeConfig struct {
	Dir string `koanf:"dir"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads config from TOML file (if provided) then overlays env vars.
// The returned koanf instance exposes the merged key space for lookups.
func Load(configPath string) (*Config, *koanf.Koanf, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := loadDefaults(k); err != nil {
		return nil, nil, err
	}

	// 2. Load TOML config file if provided; a missing file keeps the defaults
	if configPath != "" {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", configPath).Msg("config file not found, using defaults")
		} else if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", configPath, err)
		}
	}

	// 3. Load env vars: JOBFLOW_QUEUE_RETRY_DELAY -> queue.retry_delay
	// Only the first underscore separates the section from the key.
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKey(key), value
	}), nil); err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, k, nil
}

func envKey(key string) string {
	return strings.Replace(
		strings.ToLower(strings.TrimPrefix(key, envPrefix)),
		"_", ".", 1,
	)
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Queue.RetryDelay < 0 {
		return fmt.Errorf("queue.retry_delay must be >= 0")
	}
	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("queue.max_attempts must be >= 0")
	}
	return nil
}
