// Package config loads server and client settings from a TOML file with
// environment-variable overrides. Every field has a working default so a
// missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultListenAddr  = ":8080"
	DefaultMongoURI    = "mongodb://localhost:27017"
	DefaultMongoDB     = "flowforge"
	DefaultBaseURL     = "http://localhost:8080"
	DefaultHTTPTimeout = 30 * time.Second
)

// Config holds all runtime settings.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Mongo   MongoConfig   `toml:"mongo"`
	Redis   RedisConfig   `toml:"redis"`
	Client  ClientConfig  `toml:"client"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// StorageConfig selects the fallback store when no MongoDB URI is set:
// a directory of JSON files, or fully in-memory when Dir is also empty.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// MongoConfig configures the automation store. An empty URI selects the
// in-memory store.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// RedisConfig configures the read-through cache. An empty address
// disables caching.
type RedisConfig struct {
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	TTL      time.Duration `toml:"ttl"`
}

// ClientConfig configures the CLI's persistence client.
type ClientConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{ListenAddr: DefaultListenAddr},
		Mongo:  MongoConfig{URI: "", Database: DefaultMongoDB},
		Redis:  RedisConfig{TTL: 5 * time.Minute},
		Client: ClientConfig{BaseURL: DefaultBaseURL, Timeout: DefaultHTTPTimeout},
	}
}

// Load reads path if it exists, overlaying the defaults, then applies
// environment overrides. A missing file is fine; a malformed one is not.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides settings from FLOWFORGE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FLOWFORGE_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("FLOWFORGE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("FLOWFORGE_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("FLOWFORGE_MONGO_DB"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("FLOWFORGE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FLOWFORGE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FLOWFORGE_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("FLOWFORGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.Timeout = d
		}
	}
}
