// Package config loads tool configuration from a TOML file. Every field has
// a default so running without a config file works out of the box.
package config

import (
	"context"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/sentinelsoft/rulegraph/pkg/analytics"
	"github.com/sentinelsoft/rulegraph/pkg/errors"
	"github.com/sentinelsoft/rulegraph/pkg/store"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = "rulegraph.toml"

// Config is the full tool configuration.
type Config struct {
	// Paths are the directories scanned for ruleset files.
	Paths []string `toml:"paths"`
	// BlockSize is the heatmap bucket width.
	BlockSize int `toml:"block_size"`
	// Addr is the HTTP listen address for the serve command.
	Addr string `toml:"addr"`

	Store StoreConfig `toml:"store"`
}

// StoreConfig selects and configures the artifact backend.
type StoreConfig struct {
	// Backend is one of "file", "redis" or "mongo".
	Backend string `toml:"backend"`

	// Dir is the artifact directory for the file backend.
	Dir string `toml:"dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths:     []string{"rules"},
		BlockSize: analytics.DefaultBlockSize,
		Addr:      ":8088",
		Store: StoreConfig{
			Backend:   "file",
			Dir:       "artifacts",
			RedisAddr: "localhost:6379",
			MongoURI:  "mongodb://localhost:27017",
		},
	}
}

// Load reads the configuration at path, layered over the defaults. A missing
// file at the default path is not an error; a missing file at an explicitly
// requested path is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		if explicit {
			return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "config file not found: %s", path)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing config file %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidInput,
			"unknown config key %s in %s", undecoded[0].String(), path)
	}
	return cfg, nil
}

// OpenStore builds the artifact store selected by the configuration.
func (c Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Backend {
	case "", "file":
		return store.NewFileStore(c.Store.Dir)
	case "redis":
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     c.Store.RedisAddr,
			Password: c.Store.RedisPassword,
			DB:       c.Store.RedisDB,
		})
	case "mongo":
		return store.NewMongoStore(ctx, store.MongoOptions{
			URI:      c.Store.MongoURI,
			Database: c.Store.MongoDatabase,
		})
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %s", c.Store.Backend)
	}
}
