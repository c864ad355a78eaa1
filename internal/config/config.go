// Package config loads the engine's YAML configuration via viper,
// ported and extended from the teacher's internal/config.go.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/coredb/coredb/internal/lockmgr"
)

// Config is the top-level typed configuration.
type Config struct {
	BufferPool struct {
		PoolSize     int `mapstructure:"pool_size"`
		NumInstances int `mapstructure:"num_instances"`
	} `mapstructure:"buffer_pool"`

	Storage struct {
		PageFile string `mapstructure:"page_file"`
	} `mapstructure:"storage"`

	LockManager struct {
		DefaultIsolation string `mapstructure:"default_isolation"`
	} `mapstructure:"lock_manager"`
}

// Load reads and unmarshals a YAML config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("buffer_pool.pool_size", 64)
	v.SetDefault("buffer_pool.num_instances", 1)
	v.SetDefault("storage.page_file", "coredb.db")
	v.SetDefault("lock_manager.default_isolation", "REPEATABLE_READ")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// IsolationLevel resolves the configured default isolation level string
// into the lockmgr enum, falling back to REPEATABLE_READ on an unknown
// value.
func (c *Config) IsolationLevel() lockmgr.IsolationLevel {
	switch c.LockManager.DefaultIsolation {
	case "READ_UNCOMMITTED":
		return lockmgr.ReadUncommitted
	case "READ_COMMITTED":
		return lockmgr.ReadCommitted
	case "REPEATABLE_READ":
		return lockmgr.RepeatableRead
	default:
		return lockmgr.RepeatableRead
	}
}
