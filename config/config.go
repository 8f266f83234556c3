package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"todo-api/store"
	"todo-api/web"
)

type Config struct {
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Server ServerConfig `mapstructure:"server"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Source string `mapstructure:"source"`
}

// RedisConfig enables the read cache when Addr is set.
type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"db.driver":              "DB_DRIVER",
	"db.source":              "DB_SOURCE",
	"redis.addr":             "REDIS_ADDR",
	"redis.ttl":              "CACHE_TTL",
	"server.addr":            "HTTP_ADDR",
	"server.request_timeout": "REQUEST_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", store.DriverPostgres)
	v.SetDefault("db.source", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", store.DefaultCacheTTL)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", web.DefaultRequestTimeout)
}

// Load reads defaults, then the optional YAML file at path, then the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case store.DriverPostgres, store.DriverSQLite:
		if c.DB.Source == "" {
			return fmt.Errorf("DB_SOURCE environment variable is not set")
		}
	case store.DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.DB.Driver)
	}
	return nil
}
