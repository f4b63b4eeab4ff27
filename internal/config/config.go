package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkwise/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"PARKING_HTTP_PORT"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"PARKING_POSTGRES_DSN"`
}

// RedisConfig holds bus and cache settings.
type RedisConfig struct {
	Addr       string `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password   string `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	SessionTTL int    `yaml:"sessionTtlSeconds" env:"PARKING_REDIS_SESSION_TTL"`
}

// ParkingConfig holds facility capacity and the tariff.
type ParkingConfig struct {
	Capacity       int   `yaml:"capacity" env:"PARKING_CAPACITY"`
	BaseCharge     int64 `yaml:"baseCharge" env:"PARKING_BASE_CHARGE"`
	PerBlockCharge int64 `yaml:"perBlockCharge" env:"PARKING_PER_BLOCK_CHARGE"`
}

// AdminConfig holds the secret verifying pre-issued admin tokens.
type AdminConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"PARKING_ADMIN_JWT_SECRET"`
}

// Config defines parking service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Parking  ParkingConfig  `yaml:"parking"`
	Admin    AdminConfig    `yaml:"admin"`
}

// Load reads configuration via the shared helper and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Redis: RedisConfig{Addr: "localhost:6379", SessionTTL: 86400},
		Parking: ParkingConfig{
			Capacity:       8,
			BaseCharge:     10,
			PerBlockCharge: 5,
		},
	}

	if err := libconfig.Load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if strings.TrimSpace(cfg.Admin.JWTSecret) == "" {
		return nil, errors.New("config: admin jwt secret required")
	}
	if cfg.Parking.Capacity <= 0 {
		return nil, errors.New("config: parking capacity must be positive")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// ActiveSessionTTL returns the cache ttl as a duration.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.SessionTTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.SessionTTL) * time.Second
}
