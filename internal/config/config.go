package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Storage    Storage    `yaml:"storage"`
	Lock       Lock       `yaml:"lock"`
	Settlement Settlement `yaml:"settlement"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Storage struct {
	// Driver is one of postgres, mongo or memory.
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	PostgresDSN   string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	MongoURI      string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE" env-default:"tutoring"`
	AutoMigrate   bool   `yaml:"auto_migrate" env:"AUTO_MIGRATE" env-default:"false"`
}

type Lock struct {
	// Driver is one of redis or local.
	Driver    string        `yaml:"driver" env:"LOCK_DRIVER" env-default:"redis"`
	RedisAddr string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	TTL       time.Duration `yaml:"ttl" env-default:"10s"`
}

type Settlement struct {
	PricePerSession int64 `yaml:"price_per_session" env:"PRICE_PER_SESSION" env-default:"150000"`
}

func (s Settlement) Price() decimal.Decimal {
	return decimal.NewFromInt(s.PricePerSession)
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func Load() (*Config, error) {
	// load .env if it exists (ignore if it does not)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	var cfg Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// no file: env and defaults only
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "local", "dev", "prod":
	default:
		return errors.New("env must be one of local, dev, prod")
	}

	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo driver")
		}
	case "memory":
	default:
		return errors.New("storage.driver must be one of postgres, mongo, memory")
	}

	switch c.Lock.Driver {
	case "redis", "local":
	default:
		return errors.New("lock.driver must be one of redis, local")
	}

	return nil
}
