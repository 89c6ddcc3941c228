package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Empty host disables the cross-process fan-out bus and the
	// generation-progress store.
	RedisHost string `env:"REDIS_HOST" envDefault:""`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"slides_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"slides_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"slides_db"`

	// Origin allowed to open websocket connections. "*" accepts any origin.
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8090" validate:"min=1000,max=65535"`
}

func (c *Config) RedisEnabled() bool { return c.RedisHost != "" }

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
