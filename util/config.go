package util

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	TokenKindJWT    = "jwt"
	TokenKindPaseto = "paseto"
)

type Config struct {
	Port           string        `mapstructure:"PORT" validate:"required,number"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL" validate:"required"`
	RedisAddress   string        `mapstructure:"REDIS_ADDR" validate:"required"`
	RedisPassword  string        `mapstructure:"REDIS_PW"`
	TokenKind      string        `mapstructure:"TOKEN_KIND" validate:"oneof=jwt paseto"`
	TokenSecret    string        `mapstructure:"TOKEN_SECRET" validate:"required,min=32"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL" validate:"gt=0"`
	LiveGameTTL    time.Duration `mapstructure:"LIVE_GAME_TTL" validate:"gt=0"`
	AllowedOrigins []string      `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT" validate:"oneof=legacy console json"`
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:           os.Getenv("PORT"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddress:   os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PW"),
		TokenKind:      getenvDefault("TOKEN_KIND", TokenKindJWT),
		TokenSecret:    os.Getenv("TOKEN_SECRET"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		LogFormat:      getenvDefault("LOG_FORMAT", "legacy"),
		AllowedOrigins: parseList(os.Getenv("ALLOWED_ORIGINS")),
	}

	var err error

	if config.TokenTTL, err = time.ParseDuration(getenvDefault("TOKEN_TTL", "24h")); err != nil {
		return nil, err
	}

	if config.LiveGameTTL, err = time.ParseDuration(getenvDefault("LIVE_GAME_TTL", "12h")); err != nil {
		return nil, err
	}

	if err := Validate.Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// parseList splits a comma separated env value, dropping blanks.
func parseList(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})

	return lo.Compact(parts)
}
