package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string // postgres URL, or sqlite:<path> for the embedded driver
	RedisURL            string
	HealthAdminKey      string
	FrontendURLEndsWith string
	DevPassword         string
	LogLevel            zerolog.Level
	AnalyticsCacheTTL   time.Duration
	ChangeChannel       string
}

func defaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ANALYTICS_CACHE_TTL", "60s")
	v.SetDefault("CHANGE_CHANNEL", "backoffice:collections")
}

// Load loads config from env and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	defaults(v)

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	dbURL := v.GetString("DATABASE_URL_DEV")
	switch env {
	case EnvProduction:
		dbURL = v.GetString("DATABASE_URL_PROD")
	case EnvTest:
		dbURL = v.GetString("DATABASE_URL_TEST")
	}

	level, err := zerolog.ParseLevel(strings.ToLower(v.GetString("LOG_LEVEL")))
	if err != nil {
		return nil, err
	}
	ttl, err := time.ParseDuration(v.GetString("ANALYTICS_CACHE_TTL"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		DatabaseURL:         dbURL,
		RedisURL:            v.GetString("REDIS_URL"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		LogLevel:            level,
		AnalyticsCacheTTL:   ttl,
		ChangeChannel:       v.GetString("CHANGE_CHANNEL"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
