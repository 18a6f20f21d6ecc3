package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the service.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	// OpenAI-compatible text-generation endpoint. Empty key means
	// simulation mode: suggestions come straight from the local scheduler.
	AIAPIKey   string `mapstructure:"AI_API_KEY"`
	AIEndpoint string `mapstructure:"AI_API_ENDPOINT"`
	AIModel    string `mapstructure:"AI_MODEL"`

	// Optional Redis-backed idempotency cache; empty address selects the
	// in-memory cache.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	BotSecret string `mapstructure:"BOT_SECRET"`

	IdempotencyWindowMinutes int `mapstructure:"IDEMPOTENCY_WINDOW_MINUTES"`
	SuggestionTTLDays        int `mapstructure:"SUGGESTION_TTL_DAYS"`
}

// Load reads configuration from a .env file or environment variables.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// The file is optional; environment variables alone are fine.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "schedule_ai.db"
	}
	if cfg.AIModel == "" {
		cfg.AIModel = "deepseek/deepseek-v3"
	}
	if cfg.IdempotencyWindowMinutes <= 0 {
		cfg.IdempotencyWindowMinutes = 5
	}
	if cfg.SuggestionTTLDays <= 0 {
		cfg.SuggestionTTLDays = 7
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// IdempotencyWindow returns the duplicate-suppression window as a duration.
func (c Config) IdempotencyWindow() time.Duration {
	return time.Duration(c.IdempotencyWindowMinutes) * time.Minute
}
