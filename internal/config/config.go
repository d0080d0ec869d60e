package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultSystemPrompt = `You are a friendly school assistant for a primary school. ` +
	`Help parents and students with questions about admissions, timings, fees, homework, ` +
	`attendance and school events. Keep answers short, warm and easy to read. ` +
	`If you do not know something specific about the school, ask them to contact the school office.`

type Config struct {
	// Server
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// Storage
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	RedisURL    string `env:"REDIS_URL"`

	// Auth
	Casdoor           CasdoorConfig `envPrefix:"CASDOOR_"`
	ParentLoginAPIKey string        `env:"PARENT_LOGIN_API_KEY"`

	// Chat gateway
	AI AIConfig `envPrefix:"AI_"`

	// Events
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"school-portal-service"`

	// Parent views
	ChildViewCacheTTL  time.Duration `env:"CHILD_VIEW_CACHE_TTL" envDefault:"2m"`
	AggregationTimeout time.Duration `env:"AGGREGATION_TIMEOUT" envDefault:"10s"`
}

type CasdoorConfig struct {
	Endpoint     string `env:"ENDPOINT"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Cert         string `env:"CERT"`
	Organization string `env:"ORGANIZATION"`
	Application  string `env:"APPLICATION"`
}

type AIConfig struct {
	GatewayURL   string        `env:"GATEWAY_URL" envDefault:"https://api.openai.com/v1"`
	GatewayKey   string        `env:"GATEWAY_KEY"`
	Model        string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	SystemPrompt string        `env:"SYSTEM_PROMPT"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"90s"`
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.AI.SystemPrompt == "" {
		cfg.AI.SystemPrompt = defaultSystemPrompt
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
