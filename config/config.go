// Package config reads the bot's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingBotToken is fatal: the bot cannot talk to Telegram without it.
var ErrMissingBotToken = errors.New("BOT_TOKEN is not set")

const defaultProductURL = "https://drive.google.com/file/d/1hSkkNyLwpXZw-T4fS9XSQ0YIA9a_yxbH/view?usp=sharing"

type Config struct {
	BotToken string
	LogLevel string

	ProductURL string
	StarsPrice int64

	AssistantAPIKey        string
	AssistantURL           string
	AssistantModel         string
	AssistantTimeout       time.Duration
	AssistantRatePerMinute float64

	Port     string
	GRPCPort string

	FulfillmentStore string
	DB               DBConfig
	Redis            RedisConfig

	KafkaBroker    string
	KafkaTopic     string
	OperatorChatID int64

	JaegerEndpoint string
	WorkerLimit    int
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns a lib/pq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("product_url", defaultProductURL)
	v.SetDefault("stars_price", 50)
	v.SetDefault("assistant_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("assistant_model", "gpt-4o-mini")
	v.SetDefault("assistant_timeout", "20s")
	v.SetDefault("assistant_rate_per_minute", 6)
	v.SetDefault("port", "8080")
	v.SetDefault("fulfillment_store", "memory")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "shopbotdb")
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("kafka_topic", "purchase_events")
	v.SetDefault("worker_limit", 32)
}

// Load reads the environment. A missing bot token is reported as
// ErrMissingBotToken; every other option has a usable default.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		BotToken: strings.TrimSpace(v.GetString("bot_token")),
		LogLevel: v.GetString("log_level"),

		ProductURL: v.GetString("product_url"),
		StarsPrice: v.GetInt64("stars_price"),

		AssistantAPIKey:        v.GetString("assistant_api_key"),
		AssistantURL:           v.GetString("assistant_url"),
		AssistantModel:         v.GetString("assistant_model"),
		AssistantTimeout:       v.GetDuration("assistant_timeout"),
		AssistantRatePerMinute: v.GetFloat64("assistant_rate_per_minute"),

		Port:     v.GetString("port"),
		GRPCPort: v.GetString("grpc_port"),

		FulfillmentStore: strings.ToLower(v.GetString("fulfillment_store")),
		DB: DBConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis_host"),
			Port:     v.GetString("redis_port"),
			Password: v.GetString("redis_password"),
		},

		KafkaBroker:    v.GetString("kafka_broker"),
		KafkaTopic:     v.GetString("kafka_topic"),
		OperatorChatID: v.GetInt64("operator_chat_id"),

		JaegerEndpoint: v.GetString("jaeger_endpoint"),
		WorkerLimit:    v.GetInt("worker_limit"),
	}

	if cfg.BotToken == "" {
		return nil, ErrMissingBotToken
	}
	if cfg.StarsPrice <= 0 {
		return nil, fmt.Errorf("STARS_PRICE must be positive, got %d", cfg.StarsPrice)
	}
	switch cfg.FulfillmentStore {
	case "memory", "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown FULFILLMENT_STORE %q", cfg.FulfillmentStore)
	}
	if cfg.AssistantTimeout <= 0 {
		cfg.AssistantTimeout = 20 * time.Second
	}
	if cfg.WorkerLimit <= 0 {
		cfg.WorkerLimit = 1
	}

	return cfg, nil
}
