package config

import (
	"gopkg.in/yaml.v3"
	"io/ioutil"
	"os"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Stripe    StripeConfig    `yaml:"stripe"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the duplicate-delivery cache. An empty Addr
// disables it; the engine stays correct without it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig configures the topic owner notifications are published to.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StripeConfig carries the API key for the account-status queries and the
// endpoint secret the webhook signature is verified against. Secrets are
// normally injected from the environment, not committed in the yaml file.
type StripeConfig struct {
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override DSN password from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	// secrets always win from env
	if key := os.Getenv("STRIPE_API_KEY"); key != "" {
		cfg.Stripe.APIKey = key
	}
	if sec := os.Getenv("STRIPE_WEBHOOK_SECRET"); sec != "" {
		cfg.Stripe.WebhookSecret = sec
	}
	return &cfg, nil
}
