package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

const (
	GatewayFCM     = "fcm"
	GatewayWebhook = "webhook"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL        string `env:"RABBITMQ_URL,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	JWTSecret          string `env:"JWT_SECRET,required=true"`
	PushGateway        string `env:"PUSH_GATEWAY,default=fcm"`
	FCMCredentialsFile string `env:"FCM_CREDENTIALS_FILE"`
	WebhookGatewayURL  string `env:"WEBHOOK_GATEWAY_URL"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY,default=8"`
	WorkerPrefetch     int    `env:"WORKER_PREFETCH,default=16"`
	APIPort            int    `env:"API_PORT,default=8080"`
	MetricsPort        int    `env:"METRICS_PORT,default=9090"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.PushGateway = strings.ToLower(strings.TrimSpace(cfg.PushGateway))
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.PushGateway {
	case GatewayFCM:
		if strings.TrimSpace(c.FCMCredentialsFile) == "" {
			return fmt.Errorf("FCM_CREDENTIALS_FILE is required when PUSH_GATEWAY=fcm")
		}
	case GatewayWebhook:
		if strings.TrimSpace(c.WebhookGatewayURL) == "" {
			return fmt.Errorf("WEBHOOK_GATEWAY_URL is required when PUSH_GATEWAY=webhook")
		}
	default:
		return fmt.Errorf("unsupported PUSH_GATEWAY %q", c.PushGateway)
	}

	return nil
}
