package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL     string `env:"DATABASE_URL,required"`
	Port            int    `env:"PORT" envDefault:"8080"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv          string `env:"APP_ENV" envDefault:"production"`
	GatewayURL      string `env:"GATEWAY_URL" envDefault:"http://mock-gateway:8081"`
	GatewayTimeoutS int    `env:"GATEWAY_TIMEOUT_S" envDefault:"15"`
	WebhookSecret   string `env:"WEBHOOK_SECRET,required"`
	NotifierURL     string `env:"NOTIFIER_URL"`

	PlatformFeePct      float64 `env:"PLATFORM_FEE_PCT" envDefault:"0.10"`
	PlatformFeeMinCents int64   `env:"PLATFORM_FEE_MIN_CENTS" envDefault:"50"`

	MaxRetries          int `env:"MAX_RETRIES" envDefault:"5"`
	RetryDelayS         int `env:"RETRY_DELAY_S" envDefault:"300"`
	RetrySweepIntervalS int `env:"RETRY_SWEEP_INTERVAL_S" envDefault:"60"`
	RetrySweepBatchSize int `env:"RETRY_SWEEP_BATCH_SIZE" envDefault:"50"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
