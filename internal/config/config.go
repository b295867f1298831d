package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Worker   WorkerConfig
	SMTP     SMTPConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	// LockTTL bounds how long a clinician lock may be held.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type WorkerConfig struct {
	OutboxBatchSize        int           `mapstructure:"outbox_batch_size"`
	OutboxPollInterval     time.Duration `mapstructure:"outbox_poll_interval"`
	WaitlistSweepInterval  time.Duration `mapstructure:"waitlist_sweep_interval"`
	WaitlistSweepBatchSize int           `mapstructure:"waitlist_sweep_batch_size"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	NotifyTo string `mapstructure:"notify_to"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.lock_ttl", 10*time.Second)
	viper.SetDefault("worker.outbox_batch_size", 100)
	viper.SetDefault("worker.outbox_poll_interval", 5*time.Second)
	viper.SetDefault("worker.waitlist_sweep_interval", time.Minute)
	viper.SetDefault("worker.waitlist_sweep_batch_size", 100)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus environment variables are a complete config.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

