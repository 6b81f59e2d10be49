package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Queue      QueueConfig
	Worker     WorkerConfig
	Generation GenerationConfig
	Ledger     LedgerConfig
	Storage    StorageConfig
	R2         R2Config
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type QueueConfig struct {
	Driver    string // "list" or "asynq"
	Name      string // Redis list popped by the list consumer
	AsynqName string // asynq queue name
}

type WorkerConfig struct {
	ID           string
	PollTimeout  time.Duration
	Concurrency  int
	ClaimTTL     time.Duration
	ErrorBackoff time.Duration
	MetricsAddr  string // standalone worker /metrics listener, empty disables it
}

type GenerationConfig struct {
	BaseURL       string
	Model         string
	Timeout       time.Duration
	OnUnavailable string // "placeholder" or "fail"
}

type LedgerConfig struct {
	TTL time.Duration // 0 keeps entries forever
}

type StorageConfig struct {
	Driver        string // "local" or "r2"
	OutputDir     string
	PublicBaseURL string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// Load reads configuration from config.yaml (optional) and the environment.
// path overrides the config file search when non-empty.
func Load(path string) (*Config, error) {
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.log_format", "LOG_FORMAT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("queue.driver", "QUEUE_DRIVER")
	_ = v.BindEnv("queue.name", "QUEUE_NAME")
	_ = v.BindEnv("queue.asynq_name", "QUEUE_ASYNQ_NAME")
	_ = v.BindEnv("worker.id", "WORKER_ID")
	_ = v.BindEnv("worker.poll_timeout", "WORKER_POLL_TIMEOUT")
	_ = v.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = v.BindEnv("worker.claim_ttl", "WORKER_CLAIM_TTL")
	_ = v.BindEnv("worker.error_backoff", "WORKER_ERROR_BACKOFF")
	_ = v.BindEnv("worker.metrics_addr", "WORKER_METRICS_ADDR")
	_ = v.BindEnv("generation.base_url", "GENERATION_BASE_URL")
	_ = v.BindEnv("generation.model", "GENERATION_MODEL")
	_ = v.BindEnv("generation.timeout", "GENERATION_TIMEOUT")
	_ = v.BindEnv("generation.on_unavailable", "GENERATION_ON_UNAVAILABLE")
	_ = v.BindEnv("ledger.ttl", "LEDGER_TTL")
	_ = v.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = v.BindEnv("storage.output_dir", "OUTPUT_DIR")
	_ = v.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("queue.driver", "list")
	v.SetDefault("queue.name", "music_jobs")
	v.SetDefault("queue.asynq_name", "music")
	v.SetDefault("worker.poll_timeout", 5*time.Second)
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.claim_ttl", 0)
	v.SetDefault("worker.error_backoff", time.Second)
	v.SetDefault("worker.metrics_addr", ":9090")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.model", "facebook/musicgen-medium")
	v.SetDefault("generation.timeout", 10*time.Minute)
	v.SetDefault("generation.on_unavailable", "placeholder")
	v.SetDefault("ledger.ttl", 0)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.output_dir", "/data/output")
	v.SetDefault("storage.public_base_url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			LogFormat: v.GetString("server.log_format"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Queue: QueueConfig{
			Driver:    v.GetString("queue.driver"),
			Name:      v.GetString("queue.name"),
			AsynqName: v.GetString("queue.asynq_name"),
		},
		Worker: WorkerConfig{
			ID:           v.GetString("worker.id"),
			PollTimeout:  v.GetDuration("worker.poll_timeout"),
			Concurrency:  v.GetInt("worker.concurrency"),
			ClaimTTL:     v.GetDuration("worker.claim_ttl"),
			ErrorBackoff: v.GetDuration("worker.error_backoff"),
			MetricsAddr:  v.GetString("worker.metrics_addr"),
		},
		Generation: GenerationConfig{
			BaseURL:       strings.TrimSuffix(v.GetString("generation.base_url"), "/"),
			Model:         v.GetString("generation.model"),
			Timeout:       v.GetDuration("generation.timeout"),
			OnUnavailable: v.GetString("generation.on_unavailable"),
		},
		Ledger: LedgerConfig{
			TTL: v.GetDuration("ledger.ttl"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			OutputDir:     v.GetString("storage.output_dir"),
			PublicBaseURL: strings.TrimSuffix(v.GetString("storage.public_base_url"), "/"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the worker cannot run with
func (c *Config) Validate() error {
	switch c.Queue.Driver {
	case "list", "asynq":
	default:
		return fmt.Errorf("queue.driver: unsupported value %q", c.Queue.Driver)
	}
	switch c.Storage.Driver {
	case "local", "r2":
	default:
		return fmt.Errorf("storage.driver: unsupported value %q", c.Storage.Driver)
	}
	switch c.Generation.OnUnavailable {
	case "placeholder", "fail":
	default:
		return fmt.Errorf("generation.on_unavailable: unsupported value %q", c.Generation.OnUnavailable)
	}
	if c.Worker.PollTimeout <= 0 {
		return fmt.Errorf("worker.poll_timeout must be positive")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	return nil
}
