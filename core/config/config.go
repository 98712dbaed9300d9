// Package config 从环境变量（及可选的 .env 文件）加载客户端配置。
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 汇总客户端运行参数。
type Config struct {
	LogLevel string  `env:"LOG_LEVEL" envDefault:"info"`
	Env      string  `env:"APP_ENV" envDefault:"development"`
	API      API     `envPrefix:"API_"`
	Session  Session `envPrefix:"SESSION_"`
	Cache    Cache   `envPrefix:"CACHE_"`
	Storage  Storage `envPrefix:"STORAGE_"`
	Metrics  Metrics `envPrefix:"METRICS_"`
}

// API 后端网关参数。
type API struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"http://localhost:5000/api"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"2"`
	RateLimitQPS   float64       `env:"RATE_LIMIT_QPS" envDefault:"0"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

// Session 令牌刷新调度参数。
type Session struct {
	RefreshInterval   time.Duration `env:"REFRESH_INTERVAL" envDefault:"55m"`
	RetryDelay        time.Duration `env:"RETRY_DELAY" envDefault:"60s"`
	MaxRefreshRetries int           `env:"MAX_REFRESH_RETRIES" envDefault:"5"`
}

// Cache 商品缓存有效性阈值。
type Cache struct {
	FreshTTL         time.Duration `env:"FRESH_TTL" envDefault:"5m"`
	ErrorGrace       time.Duration `env:"ERROR_GRACE" envDefault:"60s"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"3"`
	FailureTTL       time.Duration `env:"FAILURE_TTL" envDefault:"20m"`
	DetailTimeout    time.Duration `env:"DETAIL_TIMEOUT" envDefault:"8s"`
}

// Storage 持久化存储参数。
type Storage struct {
	Driver        string `env:"DRIVER" envDefault:"file"`
	Path          string `env:"PATH" envDefault:".storefront/storage.json"`
	Secret        string `env:"SECRET"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"storefront"`
}

// Metrics 指标暴露参数，Addr 为空表示不启动。
type Metrics struct {
	Addr string `env:"ADDR"`
}

// 支持的存储驱动。
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Load 预加载 .env（若存在）后解析环境变量。
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse 仅从当前进程环境解析配置。
func Parse() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验互相依赖的字段。
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		return fmt.Errorf("config: unsupported storage driver %q", c.Storage.Driver)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: API_BASE_URL is required")
	}
	if c.Session.RefreshInterval <= 0 {
		return fmt.Errorf("config: SESSION_REFRESH_INTERVAL must be positive")
	}
	return nil
}
