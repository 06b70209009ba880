package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Invite   InviteConfig   `mapstructure:"invite"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryBackoffMs int      `mapstructure:"retry_backoff_ms"`
}

type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	RefreshHours int    `mapstructure:"refresh_hours"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// InviteConfig 邀请码策略配置
// rotate_on_success 为 true 时启用轮换模式（每对 userid/rootdomain 一个常驻码，
// 用后换新），否则为计数模式（max_uses 次用完即废，可设置过期时间）
type InviteConfig struct {
	DefaultMaxUses         int  `mapstructure:"default_max_uses"`
	CodeTTLHours           int  `mapstructure:"code_ttl_hours"`
	RotateOnSuccess        bool `mapstructure:"rotate_on_success"`
	CleanupBatchSize       int  `mapstructure:"cleanup_batch_size"`
	CleanupIntervalMinutes int  `mapstructure:"cleanup_interval_minutes"`
	SettingCacheSeconds    int  `mapstructure:"setting_cache_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 将配置反序列化到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Invite.DefaultMaxUses <= 0 {
		cfg.Invite.DefaultMaxUses = 1
	}
	if cfg.Invite.CleanupBatchSize <= 0 {
		cfg.Invite.CleanupBatchSize = 100
	}
	if cfg.Invite.CleanupIntervalMinutes <= 0 {
		cfg.Invite.CleanupIntervalMinutes = 30
	}
	if cfg.Invite.SettingCacheSeconds <= 0 {
		cfg.Invite.SettingCacheSeconds = 60
	}
}
