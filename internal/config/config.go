// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string `yaml:"token"`
	Mode     string `yaml:"mode"` // polling | webhook (future)
	Username string `yaml:"username"`
	Workers  int    `yaml:"workers"` // polling workers
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	Password   string        `yaml:"password"` // chat-login password for admins
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Enabled  bool          `yaml:"enabled"` // when false, sessions live in process memory
}

type DispatchConfig struct {
	FanOutLimit      int           `yaml:"fan_out_limit"`     // max concurrent sends per dispatch
	RequireApproval  bool          `yaml:"require_approval"`  // gate dispatch behind job approval
	ClaimLockTimeout time.Duration `yaml:"claim_lock_timeout"`
}

type SchedulerConfig struct {
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	ReminderAge      time.Duration `yaml:"reminder_age"`
	DigestHour       int           `yaml:"digest_hour"` // local hour for the daily digest
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Dispatch.FanOutLimit <= 0 {
		cfg.Dispatch.FanOutLimit = 16
	}
	if cfg.Dispatch.ClaimLockTimeout <= 0 {
		cfg.Dispatch.ClaimLockTimeout = 3 * time.Second
	}
	if cfg.Scheduler.ReminderInterval <= 0 {
		cfg.Scheduler.ReminderInterval = 15 * time.Minute
	}
	if cfg.Scheduler.ReminderAge <= 0 {
		cfg.Scheduler.ReminderAge = 2 * time.Hour
	}
	if cfg.Scheduler.DigestHour <= 0 || cfg.Scheduler.DigestHour > 23 {
		cfg.Scheduler.DigestHour = 20
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation. Dev runs may omit the token; main falls back to
	// the no-op messenger in that case.
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Enabled && cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required when redis.enabled")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
