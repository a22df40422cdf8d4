package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Web      WebConfig      `yaml:"web"`
	Summary  SummaryConfig  `yaml:"summary"`
}

type TelegramConfig struct {
	Token     string  `yaml:"token"`
	AllowFrom []int64 `yaml:"allow_from"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type NATSConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Auth    string `yaml:"auth"`
}

// SummaryConfig drives the scheduled leaderboard post. An empty cron
// expression disables it.
type SummaryConfig struct {
	Cron   string `yaml:"cron"`
	ChatID int64  `yaml:"chat_id"`
	TopN   int    `yaml:"top_n"`
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			Path: "data/punchclock.db",
		},
		NATS: NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Summary: SummaryConfig{
			TopN: 5,
		},
	}
}

func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("PUNCHCLOCK_CONFIG")
	if path == "" {
		path = "config/punchclock.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PUNCHCLOCK_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("PUNCHCLOCK_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PUNCHCLOCK_NATS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.NATS.Port = port
		}
	}
	if v := os.Getenv("PUNCHCLOCK_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v := os.Getenv("PUNCHCLOCK_WEB_PASSWORD"); v != "" {
		cfg.Web.Auth = v
	}
	if v := os.Getenv("PUNCHCLOCK_SUMMARY_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Summary.ChatID = id
		}
	}
}
