package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	BackendURL  string `env:"BACKEND_URL,required,notEmpty"`

	// Completion backend
	CompletionTimeout  time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
	CompletionAttempts int           `env:"COMPLETION_ATTEMPTS" envDefault:"2"`
	BackendTimeout     time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	// Daily quote digest (5-field cron, server local time)
	DigestEnabled bool   `env:"DIGEST_ENABLED" envDefault:"true"`
	DigestCron    string `env:"DIGEST_CRON" envDefault:"0 8 * * *"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID    int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError        int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration int   `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicAdminAction  int   `env:"LOG_TOPIC_ADMIN_ACTION"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CompletionAttempts < 1 {
		cfg.CompletionAttempts = 1
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	return cfg, nil
}
