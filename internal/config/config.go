// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/your-org/candle-trade-bot/internal/bot"
)

// Config defines the host configuration: collaborator credentials plus the
// bot parameters for the locally started account.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	UserID string `yaml:"user_id"`

	Binance BinanceConf `yaml:"binance"`

	OpenAIModel string `yaml:"openai_model"`

	TelegramChatID int64 `yaml:"telegram_chat_id"`

	MonitorInterval time.Duration `yaml:"monitor_interval"`

	Bot bot.Config `yaml:"bot"`

	// Loaded from env only.
	DatabaseURL   string `yaml:"-"`
	BinanceKey    string `yaml:"-"`
	BinanceSecret string `yaml:"-"`
	OpenAIKey     string `yaml:"-"`
	TelegramToken string `yaml:"-"`
}

// BinanceConf holds non-secret exchange settings.
type BinanceConf struct {
	Testnet        bool `yaml:"testnet"`
	RequestsPerSec int  `yaml:"requests_per_sec"`
}

// LoadConfig loads configuration from the YAML file at configPath and
// overlays credentials and overrides from environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		LogLevel:        "info",
		LogFile:         "logs/candle-trade-bot.log",
		UserID:          "local",
		MonitorInterval: 30 * time.Second,
		Bot:             bot.DefaultConfig("BTCUSDT"),
	}
	cfg.Binance.RequestsPerSec = 5

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.BinanceKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.BinanceSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}

	if err := cfg.Bot.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
