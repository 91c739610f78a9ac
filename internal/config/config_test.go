package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
user_id: alice
monitor_interval: 15s
binance:
  testnet: true
  requests_per_sec: 10
bot:
  symbol: ETHUSDT
  timeframe: 4h
  interval: 2m
  oversold: 25
  overbought: 75
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, 15*time.Second, cfg.MonitorInterval)
	assert.True(t, cfg.Binance.Testnet)
	assert.Equal(t, 10, cfg.Binance.RequestsPerSec)

	assert.Equal(t, "ETHUSDT", cfg.Bot.Symbol)
	assert.Equal(t, "4h", cfg.Bot.Timeframe)
	assert.Equal(t, 2*time.Minute, cfg.Bot.Interval)
	assert.Equal(t, 25.0, cfg.Bot.Oversold)
	// Untouched bot fields keep their defaults.
	assert.Equal(t, 14, cfg.Bot.RSIPeriod)
	assert.Equal(t, 60.0, cfg.Bot.MinConfidence)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "local", cfg.UserID)
	assert.Equal(t, 30*time.Second, cfg.MonitorInterval)
	assert.Equal(t, 5, cfg.Binance.RequestsPerSec)
	assert.Equal(t, "BTCUSDT", cfg.Bot.Symbol)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DATABASE_URL", "postgres://localhost/trades")
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "oai")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")

	cfg, err := LoadConfig(writeConfig(t, "log_level: debug"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel, "environment beats the file")
	assert.Equal(t, "postgres://localhost/trades", cfg.DatabaseURL)
	assert.Equal(t, "key", cfg.BinanceKey)
	assert.Equal(t, "secret", cfg.BinanceSecret)
	assert.Equal(t, "oai", cfg.OpenAIKey)
	assert.Equal(t, "tg", cfg.TelegramToken)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "log_level: [unterminated"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidBotConfigRejected(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
bot:
  symbol: ""
`))
	assert.Error(t, err)
}
