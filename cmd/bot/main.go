// Package main is the entry point of the candle trading bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/your-org/candle-trade-bot/internal/advisor"
	"github.com/your-org/candle-trade-bot/internal/bot"
	"github.com/your-org/candle-trade-bot/internal/config"
	"github.com/your-org/candle-trade-bot/internal/datastore"
	"github.com/your-org/candle-trade-bot/internal/exchange"
	"github.com/your-org/candle-trade-bot/internal/exchange/binance"
	"github.com/your-org/candle-trade-bot/internal/logging"
	"github.com/your-org/candle-trade-bot/internal/monitor"
	"github.com/your-org/candle-trade-bot/internal/notify"
	"github.com/your-org/candle-trade-bot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.SetGlobalLogLevel(cfg.LogLevel)
	logger.Infof("candle trading bot starting, symbol %s %s", cfg.Bot.Symbol, cfg.Bot.Timeframe)

	zapLogger, err := logging.Build(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logger.Fatalf("Failed to build zap logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Persistence ---
	var store datastore.Store
	if cfg.DatabaseURL != "" {
		repo, err := datastore.Connect(ctx, cfg.DatabaseURL, zapLogger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to ensure schema: %v", err)
		}
		store = repo
		logger.Infof("postgres store initialized")
	} else {
		store = datastore.NewInMemStore()
		logger.Warnf("DATABASE_URL not set, using in-memory store; trades will not survive a restart")
	}

	// --- Exchange ---
	client := binance.NewClient(cfg.Binance.RequestsPerSec)
	account := exchange.Account{
		UserID:    cfg.UserID,
		APIKey:    cfg.BinanceKey,
		APISecret: cfg.BinanceSecret,
		Testnet:   cfg.Binance.Testnet,
	}

	// --- Advisory oracle (optional) ---
	var oracle advisor.Oracle
	if cfg.OpenAIKey != "" {
		oracle = advisor.NewOpenAIOracle(cfg.OpenAIKey, cfg.OpenAIModel)
		logger.Infof("advisory oracle enabled (%s)", cfg.OpenAIModel)
	}

	// --- Notifications (optional) ---
	var notifier notify.Notifier = notify.NewNoOp()
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken)
		if err != nil {
			logger.Fatalf("Failed to initialize telegram notifier: %v", err)
		}
		tg.Register(cfg.UserID, cfg.TelegramChatID)
		notifier = tg
		logger.Infof("telegram notifications enabled")
	}
	defer func() { _ = notifier.Close() }()

	// --- Scheduler host ---
	registry := bot.NewRegistry(bot.Deps{
		Market:   client,
		Exec:     client,
		Balance:  client,
		Store:    store,
		Oracle:   oracle,
		Notifier: notifier,
		Log:      logger.New(cfg.LogLevel),
	})
	if err := registry.Start(ctx, account, cfg.Bot); err != nil {
		logger.Fatalf("Failed to start bot: %v", err)
	}

	// --- Trade monitor ---
	mon := monitor.New(store, client, client,
		func(userID string) (exchange.Account, bool) {
			if userID == account.UserID {
				return account, true
			}
			return exchange.Account{}, false
		},
		notifier, logger.New(cfg.LogLevel),
		monitor.WithInterval(cfg.MonitorInterval))
	go mon.Run(ctx)

	// --- Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("received %s, shutting down", sig)

	registry.StopAll()
	cancel()
	logger.Infof("shutdown complete")
}
