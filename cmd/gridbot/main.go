// Command gridbot runs a single-market grid-trading bot: it posts a
// post-only open order, waits for it to fill, posts an offsetting
// take-profit close order, and repeats, against one of the supported
// perpetual futures venues.
//
// Architecture:
//
//	main.go                    — entry point: loads config, starts engine, waits for SIGINT/SIGTERM
//	internal/engine            — orchestrator: open/close grid cycle, cool-down, stop/pause price, position-mismatch guard
//	internal/venue              — Adapter contract + registry; venue/lighter and venue/grvt implementations
//	internal/venue/internal/sign — L1/L2 request signing shared by both adapters
//	internal/venue/internal/retry — bounded retry for read-only venue queries
//	internal/notify              — Telegram/webhook alert fan-out
//	internal/statusapi           — operator-facing /health and /status HTTP server
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gridbot/internal/config"
	"gridbot/internal/engine"
	"gridbot/internal/notify"
	"gridbot/internal/statusapi"
	"gridbot/internal/venue"

	// Blank-imported for their init() venue registrations.
	_ "gridbot/internal/venue/grvt"
	_ "gridbot/internal/venue/lighter"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("GRIDBOT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	tradingCfg, err := cfg.ToTradingConfig()
	if err != nil {
		logger.Error("invalid trading config", "error", err)
		os.Exit(1)
	}

	adapter, err := venue.Create(cfg.Venue.Name, cfg.ToVenueConfig(tradingCfg))
	if err != nil {
		logger.Error("failed to construct venue adapter", "venue", cfg.Venue.Name, "error", err)
		os.Exit(1)
	}

	notifier := buildNotifier(cfg, logger)

	eng := engine.New(tradingCfg, adapter, notifier, logger)

	var statusServer *statusapi.Server
	if cfg.Status.Enabled {
		statusServer = statusapi.NewServer(cfg.Status.Port, eng, logger)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		logger.Info("status server started", "url", fmt.Sprintf("http://localhost:%d", cfg.Status.Port))
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("gridbot started",
		"ticker", tradingCfg.Ticker,
		"venue", cfg.Venue.Name,
		"direction", tradingCfg.Direction,
		"quantity", tradingCfg.Quantity,
		"dry_run", cfg.DryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())
	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- eng.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
		<-runErrCh
	case err := <-runErrCh:
		if err != nil {
			logger.Error("engine stopped", "error", err)
		}
		cancel()
	}

	if statusServer != nil {
		if err := statusServer.Stop(); err != nil {
			logger.Error("failed to stop status server", "error", err)
		}
	}
}

// buildNotifier wires zero or more notification sinks from config; sinks
// with no configured credentials are simply omitted rather than erroring.
func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Sink {
	var sinks []notify.Sink

	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		var chatID int64
		if _, err := fmt.Sscanf(cfg.Notify.TelegramChatID, "%d", &chatID); err != nil {
			logger.Error("invalid notify.telegram_chat_id, skipping telegram sink", "error", err)
		} else {
			sink, err := notify.NewTelegramSink(cfg.Notify.TelegramBotToken, chatID, logger)
			if err != nil {
				logger.Error("failed to start telegram sink", "error", err)
			} else {
				sinks = append(sinks, sink)
			}
		}
	}

	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, logger))
	}

	return notify.NewMultiSink(sinks...)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
