package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"

	mindchat "github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/chatstore"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/dispatch"
	"github.com/set-night/mindchat/internal/handler"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.DigestEnabled {
		if err := service.ValidateSchedule(cfg.DigestCron); err != nil {
			slog.Error("invalid digest schedule", "cron", cfg.DigestCron, "error", err)
			os.Exit(1)
		}
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(mindchat.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	states := repository.NewClientStates(pool)
	rateLimits := repository.NewRateLimits(pool)
	subscriptions := repository.NewSubscriptions(pool)

	// Backend and services
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	chats := chatstore.NewRegistry()

	authService := service.NewAuthService(client, states, chats)
	historyService := service.NewHistoryService(client, states, chats)
	contentService := service.NewContentService(client, config.ContentCacheDuration)
	breathingService, err := service.NewBreathingService()
	if err != nil {
		slog.Error("failed to load breathing catalog", "error", err)
		os.Exit(1)
	}
	dispatcher := dispatch.New(client, dispatch.Options{
		Timeout:  cfg.CompletionTimeout,
		Attempts: cfg.CompletionAttempts,
		Backoff:  config.CompletionBackoff,
	})

	// Create bot
	b, err := bot.New(cfg.BotToken, bot.WithMiddlewares(
		middleware.Recover(),
		middleware.Logging(),
		middleware.RateLimit(rateLimits),
		middleware.LoadState(states),
	))
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	// Initialize telegram logger
	tgLogger := telegram.NewTelegramLogger(b, cfg)

	digestService := service.NewDigestService(subscriptions, contentService, func(ctx context.Context, chatID int64, text string) error {
		return telegram.SendText(ctx, b, chatID, text, nil)
	})
	if cfg.DigestEnabled {
		if err := digestService.Start(cfg.DigestCron); err != nil {
			slog.Error("failed to start digest", "error", err)
			os.Exit(1)
		}
		defer digestService.Stop()
	}

	// Initialize handler
	h := handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Auth:        authService,
		History:     historyService,
		Content:     contentService,
		Breathing:   breathingService,
		Digest:      digestService,
		Dispatcher:  dispatcher,
		States:      states,
		TgLogger:    tgLogger,
		BotUsername: me.Username,
	})

	// Register all handlers
	h.Register()

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: h.BotCommands()}); err != nil {
		slog.Warn("failed to set bot commands", "error", err)
	}

	// Start rate-limit window cleanup goroutine
	go func() {
		ticker := time.NewTicker(config.RateLimitCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := rateLimits.Cleanup(context.Background())
				if err != nil {
					slog.Error("cleanup rate limits", "error", err)
					continue
				}
				slog.Debug("rate limit windows removed", "count", n)
			}
		}
	}()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
