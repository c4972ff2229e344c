package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"paybot/internal/api"
	"paybot/internal/config"
	"paybot/internal/domain"
	"paybot/internal/identity"
	"paybot/internal/intent"
	"paybot/internal/notify"
	"paybot/internal/store"
	"paybot/internal/wallet"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the payment API and notifiers",
		Long:  "Starts the HTTP API, the identity resolver, and all enabled notifier platforms. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = buildLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("intent store: %w", err)
	}
	defer st.Close()

	resolver, err := buildResolver(cfg.Identity)
	if err != nil {
		return fmt.Errorf("identity resolver: %w", err)
	}

	chains, err := wallet.LoadRegistry(cfg.Wallet.ChainsFile, logger)
	if err != nil {
		return fmt.Errorf("chain registry: %w", err)
	}
	policy := wallet.Policy{
		PreferredChainID:   cfg.Wallet.PreferredChainID,
		DefaultChainFamily: cfg.Wallet.DefaultChainFamily,
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return fmt.Errorf("notifiers: %w", err)
	}

	coord := intent.NewCoordinator(st, resolver, policy, chains, logger)
	rec := intent.NewReconciler(st, notifier, cfg.API.Operators, logger)

	srv := api.New(api.Config{
		Host:             cfg.API.Host,
		Port:             cfg.API.Port,
		Coordinator:      coord,
		Reconciler:       rec,
		FoldUnauthorized: cfg.API.FoldUnauthorized,
		Logger:           logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("paybot started. Press Ctrl+C to stop.",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"store", cfg.Store.Driver,
		"identity", cfg.Identity.Provider)

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown timed out, forcing exit", "err", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func buildLogger(cfg config.GeneralConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}
	out := os.Stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err == nil {
			if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
				out = f
			}
		}
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func buildStore(cfg config.StoreConfig) (domain.IntentStore, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(cfg.DBPath, logger)
	}
}

func buildResolver(cfg config.IdentityConfig) (domain.IdentityResolver, error) {
	switch cfg.Provider {
	case "static":
		return identity.NewStaticFromConfig(cfg.StaticUsers), nil
	default:
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return identity.NewPrivy(identity.PrivyConfig{
			BaseURL:   cfg.BaseURL,
			AppID:     cfg.AppID,
			AppSecret: cfg.AppSecret,
			Timeout:   timeout,
			Logger:    logger,
		}), nil
	}
}

func buildNotifier(cfg config.NotifyConfig) (domain.Notifier, error) {
	mux := notify.NewMux(logger)

	if cfg.Discord.Enabled && cfg.Discord.Token != "" {
		d, err := notify.NewDiscord(notify.DiscordConfig{Token: cfg.Discord.Token, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("discord: %w", err)
		}
		mux.Register("discord", d)
		logger.Info("discord notifier enabled")
	}

	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		t, err := notify.NewTelegram(notify.TelegramConfig{
			Token:     cfg.Telegram.Token,
			ParseMode: cfg.Telegram.ParseMode,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		mux.Register("telegram", t)
		logger.Info("telegram notifier enabled")
	}

	if cfg.Slack.Enabled && cfg.Slack.BotToken != "" {
		mux.Register("slack", notify.NewSlack(notify.SlackConfig{BotToken: cfg.Slack.BotToken, Logger: logger}))
		logger.Info("slack notifier enabled")
	}

	return mux, nil
}
