package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callsight/config"
	"callsight/internal/auth"
	"callsight/internal/backend"
	"callsight/internal/logging"
	"callsight/internal/notify"
	"callsight/internal/sessionmon"
	"callsight/internal/tokenstore"
	"callsight/internal/web"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	// Credential stores: sqlite for remember-me sessions, memory for
	// session-only logins.
	logger.Info("Opening credential store", "path", cfg.Storage.Path)
	persistent, err := tokenstore.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	store := tokenstore.NewTiered(persistent, tokenstore.NewMemoryStore())
	defer store.Close()

	// Backend client and token manager reference each other (the manager
	// refreshes through the client; the client's authed calls go through
	// the manager's transport), so wiring is two-phase.
	client := backend.New(cfg.Backend.BaseURL, nil, logger)
	manager := auth.NewManager(store, client, logger)
	manager.SetRefreshThreshold(time.Duration(cfg.Auth.RefreshThresholdMinutes) * time.Minute)
	client.SetAuthedClient(&http.Client{
		Transport: auth.NewTransport(nil, manager, nil, logger),
		Timeout:   30 * time.Second,
	})

	// Optional ops alerting for terminal session failures
	var notifier sessionmon.Notifier
	if cfg.Telegram.BotToken != "" {
		telegramNotifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		notifier = telegramNotifier
	}

	monitor := sessionmon.NewMonitor(manager, notifier,
		time.Duration(cfg.Auth.MonitorIntervalMinutes)*time.Minute, logger)
	go monitor.Start()

	router := web.NewRouter(web.RouterConfig{
		Manager: manager,
		Client:  client,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting dashboard server",
			"addr", server.Addr,
			"backend", cfg.Backend.BaseURL,
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "signal", sig.String())

		monitor.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete")
	}

	return nil
}
