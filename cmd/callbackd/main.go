package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inteleon/dibs-go/config"
	"github.com/inteleon/dibs-go/dibs"
	"github.com/inteleon/dibs-go/flexwin"
	"github.com/inteleon/dibs-go/internal/callback"
	"github.com/inteleon/dibs-go/internal/journal"
	"github.com/inteleon/dibs-go/paywin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting callback service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()

	var recorder journal.Recorder
	if cfg.Database.Enabled() {
		j, err := journal.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer j.Close()

		if err := j.Migrate(ctx); err != nil {
			logger.Error("failed to migrate journal schema", "error", err)
			os.Exit(1)
		}
		recorder = j
	} else {
		logger.Info("journal database not configured, callbacks will only be logged")
	}

	transport := dibs.NewHTTPTransport(cfg.TransportOptions())
	fw := flexwin.NewClient(cfg.FlexWinClientConfig(), transport, logger)
	pw := paywin.NewClient(cfg.PayWinClientConfig(), transport, logger)

	h := callback.NewHandlers(fw, pw, recorder, logger)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      h.Router(cfg.Server.ReadTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
