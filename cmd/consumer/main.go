package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmelendez07/MathG/internal/api"
	"github.com/jmelendez07/MathG/internal/auth"
	"github.com/jmelendez07/MathG/internal/broker"
	"github.com/jmelendez07/MathG/internal/config"
	"github.com/jmelendez07/MathG/internal/consumer"
	"github.com/jmelendez07/MathG/internal/store"
	"github.com/jmelendez07/MathG/internal/stream"
)

func main() {
	once := flag.Bool("once", false, "consume a single message and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadConsumer()

	st, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	reader, err := broker.NewReader(cfg.Broker)
	if err != nil {
		logger.Error("failed to build broker reader", "error", err)
		os.Exit(1)
	}

	hub := stream.NewHub(logger)
	daemon := consumer.New(reader, st, hub, logger)
	daemon.Once = *once

	router := gin.Default()
	api.RegisterDashboard(router, st, hub, auth.NewVerifier(cfg.AuthSecret), logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting dashboard server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		logger.Info("starting consumer daemon",
			"topic", cfg.Broker.Topic, "group_id", cfg.Broker.GroupID, "once", *once)
		done <- daemon.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-quit:
		logger.Info("shutting down consumer")
		cancel()
		if err := <-done; err != nil {
			logger.Error("consumer exited with error", "error", err)
			exitCode = 1
		}
	case err := <-done:
		if err != nil {
			logger.Error("consumer exited with error", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard server forced to shutdown", "error", err)
	}

	if err := st.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
	}

	logger.Info("consumer exited", "consumed", daemon.Consumed(), "dropped", daemon.Dropped())
	os.Exit(exitCode)
}
