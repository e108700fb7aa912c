package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmelendez07/MathG/internal/activitylog"
	"github.com/jmelendez07/MathG/internal/api"
	"github.com/jmelendez07/MathG/internal/broker"
	"github.com/jmelendez07/MathG/internal/config"
	"github.com/jmelendez07/MathG/internal/dispatch"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadProducer()

	publisher, err := broker.NewPublisher(cfg.Broker)
	if err != nil {
		logger.Error("failed to build broker publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	dispatcher := dispatch.New(publisher, dispatch.Config{
		Workers:        cfg.Workers,
		QueueSize:      cfg.QueueSize,
		PublishTimeout: cfg.Broker.MessageTimeout,
	}, logger)

	activityLogger := activitylog.New(cfg.Topic, dispatcher, logger)

	router := gin.Default()
	api.RegisterProducer(router, activityLogger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting producer server", "port", cfg.Port, "topic", cfg.Topic)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down producer server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Drain pending publishes before exiting.
	dispatcher.Close()

	logger.Info("producer server exited")
}
