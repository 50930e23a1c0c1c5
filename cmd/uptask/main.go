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

	"uptask/internal/auth"
	"uptask/internal/config"
	"uptask/internal/emails"
	"uptask/internal/http_server/router"
	sl "uptask/internal/lib/logger"
	"uptask/internal/notes"
	"uptask/internal/projects"
	"uptask/internal/rabbitmq"
	"uptask/internal/storage/postgres"
	"uptask/internal/storage/redis"
	"uptask/internal/tasks"

	"github.com/go-playground/validator/v10"
)

func main() {
	cfg := config.MustLoad()

	log := sl.New(cfg.Env)

	log.Info("starting uptask", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("uptask stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("Main service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		return err
	}
	defer storage.Close()

	if err := storage.Migrate(ctx); err != nil {
		log.Error("failed to apply migrations", sl.Err(err))
		return err
	}

	tokenStorage, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		return err
	}
	defer tokenStorage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		return err
	}
	defer msgBroker.Close()

	mailer := emails.New(log, msgBroker, cfg.FrontendURL)
	// pending publications must finish before the broker is closed
	defer mailer.Wait()

	services := router.Services{
		Auth: auth.New(
			log,
			storage,
			storage,
			tokenStorage,
			mailer,
			cfg.Tokens.SessionSecret,
			cfg.Tokens.SessionTTL,
			cfg.Tokens.TokenTTL,
		),
		Projects: projects.New(log, storage, storage, storage),
		Tasks:    tasks.New(log, storage),
		Notes:    notes.New(log, storage, storage),
	}

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router.New(log, validator.New(), cfg.Tokens.SessionSecret, services),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error("Server failed", sl.Err(err))
			return err
		}
	}

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
		return err
	}

	log.Info("Server stopped gracefully")

	return nil
}
