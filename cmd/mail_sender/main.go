package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"uptask/internal/config"
	sl "uptask/internal/lib/logger"
	"uptask/internal/mailsender"
	"uptask/internal/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	log := sl.New(cfg.Env)

	log.Info("Starting mail_sender", slog.String("env", cfg.Env))

	if err := startConsumer(ctx, cfg, log); err != nil {
		log.Error("mail_sender stopped with error", sl.Err(err))
		os.Exit(1)
	}
}

func startConsumer(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return err
	}
	defer r.Close()

	m := &mailsender.Mailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}

	done := make(chan error, 1)

	go func() {
		done <- r.StartReading(ctx, log, mailsender.Handler(log, m))
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
		err = <-done
	case err = <-done:
		log.Info("consumer finished the work")
	}

	if err != nil {
		log.Error("consumer stopped", sl.Err(err))
		return err
	}

	log.Info("service gracefully stopped")

	return nil
}
