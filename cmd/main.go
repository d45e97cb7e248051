package main

import (
	"context"
	"os/signal"
	"syscall"

	"encore/queue-gateway/cmd/command"
	"encore/queue-gateway/internal/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	const description = "Jukebox Queue Gateway"
	root := &cobra.Command{Short: description}

	cfg, err := config.Load()
	if err != nil {
		log.WithContext(ctx).Fatal(err)
	}

	logger := newLogger(cfg)

	root.AddCommand(
		command.Server{Logger: logger}.Command(ctx, cfg),
		command.MigrateCommand{Logger: logger}.Command(ctx, cfg),
		command.AuditConsumerCommand{Logger: logger}.Command(ctx, cfg),
		command.ReplayDlqCommand{Logger: logger}.Command(ctx, cfg),
	)

	if err := root.Execute(); err != nil {
		logger.WithContext(ctx).Fatalf("failed to execute root command: \n%v", err)
	}
}

func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New()
	logger.SetLevel(cfg.LogLevel)

	if cfg.LogFormat == "json" || cfg.AppEnv == config.ProductionEnv {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	return logger
}
