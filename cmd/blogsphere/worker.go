package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/internal/app"
	"github.com/d60-Lab/blogsphere/pkg/logger"
	"github.com/d60-Lab/blogsphere/pkg/observability"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume avatar upload jobs from redis or rabbitmq",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.Queue.Driver == "memory" {
				return errors.New("worker needs queue.driver redis or rabbitmq; the memory queue is consumed by serve")
			}

			flush, err := observability.InitSentry(cfg.Sentry)
			if err != nil {
				logger.Warn("sentry init failed", zap.Error(err))
			}
			defer flush()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stopWorkers := a.StartWorkers()
			<-ctx.Done()

			logger.Info("stopping workers")
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return stopWorkers(sctx)
		},
	}
}
