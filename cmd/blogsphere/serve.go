package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/blogsphere/internal/app"
	"github.com/d60-Lab/blogsphere/pkg/logger"
	"github.com/d60-Lab/blogsphere/pkg/observability"
)

func newServeCommand() *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			flush, err := observability.InitSentry(cfg.Sentry)
			if err != nil {
				logger.Warn("sentry init failed", zap.Error(err))
			}
			defer flush()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
			if err != nil {
				return err
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			// 内存队列只能在本进程消费
			var stopWorkers func(context.Context) error
			if withWorker || cfg.Queue.Driver == "memory" {
				stopWorkers = a.StartWorkers()
			}

			srv := a.HTTPServer()
			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Error("http shutdown", zap.Error(err))
			}
			if stopWorkers != nil {
				if err := stopWorkers(sctx); err != nil {
					logger.Warn("workers did not drain", zap.Error(err))
				}
			}
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracer shutdown", zap.Error(err))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also consume avatar jobs in this process")
	return cmd
}
