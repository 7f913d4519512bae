package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/cli/config"
	herokucontroller "github.com/m-mizutani/herald/pkg/controller/heroku"
	controller "github.com/m-mizutani/herald/pkg/controller/http"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		releaseCfg releaseConfig
		storageCfg config.Storage
	)

	flags := append(serverCfg.Flags(), releaseCfg.Flags()...)
	flags = append(flags, releaseCfg.heroku.WebhookFlags()...)
	flags = append(flags, storageCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server receiving Heroku release webhooks",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting herald server",
				slog.String("addr", serverCfg.Addr),
			)

			releaseUC, cleanup, err := releaseCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := []controller.Option{
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(releaseCfg.heroku.WebhookSecret),
			}
			if releaseCfg.heroku.WebhookSecret == "" {
				logger.Warn("Webhook secret is not set, signatures are not verified")
			}

			archiver, err := storageCfg.NewArchiver(ctx)
			if err != nil {
				return err
			}
			if archiver != nil {
				opts = append(opts, controller.WithArchiver(archiver))
			}

			server, err := controller.NewServer(
				ctx,
				herokucontroller.NewEventProcessor(releaseUC),
				opts...,
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
