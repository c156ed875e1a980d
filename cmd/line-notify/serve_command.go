package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/goog1e-app/line-notify/internal/notifyclient"
	"github.com/goog1e-app/line-notify/internal/server"
	"github.com/goog1e-app/line-notify/internal/service"
	"github.com/goog1e-app/line-notify/internal/storage/bolt"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notify relay HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			client, err := notifyclient.New(cfg.Notify.Endpoint, cfg.Notify.RequestTimeout, logger)
			if err != nil {
				return fmt.Errorf("init notify client: %w", err)
			}
			store, err := bolt.New(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			tokenSvc := service.NewTokenService(store, cfg)
			notifySvc := service.NewNotifyService(client, tokenSvc, store, cfg, logger)
			logSvc := service.NewDeliveryLogService(store)
			authSvc := service.NewAuthService(cfg)
			srv := server.New(cfg, tokenSvc, notifySvc, logSvc, authSvc, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server stopped: %w", err)
			case <-runCtx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("shutdown error")
			}
			return nil
		},
	}
}
