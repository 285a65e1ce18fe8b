package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"pantrybot/server"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP message endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.Config.Server.HTTPAddr
			}

			srv := server.New(a.Chat, a.Store, a.Config.Agent.ExpiryThresholdDays)
			errc := make(chan error, 1)
			go func() { errc <- srv.Start(addr) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			slog.Info("HTTP: Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (defaults to HTTP_ADDR)")
	return cmd
}
