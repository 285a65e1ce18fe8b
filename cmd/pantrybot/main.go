package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"pantrybot"
	"pantrybot/app"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pantrybot",
		Short: "Chat bot that tracks perishable ingredients",
		Long: `pantrybot keeps a table of ingredients with quantities and expiry dates.
Messages in plain language are routed by a language model to inventory operations.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(digestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, starts telemetry and builds the app. The
// returned cleanup closes both.
func setup(ctx context.Context) (*app.App, func(), error) {
	cfg, err := pantrybot.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	otelShutdown, err := pantrybot.InitOtel(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			slog.Error("SETUP: Failed to close app", "error", err)
		}
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}
	return a, cleanup, nil
}
