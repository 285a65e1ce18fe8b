// Package app assembles the bot from a Config: storage backend, model
// provider, router, conversation service and notifier.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"pantrybot"
	"pantrybot/chat"
	"pantrybot/intent"
	"pantrybot/intent/bedrock"
	"pantrybot/intent/mock"
	"pantrybot/intent/ollama"
	"pantrybot/inventory"
	"pantrybot/session"
	"pantrybot/slack"
	"pantrybot/storage"
	"pantrybot/tools"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type App struct {
	Config   pantrybot.Config
	Store    *inventory.Store
	Router   *intent.Router
	Chat     *chat.Service
	Registry *tools.Registry
	// Notifier is nil when no Slack webhook is configured.
	Notifier pantrybot.Notifier

	closers []func() error
}

// Build wires every component described by cfg.
func Build(ctx context.Context, cfg pantrybot.Config) (*App, error) {
	a := &App{Config: cfg, Registry: tools.NewRegistry()}

	sheet, err := a.openSheet(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	slog.Info("SETUP: Inventory backend ready", "backend", cfg.Store.Backend)

	a.Store = inventory.NewStore(sheet,
		inventory.WithTimeout(cfg.Store.Timeout),
		inventory.WithCacheTTL(cfg.Store.CacheTTL),
	)

	llm, err := newLLMClient(ctx, cfg.Model)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	slog.Info("SETUP: Model client ready", "provider", cfg.Model.Provider, "model_id", cfg.Model.ID())

	routingLogger, err := a.newRoutingLogger(cfg)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.Router = intent.NewRouter(llm, a.Registry,
		intent.WithMaxIterations(cfg.Agent.Iterations()),
		intent.WithTimeout(cfg.Model.Timeout),
		intent.WithHistoryTurns(cfg.Agent.HistoryTurns),
		intent.WithNameSource(a.Store),
		intent.WithRoutingLogger(routingLogger),
	)

	a.Chat = chat.NewService(a.Router, a.Store, a.Registry,
		chat.WithThresholdDays(cfg.Agent.ExpiryThresholdDays),
		chat.WithSessions(session.NewStore(cfg.Agent.HistoryTurns)),
	)

	if cfg.Server.SlackWebhookURL != "" {
		a.Notifier = slack.NewClient(cfg.Server.SlackWebhookURL, http.DefaultClient)
	}
	return a, nil
}

// Close releases backend connections and flushes the routing log.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Digest posts the expiry report for the configured threshold.
func (a *App) Digest(ctx context.Context) (string, error) {
	return chat.Digest(ctx, a.Store, a.Notifier, a.Config.Server.SlackChannel, a.Config.Agent.ExpiryThresholdDays)
}

func (a *App) openSheet(ctx context.Context, cfg pantrybot.StoreConfig) (storage.Sheet, error) {
	switch cfg.Backend {
	case pantrybot.BackendMemory:
		return storage.NewMemorySheet(), nil
	case pantrybot.BackendFile:
		return storage.NewFileSheet(cfg.FilePath), nil
	case pantrybot.BackendS3:
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("SETUP: Using S3 inventory", "bucket", cfg.S3Bucket, "key", cfg.S3Key, "region", awsRegion(awsCfg))
		return storage.NewS3Sheet(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key), nil
	case pantrybot.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		sheet, err := storage.OpenSQLiteSheet(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sheet.Close)
		return sheet, nil
	case pantrybot.BackendPostgres:
		return storage.OpenPostgresSheet(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func newLLMClient(ctx context.Context, cfg pantrybot.ModelConfig) (intent.LLMClient, error) {
	switch cfg.Provider {
	case pantrybot.ProviderBedrock:
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("SETUP: Using Bedrock", "region", awsRegion(awsCfg))
		return bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:     cfg.ID(),
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		}), nil
	case pantrybot.ProviderOllama:
		return ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: cfg.BaseOllamaEndpoint,
			ModelID:      cfg.ID(),
			Temperature:  float64(cfg.Temperature),
			TopP:         float64(cfg.TopP),
			HTTPClient:   &http.Client{Timeout: cfg.Timeout},
		})
	case pantrybot.ProviderMock:
		return mock.NewLLMClient(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func (a *App) newRoutingLogger(cfg pantrybot.Config) (pantrybot.RoutingLogger, error) {
	switch cfg.Agent.RoutingLog {
	case pantrybot.RoutingLogStdout:
		return pantrybot.NewStreamRoutingLogger(os.Stdout), nil
	case pantrybot.RoutingLogFile:
		path := pantrybot.NewRoutingLogFilePath(cfg.Model.ID())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open routing log: %w", err)
		}
		logger := pantrybot.NewFileRoutingLogger(f)
		a.closers = append(a.closers, func() error {
			return errors.Join(logger.Flush(), f.Close())
		})
		slog.Info("SETUP: Routing log enabled", "path", path)
		return logger, nil
	default:
		return pantrybot.NewNoOpRoutingLogger(), nil
	}
}

// awsRegion reports the region the AWS SDK resolved, for startup logs.
func awsRegion(cfg aws.Config) string {
	if cfg.Region == "" {
		return "unset"
	}
	return cfg.Region
}
