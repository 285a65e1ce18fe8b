package pantrybot

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	ProviderBedrock = "bedrock"
	ProviderOllama  = "ollama"
	ProviderMock    = "mock"

	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	RoutingLogNone   = "none"
	RoutingLogStdout = "stdout"
	RoutingLogFile   = "file"

	// MaxRouterIterations is the hard cap on model invocations per message.
	MaxRouterIterations = 10
)

// DefaultBedrockModelID is an inference profile ID, not the foundation
// model's ID. See
// https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
const DefaultBedrockModelID = "us.anthropic.claude-3-haiku-20240307-v1:0"

var defaultModelIDs = map[string]string{
	ProviderBedrock: DefaultBedrockModelID,
	ProviderOllama:  "llama3.1",
	ProviderMock:    "mock",
}

type ModelConfig struct {
	Provider           string        `env:"MODEL_PROVIDER,default=bedrock"`
	ModelID            string        `env:"MODEL_ID"`
	MaxTokens          int32         `env:"MAX_TOKENS,default=1024"`
	Temperature        float32       `env:"TEMPERATURE,default=0.2"`
	TopP               float32       `env:"TOP_P,default=0.9"`
	Timeout            time.Duration `env:"MODEL_TIMEOUT,default=30s"`
	BaseOllamaEndpoint string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
}

// ID returns the configured model id or the provider's default.
func (m ModelConfig) ID() string {
	if m.ModelID != "" {
		return m.ModelID
	}
	return defaultModelIDs[m.Provider]
}

type AgentConfig struct {
	MaxIterations       int    `env:"MAX_ITERATIONS,default=10"`
	HistoryTurns        int    `env:"HISTORY_TURNS,default=5"`
	ExpiryThresholdDays int    `env:"EXPIRY_THRESHOLD_DAYS,default=3"`
	RoutingLog          string `env:"ROUTING_LOG,default=none"`
}

// Iterations returns MaxIterations clamped to 1..MaxRouterIterations.
func (a AgentConfig) Iterations() int {
	return min(max(a.MaxIterations, 1), MaxRouterIterations)
}

type StoreConfig struct {
	Backend     string        `env:"STORE_BACKEND,default=file"`
	FilePath    string        `env:"STORE_FILE_PATH,default=artifacts/ingredients.csv"`
	S3Bucket    string        `env:"STORE_S3_BUCKET"`
	S3Key       string        `env:"STORE_S3_KEY,default=ingredients.csv"`
	SQLitePath  string        `env:"STORE_SQLITE_PATH,default=artifacts/ingredients.db"`
	DatabaseURL string        `env:"DATABASE_URL"`
	Timeout     time.Duration `env:"STORE_TIMEOUT,default=10s"`
	CacheTTL    time.Duration `env:"STORE_CACHE_TTL,default=24h"`
}

type ServerConfig struct {
	HTTPAddr        string `env:"HTTP_ADDR,default=:8080"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"SLACK_CHANNEL,default=#pantry"`
}

type Config struct {
	Model  ModelConfig
	Agent  AgentConfig
	Store  StoreConfig
	Server ServerConfig
}

// LoadConfig reads a .env file when one exists, then decodes the
// environment into a Config and validates it.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Model.Provider {
	case ProviderBedrock, ProviderOllama, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown MODEL_PROVIDER %q", c.Model.Provider))
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendS3:
		if c.Store.S3Bucket == "" {
			errs = append(errs, errors.New("STORE_S3_BUCKET is required for the s3 backend"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	switch c.Agent.RoutingLog {
	case RoutingLogNone, RoutingLogStdout, RoutingLogFile:
	default:
		errs = append(errs, fmt.Errorf("unknown ROUTING_LOG %q", c.Agent.RoutingLog))
	}
	if c.Agent.HistoryTurns < 0 {
		errs = append(errs, errors.New("HISTORY_TURNS must not be negative"))
	}
	if c.Agent.ExpiryThresholdDays < 0 {
		errs = append(errs, errors.New("EXPIRY_THRESHOLD_DAYS must not be negative"))
	}
	return errors.Join(errs...)
}
