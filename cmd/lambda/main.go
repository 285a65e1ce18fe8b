package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"pantrybot"
	"pantrybot/app"

	"github.com/aws/aws-lambda-go/lambda"
)

type Params struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	// Digest posts the expiry digest instead of handling a message, for
	// scheduled invocations.
	Digest bool `json:"digest,omitempty"`
}

type Results struct {
	Reply string `json:"reply"`
}

func main() {
	ctx := context.Background()

	cfg, err := pantrybot.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %s", err)
	}

	otelShutdown, err := pantrybot.InitOtel(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %s", err)
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	// Built once per container so sessions and the snapshot survive warm
	// invocations.
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %s", err)
	}
	defer a.Close()

	lambda.Start(func(ctx context.Context, params Params) (Results, error) {
		if params.Digest {
			text, err := a.Digest(ctx)
			return Results{Reply: text}, err
		}
		if params.ConversationID == "" {
			return Results{}, errors.New("conversation_id is required")
		}
		return Results{Reply: a.Chat.Handle(ctx, params.ConversationID, params.Text)}, nil
	})
}
