package chat

import (
	"context"
	"fmt"
	"log/slog"

	"pantrybot"
	"pantrybot/inventory"
)

// Digest evaluates what expires within thresholdDays of today and, when
// notifier is set, posts the report to channel. The rendered text is
// returned either way.
func Digest(ctx context.Context, store *inventory.Store, notifier pantrybot.Notifier, channel string, thresholdDays int) (string, error) {
	report, err := store.CheckExpiring(ctx, store.Now(), thresholdDays)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate expiry: %w", err)
	}

	text := ExpiryText(report)
	if notifier == nil {
		slog.Info("CHAT: No notifier configured, digest not posted", "items", len(report.Items))
		return text, nil
	}
	if err := notifier.PostMessage(ctx, channel, text); err != nil {
		return text, fmt.Errorf("failed to post digest: %w", err)
	}
	slog.Info("CHAT: Posted expiry digest", "channel", channel, "items", len(report.Items))
	return text, nil
}
