package pantrybot

import (
	"context"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier posts a plain text message to a channel.
type Notifier interface {
	PostMessage(ctx context.Context, channel string, message string) error
}
