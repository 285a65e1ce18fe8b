package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pantrybot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() pantrybot.Config {
	return pantrybot.Config{
		Model: pantrybot.ModelConfig{Provider: pantrybot.ProviderMock, Timeout: time.Second},
		Agent: pantrybot.AgentConfig{
			MaxIterations:       10,
			HistoryTurns:        5,
			ExpiryThresholdDays: 3,
			RoutingLog:          pantrybot.RoutingLogNone,
		},
		Store: pantrybot.StoreConfig{Backend: pantrybot.BackendMemory, Timeout: time.Second, CacheTTL: time.Hour},
		Server: pantrybot.ServerConfig{SlackChannel: "#pantry"},
	}
}

func TestBuild_MockConversation(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.Notifier)

	reply := a.Chat.Handle(ctx, "C1", "bought 2 l milk")
	assert.Equal(t, "Added #1 milk, 2 l.", reply)

	reply = a.Chat.Handle(ctx, "C1", "list")
	assert.True(t, strings.HasPrefix(reply, "You have 1 ingredient(s):"), reply)

	assert.Equal(t, "pong", a.Chat.Handle(ctx, "C1", "ping"))
}

func TestBuild_FileBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Store.Backend = pantrybot.BackendFile
	cfg.Store.FilePath = filepath.Join(t.TempDir(), "ingredients.csv")

	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	a.Chat.Handle(ctx, "C1", "bought 6 bananas")
	require.NoError(t, a.Close())

	reopened, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	names, err := reopened.Store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bananas"}, names)
}

func TestBuild_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Store.Backend = pantrybot.BackendSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "db", "ingredients.db")

	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "Added #1 milk, 2 l.", a.Chat.Handle(ctx, "C1", "bought 2 l milk"))
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*pantrybot.Config)
		want   string
	}{
		{
			name:   "unknown backend",
			mutate: func(c *pantrybot.Config) { c.Store.Backend = "sheets" },
			want:   `unknown store backend "sheets"`,
		},
		{
			name:   "unknown provider",
			mutate: func(c *pantrybot.Config) { c.Model.Provider = "openai" },
			want:   `unknown model provider "openai"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := Build(context.Background(), cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApp_Digest(t *testing.T) {
	var posted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		posted = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg := testConfig()
	cfg.Server.SlackWebhookURL = srv.URL

	a, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Notifier)

	text, err := a.Digest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Nothing expires within 3 day(s).", text)
	assert.Contains(t, posted, `"channel":"#pantry"`)
	assert.Contains(t, posted, "Nothing expires within 3 day(s).")
}
