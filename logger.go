package pantrybot

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// RoutingLogger records every model attempt the intent router makes.
type RoutingLogger interface {
	LogAttempt(attempt AttemptLog) error
}

// NewRoutingLogFilePath returns a file path based on a cleaned up model id so
// logs produced with different models are easy to tell apart.
func NewRoutingLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// AttemptLog is one model invocation made while routing an utterance.
type AttemptLog struct {
	RequestID   string        `json:"request_id,omitempty"`
	Attempt     int           `json:"attempt"`
	Timestamp   time.Time     `json:"timestamp"`
	Utterance   string        `json:"utterance,omitempty"`
	ModelOutput any           `json:"model_output"`
	ToolCalls   []ToolCallLog `json:"tool_calls,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type ToolCallLog struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
	Error string         `json:"error,omitempty"`
}

// FileRoutingLogger buffers attempts and writes them out on Flush.
type FileRoutingLogger struct {
	mu       sync.Mutex
	attempts []AttemptLog
	writer   io.Writer
}

func NewFileRoutingLogger(writer io.Writer) *FileRoutingLogger {
	return &FileRoutingLogger{writer: writer}
}

func (l *FileRoutingLogger) LogAttempt(attempt AttemptLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

func (l *FileRoutingLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil || len(l.attempts) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"routing_session": map[string]any{
			"timestamp": time.Now(),
			"attempts":  l.attempts,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal routing log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write routing log: %w", err)
	}

	l.attempts = l.attempts[:0]
	return nil
}

type NoOpRoutingLogger struct{}

func NewNoOpRoutingLogger() *NoOpRoutingLogger {
	return &NoOpRoutingLogger{}
}

func (NoOpRoutingLogger) LogAttempt(AttemptLog) error {
	return nil
}

// StreamRoutingLogger writes each attempt as a JSON line, which is what
// CloudWatch and container log collectors expect.
type StreamRoutingLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStreamRoutingLogger(w io.Writer) *StreamRoutingLogger {
	return &StreamRoutingLogger{w: w}
}

func (l *StreamRoutingLogger) LogAttempt(attempt AttemptLog) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
