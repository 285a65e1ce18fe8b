// Package intent turns a free-form utterance into a typed command by asking a
// language model to select one inventory tool.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pantrybot"
	"pantrybot/command"
	"pantrybot/session"
	"pantrybot/tools"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// maxAttempts is the first try plus one corrective retry.
	maxAttempts = 2

	DefaultTimeout = 30 * time.Second
)

// NameSource lists the ingredient names the model may refer to.
type NameSource interface {
	Names(ctx context.Context) ([]string, error)
}

type Router struct {
	llm           LLMClient
	registry      *tools.Registry
	maxIterations int
	historyTurns  int
	timeout       time.Duration
	now           func() time.Time
	names         NameSource
	logger        pantrybot.RoutingLogger
	tracer        trace.Tracer

	routes        metric.Int64Counter
	parseFailures metric.Int64Counter
	timeouts      metric.Int64Counter
	latency       metric.Float64Histogram
}

type Option func(*Router)

// WithMaxIterations caps model invocations per utterance. Values are
// clamped to 1..pantrybot.MaxRouterIterations.
func WithMaxIterations(n int) Option {
	return func(r *Router) { r.maxIterations = min(max(n, 1), pantrybot.MaxRouterIterations) }
}

func WithHistoryTurns(n int) Option {
	return func(r *Router) { r.historyTurns = max(n, 0) }
}

// WithTimeout bounds each model invocation.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

func WithNameSource(names NameSource) Option {
	return func(r *Router) { r.names = names }
}

func WithRoutingLogger(logger pantrybot.RoutingLogger) Option {
	return func(r *Router) { r.logger = logger }
}

func NewRouter(llm LLMClient, registry *tools.Registry, opts ...Option) *Router {
	r := &Router{
		llm:           llm,
		registry:      registry,
		maxIterations: pantrybot.MaxRouterIterations,
		historyTurns:  session.DefaultWindow,
		timeout:       DefaultTimeout,
		now:           time.Now,
		logger:        pantrybot.NewNoOpRoutingLogger(),
		tracer:        otel.Tracer(pantrybot.TracerNameRouter),
	}
	for _, opt := range opts {
		opt(r)
	}

	meter := otel.Meter(pantrybot.MeterNameRouter)
	r.routes, _ = meter.Int64Counter("router_routes_total",
		metric.WithDescription("Total number of utterances routed"))
	r.parseFailures, _ = meter.Int64Counter("router_parse_failures_total",
		metric.WithDescription("Total number of model outputs that could not be turned into a command"))
	r.timeouts, _ = meter.Int64Counter("router_timeouts_total",
		metric.WithDescription("Total number of model invocations that timed out"))
	r.latency, _ = meter.Float64Histogram("router_model_latency_seconds",
		metric.WithDescription("Time taken to receive a response from the model in seconds"))
	return r
}

// Route maps utterance to a command. The literals ping, help and tools are
// answered without the model. Otherwise the model gets at most one
// corrective retry, and never more than the configured iteration cap.
func (r *Router) Route(ctx context.Context, utterance string, history []session.Turn) (command.Command, error) {
	if cmd, ok := command.Literal(utterance); ok {
		slog.Info("ROUTER: Literal command", "command", cmd.Name())
		return cmd, nil
	}

	ctx, span := r.tracer.Start(ctx, "Router.Route")
	defer span.End()
	r.routes.Add(ctx, 1)

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, r.fail(ctx, span, &ParseFailureError{Reason: "empty message"})
	}

	var known []string
	if r.names != nil {
		names, err := r.names.Names(ctx)
		if err != nil {
			slog.Warn("ROUTER: Could not load ingredient names", "error", err)
		} else {
			known = names
		}
	}

	prompt := NewPrompt(r.now(), utterance, history, r.historyTurns, known, r.registry)
	attempts := min(r.maxIterations, maxAttempts)

	var failure *ParseFailureError
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := r.invoke(ctx, prompt)
		if err != nil {
			r.logAttempt(ctx, attempt, utterance, resp, err)
			return nil, r.fail(ctx, span, err)
		}
		if len(resp.ToolCalls) == 0 {
			resp.ParseModelOutput()
		}

		cmd, call, err := r.decode(resp)
		r.logAttempt(ctx, attempt, utterance, resp, err)
		if err == nil {
			span.SetAttributes(attribute.String("router.command", cmd.Name()), attribute.Int("router.attempts", attempt))
			slog.Info("ROUTER: Routed utterance", "command", cmd.Name(), "attempt", attempt)
			return cmd, nil
		}

		slog.Warn("ROUTER: Unusable model output", "attempt", attempt, "error", err)
		failure = &ParseFailureError{Raw: rawOutput(resp), Reason: err.Error(), Attempts: attempt}
		prompt.Messages = append(prompt.Messages, feedback(resp, call, err)...)
	}

	return nil, r.fail(ctx, span, failure)
}

func (r *Router) invoke(ctx context.Context, prompt Prompt) (Response, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.llm.Invoke(callCtx, prompt)
	r.latency.Record(ctx, time.Since(start).Seconds())
	if err == nil {
		return resp, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		r.timeouts.Add(ctx, 1)
		return Response{}, fmt.Errorf("%w after %s: %w", ErrUpstreamTimeout, time.Since(start).Round(time.Millisecond), err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Response{}, ctxErr
	}
	return Response{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

// decode requires exactly one tool call and decodes its arguments.
func (r *Router) decode(resp Response) (command.Command, *tools.Call, error) {
	switch len(resp.ToolCalls) {
	case 0:
		return nil, nil, errors.New("no tool was called")
	case 1:
	default:
		names := make([]string, 0, len(resp.ToolCalls))
		for _, c := range resp.ToolCalls {
			names = append(names, c.Name)
		}
		return nil, &resp.ToolCalls[0], fmt.Errorf("expected exactly one tool call, got %d (%s)", len(names), strings.Join(names, ", "))
	}

	call := &resp.ToolCalls[0]
	cmd, err := r.registry.Decode(*call)
	if err != nil {
		return nil, call, err
	}
	return cmd, call, nil
}

// feedback builds the messages that tell the model why its last output was
// rejected, as a tool result when it called a tool and as text otherwise.
func feedback(resp Response, call *tools.Call, reason error) []Message {
	if call != nil && call.ToolUseID != "" {
		input := call.Input
		if input == nil {
			input = map[string]any{}
		}
		return []Message{
			{Role: session.RoleAssistant, Content: MessageParts{{
				Type: PartToolUse, ToolUseID: call.ToolUseID, ToolName: call.Name, Data: input,
			}}},
			{Role: session.RoleUser, Content: MessageParts{{
				Type: PartToolResult, ToolUseID: call.ToolUseID, ToolName: call.Name,
				Data: map[string]any{"error": reason.Error()},
			}}},
		}
	}

	msgs := make([]Message, 0, 2)
	if raw := rawOutput(resp); raw != "" {
		msgs = append(msgs, TextMessage(session.RoleAssistant, raw))
	}
	msgs = append(msgs, TextMessage(session.RoleUser, fmt.Sprintf(
		"Your previous reply could not be used: %s. Call exactly one of the provided tools with valid arguments.", reason)))
	return msgs
}

func rawOutput(resp Response) string {
	if len(resp.ToolCalls) == 0 {
		return resp.Content
	}
	b, err := json.Marshal(map[string]any{"content": resp.Content, "tool_calls": resp.ToolCalls})
	if err != nil {
		return resp.Content
	}
	return string(b)
}

func (r *Router) fail(ctx context.Context, span trace.Span, err error) error {
	if errors.Is(err, ErrParseFailure) {
		r.parseFailures.Add(ctx, 1)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (r *Router) logAttempt(ctx context.Context, attempt int, utterance string, resp Response, err error) {
	entry := pantrybot.AttemptLog{
		RequestID:   RequestID(ctx),
		Attempt:     attempt,
		Timestamp:   time.Now(),
		Utterance:   utterance,
		ModelOutput: resp.Content,
	}
	for _, c := range resp.ToolCalls {
		entry.ToolCalls = append(entry.ToolCalls, pantrybot.ToolCallLog{Name: c.Name, Input: c.Input})
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if lerr := r.logger.LogAttempt(entry); lerr != nil {
		slog.Error("ROUTER: Failed to log attempt", "error", lerr)
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx with a request id that routing logs carry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
