// Package ollama is the Ollama /api/chat backend for the intent router.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pantrybot"
	"pantrybot/intent"
	"pantrybot/tools"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient pantrybot.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	Temperature  float64
	TopP         float64
	HTTPClient   pantrybot.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("ollama: model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.TopP == 0 {
		opts.TopP = 0.9
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   opts.Temperature,
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
		},
	}, nil
}

type wireFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type wireToolCall struct {
	Function wireFunction `json:"function"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Name      string         `json:"name,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string         `json:"type"`
	Function wireToolSchema `json:"function"`
}

type wireToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
	// other metadata omitted but available
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

// Invoke sends the prompt to the Ollama chat API. Native tool calls are
// returned as calls; anything else is returned verbatim in Content for the
// router's text fallback.
func (c *Client) Invoke(ctx context.Context, prompt intent.Prompt) (intent.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	toolList, err := buildTools(prompt.Tools)
	if err != nil {
		return intent.Response{}, err
	}

	reqBody := wireRequest{
		Model:    c.model,
		Messages: buildMessages(prompt),
		Tools:    toolList,
		Stream:   false,
		Options:  c.options,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return intent.Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return intent.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return intent.Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return intent.Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return intent.Response{}, fmt.Errorf("ollama: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body", string(body))
		return intent.Response{Content: string(body)}, nil
	}

	out := intent.Response{Content: wr.Message.Content}
	for _, call := range wr.Message.ToolCalls {
		args := call.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		// Ollama does not identify calls; an id lets the router answer
		// with a tool result.
		out.ToolCalls = append(out.ToolCalls, tools.Call{
			Name:      call.Function.Name,
			Input:     args,
			ToolUseID: "call_" + uuid.NewString(),
		})
	}
	slog.Info("LLM_CLIENT: Ollama invoke succeeded", "calls_len", len(out.ToolCalls), "text_len", len(out.Content))
	return out, nil
}

// buildMessages converts the prompt into Ollama chat messages. The system
// prompt goes first; tool uses become assistant tool_calls and tool results
// become role=tool messages carrying JSON.
func buildMessages(prompt intent.Prompt) []wireMessage {
	messages := make([]wireMessage, 0, len(prompt.Messages)+1)
	if sp := strings.TrimSpace(prompt.System); sp != "" {
		messages = append(messages, wireMessage{Role: "system", Content: sp})
	}

	for _, m := range prompt.Messages {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		msg := wireMessage{Role: role, Content: m.Content.Join()}

		for _, part := range m.Content {
			switch part.Type {
			case intent.PartToolUse:
				msg.ToolCalls = append(msg.ToolCalls, wireToolCall{Function: wireFunction{
					Name: part.ToolName, Arguments: part.Data,
				}})
			case intent.PartToolResult:
				data, err := json.Marshal(part.Data)
				if err != nil {
					slog.Warn("LLM_CLIENT: dropping unencodable tool result", "error", err)
					continue
				}
				messages = append(messages, wireMessage{Role: "tool", Name: part.ToolName, Content: string(data)})
			}
		}

		if msg.Content != "" || len(msg.ToolCalls) > 0 {
			messages = append(messages, msg)
		}
	}
	return messages
}

func buildTools(specs []intent.ToolSpec) ([]wireTool, error) {
	out := make([]wireTool, 0, len(specs))
	for _, t := range specs {
		schemaJSON, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
		}
		var params map[string]any
		if err := json.Unmarshal(schemaJSON, &params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
		}
		out = append(out, wireTool{
			Type: "function",
			Function: wireToolSchema{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
}
