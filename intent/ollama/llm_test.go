package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"pantrybot/intent"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
	request  *http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.request = req
	return m.response, m.err
}

// createMockResponse creates a mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testPrompt() intent.Prompt {
	return intent.Prompt{
		System:   "route it",
		Messages: []intent.Message{intent.TextMessage("user", "remove 3 bananas")},
		Tools: []intent.ToolSpec{{
			Name:        "reduce_ingredient_quantity",
			Description: "Reduce an ingredient",
			InputSchema: &jsonschema.Schema{Type: "object"},
		}},
	}
}

func TestNewClient(t *testing.T) {
	got, err := NewClient(ClientOpts{
		BaseEndpoint: "http://localhost:11434/",
		ModelID:      "llama3.1",
		HTTPClient:   &mockHTTPClient{},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if got.endpoint != "http://localhost:11434/api/chat" {
		t.Errorf("NewClient() endpoint = %v", got.endpoint)
	}
	if got.options.Temperature != 0.2 || got.options.TopP != 0.9 {
		t.Errorf("NewClient() options = %+v, want defaults", got.options)
	}

	if _, err := NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434"}); err == nil {
		t.Error("NewClient() without model id should fail")
	}
}

func TestClient_Invoke(t *testing.T) {
	tests := []struct {
		name         string
		mockResponse *http.Response
		mockError    error
		wantContent  string
		wantTools    []string
		wantErr      string
	}{
		{
			name: "native tool call",
			mockResponse: createMockResponse(200, `{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"function": {"name": "reduce_ingredient_quantity", "arguments": {"identifier": "Banana", "amount": 3}}}]
				}
			}`),
			wantTools: []string{"reduce_ingredient_quantity"},
		},
		{
			name:         "text content",
			mockResponse: createMockResponse(200, `{"message": {"role": "assistant", "content": "{\"name\":\"get_ingredient_list\",\"input\":{}}"}}`),
			wantContent:  `{"name":"get_ingredient_list","input":{}}`,
		},
		{
			name:         "undecodable body returned raw",
			mockResponse: createMockResponse(200, `not json`),
			wantContent:  "not json",
		},
		{
			name:         "non-200 status",
			mockResponse: createMockResponse(500, `model not loaded`),
			wantErr:      "model not loaded",
		},
		{
			name:      "transport error",
			mockError: errors.New("connection refused"),
			wantErr:   "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpClient := &mockHTTPClient{response: tt.mockResponse, err: tt.mockError}
			client, err := NewClient(ClientOpts{BaseEndpoint: "http://ollama", ModelID: "llama3.1", HTTPClient: httpClient})
			if err != nil {
				t.Fatal(err)
			}

			resp, err := client.Invoke(context.Background(), testPrompt())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Invoke() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if resp.Content != tt.wantContent {
				t.Errorf("Invoke() content = %q, want %q", resp.Content, tt.wantContent)
			}
			if len(resp.ToolCalls) != len(tt.wantTools) {
				t.Fatalf("Invoke() tool calls = %d, want %d", len(resp.ToolCalls), len(tt.wantTools))
			}
			for i, call := range resp.ToolCalls {
				if call.Name != tt.wantTools[i] {
					t.Errorf("Invoke() tool %d = %s, want %s", i, call.Name, tt.wantTools[i])
				}
				if call.ToolUseID == "" {
					t.Errorf("Invoke() tool %d has no id", i)
				}
				if call.Input["amount"] != 3.0 {
					t.Errorf("Invoke() amount = %v, want 3", call.Input["amount"])
				}
			}
		})
	}
}

func TestClient_InvokeRequestBody(t *testing.T) {
	httpClient := &mockHTTPClient{response: createMockResponse(200, `{"message":{"role":"assistant","content":""}}`)}
	client, err := NewClient(ClientOpts{BaseEndpoint: "http://ollama", ModelID: "llama3.1", HTTPClient: httpClient})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Invoke(context.Background(), testPrompt()); err != nil {
		t.Fatal(err)
	}

	body, err := io.ReadAll(httpClient.request.Body)
	if err != nil {
		t.Fatal(err)
	}
	var req wireRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatal(err)
	}
	if req.Model != "llama3.1" || req.Stream {
		t.Errorf("request model = %s stream = %v", req.Model, req.Stream)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "remove 3 bananas" {
		t.Errorf("request messages = %+v", req.Messages)
	}
	if len(req.Tools) != 1 || req.Tools[0].Type != "function" || req.Tools[0].Function.Parameters["type"] != "object" {
		t.Errorf("request tools = %+v", req.Tools)
	}
	if ct := httpClient.request.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}
}

func TestBuildMessages(t *testing.T) {
	prompt := intent.Prompt{Messages: []intent.Message{
		intent.TextMessage("user", "remove bananas"),
		{Role: "assistant", Content: intent.MessageParts{{
			Type: intent.PartToolUse, ToolUseID: "t1", ToolName: "reduce_ingredient_quantity",
			Data: map[string]any{"identifier": "Banana"},
		}}},
		{Role: "user", Content: intent.MessageParts{{
			Type: intent.PartToolResult, ToolUseID: "t1", ToolName: "reduce_ingredient_quantity",
			Data: map[string]any{"error": "amount is required"},
		}}},
	}}

	got := buildMessages(prompt)
	if len(got) != 3 {
		t.Fatalf("buildMessages() = %d messages, want 3", len(got))
	}
	if len(got[1].ToolCalls) != 1 || got[1].ToolCalls[0].Function.Name != "reduce_ingredient_quantity" {
		t.Errorf("assistant message = %+v", got[1])
	}
	if got[2].Role != "tool" || got[2].Name != "reduce_ingredient_quantity" || !strings.Contains(got[2].Content, "amount is required") {
		t.Errorf("tool message = %+v", got[2])
	}
}
